package domain

// Verdict is the judge service's classification of a submission. The set is
// closed: any raw code outside it parses to VerdictUnknown instead of
// leaking an unmapped string into the display layer.
type Verdict string

const (
	VerdictAccepted          Verdict = "accepted"
	VerdictWrongAnswer       Verdict = "wrong_answer"
	VerdictTimeLimit         Verdict = "time_limit_exceeded"
	VerdictMemoryLimit       Verdict = "memory_limit_exceeded"
	VerdictRuntimeError      Verdict = "runtime_error"
	VerdictCompileError      Verdict = "compile_error"
	VerdictPresentationError Verdict = "presentation_error"
	VerdictNoOutput          Verdict = "no_output"
	VerdictUnknown           Verdict = "unknown"
)

// ParseVerdict maps a raw judge code onto the closed verdict set.
func ParseVerdict(raw string) Verdict {
	switch Verdict(raw) {
	case VerdictAccepted, VerdictWrongAnswer, VerdictTimeLimit, VerdictMemoryLimit,
		VerdictRuntimeError, VerdictCompileError, VerdictPresentationError, VerdictNoOutput:
		return Verdict(raw)
	}
	return VerdictUnknown
}

// StatusClass is the coarse display classification of a verdict.
type StatusClass string

const (
	StatusSuccess StatusClass = "success"
	StatusWarning StatusClass = "warning"
	StatusError   StatusClass = "error"
)

// VerdictDisplay is what the result panel renders for a verdict.
type VerdictDisplay struct {
	Class StatusClass `json:"statusClass"`
	Label string      `json:"label"`
	Color string      `json:"color"`
}

// Display returns the render record for the verdict. Unmapped verdicts get
// the generic unknown record rather than an error.
func (v Verdict) Display() VerdictDisplay {
	switch v {
	case VerdictAccepted:
		return VerdictDisplay{Class: StatusSuccess, Label: "Accepted", Color: "#2e7d32"}
	case VerdictWrongAnswer:
		return VerdictDisplay{Class: StatusError, Label: "Wrong Answer", Color: "#c62828"}
	case VerdictTimeLimit:
		return VerdictDisplay{Class: StatusError, Label: "Time Limit Exceeded", Color: "#c62828"}
	case VerdictMemoryLimit:
		return VerdictDisplay{Class: StatusError, Label: "Memory Limit Exceeded", Color: "#c62828"}
	case VerdictRuntimeError:
		return VerdictDisplay{Class: StatusError, Label: "Runtime Error", Color: "#c62828"}
	case VerdictCompileError:
		return VerdictDisplay{Class: StatusError, Label: "Compile Error", Color: "#ad1457"}
	case VerdictPresentationError:
		return VerdictDisplay{Class: StatusWarning, Label: "Presentation Error", Color: "#ef6c00"}
	case VerdictNoOutput:
		return VerdictDisplay{Class: StatusWarning, Label: "No Output", Color: "#ef6c00"}
	}
	return VerdictDisplay{Class: StatusWarning, Label: "Unknown Result", Color: "#616161"}
}

// SubmitFailureDisplay is the generic record shown when the judge call
// itself fails, as opposed to a judged rejection.
func SubmitFailureDisplay() VerdictDisplay {
	return VerdictDisplay{Class: StatusError, Label: "Submission Failed", Color: "#c62828"}
}
