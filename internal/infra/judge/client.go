package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"code-session-service/internal/app"
	"code-session-service/internal/domain"
)

// Client talks to the external judge service over HTTP. Two call shapes:
// POST /submissions/judge returns the verdict only, POST
// /submissions/output additionally returns per-testcase output. Both share
// the same response envelope.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type submitBody struct {
	SectionID int64  `json:"sectionId"`
	ProblemID int64  `json:"problemId"`
	Code      string `json:"code"`
	Language  string `json:"language"`
}

type submitEnvelope struct {
	Result          string                  `json:"result"`
	SubmissionID    string                  `json:"submissionId"`
	SubmittedAt     time.Time               `json:"submittedAt"`
	Language        string                  `json:"language"`
	TestcaseOutputs []domain.TestcaseOutput `json:"testcaseOutputs,omitempty"`
}

type errorEnvelope struct {
	Message string `json:"message"`
}

// Submit sends the code to the judge and maps the envelope onto the
// closed verdict set. Timeouts are this client's http.Client timeout; the
// session layer above never cancels a dispatched call.
func (c *Client) Submit(ctx context.Context, req app.JudgeRequest) (domain.SubmissionResult, error) {
	path := "/submissions/judge"
	if req.IncludeTestcases {
		path = "/submissions/output"
	}

	raw, err := json.Marshal(submitBody{
		SectionID: req.SectionID,
		ProblemID: req.ProblemID,
		Code:      req.Code,
		Language:  req.Language,
	})
	if err != nil {
		return domain.SubmissionResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("judge call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("judge response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Surface the backend's own message: the orchestrator string-matches
		// it for deadline/deactivation conditions.
		var fail errorEnvelope
		if jsonErr := json.Unmarshal(body, &fail); jsonErr == nil && fail.Message != "" {
			return domain.SubmissionResult{}, fmt.Errorf("judge rejected submission: %s", fail.Message)
		}
		return domain.SubmissionResult{}, fmt.Errorf("judge returned status %d", resp.StatusCode)
	}

	var env submitEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("judge response: %w", err)
	}

	return domain.SubmissionResult{
		SubmissionID:    env.SubmissionID,
		Language:        env.Language,
		SubmittedAt:     env.SubmittedAt,
		RawVerdict:      domain.ParseVerdict(env.Result),
		TestcaseOutputs: env.TestcaseOutputs,
	}, nil
}
