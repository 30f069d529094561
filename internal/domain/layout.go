package domain

// PanelRole is one of the three logical panels of the solving page.
type PanelRole string

const (
	PanelDescription PanelRole = "description"
	PanelEditor      PanelRole = "editor"
	PanelResult      PanelRole = "result"
)

// PanelSlot is one of the three fixed screen positions.
type PanelSlot string

const (
	SlotLeft        PanelSlot = "left"
	SlotTopRight    PanelSlot = "topRight"
	SlotBottomRight PanelSlot = "bottomRight"
)

// Layout maps the three screen slots to the three panel roles. It is a
// value type; Swap returns a new layout and never mutates the receiver.
// Any layout built from DefaultLayout via Swap stays a bijection.
type Layout struct {
	Left        PanelRole `json:"left"`
	TopRight    PanelRole `json:"topRight"`
	BottomRight PanelRole `json:"bottomRight"`
}

// DefaultLayout is the placement a fresh editor session opens with.
func DefaultLayout() Layout {
	return Layout{
		Left:        PanelDescription,
		TopRight:    PanelEditor,
		BottomRight: PanelResult,
	}
}

// SlotOf returns the slot currently holding the role.
func (l Layout) SlotOf(role PanelRole) (PanelSlot, bool) {
	switch role {
	case l.Left:
		return SlotLeft, true
	case l.TopRight:
		return SlotTopRight, true
	case l.BottomRight:
		return SlotBottomRight, true
	}
	return "", false
}

// RoleAt returns the role occupying the slot.
func (l Layout) RoleAt(slot PanelSlot) (PanelRole, bool) {
	switch slot {
	case SlotLeft:
		return l.Left, true
	case SlotTopRight:
		return l.TopRight, true
	case SlotBottomRight:
		return l.BottomRight, true
	}
	return "", false
}

// Swap exchanges the slots occupied by the dragged and target roles.
// Dragging a role onto itself, or naming a role the layout does not hold,
// leaves the layout unchanged.
func (l Layout) Swap(dragged, target PanelRole) Layout {
	if dragged == target {
		return l
	}
	from, ok := l.SlotOf(dragged)
	if !ok {
		return l
	}
	to, ok := l.SlotOf(target)
	if !ok {
		return l
	}
	out := l
	out.set(from, target)
	out.set(to, dragged)
	return out
}

// Valid reports whether every role occupies exactly one slot.
func (l Layout) Valid() bool {
	seen := map[PanelRole]bool{}
	for _, role := range []PanelRole{l.Left, l.TopRight, l.BottomRight} {
		switch role {
		case PanelDescription, PanelEditor, PanelResult:
			if seen[role] {
				return false
			}
			seen[role] = true
		default:
			return false
		}
	}
	return len(seen) == 3
}

func (l *Layout) set(slot PanelSlot, role PanelRole) {
	switch slot {
	case SlotLeft:
		l.Left = role
	case SlotTopRight:
		l.TopRight = role
	case SlotBottomRight:
		l.BottomRight = role
	}
}
