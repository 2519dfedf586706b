package enums

import "fmt"

// HistoryAction tags an entry in the append-only contract history.
type HistoryAction string

const (
	HistoryActionCreated       HistoryAction = "CREATED"
	HistoryActionRenewed       HistoryAction = "RENEWED"
	HistoryActionTerminated    HistoryAction = "TERMINATED"
	HistoryActionDeleted       HistoryAction = "DELETED"
	HistoryActionStatusChanged HistoryAction = "STATUS_CHANGED"
)

var validHistoryActions = []HistoryAction{
	HistoryActionCreated,
	HistoryActionRenewed,
	HistoryActionTerminated,
	HistoryActionDeleted,
	HistoryActionStatusChanged,
}

// String implements fmt.Stringer.
func (h HistoryAction) String() string {
	return string(h)
}

// IsValid reports whether the value is a known HistoryAction.
func (h HistoryAction) IsValid() bool {
	for _, candidate := range validHistoryActions {
		if candidate == h {
			return true
		}
	}
	return false
}

// ParseHistoryAction converts raw input into a HistoryAction.
func ParseHistoryAction(value string) (HistoryAction, error) {
	for _, candidate := range validHistoryActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid history action %q", value)
}
