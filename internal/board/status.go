package board

// TaskStatus is the lifecycle state a task adopts when its card enters a column.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

// InitialStatus is the status of freshly created tasks.
const InitialStatus = StatusTodo

// requiredStatuses must each be mapped by at least one column.
var requiredStatuses = [...]TaskStatus{StatusTodo, StatusDone}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

func isRequired(s TaskStatus) bool {
	for _, r := range requiredStatuses {
		if s == r {
			return true
		}
	}
	return false
}
