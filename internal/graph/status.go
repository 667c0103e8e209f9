package graph

// Status is a node's execution state as shown in the UI. The orchestrator
// patches it from the remote event stream; it never lives in the persisted
// declarative form.
type Status string

const (
	StatusPending   Status = "pending"
	StatusWaiting   Status = "waiting"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailure   Status = "failure"
	StatusError     Status = "error"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusError, StatusSkipped, StatusCancelled:
		return true
	}
	return false
}

// Failed reports whether the status represents an unsuccessful completion.
func (s Status) Failed() bool {
	return s == StatusFailure || s == StatusError
}

// Icon returns a marker for log lines.
func (s Status) Icon() string {
	switch s {
	case StatusRunning:
		return "▶️"
	case StatusWaiting:
		return "⏳"
	case StatusSuccess:
		return "✅"
	case StatusFailure, StatusError:
		return "❌"
	case StatusSkipped:
		return "⏭️"
	case StatusCancelled:
		return "🛑"
	}
	return "•"
}
