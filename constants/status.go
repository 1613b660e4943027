package constants

// ProcessingStatus is the canonical status for rows in documents.
type ProcessingStatus string

// Stable values (store these exact strings in DB).
const (
	StatusPending    ProcessingStatus = "pending"    // uploaded, waiting for a worker
	StatusProcessing ProcessingStatus = "processing" // a run holds the document
	StatusCompleted  ProcessingStatus = "completed"  // scorer finished
	StatusFailed     ProcessingStatus = "failed"     // terminal failure
)

var transitions = map[ProcessingStatus][]ProcessingStatus{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {StatusProcessing},
	StatusFailed:     {StatusProcessing},
}

// CanTransition reports whether from -> to is an allowed status change.
func CanTransition(from, to ProcessingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ParseStatus accepts the stored string form.
func ParseStatus(s string) (ProcessingStatus, bool) {
	switch ProcessingStatus(s) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return ProcessingStatus(s), true
	}
	return "", false
}

// IsTerminal is true for completed and failed.
func (s ProcessingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
