package enums

import "fmt"

// ImportJobStatus tracks bulk import jobs through their lifecycle.
type ImportJobStatus string

const (
	ImportJobStatusQueued    ImportJobStatus = "queued"
	ImportJobStatusRunning   ImportJobStatus = "running"
	ImportJobStatusCompleted ImportJobStatus = "completed"
	ImportJobStatusFailed    ImportJobStatus = "failed"
	ImportJobStatusCancelled ImportJobStatus = "cancelled"
)

var validImportJobStatuses = []ImportJobStatus{
	ImportJobStatusQueued,
	ImportJobStatusRunning,
	ImportJobStatusCompleted,
	ImportJobStatusFailed,
	ImportJobStatusCancelled,
}

// String implements fmt.Stringer.
func (s ImportJobStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ImportJobStatus.
func (s ImportJobStatus) IsValid() bool {
	for _, candidate := range validImportJobStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s ImportJobStatus) IsTerminal() bool {
	return s == ImportJobStatusCompleted || s == ImportJobStatusFailed || s == ImportJobStatusCancelled
}

// ParseImportJobStatus converts raw input into an ImportJobStatus.
func ParseImportJobStatus(value string) (ImportJobStatus, error) {
	for _, candidate := range validImportJobStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid import job status %q", value)
}
