package data

import "time"

// Conversion statuses.
const (
	StatusConverted = "converted"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// Run is one batch invocation over a directory.
type Run struct {
	ID         string
	Directory  string
	Pattern    string
	StartedAt  time.Time
	FinishedAt *time.Time
	Converted  int
	Failed     int
	Skipped    int
	// Interrupted is set when the batch was cancelled before the directory
	// was exhausted.
	Interrupted bool
	SetupError  string
}

// Status summarises the run outcome.
func (r *Run) Status() string {
	switch {
	case r.SetupError != "":
		return "error"
	case r.FinishedAt == nil:
		return "running"
	case r.Failed+r.Skipped > 0 && r.Converted == 0:
		return "failed"
	case r.Interrupted:
		return "interrupted"
	case r.Failed+r.Skipped == 0:
		return "completed"
	default:
		return "partial"
	}
}

// Conversion is the outcome for one enumerated entry.
type Conversion struct {
	RunID       string
	Seq         int
	Source      string
	Destination string
	Status      string // "converted", "failed", "skipped"
	Error       string
	At          time.Time
}
