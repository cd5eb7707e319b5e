package services

import "github.com/kerbaras/jpegpng/pkg/data"

// Process exit statuses for a batch.
const (
	ExitOK      = 0 // every entry converted, or nothing to do
	ExitFailure = 1 // setup failed, or nothing converted while entries failed
	ExitPartial = 2 // some entries converted, some failed or were skipped
)

// Outcome is what happened to one enumerated entry.
type Outcome struct {
	Seq         int
	Source      string
	Destination string
	Status      string // data.StatusConverted, data.StatusFailed or data.StatusSkipped
	Err         error
}

// Result aggregates the outcomes of a batch.
type Result struct {
	Outcomes    []Outcome
	Converted   int
	Failed      int
	Skipped     int
	Interrupted bool
}

func (r *Result) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case data.StatusConverted:
		r.Converted++
	case data.StatusFailed:
		r.Failed++
	case data.StatusSkipped:
		r.Skipped++
	}
}

// ExitCode maps a batch result and setup error to a process exit status so
// callers can tell total failure, partial success and full success apart.
func ExitCode(res *Result, setupErr error) int {
	if setupErr != nil || res == nil {
		return ExitFailure
	}
	problems := res.Failed + res.Skipped
	switch {
	case problems > 0 && res.Converted == 0:
		return ExitFailure
	case problems > 0 || res.Interrupted:
		return ExitPartial
	default:
		return ExitOK
	}
}
