package services

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/kerbaras/jpegpng/pkg/data"
	"github.com/kerbaras/jpegpng/pkg/styles"
)

// Reporter receives each outcome as soon as it is known.
type Reporter interface {
	Report(o Outcome)
}

// ConsoleReporter prints one human-readable line per outcome.
type ConsoleReporter struct {
	mu    sync.Mutex
	out   io.Writer
	theme styles.Theme
}

// NewConsoleReporter writes to out using theme for emphasis.
func NewConsoleReporter(out io.Writer, theme styles.Theme) *ConsoleReporter {
	return &ConsoleReporter{out: out, theme: theme}
}

func (r *ConsoleReporter) Report(o Outcome) {
	var line string
	switch o.Status {
	case data.StatusConverted:
		line = fmt.Sprintf("%s %s to %s", r.theme.Success.Render("Converted:"), o.Source, o.Destination)
	case data.StatusFailed:
		line = fmt.Sprintf("%s %s: %v", r.theme.Warning.Render("Failed to convert"), o.Source, o.Err)
	default:
		line = fmt.Sprintf("%s %v", r.theme.Error.Render("Skipped:"), o.Err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, line)
}

// MultiReporter fans an outcome out to several reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) Report(o Outcome) {
	for _, r := range m {
		r.Report(o)
	}
}

// HistoryRepository is the part of data.Repository the history reporter uses.
type HistoryRepository interface {
	StartRun(directory, pattern string) (*data.Run, error)
	RecordConversion(c *data.Conversion) error
	FinishRun(run *data.Run) error
}

// HistoryReporter records every outcome of one run in the history database.
// Storage errors are logged and never interrupt the batch.
type HistoryReporter struct {
	repo   HistoryRepository
	run    *data.Run
	logger *slog.Logger
}

// NewHistoryReporter starts a run record for directory/pattern.
func NewHistoryReporter(repo HistoryRepository, directory, pattern string, logger *slog.Logger) (*HistoryReporter, error) {
	run, err := repo.StartRun(directory, pattern)
	if err != nil {
		return nil, err
	}
	return &HistoryReporter{repo: repo, run: run, logger: logger}, nil
}

// RunID returns the ID of the run being recorded.
func (h *HistoryReporter) RunID() string {
	return h.run.ID
}

func (h *HistoryReporter) Report(o Outcome) {
	c := &data.Conversion{
		RunID:       h.run.ID,
		Seq:         o.Seq,
		Source:      o.Source,
		Destination: o.Destination,
		Status:      o.Status,
	}
	if o.Err != nil {
		c.Error = o.Err.Error()
	}
	if err := h.repo.RecordConversion(c); err != nil {
		h.logger.Warn("history record failed", "source", o.Source, "error", err)
	}
}

// Finish stores the totals of res, or the setup error when the batch never
// ran.
func (h *HistoryReporter) Finish(res *Result, setupErr error) error {
	if res != nil {
		h.run.Converted = res.Converted
		h.run.Failed = res.Failed
		h.run.Skipped = res.Skipped
		h.run.Interrupted = res.Interrupted
	}
	if setupErr != nil {
		h.run.SetupError = setupErr.Error()
	}
	return h.repo.FinishRun(h.run)
}
