package services

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbaras/jpegpng/pkg/data"
	"github.com/kerbaras/jpegpng/pkg/logging"
	"github.com/kerbaras/jpegpng/pkg/styles"
)

type mockHistoryRepository struct {
	startRunFunc         func(directory, pattern string) (*data.Run, error)
	recordConversionFunc func(c *data.Conversion) error
	finished             []*data.Run
	recorded             []*data.Conversion
}

func (m *mockHistoryRepository) StartRun(directory, pattern string) (*data.Run, error) {
	if m.startRunFunc != nil {
		return m.startRunFunc(directory, pattern)
	}
	return &data.Run{ID: "run-1", Directory: directory, Pattern: pattern}, nil
}

func (m *mockHistoryRepository) RecordConversion(c *data.Conversion) error {
	m.recorded = append(m.recorded, c)
	if m.recordConversionFunc != nil {
		return m.recordConversionFunc(c)
	}
	return nil
}

func (m *mockHistoryRepository) FinishRun(run *data.Run) error {
	m.finished = append(m.finished, run)
	return nil
}

func TestConsoleReporter_Lines(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, styles.NewTheme(styles.NewRenderer(&buf, "never")))

	r.Report(Outcome{Source: "data/a.jpeg", Destination: "data/a.png", Status: data.StatusConverted})
	r.Report(Outcome{Source: "data/b.jpeg", Destination: "data/b.png", Status: data.StatusFailed, Err: errors.New("could not read source: unexpected EOF")})
	r.Report(Outcome{Status: data.StatusSkipped, Err: errors.New("attempting to read data: permission denied")})

	assert.Equal(t,
		"Converted: data/a.jpeg to data/a.png\n"+
			"Failed to convert data/b.jpeg: could not read source: unexpected EOF\n"+
			"Skipped: attempting to read data: permission denied\n",
		buf.String())
}

func TestMultiReporter(t *testing.T) {
	a, b := &recordingReporter{}, &recordingReporter{}
	MultiReporter{a, b}.Report(Outcome{Seq: 7})

	require.Len(t, a.outcomes, 1)
	require.Len(t, b.outcomes, 1)
	assert.Equal(t, 7, b.outcomes[0].Seq)
}

func TestHistoryReporter(t *testing.T) {
	repo := &mockHistoryRepository{}
	h, err := NewHistoryReporter(repo, "data", "*.jpeg", logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "run-1", h.RunID())

	h.Report(Outcome{Seq: 1, Source: "data/a.jpeg", Destination: "data/a.png", Status: data.StatusConverted})
	h.Report(Outcome{Seq: 2, Source: "data/b.jpeg", Destination: "data/b.png", Status: data.StatusFailed, Err: errors.New("bad")})

	require.Len(t, repo.recorded, 2)
	assert.Equal(t, "run-1", repo.recorded[0].RunID)
	assert.Empty(t, repo.recorded[0].Error)
	assert.Equal(t, "bad", repo.recorded[1].Error)

	require.NoError(t, h.Finish(&Result{Converted: 1, Failed: 1}, nil))
	require.Len(t, repo.finished, 1)
	assert.Equal(t, 1, repo.finished[0].Converted)
	assert.Equal(t, 1, repo.finished[0].Failed)
	assert.Empty(t, repo.finished[0].SetupError)
}

func TestHistoryReporter_Interrupted(t *testing.T) {
	repo := &mockHistoryRepository{}
	h, err := NewHistoryReporter(repo, "data", "*.jpeg", logging.Discard())
	require.NoError(t, err)

	res := &Result{Converted: 1, Interrupted: true}
	require.NoError(t, h.Finish(res, nil))
	require.Len(t, repo.finished, 1)
	assert.True(t, repo.finished[0].Interrupted)
	assert.Equal(t, ExitPartial, ExitCode(res, nil))
}

func TestHistoryReporter_SetupError(t *testing.T) {
	repo := &mockHistoryRepository{}
	h, err := NewHistoryReporter(repo, "data", "[", logging.Discard())
	require.NoError(t, err)

	require.NoError(t, h.Finish(nil, errors.New("syntax error in pattern")))
	assert.Equal(t, "syntax error in pattern", repo.finished[0].SetupError)
}

func TestHistoryReporter_StorageErrorsAreNotFatal(t *testing.T) {
	repo := &mockHistoryRepository{
		recordConversionFunc: func(c *data.Conversion) error { return errors.New("disk full") },
	}
	h, err := NewHistoryReporter(repo, "data", "*.jpeg", logging.Discard())
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		h.Report(Outcome{Seq: 1, Source: "data/a.jpeg", Status: data.StatusConverted})
	})
}

func TestNewHistoryReporter_StartFails(t *testing.T) {
	repo := &mockHistoryRepository{
		startRunFunc: func(directory, pattern string) (*data.Run, error) { return nil, errors.New("locked") },
	}
	_, err := NewHistoryReporter(repo, "data", "*.jpeg", logging.Discard())
	assert.Error(t, err)
}
