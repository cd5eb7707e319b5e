package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kerbaras/jpegpng/pkg/config"
	"github.com/kerbaras/jpegpng/pkg/data"
	"github.com/kerbaras/jpegpng/pkg/integrations"
	"github.com/kerbaras/jpegpng/pkg/logging"
	"github.com/kerbaras/jpegpng/pkg/naming"
	"github.com/kerbaras/jpegpng/pkg/styles"
)

// Mock implementations for testing

type mockConverter struct {
	convertFunc func(src, dst string) error
	calls       [][2]string
}

func (m *mockConverter) Convert(src, dst string) error {
	m.calls = append(m.calls, [2]string{src, dst})
	if m.convertFunc != nil {
		return m.convertFunc(src, dst)
	}
	return nil
}

type recordingReporter struct {
	outcomes []Outcome
}

func (r *recordingReporter) Report(o Outcome) {
	r.outcomes = append(r.outcomes, o)
}

func createTestJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 24, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 24; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 10), uint8(y * 10), 200, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func writeFiles(t *testing.T, dir string, files map[string][]byte) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func testConfig(dir string) *config.Config {
	cfg := config.Default()
	cfg.Directory = dir
	return &cfg
}

func TestBatch_ValidAndCorruptedFiles(t *testing.T) {
	dir := t.TempDir()
	valid := createTestJPEG(t)
	writeFiles(t, dir, map[string][]byte{
		"a.jpeg": valid,
		"b.jpeg": valid[:len(valid)/2],
	})

	var console bytes.Buffer
	reporter := NewConsoleReporter(&console, styles.NewTheme(styles.NewRenderer(&console, "never")))
	batch := NewBatch(integrations.NewImageConverter(nil), reporter, logging.Discard())

	res, err := batch.Run(context.Background(), testConfig(dir))
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	if res.Converted != 1 || res.Failed != 1 || res.Skipped != 0 {
		t.Errorf("Run() converted=%d failed=%d skipped=%d, want 1/1/0", res.Converted, res.Failed, res.Skipped)
	}

	aJPEG, aPNG := filepath.Join(dir, "a.jpeg"), filepath.Join(dir, "a.png")
	bJPEG, bPNG := filepath.Join(dir, "b.jpeg"), filepath.Join(dir, "b.png")

	if _, err := os.Stat(aPNG); err != nil {
		t.Errorf("a.png should exist: %v", err)
	}
	if _, err := os.Stat(bPNG); !os.IsNotExist(err) {
		t.Errorf("b.png should not exist, stat err = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(console.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 console lines, got %d: %q", len(lines), console.String())
	}
	if want := "Converted: " + aJPEG + " to " + aPNG; lines[0] != want {
		t.Errorf("line 0 = %q, want %q", lines[0], want)
	}
	if want := "Failed to convert " + bJPEG + ": "; !strings.HasPrefix(lines[1], want) {
		t.Errorf("line 1 = %q, want prefix %q", lines[1], want)
	}

	if code := ExitCode(res, err); code != ExitPartial {
		t.Errorf("ExitCode() = %d, want %d", code, ExitPartial)
	}
}

func TestBatch_OnlyMatchingFilesAreTouched(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string][]byte{
		"a.jpeg": nil,
		"b.jpg":  nil,
		"c.png":  nil,
		"d.JPEG": nil,
	})

	conv := &mockConverter{}
	res, err := NewBatch(conv, nil, logging.Discard()).Run(context.Background(), testConfig(dir))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(conv.calls) != 1 {
		t.Fatalf("Expected 1 conversion, got %d: %v", len(conv.calls), conv.calls)
	}
	want := [2]string{filepath.Join(dir, "a.jpeg"), filepath.Join(dir, "a.png")}
	if conv.calls[0] != want {
		t.Errorf("Convert called with %v, want %v", conv.calls[0], want)
	}
	if res.Converted != 1 {
		t.Errorf("Converted = %d, want 1", res.Converted)
	}
}

func TestBatch_FailureDoesNotStopBatch(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string][]byte{"a.jpeg": nil, "b.jpeg": nil, "c.jpeg": nil})

	conv := &mockConverter{
		convertFunc: func(src, dst string) error {
			if filepath.Base(src) == "a.jpeg" {
				return &integrations.ConvertError{Op: integrations.OpDecode, Path: src, Err: errors.New("boom")}
			}
			return nil
		},
	}
	reporter := &recordingReporter{}

	res, err := NewBatch(conv, reporter, logging.Discard()).Run(context.Background(), testConfig(dir))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(conv.calls) != 3 {
		t.Errorf("Expected 3 conversions, got %d", len(conv.calls))
	}
	if res.Failed != 1 || res.Converted != 2 {
		t.Errorf("failed=%d converted=%d, want 1/2", res.Failed, res.Converted)
	}
	if len(reporter.outcomes) != 3 {
		t.Fatalf("Expected 3 reported outcomes, got %d", len(reporter.outcomes))
	}
	for i, o := range reporter.outcomes {
		if o.Seq != i+1 {
			t.Errorf("outcome %d Seq = %d, want %d", i, o.Seq, i+1)
		}
	}
	if reporter.outcomes[0].Status != data.StatusFailed {
		t.Errorf("first outcome status = %s, want failed", reporter.outcomes[0].Status)
	}
}

func TestBatch_MissingDirectory(t *testing.T) {
	conv := &mockConverter{}
	res, err := NewBatch(conv, nil, logging.Discard()).Run(context.Background(), testConfig(filepath.Join(t.TempDir(), "missing")))
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if len(res.Outcomes) != 0 || len(conv.calls) != 0 {
		t.Errorf("Expected no work, got %d outcomes", len(res.Outcomes))
	}
	if code := ExitCode(res, err); code != ExitOK {
		t.Errorf("ExitCode() = %d, want %d", code, ExitOK)
	}
}

func TestBatch_SetupFailure(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Pattern = "[*.jpeg"

	conv := &mockConverter{}
	res, err := NewBatch(conv, nil, logging.Discard()).Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("Run() error = nil, want setup error")
	}
	if res != nil {
		t.Errorf("Run() result = %+v, want nil", res)
	}
	if !errors.Is(err, filepath.ErrBadPattern) {
		t.Errorf("Run() error = %v, want ErrBadPattern", err)
	}
	if code := ExitCode(res, err); code != ExitFailure {
		t.Errorf("ExitCode() = %d, want %d", code, ExitFailure)
	}
}

func TestBatch_SubstringNaming(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "shots.jpeg.d")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, dir, map[string][]byte{"x.jpeg": nil})

	cfg := testConfig(dir)
	cfg.Naming = config.NamingSubstring

	conv := &mockConverter{}
	if _, err := NewBatch(conv, nil, logging.Discard()).Run(context.Background(), cfg); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := filepath.Join(root, "shots.png.d", "x.jpeg")
	if len(conv.calls) != 1 || conv.calls[0][1] != want {
		t.Errorf("destination = %v, want %s", conv.calls, want)
	}
}

func TestBatch_RefusesToOverwriteSource(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string][]byte{"a.jpeg": nil})

	cfg := testConfig(dir)
	cfg.TargetExt = ".jpeg"

	conv := &mockConverter{}
	res, err := NewBatch(conv, nil, logging.Discard()).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(conv.calls) != 0 {
		t.Errorf("converter must not be called, got %v", conv.calls)
	}
	if res.Failed != 1 {
		t.Errorf("Failed = %d, want 1", res.Failed)
	}
}

func TestBatch_CancelledContextStopsBetweenFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string][]byte{"a.jpeg": nil, "b.jpeg": nil, "c.jpeg": nil})

	ctx, cancel := context.WithCancel(context.Background())
	conv := &mockConverter{
		convertFunc: func(src, dst string) error {
			cancel()
			return nil
		},
	}

	res, err := NewBatch(conv, nil, logging.Discard()).Run(ctx, testConfig(dir))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(conv.calls) != 1 {
		t.Errorf("Expected 1 conversion before stopping, got %d", len(conv.calls))
	}
	if !res.Interrupted {
		t.Error("Expected result to be marked interrupted")
	}
	if code := ExitCode(res, nil); code != ExitPartial {
		t.Errorf("ExitCode() = %d, want %d", code, ExitPartial)
	}
}

func TestBatch_IdempotentOutput(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string][]byte{"a.jpeg": createTestJPEG(t)})
	batch := NewBatch(integrations.NewImageConverter(nil), nil, logging.Discard())

	if _, err := batch.Run(context.Background(), testConfig(dir)); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	first, err := os.ReadFile(filepath.Join(dir, "a.png"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := batch.Run(context.Background(), testConfig(dir)); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	second, err := os.ReadFile(filepath.Join(dir, "a.png"))
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Error("PNG output changed between runs")
	}
}

type fakeSource struct {
	entries []struct {
		path string
		err  error
	}
}

func (f *fakeSource) add(path string, err error) *fakeSource {
	f.entries = append(f.entries, struct {
		path string
		err  error
	}{path, err})
	return f
}

func (f *fakeSource) Pattern() string { return "*.jpeg" }

func (f *fakeSource) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, e := range f.entries {
			if !yield(e.path, e.err) {
				return
			}
		}
	}
}

func TestBatch_EntryErrorsAreSkipped(t *testing.T) {
	statErr := errors.New("stat data/gone.jpeg: no such file or directory")
	src := (&fakeSource{}).
		add("data/a.jpeg", nil).
		add("", statErr).
		add("data/b.jpeg", nil)

	conv := &mockConverter{}
	rep := &recordingReporter{}
	strategy, err := naming.New(config.NamingExtension, ".jpeg", ".png")
	if err != nil {
		t.Fatal(err)
	}

	res := NewBatch(conv, rep, logging.Discard()).drain(context.Background(), src, strategy)

	if res.Converted != 2 || res.Skipped != 1 || res.Failed != 0 {
		t.Errorf("counts = %d/%d/%d, want 2 converted, 0 failed, 1 skipped", res.Converted, res.Failed, res.Skipped)
	}
	if len(rep.outcomes) != 3 {
		t.Fatalf("Expected 3 outcomes, got %d", len(rep.outcomes))
	}
	if rep.outcomes[1].Status != data.StatusSkipped || !errors.Is(rep.outcomes[1].Err, statErr) {
		t.Errorf("outcome[1] = %+v, want skipped with stat error", rep.outcomes[1])
	}
	for i, o := range rep.outcomes {
		if o.Seq != i+1 {
			t.Errorf("outcome[%d].Seq = %d, want %d", i, o.Seq, i+1)
		}
	}
	if code := ExitCode(res, nil); code != ExitPartial {
		t.Errorf("ExitCode() = %d, want %d", code, ExitPartial)
	}
}
