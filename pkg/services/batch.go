// Package services runs conversion batches: it walks the enumerated sources,
// derives destinations, converts each file and reports every outcome.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kerbaras/jpegpng/pkg/config"
	"github.com/kerbaras/jpegpng/pkg/data"
	"github.com/kerbaras/jpegpng/pkg/integrations"
	"github.com/kerbaras/jpegpng/pkg/naming"
	"github.com/kerbaras/jpegpng/pkg/sources"
)

// Batch converts every matching file in one directory, sequentially. A
// failing file is reported and skipped; it never stops the batch.
type Batch struct {
	converter integrations.Converter
	reporter  Reporter
	logger    *slog.Logger
}

// NewBatch wires a batch from its collaborators.
func NewBatch(converter integrations.Converter, reporter Reporter, logger *slog.Logger) *Batch {
	return &Batch{converter: converter, reporter: reporter, logger: logger}
}

// Run converts the files cfg selects. The returned error is non-nil only
// when the batch could not be set up (bad pattern or naming strategy); in
// that case nothing was converted. Cancelling ctx stops the batch between
// files.
func (b *Batch) Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	glob, err := sources.NewGlob(cfg.Directory, cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to read glob pattern: %w", err)
	}
	strategy, err := naming.New(cfg.Naming, cfg.SourceExt(), cfg.TargetExt)
	if err != nil {
		return nil, err
	}

	return b.drain(ctx, glob, strategy), nil
}

// drain converts every entry of src in order and never stops on a failed
// entry.
func (b *Batch) drain(ctx context.Context, src sources.Source, strategy naming.Strategy) *Result {
	started := time.Now()
	b.logger.Debug("batch started", "pattern", src.Pattern())

	res := &Result{}
	seq := 0
	for path, entryErr := range src.All() {
		if ctx.Err() != nil {
			res.Interrupted = true
			b.logger.Warn("batch interrupted", "remaining_from", path)
			break
		}
		seq++

		if entryErr != nil {
			b.record(res, Outcome{Seq: seq, Status: data.StatusSkipped, Err: entryErr})
			continue
		}

		b.record(res, b.convert(seq, path, strategy))
	}

	b.logger.Debug("batch finished",
		"converted", res.Converted,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"elapsed", time.Since(started),
	)
	return res
}

func (b *Batch) convert(seq int, src string, strategy naming.Strategy) Outcome {
	dst := strategy.OutputPath(src)
	o := Outcome{Seq: seq, Source: src, Destination: dst}
	if dst == src {
		o.Status = data.StatusFailed
		o.Err = fmt.Errorf("destination %s would overwrite the source", dst)
		return o
	}
	if err := b.converter.Convert(src, dst); err != nil {
		o.Status = data.StatusFailed
		o.Err = err
		return o
	}
	o.Status = data.StatusConverted
	return o
}

func (b *Batch) record(res *Result, o Outcome) {
	res.add(o)
	if b.reporter != nil {
		b.reporter.Report(o)
	}
}
