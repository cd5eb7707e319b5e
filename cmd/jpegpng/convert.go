package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kerbaras/jpegpng/pkg/config"
	"github.com/kerbaras/jpegpng/pkg/data"
	"github.com/kerbaras/jpegpng/pkg/integrations"
	"github.com/kerbaras/jpegpng/pkg/logging"
	"github.com/kerbaras/jpegpng/pkg/services"
	"github.com/kerbaras/jpegpng/pkg/styles"
)

type convertOptions struct {
	dir       string
	pattern   string
	naming    string
	targetExt string
	history   bool
}

func newConvertOptions() *convertOptions {
	return &convertOptions{}
}

func (o *convertOptions) bindFlags(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&o.dir, "dir", "d", "", "Directory to scan (default \"data\")")
	fl.StringVarP(&o.pattern, "pattern", "p", "", "Glob pattern for source files (default \"*.jpeg\")")
	fl.StringVar(&o.naming, "naming", "", "Destination naming: extension or substring")
	fl.StringVar(&o.targetExt, "target-ext", "", "Destination extension (default \".png\")")
	fl.BoolVar(&o.history, "history", false, "Record this run in the history database")
}

// apply overlays the convert flags, then the positional directory, onto cfg.
func (o *convertOptions) apply(cmd *cobra.Command, cfg *config.Config, args []string) error {
	changed := cmd.Flags().Changed
	if changed("dir") {
		cfg.Directory = o.dir
	}
	if len(args) == 1 {
		if changed("dir") && args[0] != o.dir {
			return fmt.Errorf("directory given twice: %q and --dir %q", args[0], o.dir)
		}
		cfg.Directory = args[0]
	}
	if changed("pattern") {
		cfg.Pattern = o.pattern
	}
	if changed("naming") {
		cfg.Naming = o.naming
	}
	if changed("target-ext") {
		cfg.TargetExt = o.targetExt
	}
	if changed("history") {
		cfg.History.Enabled = o.history
	}
	if err := cfg.Normalize(); err != nil {
		return err
	}
	return cfg.Validate()
}

// interruptContext is cancelled by the first of sigs. Signal handling is
// released at that point, so a second interrupt terminates the process
// instead of waiting for the current file.
func interruptContext(parent context.Context, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, sigs...)
	context.AfterFunc(ctx, stop)
	return ctx, stop
}

func (o *convertOptions) run(cmd *cobra.Command, flags *globalFlags, args []string) error {
	cfg, err := flags.loadConfig(cmd)
	if err == nil {
		err = o.apply(cmd, cfg, args)
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "jpegpng: %v\n", err)
		return &exitError{code: services.ExitFailure}
	}

	logger, closer, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "jpegpng: %v\n", err)
		return &exitError{code: services.ExitFailure}
	}
	defer closer.Close()

	out := cmd.OutOrStdout()
	theme := styles.NewTheme(styles.NewRenderer(out, cfg.Color))
	var reporter services.Reporter = services.NewConsoleReporter(out, theme)

	var history *services.HistoryReporter
	if cfg.History.Enabled {
		repo, err := data.Open(cfg.History.Path)
		if err != nil {
			logger.Error("Error processing images", "error", err)
			return &exitError{code: services.ExitFailure}
		}
		defer repo.Close()

		history, err = services.NewHistoryReporter(repo, cfg.Directory, cfg.Pattern, logger)
		if err != nil {
			logger.Error("Error processing images", "error", err)
			return &exitError{code: services.ExitFailure}
		}
		reporter = services.MultiReporter{reporter, history}
	}

	ctx, stop := interruptContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	batch := services.NewBatch(integrations.NewImageConverter(logger), reporter, logger)
	res, runErr := batch.Run(ctx, cfg)
	if runErr != nil {
		logger.Error("Error processing images", "error", runErr)
	}

	if history != nil {
		if err := history.Finish(res, runErr); err != nil {
			logger.Warn("history update failed", "error", err)
		} else {
			logger.Debug("history recorded", "run", history.RunID())
		}
	}

	if code := services.ExitCode(res, runErr); code != services.ExitOK {
		return &exitError{code: code}
	}
	return nil
}
