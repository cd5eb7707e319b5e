package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kerbaras/jpegpng/pkg/config"
)

// exitError carries a process exit status out of a command without
// printing anything further; the command already reported the problem.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	logFile    string
	color      string
	historyDB  string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "jpegpng [directory]",
		Short: "Convert JPEG images in a directory to PNG",
		Long: `Convert every *.jpeg file directly inside a directory to a PNG next to it.

Each file is converted on its own: a file that cannot be decoded or written is
reported and skipped, and the batch carries on with the next one.

Exit status is 0 when everything converted, 2 when some files failed, and 1
when nothing could be converted or the batch could not start.

Examples:
  jpegpng                      # converts ./data/*.jpeg
  jpegpng ~/Pictures/scans
  jpegpng --pattern '*.jpg' photos
  jpegpng --history photos && jpegpng history`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	convert := newConvertOptions()
	convert.bindFlags(rootCmd)
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return convert.run(cmd, flags, args)
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Configuration file path (default ~/.config/jpegpng/config.toml)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format: console or json")
	pf.StringVar(&flags.logFile, "log-file", "", "Also append logs to this file")
	pf.StringVar(&flags.color, "color", "", "Color output: auto, always, never")
	pf.StringVar(&flags.historyDB, "history-db", "", "Conversion history database (default jpegpng.db)")

	rootCmd.AddCommand(newHistoryCommand(flags))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// loadConfig reads the config file and overlays the global flags the user
// actually set.
func (f *globalFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, _, _, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if changed("log-file") {
		cfg.LogFile = f.logFile
	}
	if changed("color") {
		cfg.Color = f.color
	}
	if changed("history-db") {
		cfg.History.Path = f.historyDB
	}
	return cfg, nil
}

// execute runs cmd with args and maps the outcome to a process exit status.
func execute(cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "jpegpng: %v\n", err)
		return 1
	}
	return 0
}
