package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/kerbaras/jpegpng/pkg/data"
	"github.com/kerbaras/jpegpng/pkg/styles"
)

const timeLayout = "2006-01-02 15:04:05"

func newHistoryCommand(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded conversion runs",
		Long: `Show batches recorded with --history.

Without arguments the most recent runs are listed. Pass a run ID (or a unique
prefix of one) to see what happened to each file in that run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Normalize(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			theme := styles.NewTheme(styles.NewRenderer(out, cfg.Color))

			// Reading history never creates the database.
			if _, err := os.Stat(cfg.History.Path); errors.Is(err, fs.ErrNotExist) {
				if len(args) == 0 {
					printRuns(out, theme, nil)
					return nil
				}
				return fmt.Errorf("run %q not found", args[0])
			}

			repo, err := data.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer repo.Close()

			if len(args) == 0 {
				runs, err := repo.ListRuns(limit)
				if err != nil {
					return err
				}
				printRuns(out, theme, runs)
				return nil
			}

			run, err := findRun(repo, args[0])
			if err != nil {
				return err
			}
			conversions, err := repo.GetConversions(run.ID)
			if err != nil {
				return err
			}
			printConversions(out, theme, run, conversions)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

type runFinder interface {
	GetRun(id string) (*data.Run, error)
	ListRuns(limit int) ([]*data.Run, error)
}

// findRun resolves an exact run ID or a unique prefix of one.
func findRun(repo runFinder, id string) (*data.Run, error) {
	run, err := repo.GetRun(id)
	if err != nil {
		return nil, err
	}
	if run != nil {
		return run, nil
	}

	runs, err := repo.ListRuns(0)
	if err != nil {
		return nil, err
	}
	var match *data.Run
	for _, r := range runs {
		if !strings.HasPrefix(r.ID, id) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("run id %q is ambiguous", id)
		}
		match = r
	}
	if match == nil {
		return nil, fmt.Errorf("run %q not found", id)
	}
	return match, nil
}

func printRuns(w io.Writer, theme styles.Theme, runs []*data.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, theme.Muted.Render("No runs recorded. Use 'jpegpng --history' to record one."))
		return
	}

	columns := []table.Column{
		{Title: "Run", Width: 8},
		{Title: "Directory", Width: 30},
		{Title: "Started", Width: 19},
		{Title: "Status", Width: 10},
		{Title: "Converted", Width: 9},
		{Title: "Failed", Width: 6},
		{Title: "Skipped", Width: 7},
	}

	rows := make([]table.Row, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, table.Row{
			shortID(run.ID),
			truncatePath(run.Directory, 28),
			run.StartedAt.Local().Format(timeLayout),
			run.Status(),
			strconv.Itoa(run.Converted),
			strconv.Itoa(run.Failed),
			strconv.Itoa(run.Skipped),
		})
	}

	fmt.Fprintf(w, "\n%s\n\n", theme.Title.Render(fmt.Sprintf("Conversion runs (%d)", len(runs))))
	fmt.Fprintln(w, renderTable(theme, columns, rows))
}

func printConversions(w io.Writer, theme styles.Theme, run *data.Run, conversions []*data.Conversion) {
	status := run.Status()
	fmt.Fprintf(w, "\n%s %s  %s\n", theme.Title.Render("Run"), run.ID, theme.Status(status).Render(status))
	fmt.Fprintf(w, "%s %s (%s)\n", theme.Muted.Render("Directory:"), run.Directory, run.Pattern)
	fmt.Fprintf(w, "%s %s\n", theme.Muted.Render("Started:  "), run.StartedAt.Local().Format(timeLayout))
	if run.SetupError != "" {
		fmt.Fprintf(w, "%s %s\n", theme.Error.Render("Error:    "), run.SetupError)
	}
	fmt.Fprintln(w)

	if len(conversions) == 0 {
		fmt.Fprintln(w, theme.Muted.Render("No files were matched in this run."))
		return
	}

	columns := []table.Column{
		{Title: "#", Width: 4},
		{Title: "Source", Width: 32},
		{Title: "Destination", Width: 32},
		{Title: "Status", Width: 10},
		{Title: "Error", Width: 40},
	}

	rows := make([]table.Row, 0, len(conversions))
	for _, c := range conversions {
		rows = append(rows, table.Row{
			strconv.Itoa(c.Seq),
			truncatePath(c.Source, 30),
			truncatePath(c.Destination, 30),
			c.Status,
			truncateString(c.Error, 38),
		})
	}
	fmt.Fprintln(w, renderTable(theme, columns, rows))
}

func renderTable(theme styles.Theme, columns []table.Column, rows []table.Row) string {
	s := table.DefaultStyles()
	s.Header = theme.Header.Padding(0, 1)
	s.Cell = theme.Text.Padding(0, 1)
	s.Selected = theme.Text

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithStyles(s),
	)
	// The height includes the header, so size it after the styles are set
	// or the last rows fall outside the viewport.
	t.SetHeight(len(rows) + lipgloss.Height(s.Header.Render(columns[0].Title)))
	return t.View()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncateString cuts s to n display cells, keeping the start.
func truncateString(s string, n int) string {
	return runewidth.Truncate(s, n, "...")
}

// truncatePath cuts s to n display cells, keeping the end so the file name
// stays visible.
func truncatePath(s string, n int) string {
	width := runewidth.StringWidth(s)
	if width <= n {
		return s
	}
	if n <= 3 {
		return runewidth.TruncateLeft(s, width-n, "")
	}
	return runewidth.TruncateLeft(s, width-(n-3), "...")
}
