package styles

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

var (
	// Color palette
	Primary   = lipgloss.Color("#FF6B9D")
	Secondary = lipgloss.Color("#C792EA")
	Success   = lipgloss.Color("#C3E88D")
	Warning   = lipgloss.Color("#FFCB6B")
	Error     = lipgloss.Color("#F07178")
	Info      = lipgloss.Color("#82AAFF")
	Muted     = lipgloss.Color("#546E7A")
)

// Theme is the set of styles bound to one output renderer, so color can be
// enabled on a terminal and stripped when piping to a file.
type Theme struct {
	Title   lipgloss.Style
	Text    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Header  lipgloss.Style
}

// NewTheme builds the styles for r.
func NewTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Title:   r.NewStyle().Foreground(Primary).Bold(true),
		Text:    r.NewStyle(),
		Muted:   r.NewStyle().Foreground(Muted),
		Success: r.NewStyle().Foreground(Success).Bold(true),
		Warning: r.NewStyle().Foreground(Warning).Bold(true),
		Error:   r.NewStyle().Foreground(Error).Bold(true),
		Info:    r.NewStyle().Foreground(Info).Bold(true),
		Header: r.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(Muted).
			BorderBottom(true).
			Bold(true),
	}
}

// Status returns the style for a conversion status.
func (t Theme) Status(status string) lipgloss.Style {
	switch status {
	case "converted", "completed":
		return t.Success
	case "partial", "skipped", "interrupted":
		return t.Warning
	case "failed", "error":
		return t.Error
	default:
		return t.Muted
	}
}

// NewRenderer returns a lipgloss renderer for w honouring the color mode
// ("auto", "always" or "never"). In auto mode color is used only when w is a
// terminal and NO_COLOR is unset.
func NewRenderer(w io.Writer, mode string) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	switch mode {
	case "always":
		r.SetColorProfile(termenv.TrueColor)
	case "never":
		r.SetColorProfile(termenv.Ascii)
	default:
		if !IsTerminal(w) || os.Getenv("NO_COLOR") != "" {
			r.SetColorProfile(termenv.Ascii)
		}
	}
	return r
}

// IsTerminal reports whether w is an *os.File attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
