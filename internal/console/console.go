// Package console prints the supervisor's own status lines to the
// operator. The wrapped tool's output is always mirrored verbatim
// elsewhere; these are the few lines this process adds around it.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Console writes status lines, styled only when the target is an
// interactive terminal and NO_COLOR is unset.
type Console struct {
	w      io.Writer
	styled bool
}

// New returns a Console writing to w.
func New(w io.Writer) *Console {
	return &Console{w: w, styled: isStyledTarget(w)}
}

func isStyledTarget(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Successf prints a success status line.
func (c *Console) Successf(format string, args ...any) {
	c.line(okStyle, "✓", format, args...)
}

// Failf prints a failure status line.
func (c *Console) Failf(format string, args ...any) {
	c.line(failStyle, "✗", format, args...)
}

// Infof prints a muted informational line.
func (c *Console) Infof(format string, args ...any) {
	c.line(dimStyle, "·", format, args...)
}

func (c *Console) line(style lipgloss.Style, mark, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if c.styled {
		fmt.Fprintln(c.w, style.Render(mark)+" "+msg)
		return
	}
	fmt.Fprintln(c.w, mark+" "+msg)
}
