package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// NewAccessibleForm creates a huh form that uses plain text prompts when
// accessible is set (ACCESSIBLE env var), which works better with screen
// readers and when input is piped.
func NewAccessibleForm(accessible bool, groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...)
	if accessible {
		form = form.WithAccessible(true)
	}
	return form
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}
