// Package term centralizes terminal capability probing for CLI output.
package term

import (
	"os"

	"github.com/muesli/termenv"
	xterm "golang.org/x/term"
)

// Width returns the terminal width of stdout, or a conservative default when
// stdout is not a terminal.
func Width() int {
	if w, _, err := xterm.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// Output returns a termenv output for stdout, honoring NO_COLOR and dumb
// terminals via termenv's profile detection.
func Output() *termenv.Output {
	return termenv.NewOutput(os.Stdout)
}
