package output

import (
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI escape sequences used for status lines.
const (
	ansiReset  = "\033[0m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// Green wraps text in green when color is enabled.
func Green(text string) string { return colorize(ansiGreen, text) }

// Yellow wraps text in yellow when color is enabled.
func Yellow(text string) string { return colorize(ansiYellow, text) }

// Red wraps text in red when color is enabled.
func Red(text string) string { return colorize(ansiRed, text) }

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + ansiReset
	}
	return text
}
