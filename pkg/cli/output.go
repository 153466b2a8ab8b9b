package cli

import (
	"fmt"
	"io"
	"os"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// colorsEnabled determines if ANSI colors should be used
var colorsEnabled = true

func init() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	// Check if stdout is a terminal
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

// printSetupStep prints a progress line for a setup step
func printSetupStep(w io.Writer, msg string) {
	fmt.Fprintf(w, "  %s⏳%s %s\n", color(colorCyan), color(colorReset), msg)
}

// printSetupSuccess prints a success message for setup
func printSetupSuccess(w io.Writer, msg string) {
	fmt.Fprintf(w, "  %s✓%s %s\n", color(colorGreen), color(colorReset), msg)
}

// printWarning prints a non-fatal problem
func printWarning(w io.Writer, msg string) {
	fmt.Fprintf(w, "  %s⚠%s %s\n", color(colorYellow), color(colorReset), msg)
}

// printFailure prints a fatal problem
func printFailure(w io.Writer, msg string) {
	fmt.Fprintf(w, "  %s✗%s %s\n", color(colorRed), color(colorReset), msg)
}
