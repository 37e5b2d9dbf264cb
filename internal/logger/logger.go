// Package logger provides pipeline logging for signalkb.
// Debug, Info and Warn messages are printed to stderr only when verbose mode
// is enabled via the --verbose flag; Error is always printed. Level tags are
// coloured when writing to a terminal.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

var (
	mu      sync.Mutex
	verbose bool
	output  io.Writer = os.Stderr
	colour            = !color.NoColor
)

var (
	debugTag = color.New(color.FgHiBlack).SprintFunc()
	infoTag  = color.New(color.FgCyan).SprintFunc()
	warnTag  = color.New(color.FgYellow).SprintFunc()
	errorTag = color.New(color.FgRed, color.Bold).SprintFunc()
	sectTag  = color.New(color.FgMagenta, color.Bold).SprintFunc()
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return verbose
}

// SetOutput sets the output writer for logs. Colour is only used for
// os.Stderr on a terminal. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	colour = w == os.Stderr && !color.NoColor
}

func write(always bool, tag func(a ...any) string, label, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !always && !verbose {
		return
	}
	if colour {
		label = tag(label)
	}
	fmt.Fprintf(output, label+" "+format+"\n", args...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	write(false, debugTag, "[DEBUG]", format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	write(false, infoTag, "[INFO]", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	write(false, warnTag, "[WARN]", format, args...)
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	write(true, errorTag, "[ERROR]", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if !verbose {
		return
	}
	header := fmt.Sprintf("=== %s ===", name)
	if colour {
		header = sectTag(header)
	}
	fmt.Fprintf(output, "\n%s\n", header)
}
