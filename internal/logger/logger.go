// Package logger renders user-facing CLI messages and configures diagnostic logging.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Palette
var (
	ColorAccent  = lipgloss.Color("#2CD7C7")
	ColorInfo    = lipgloss.Color("#20B9B4")
	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#6C7A80")
)

// Icon is a status marker printed before a message.
type Icon string

const (
	IconInfo    Icon = "●"
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconStep    Icon = "→"
)

type styles struct {
	info, success, warning, error, muted, bold lipgloss.Style
}

func newStyles() styles {
	return styles{
		info:    lipgloss.NewStyle().Foreground(ColorInfo),
		success: lipgloss.NewStyle().Foreground(ColorSuccess),
		warning: lipgloss.NewStyle().Foreground(ColorWarning),
		error:   lipgloss.NewStyle().Foreground(ColorError).Bold(true),
		muted:   lipgloss.NewStyle().Foreground(ColorMuted),
		bold:    lipgloss.NewStyle().Bold(true).Foreground(ColorAccent),
	}
}

// Logger prints status lines for humans. Machine-readable output does not go through it.
type Logger struct {
	w       io.Writer
	color   bool
	verbose bool
	st      styles
}

// New returns a Logger writing to w. Colour is used only when w is a terminal
// and NO_COLOR is unset.
func New(w io.Writer, verbose bool) *Logger {
	return &Logger{w: w, color: ColorEnabled(w), verbose: verbose, st: newStyles()}
}

// NewPlain returns a Logger that never emits ANSI sequences.
func NewPlain(w io.Writer, verbose bool) *Logger {
	return &Logger{w: w, verbose: verbose, st: newStyles()}
}

// ColorEnabled reports whether w is a colour-capable terminal.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return IsTerminal(f)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// VerboseEnabled reports whether Verbose lines are printed.
func (l *Logger) VerboseEnabled() bool { return l.verbose }

func (l *Logger) render(s lipgloss.Style, text string) string {
	if !l.color {
		return text
	}
	return s.Render(text)
}

func (l *Logger) line(icon Icon, s lipgloss.Style, msg string) {
	fmt.Fprintf(l.w, "%s %s\n", l.render(s, string(icon)), msg)
}

func (l *Logger) Info(msg string)    { l.line(IconInfo, l.st.info, msg) }
func (l *Logger) Success(msg string) { l.line(IconSuccess, l.st.success, msg) }
func (l *Logger) Warn(msg string)    { l.line(IconWarning, l.st.warning, msg) }
func (l *Logger) Error(msg string)   { l.line(IconError, l.st.error, l.render(l.st.error, msg)) }

// Step announces a unit of work that is about to start.
func (l *Logger) Step(msg string) { l.line(IconStep, l.st.muted, msg) }

// Hint prints an indented follow-up line, usually after Error.
func (l *Logger) Hint(msg string) {
	for _, ln := range strings.Split(strings.TrimRight(msg, "\n"), "\n") {
		fmt.Fprintf(l.w, "  %s\n", l.render(l.st.muted, ln))
	}
}

// Field prints "label: value" with the value highlighted.
func (l *Logger) Field(label, value string) {
	fmt.Fprintf(l.w, "  %s %s\n", l.render(l.st.muted, label+":"), l.render(l.st.bold, value))
}

// Verbose prints "[verbose] msg" when verbose mode is on.
func (l *Logger) Verbose(msg string) {
	if !l.verbose {
		return
	}
	fmt.Fprintf(l.w, "%s %s\n", l.render(l.st.muted, "[verbose]"), msg)
}

// Cancelled reports that the user aborted an interactive prompt.
func (l *Logger) Cancelled() { l.Warn("Operation cancelled.") }

// EnvDebug enables debug diagnostics when set to 1 or true.
const EnvDebug = "SPEC_DEBUG"

// DebugFromEnv reports whether EnvDebug requests debug logging.
func DebugFromEnv(getenv func(string) string) bool {
	switch strings.ToLower(strings.TrimSpace(getenv(EnvDebug))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// NewSlog returns a text slog.Logger on w at Debug level when debug is set, Warn otherwise.
func NewSlog(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
