package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Message is a multi-line diagnostic with optional follow-up commands
type Message struct {
	Level Level
	// Context is shown upper-cased in the header, e.g. "config invalid"
	Context string
	Problem string
	// Details are indented lines under the header
	Details []string
	// Hints are commands or actions shown with an arrow
	Hints   []string
	NoColor bool
}

// Format renders m
//
//	✗ CONFIG INVALID: ledgerapi.yaml
//	   server.port must be between 1 and 65535, got: 0
//
//	   → Write a fresh config: ledgerapi init
func Format(m Message) string {
	var b strings.Builder

	var header, body *color.Color
	var symbol string
	switch m.Level {
	case LevelWarning:
		header, body, symbol = color.New(color.FgYellow, color.Bold), color.New(color.FgYellow), "!"
	case LevelInfo:
		header, body, symbol = color.New(color.FgCyan, color.Bold), color.New(color.FgCyan), "i"
	default:
		header, body, symbol = color.New(color.FgRed, color.Bold), color.New(color.FgRed), "✗"
	}
	hint := color.New(color.FgCyan)
	if m.NoColor {
		header.DisableColor()
		body.DisableColor()
		hint.DisableColor()
	}

	if m.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(m.Context), m.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, m.Problem)
	}

	for _, d := range m.Details {
		body.Fprintf(&b, "   %s\n", d)
	}

	if len(m.Hints) > 0 {
		b.WriteString("\n")
		for _, h := range m.Hints {
			hint.Fprintf(&b, "   → %s\n", h)
		}
	}

	return b.String()
}

// Write writes the formatted message to w
func Write(w io.Writer, m Message) {
	fmt.Fprint(w, Format(m))
}

// Success writes a one-line success message
func Success(w io.Writer, message string, noColor bool) {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	green.Fprintf(w, "✓ %s\n", message)
}

// ConfigError describes a configuration that failed to load; every joined
// validation error becomes its own detail line
func ConfigError(source string, err error, noColor bool) Message {
	return Message{
		Level:   LevelError,
		Context: "config invalid",
		Problem: source,
		Details: strings.Split(err.Error(), "\n"),
		Hints: []string{
			"Write a fresh config: ledgerapi init",
			"Override a key: LEDGERAPI_<SECTION>_<KEY>=value",
		},
		NoColor: noColor,
	}
}
