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

// Message is a structured diagnostic with optional suggestions and follow-up commands
type Message struct {
	Level        Level
	Context      string
	Problem      string
	Consequence  string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// Format renders the message.
//
// Example output:
//
//	❌ MODEL NOT FOUND: Ordr
//	   No model is registered as "Ordr".
//
//	   Did you mean: Order, Orders?
//
//	   → List models: breeze inspect
func (m Message) Format() string {
	var b strings.Builder

	var attr color.Attribute
	var symbol string
	switch m.Level {
	case LevelWarning:
		attr, symbol = color.FgYellow, "⚠️"
	case LevelInfo:
		attr, symbol = color.FgCyan, "ℹ️"
	default:
		attr, symbol = color.FgRed, "❌"
	}

	header := color.New(attr, color.Bold)
	body := color.New(attr)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	if m.NoColor {
		for _, c := range []*color.Color{header, body, yellow, cyan} {
			c.DisableColor()
		}
	}

	if m.Context != "" {
		header.Fprintf(&b, "%s %s\n", symbol, strings.ToUpper(m.Context))
		body.Fprintf(&b, "   %s\n", m.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, m.Problem)
	}

	if m.Consequence != "" {
		b.WriteString("\n")
		body.Fprintf(&b, "   %s\n", m.Consequence)
	}

	if len(m.Suggestions) > 0 {
		b.WriteString("\n")
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(m.Suggestions, ", "))
	}

	if len(m.HelpCommands) > 0 {
		b.WriteString("\n")
		for _, c := range m.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", c)
		}
	}

	return b.String()
}

// Write renders the message to w
func (m Message) Write(w io.Writer) {
	fmt.Fprint(w, m.Format())
}

// FormatSuccess renders a check-marked success line
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success line to w
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// ModelNotFound builds the message shown for an unknown model name
func ModelNotFound(name string, suggestions []string, noColor bool) Message {
	return Message{
		Level:        LevelError,
		Context:      "model not found",
		Problem:      fmt.Sprintf("No model is registered as %q.", name),
		Suggestions:  suggestions,
		HelpCommands: []string{"List models: breeze inspect"},
		NoColor:      noColor,
	}
}

// SyncFailed builds the message shown when schema synchronization stops
func SyncFailed(table string, err error, noColor bool) Message {
	return Message{
		Level:       LevelError,
		Context:     "schema sync failed",
		Problem:     fmt.Sprintf("Table %s: %v", table, err),
		Consequence: "Tables created before the failure were kept; the database may be partially synchronized.",
		HelpCommands: []string{
			"Review the statements: breeze ddl",
			"Start over: breeze sync --drop",
		},
		NoColor: noColor,
	}
}

// DropWarning builds the confirmation notice for destructive synchronization
func DropWarning(tables int, noColor bool) Message {
	return Message{
		Level:       LevelWarning,
		Problem:     fmt.Sprintf("sync --drop will drop %d tables before recreating them.", tables),
		Consequence: "Every row in those tables is deleted.",
		NoColor:     noColor,
	}
}
