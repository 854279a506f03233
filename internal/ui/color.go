// Package ui provides terminal output helpers for feedsync.
package ui

import (
	"github.com/fatih/color"
)

// Color function types for styled output.
var (
	// Success is used for successful operations (green).
	Success = color.New(color.FgGreen).SprintFunc()
	// Error is used for errors and failures (red).
	Error = color.New(color.FgRed).SprintFunc()
	// Warning is used for warnings and cautions (yellow).
	Warning = color.New(color.FgYellow).SprintFunc()
	// Info is used for informational messages (cyan).
	Info = color.New(color.FgCyan).SprintFunc()
	// Bold is used for emphasis.
	Bold = color.New(color.Bold).SprintFunc()
	// Dim is used for secondary information (faint).
	Dim = color.New(color.Faint).SprintFunc()
	// Header is used for table headers (bold cyan).
	Header = color.New(color.FgCyan, color.Bold).SprintFunc()
)

// Status symbols.
const (
	SymbolSuccess   = "✓"
	SymbolError     = "✗"
	SymbolWarning   = "⚠"
	SymbolSkipped   = "-"
	SymbolPending   = "○"
	SymbolCancelled = "⊘"
)

// Change markers used when listing a change-set.
const (
	MarkAdd    = "+"
	MarkRemove = "-"
	MarkUpdate = "~"
	MarkMerge  = "*"
)

// StatusSuccess returns a green checkmark with optional message.
func StatusSuccess(msg string) string {
	return withSymbol(Success(SymbolSuccess), msg)
}

// StatusError returns a red X with optional message.
func StatusError(msg string) string {
	return withSymbol(Error(SymbolError), msg)
}

// StatusWarning returns a yellow warning with optional message.
func StatusWarning(msg string) string {
	return withSymbol(Warning(SymbolWarning), msg)
}

// StatusSkipped returns a dimmed skip symbol with optional message.
func StatusSkipped(msg string) string {
	return withSymbol(Dim(SymbolSkipped), msg)
}

// StatusCancelled marks an operation the user declined.
func StatusCancelled(msg string) string {
	return withSymbol(Warning(SymbolCancelled), msg)
}

// Outcome picks the status line for a finished sync direction.
func Outcome(failed, cancelled bool, msg string) string {
	switch {
	case failed:
		return StatusError(msg)
	case cancelled:
		return StatusCancelled(msg)
	default:
		return StatusSuccess(msg)
	}
}

// ChangeLine renders one entry of a change-set listing.
func ChangeLine(mark, msg string) string {
	switch mark {
	case MarkAdd:
		return Success(mark) + " " + msg
	case MarkRemove:
		return Error(mark) + " " + msg
	case MarkUpdate, MarkMerge:
		return Info(mark) + " " + msg
	default:
		return mark + " " + msg
	}
}

func withSymbol(symbol, msg string) string {
	if msg == "" {
		return symbol
	}
	return symbol + " " + msg
}

// DisableColors disables all color output.
func DisableColors() {
	color.NoColor = true
}

// EnableColors enables color output.
func EnableColors() {
	color.NoColor = false
}

// IsColorEnabled returns whether colors are currently enabled.
func IsColorEnabled() bool {
	return !color.NoColor
}
