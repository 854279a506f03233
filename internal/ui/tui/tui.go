// Package tui provides interactive terminal UI components using BubbleTea.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts a full-screen BubbleTea program with the given model and
// returns the final model. Cancelling ctx stops the program.
func Run(ctx context.Context, model tea.Model) (tea.Model, error) {
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	return p.Run()
}
