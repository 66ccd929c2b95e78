package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the interactive program and returns the final model once the
// user quits. The model is returned even when the program stops on error.
func Run(ctx context.Context, opts Options) (Model, error) {
	p := tea.NewProgram(NewModel(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	m, _ := final.(Model)
	if err != nil {
		return m, fmt.Errorf("TUI error: %w", err)
	}
	return m, nil
}
