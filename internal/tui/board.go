package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"caseline/internal/app"
)

func RunBoard(ctx context.Context, a *app.App, out io.Writer) error {
	m := newDashModel(ctx, a)
	p := tea.NewProgram(m, tea.WithOutput(out))
	_, err := p.Run()
	return err
}
