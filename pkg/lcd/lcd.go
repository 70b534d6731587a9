package lcd

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the emulator on the alternate screen until the user quits or
// ctx is done.
func Run(ctx context.Context, grid *Grid, buttons *Buttons, status func() string) error {
	p := tea.NewProgram(NewModel(grid, buttons, status), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
