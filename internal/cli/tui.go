package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/activitytracker/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *Context) error {
	if !ctx.Runtime.Interactive {
		return fmt.Errorf("the TUI needs an interactive terminal")
	}
	if _, err := ctx.Load(); err != nil {
		return err
	}

	// Perform automatic backup on TUI startup (after successful load)
	autoBackup(ctx)

	vm, err := ctx.ViewModel()
	if err != nil {
		return err
	}
	vm.Initialize()

	model := tui.New(vm)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui exited with an error: %w", err)
	}
	return nil
}
