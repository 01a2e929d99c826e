package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nodrake/ndh/internal/services"
	"github.com/nodrake/ndh/internal/shared"
	"github.com/nodrake/ndh/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for enforcement.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.connections == nil || r.engine == nil {
		return fmt.Errorf("%w: enforcement engine not initialized", shared.ErrServiceUnavailable)
	}
	if r.session == nil || !r.session.IsAuthenticated() {
		return fmt.Errorf("%w: log in first with 'ndh auth login <email>'", shared.ErrNotAuthenticated)
	}

	// Redirect logs to a file to avoid interfering with TUI rendering
	logPath := r.config.Logging.File
	if logPath == "" {
		logPath = "./tmp/ndh-tui.log"
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	fileLogger, closer, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer closer.Close()
	r.SetLogger(fileLogger)

	opts := services.OptionsFromConfig(r.config.Enforcement)
	model := ui.NewModel(ctx, r.connections, r.engine, opts)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
