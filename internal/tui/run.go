package tui

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dstern/pledgematch/internal/queue"
	"github.com/dstern/pledgematch/internal/service"
	"github.com/dstern/pledgematch/internal/session"
)

// Run starts the reconciliation UI against the given registry service and
// blocks until the operator quits.
func Run(ctx context.Context, svc service.Reconciler) error {
	if svc == nil {
		return fmt.Errorf("registry service is required")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Restore the terminal on any exit path, best effort.
	cleanupTerminal := func() {
		_, _ = os.Stdout.Write([]byte("\033[?1049l")) // Exit alternate screen
		_, _ = os.Stdout.Write([]byte("\033[?25h"))   // Show cursor
		_, _ = os.Stdout.Write([]byte("\033[m"))      // Reset colors
	}
	defer cleanupTerminal()

	mgr := session.NewManager(svc)
	ctrl := queue.NewController(svc, mgr)

	program := tea.NewProgram(newModel(ctrl), tea.WithAltScreen())

	go func() {
		select {
		case <-sigChan:
			program.Quit()
			cancel()
		case <-ctx.Done():
			program.Quit()
		}
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("UI error: %w", err)
	}
	return nil
}
