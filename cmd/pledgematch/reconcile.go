package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dstern/pledgematch/internal/client"
	"github.com/dstern/pledgematch/internal/service"
	"github.com/dstern/pledgematch/internal/storage"
	"github.com/dstern/pledgematch/internal/tui"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Work through pending payments interactively",
		Long: `Open the interactive reconciliation queue. Each pending payment walks
through household matching, duplicate screening, and pledge application.

Examples:
  # Reconcile against the local registry
  pledgematch reconcile

  # Reconcile against a running pledgematch server
  pledgematch reconcile --remote http://donations.example.org:8080`,
		RunE: runReconcile,
	}

	cmd.Flags().String("remote", "", "base URL of a pledgematch server to reconcile against")

	return cmd
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	remote, _ := cmd.Flags().GetString("remote")

	var svc service.Reconciler
	if remote != "" {
		slog.Info("Reconciling against remote server", "url", remote)
		svc = client.New(remote)
	} else {
		dbPath, err := databasePath()
		if err != nil {
			return err
		}
		store, err := storage.NewStore(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open registry: %w", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				slog.Error("Failed to close registry", "error", closeErr)
			}
		}()
		if err := store.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("failed to migrate registry: %w", err)
		}
		svc = store
	}

	return tui.Run(cmd.Context(), svc)
}
