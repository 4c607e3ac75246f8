package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dstern/pledgematch/internal/client"
	"github.com/dstern/pledgematch/internal/format"
	"github.com/dstern/pledgematch/internal/model"
	"github.com/dstern/pledgematch/internal/service"
	"github.com/dstern/pledgematch/internal/storage"
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show reconciliation progress",
		RunE:  runStatus,
	}

	cmd.Flags().String("remote", "", "base URL of a pledgematch server to query")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	remote, _ := cmd.Flags().GetString("remote")

	var svc service.Reconciler
	if remote != "" {
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

	counts, err := svc.GetStatusCounts(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get status counts: %w", err)
	}

	fmt.Println("Reconciliation queue:")
	for _, status := range model.AllStatuses {
		if status == model.StatusAll {
			continue
		}
		fmt.Printf("  %s %d\n", format.StatusStyle(status).Render(string(status)+":"), counts[status])
	}
	fmt.Printf("  Total: %d\n", counts[model.StatusAll])
	return nil
}
