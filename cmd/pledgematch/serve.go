package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dstern/pledgematch/internal/api"
	"github.com/dstern/pledgematch/internal/storage"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reconciliation API over HTTP",
		Long: `Start an HTTP server exposing the registry. Remote reconcile sessions
and web frontends talk to this API.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":8080", "listen address")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")

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

	slog.Info("Starting pledgematch server", "addr", addr, "database", dbPath)
	return api.NewServer(store, slog.Default()).Start(addr)
}
