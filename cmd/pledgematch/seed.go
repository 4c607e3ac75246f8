package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dstern/pledgematch/internal/storage"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Load households, campaigns, and pledges from a YAML file",
		Long: `Load registry fixtures from a YAML export. Existing rows with the same
IDs are replaced, so seeding is safe to repeat after the export changes.`,
		Args: cobra.ExactArgs(1),
		RunE: runSeed,
	}
}

func runSeed(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed storage.Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

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

	if err := store.LoadSeed(cmd.Context(), &seed); err != nil {
		return fmt.Errorf("failed to load seed data: %w", err)
	}

	slog.Info("Seed loaded",
		"households", len(seed.Households),
		"campaigns", len(seed.Campaigns),
		"pledges", len(seed.Pledges),
		"payments", len(seed.Payments),
		"imports", len(seed.Imports))
	return nil
}
