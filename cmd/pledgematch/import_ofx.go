package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dstern/pledgematch/internal/model"
	"github.com/dstern/pledgematch/internal/ofx"
	"github.com/dstern/pledgematch/internal/storage"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import payments from OFX/QFX files",
		Long: `Import incoming payments from OFX or QFX (Quicken) files exported
from your bank. Only credits are kept; debits are skipped.

Examples:
  # Import single file
  pledgematch import-ofx ~/Downloads/donations_jan_2024.qfx

  # Import all QFX files in a directory
  pledgematch import-ofx ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")

	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	// Expand globs and collect all files
	var allFiles []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			// If no glob matches, check if it's a direct file
			if _, err := os.Stat(pattern); err == nil {
				allFiles = append(allFiles, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
		} else {
			allFiles = append(allFiles, matches...)
		}
	}

	if len(allFiles) == 0 {
		return fmt.Errorf("no files found to import")
	}

	slog.Info("Importing OFX files...",
		"file_count", len(allFiles),
		"dry_run", dryRun)

	var allImports []model.PaymentImport
	seen := make(map[string]bool)

	parser := ofx.NewParser()
	ctx := cmd.Context()

	bar := progressbar.NewOptions(len(allFiles),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Parsing OFX files...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))

	for _, filePath := range allFiles {
		f, err := os.Open(filePath)
		if err != nil {
			slog.Error("Failed to open file",
				"file", filePath,
				"error", err)
			_ = bar.Add(1)
			continue
		}

		imports, err := parser.ParseFile(ctx, f)
		_ = f.Close()
		_ = bar.Add(1)

		if err != nil {
			slog.Error("Failed to parse OFX file",
				"file", filePath,
				"error", err)
			continue
		}

		if len(imports) == 0 {
			slog.Warn("No payments found in file",
				"file", filepath.Base(filePath))
			continue
		}

		// Banks repeat transactions across overlapping exports
		added := 0
		for _, imp := range imports {
			if !seen[imp.ID] {
				seen[imp.ID] = true
				allImports = append(allImports, imp)
				added++
			}
		}

		slog.Info("Processed file",
			"file", filepath.Base(filePath),
			"payments_found", len(imports),
			"added", added,
			"duplicates", len(imports)-added)
	}
	fmt.Fprintln(os.Stderr)

	if len(allImports) == 0 {
		slog.Warn("No payments found in any file")
		return nil
	}

	if dryRun {
		for _, imp := range allImports {
			fmt.Printf("%s  $%.2f  %s %s  <%s>\n",
				imp.PaymentDate.Format("2006-01-02"),
				imp.Amount,
				imp.FirstName,
				imp.LastName,
				imp.Email)
		}
		slog.Info("Dry run complete - no data saved", "payments", len(allImports))
		return nil
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
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate registry: %w", err)
	}

	saved, err := store.SaveImports(ctx, allImports)
	if err != nil {
		return fmt.Errorf("failed to save imports: %w", err)
	}

	slog.Info("Import complete",
		"parsed", len(allImports),
		"saved", saved,
		"already_known", len(allImports)-saved)
	return nil
}
