// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/asset-extract/internal/extract"
	"github.com/pdiddy/asset-extract/internal/ledger"
	"github.com/pdiddy/asset-extract/internal/logging"
	"github.com/pdiddy/asset-extract/internal/manifest"
	"github.com/pdiddy/asset-extract/internal/progress"
	"github.com/pdiddy/asset-extract/internal/report"
	"github.com/pdiddy/asset-extract/pkg/types"
)

// runOptions holds the presentation settings of one extraction.
type runOptions struct {
	LogLevel      string
	Progress      bool
	ProgressEvery int
	Stderr        io.Writer
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := extractionConfig(cmd, args)
	if err := validateInputs(cfg); err != nil {
		return err
	}
	cmd.SilenceUsage = true

	quiet, _ := cmd.Flags().GetBool("quiet")
	_, err := extractAssets(cmd.Context(), cfg, runOptions{
		LogLevel:      viper.GetString("log_level"),
		Progress:      !quiet,
		ProgressEvery: viper.GetInt("progress_every"),
		Stderr:        cmd.ErrOrStderr(),
	})
	return err
}

// extractionConfig resolves flags, environment and config file into one
// ExtractionConfig. --include is read from the flag directly so patterns
// containing commas (e.g. "{a,b}/**") are not split.
func extractionConfig(cmd *cobra.Command, args []string) types.ExtractionConfig {
	output, _ := cmd.Flags().GetString("output")

	include := viper.GetStringSlice("include")
	if f := cmd.Flags().Lookup("include"); f != nil && f.Changed {
		include, _ = cmd.Flags().GetStringArray("include")
	}

	return types.ExtractionConfig{
		ManifestPath:    args[0],
		ObjectsDir:      args[1],
		OutputDir:       output,
		VerifyHash:      viper.GetBool("verify_hash"),
		Strict:          viper.GetBool("strict"),
		Include:         include,
		PreserveModTime: viper.GetBool("preserve_mtime"),
		ReportPath:      viper.GetString("report"),
		LedgerPath:      viper.GetString("ledger"),
	}
}

// validateInputs rejects unusable paths before any extraction work starts.
func validateInputs(cfg types.ExtractionConfig) error {
	if strings.TrimSpace(cfg.ManifestPath) == "" || strings.TrimSpace(cfg.ObjectsDir) == "" {
		return errors.New("invalid arguments: map file and object directory must not be empty")
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return errors.New("output directory not specified")
	}

	info, err := os.Stat(cfg.ManifestPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("map file %s doesn't exist", cfg.ManifestPath)
		}
		return fmt.Errorf("map file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("map file %s is a directory", cfg.ManifestPath)
	}
	if !strings.EqualFold(filepath.Ext(cfg.ManifestPath), ".json") {
		return errors.New("map file must be a .json file")
	}

	info, err = os.Stat(cfg.ObjectsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("object directory %s doesn't exist", cfg.ObjectsDir)
		}
		return fmt.Errorf("object directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("object directory %s is not a directory", cfg.ObjectsDir)
	}

	if info, err := os.Stat(cfg.OutputDir); err == nil && !info.IsDir() {
		return fmt.Errorf("output path %s is not a directory", cfg.OutputDir)
	}
	return nil
}

// extractAssets loads the manifest, locks the output directory, runs the
// engine and persists the optional report and ledger entry. Per-entry
// failures are not errors; the returned summary carries them.
func extractAssets(ctx context.Context, cfg types.ExtractionConfig, opts runOptions) (*types.Summary, error) {
	var printer *progress.Printer
	logOut := opts.Stderr
	if opts.Progress {
		printer = progress.New(opts.Stderr, opts.ProgressEvery)
		logOut = printer.Writer(opts.Stderr)
	}
	logger, err := logging.New(logOut, opts.LogLevel, logging.IsTerminal(opts.Stderr))
	if err != nil {
		return nil, err
	}

	logger.Info("reading map file", "path", cfg.ManifestPath)
	m, err := manifest.Load(cfg.ManifestPath, manifest.Options{Strict: cfg.Strict})
	if err != nil {
		return nil, err
	}
	logger.Info("found resource files to process",
		"count", m.Len(),
		"size", humanize.Bytes(uint64(m.TotalSize())))

	if len(cfg.Include) > 0 {
		all := m.Len()
		if m, err = manifest.Filter(m, cfg.Include); err != nil {
			return nil, err
		}
		logger.Info("filtered manifest", "kept", m.Len(), "of", all, "include", cfg.Include)
	}

	lock, err := extract.LockDestination(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("locked output directory", "lock", lock.Path())
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("releasing output lock", "error", err)
		}
	}()

	engineOpts := extract.Options{Logger: logger}
	if printer != nil {
		engineOpts.Observer = printer
	}
	summary, runErr := extract.New(cfg, engineOpts).Run(ctx, m)
	if printer != nil {
		printer.Finish()
	}

	// The run context is already cancelled after an interrupt; the partial
	// summary is still worth keeping.
	if err := persist(context.WithoutCancel(ctx), cfg, summary, logger); err != nil {
		return summary, err
	}
	if runErr != nil {
		return summary, fmt.Errorf("extraction interrupted after %d of %d entries: %w",
			summary.Done(), summary.Total, runErr)
	}
	return summary, nil
}

func persist(ctx context.Context, cfg types.ExtractionConfig, s *types.Summary, logger *slog.Logger) error {
	if cfg.ReportPath != "" {
		if err := report.Write(cfg.ReportPath, report.New(cfg, s)); err != nil {
			return err
		}
		logger.Info("wrote report", "path", cfg.ReportPath)
	}

	if cfg.LedgerPath != "" {
		l, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			return err
		}
		defer l.Close()

		run, err := l.Record(ctx, cfg, s)
		if err != nil {
			return fmt.Errorf("recording run: %w", err)
		}
		logger.Info("recorded run", "id", run.ID, "ledger", cfg.LedgerPath)
	}
	return nil
}
