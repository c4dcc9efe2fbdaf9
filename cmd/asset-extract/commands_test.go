// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/asset-extract/internal/ledger"
	"github.com/pdiddy/asset-extract/pkg/types"
)

// execute runs rootCmd with args and returns what it wrote. Flags and viper
// are global, so both are restored afterwards.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	viper.Reset()
	bindFlags()
	t.Cleanup(func() {
		resetFlags(rootCmd)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		viper.Reset()
		bindFlags()
	})

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	resetFlags(rootCmd)
	return stdout.String(), stderr.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// isolateHome points HOME at an empty directory so no user config or
// default ledger leaks into a test.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestRootCmd_Version(t *testing.T) {
	isolateHome(t)

	out, _, err := execute(t, "-v")
	require.NoError(t, err)
	assert.Equal(t, "asset-extract dev\n", out)

	out, _, err = execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "asset-extract dev\n", out)
}

func TestRootCmd_Arguments(t *testing.T) {
	isolateHome(t)
	cfg := assetTree(t, nil)

	tests := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{"output required", []string{cfg.ManifestPath, cfg.ObjectsDir}, `required flag(s) "output" not set`},
		{"too few arguments", []string{cfg.ManifestPath, "-o", cfg.OutputDir}, "accepts 2 arg(s)"},
		{"too many arguments", []string{cfg.ManifestPath, cfg.ObjectsDir, "extra", "-o", cfg.OutputDir}, "accepts 2 arg(s)"},
		{"bad log level", []string{cfg.ManifestPath, cfg.ObjectsDir, "-o", cfg.OutputDir, "--log-level", "loud"}, "unknown log level"},
		{"missing explicit config", []string{cfg.ManifestPath, cfg.ObjectsDir, "-o", cfg.OutputDir, "--config", filepath.Join(t.TempDir(), "nope.yaml")}, "reading config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRootCmd_ZeroSuccessesStillExitsCleanly(t *testing.T) {
	isolateHome(t)
	cfg := assetTree(t, nil, "minecraft/sounds/gone.ogg")
	ledgerPath := filepath.Join(t.TempDir(), "history.db")

	_, stderr, err := execute(t, cfg.ManifestPath, cfg.ObjectsDir, "-o", cfg.OutputDir, "-q", "--ledger", ledgerPath)
	require.NoError(t, err, "per-entry failures are not fatal")
	assert.Contains(t, stderr, "source file doesn't exist")
	assert.NotContains(t, stderr, "extracting 1/1", "--quiet hides progress")

	out, _, err := execute(t, "history", "--ledger", ledgerPath, "--json")
	require.NoError(t, err)
	var runs []ledger.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, 0, runs[0].Success)
	assert.Equal(t, 1, runs[0].Failed)
	assert.Equal(t, cfg.OutputDir, runs[0].OutputDir)

	out, _, err = execute(t, "history", "--ledger", ledgerPath, "--failures", runs[0].ID, "--json")
	require.NoError(t, err)
	var failures []ledger.Failure
	require.NoError(t, json.Unmarshal([]byte(out), &failures))
	require.Len(t, failures, 1)
	assert.Equal(t, "minecraft/sounds/gone.ogg", failures[0].Path)
	assert.Equal(t, types.OutcomeMissingSource, failures[0].Outcome)

	_, _, err = execute(t, "history", "--ledger", ledgerPath, "--failures", "no-such-run")
	assert.ErrorIs(t, err, ledger.ErrRunNotFound)
}

func TestRootCmd_HistoryDefaultsToHomeLedger(t *testing.T) {
	home := isolateHome(t)

	out, _, err := execute(t, "history")
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", out)
	assert.FileExists(t, filepath.Join(home, ".config", "asset-extract", "history.db"))
}

func TestRootCmd_ConfigFileAndEnv(t *testing.T) {
	home := isolateHome(t)
	cfg := assetTree(t, map[string]string{"a.txt": "a"})

	reportPath := filepath.Join(t.TempDir(), "report.json")
	cfgDir := filepath.Join(home, ".config", "asset-extract")
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "asset-extract.yaml"),
		[]byte("report: "+reportPath+"\nverify_hash: true\n"), 0o644))

	_, stderr, err := execute(t, cfg.ManifestPath, cfg.ObjectsDir, "-o", cfg.OutputDir, "-q")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Using config file:")
	assert.FileExists(t, reportPath, "report key read from the config file")

	envReport := filepath.Join(t.TempDir(), "env.yaml")
	t.Setenv("ASSET_EXTRACT_REPORT", envReport)
	_, _, err = execute(t, cfg.ManifestPath, cfg.ObjectsDir, "-o", cfg.OutputDir, "-q")
	require.NoError(t, err)
	assert.FileExists(t, envReport, "environment overrides the config file")

	flagReport := filepath.Join(t.TempDir(), "flag.yaml")
	_, _, err = execute(t, cfg.ManifestPath, cfg.ObjectsDir, "-o", cfg.OutputDir, "-q", "--report", flagReport)
	require.NoError(t, err)
	assert.FileExists(t, flagReport, "flag overrides the environment")
}

func TestRootCmd_ProgressEvery(t *testing.T) {
	isolateHome(t)
	cfg := assetTree(t, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})

	_, stderr, err := execute(t, cfg.ManifestPath, cfg.ObjectsDir, "-o", cfg.OutputDir, "--progress-every", "1")
	require.NoError(t, err)
	assert.Contains(t, stderr, "extracting 1/3")
	assert.Contains(t, stderr, "extracting 2/3")
	assert.Contains(t, stderr, "extracting 3/3")
}
