// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the asset-extract CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/asset-extract/internal/progress"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd extracts one manifest; subcommands cover run history and version.
var rootCmd = &cobra.Command{
	Use:   "asset-extract <manifest.json> <obj_dir> -o <out_dir>",
	Short: "Extract game asset files of Minecraft Java Edition",
	Long: `asset-extract rebuilds the named directory tree described by an asset index.
Each manifest entry maps a relative path to the hash and size of an object
stored at <obj_dir>/<hash[0:2]>/<hash> (usually .minecraft/assets/objects/).
Objects are checked for existence and size, then copied to <out_dir>/<path>.

Entries that cannot be extracted are logged and counted but never stop the
run. The exit status is non-zero only for fatal errors: bad arguments, an
unreadable manifest, or an interrupt.`,
	Example: `  asset-extract ~/.minecraft/assets/indexes/17.json ~/.minecraft/assets/objects -o assets
  asset-extract 17.json objects -o out --include 'minecraft/sounds/**' --report out/report.yaml`,
	Version:           version,
	Args:              cobra.ExactArgs(2),
	PersistentPreRunE: loadConfig,
	RunE:              runExtract,
}

// flagKeys maps viper keys to the root flags bound to them.
var flagKeys = map[string]string{
	"verify_hash":    "verify-hash",
	"strict":         "strict",
	"preserve_mtime": "preserve-mtime",
	"report":         "report",
	"progress_every": "progress-every",
}

// persistentFlagKeys maps viper keys to persistent flags shared by subcommands.
var persistentFlagKeys = map[string]string{
	"log_level": "log-level",
	"ledger":    "ledger",
}

func init() {
	rootCmd.SetVersionTemplate("asset-extract {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./asset-extract.yaml or ~/.config/asset-extract/asset-extract.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, or error")
	pf.String("ledger", "", "SQLite run history database; extraction records nothing when empty")

	f := rootCmd.Flags()
	f.SortFlags = false
	f.StringP("output", "o", "", "output directory")
	f.Bool("verify-hash", false, "verify object content against its SHA-1 or SHA-256 hash while copying")
	f.Bool("strict", false, `reject manifests without an "objects" collection`)
	f.StringArray("include", nil, "only extract paths matching this doublestar pattern (repeatable)")
	f.Bool("preserve-mtime", true, "copy object modification times to extracted files")
	f.String("report", "", "write a run report to this .yaml or .json file")
	f.BoolP("quiet", "q", false, "hide the progress line")
	f.Int("progress-every", progress.DefaultEvery, "print a progress line every N entries when stderr is not a terminal")
	_ = rootCmd.MarkFlagRequired("output")

	bindFlags()
}

// bindFlags binds the root flags into viper so flag, env and config file
// resolve through one key.
func bindFlags() {
	for key, name := range flagKeys {
		_ = viper.BindPFlag(key, rootCmd.Flags().Lookup(name))
	}
	for key, name := range persistentFlagKeys {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name))
	}
}

// loadConfig reads the optional config file and environment. A missing
// default config file is not an error; a malformed one, or a missing file
// named by --config, is.
func loadConfig(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("asset-extract")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "asset-extract"))
		}
	}

	viper.SetEnvPrefix("ASSET_EXTRACT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", viper.ConfigFileUsed(), err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", viper.ConfigFileUsed())
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
