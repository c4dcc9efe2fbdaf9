// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/asset-extract/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded extraction runs",
	Long: `History reads the run ledger written by extractions started with --ledger
(or the ledger config key) and lists recent runs, newest first.

Use --failures with a run id to list the entries that run did not extract.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().String("failures", "", "list the failed entries of this run id")
	historyCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := viper.GetString("ledger")
	if path == "" {
		var err error
		if path, err = ledger.DefaultPath(); err != nil {
			return err
		}
	}

	l, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer l.Close()

	jsonOutput, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	if runID, _ := cmd.Flags().GetString("failures"); runID != "" {
		failures, err := l.Failures(cmd.Context(), runID)
		if err != nil {
			return err
		}
		return formatFailures(out, failures, jsonOutput)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := l.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}
	return formatRuns(out, runs, jsonOutput)
}

func formatRuns(w io.Writer, runs []ledger.Run, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-36s  %-19s  %7s  %5s  %7s  %-8s  %s\n",
		"ID", "Started", "Success", "Fail", "Total", "Size", "Manifest")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, r := range runs {
		manifest := r.Manifest
		if r.Interrupted {
			manifest += " (interrupted)"
		}
		fmt.Fprintf(w, "%-36s  %-19s  %7d  %5d  %7d  %-8s  %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Success, r.Failed, r.Total, humanize.Bytes(uint64(r.Bytes)), manifest)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(runs))
	return nil
}

func formatFailures(w io.Writer, failures []ledger.Failure, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, failures)
	}
	if len(failures) == 0 {
		fmt.Fprintln(w, "No failed entries.")
		return nil
	}

	fmt.Fprintf(w, "%-24s  %-50s  %s\n", "Outcome", "Path", "Error")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, f := range failures {
		path := f.Path
		if len(path) > 50 {
			path = "..." + path[len(path)-47:]
		}
		fmt.Fprintf(w, "%-24s  %-50s  %s\n", f.Outcome, path, f.Error)
	}
	fmt.Fprintf(w, "\n%d failed entries\n", len(failures))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
