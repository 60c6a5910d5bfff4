package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/Mindburn-Labs/cdmcheck/pkg/config"
	"github.com/Mindburn-Labs/cdmcheck/pkg/render"
	"github.com/Mindburn-Labs/cdmcheck/pkg/store/ledger"
)

// runHistory implements `cdmcheck history`: list recorded reports, newest
// first, or show one with --show.
func runHistory(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}

	cmd := flag.NewFlagSet("history", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		ledgerPath string
		limit      int
		show       string
		jsonOutput bool
	)
	cmd.StringVar(&ledgerPath, "ledger", cfg.LedgerPath, "SQLite ledger path (REQUIRED)")
	cmd.IntVar(&limit, "limit", 20, "Maximum entries to list (0 = all)")
	cmd.StringVar(&show, "show", "", "Show the full report with this ID")
	cmd.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	if err := cmd.Parse(args); err != nil {
		return exitFatal
	}
	if ledgerPath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --ledger is required")
		return exitFatal
	}

	ctx := context.Background()
	history, err := ledger.Open(ctx, ledgerPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}
	defer func() { _ = history.Close() }()

	if show != "" {
		report, err := history.Get(ctx, show)
		if errors.Is(err, ledger.ErrNotFound) {
			_, _ = fmt.Fprintf(stderr, "Error: no report %q in %s\n", show, ledgerPath)
			return exitFatal
		}
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFatal
		}
		if jsonOutput {
			data, err := render.JSON(report)
			if err != nil {
				_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
				return exitFatal
			}
			_, _ = stdout.Write(data)
		} else {
			render.Console(stdout, report)
		}
		return exitOK
	}

	entries, err := history.List(ctx, limit)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}

	if jsonOutput {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFatal
		}
		_, _ = fmt.Fprintln(stdout, string(data))
		return exitOK
	}

	if len(entries) == 0 {
		_, _ = fmt.Fprintln(stdout, "No reports recorded.")
		return exitOK
	}
	_, _ = fmt.Fprintf(stdout, "%-20s  %-6s  %4s %4s %4s  %-24s  %s\n", "REPORT TIME", "RESULT", "PASS", "WARN", "FAIL", "MESSAGE", "REPORT ID")
	for _, e := range entries {
		result := "OK"
		if !e.OK {
			result = "NOT OK"
		}
		_, _ = fmt.Fprintf(stdout, "%-20s  %-6s  %4d %4d %4d  %-24s  %s\n",
			e.ReportTime.Format(time.RFC3339), result, e.Pass, e.Warn, e.Fail, e.MessageID, e.ReportID)
	}
	return exitOK
}
