package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Mindburn-Labs/cdmcheck/pkg/cdm"
	"github.com/Mindburn-Labs/cdmcheck/pkg/config"
	"github.com/Mindburn-Labs/cdmcheck/pkg/conform"
	"github.com/Mindburn-Labs/cdmcheck/pkg/conform/checks"
	"github.com/Mindburn-Labs/cdmcheck/pkg/observability"
	"github.com/Mindburn-Labs/cdmcheck/pkg/render"
	"github.com/Mindburn-Labs/cdmcheck/pkg/rules"
	"github.com/Mindburn-Labs/cdmcheck/pkg/store/ledger"
)

// newEngine is a variable to allow deterministic engines in tests
var newEngine = checks.DefaultEngine

type validateOptions struct {
	rulesPath   string
	outDir      string
	ledgerPath  string
	metricsFile string
	traceFile   string
	jsonOutput  bool
	strict      bool
	noWrite     bool
}

// runValidate implements `cdmcheck validate`.
//
// Exit codes:
//
//	0 = every report ok
//	1 = any report not ok
//	2 = usage, configuration, input or I/O error
func runValidate(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}

	cmd := flag.NewFlagSet("validate", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var opts validateOptions
	cmd.StringVar(&opts.rulesPath, "rules", cfg.RulesPath, "Rules file (YAML or JSON); built-in defaults when empty")
	cmd.StringVar(&opts.outDir, "out", cfg.OutDir, "Output directory for <name>.report.json and <name>.report.md")
	cmd.StringVar(&opts.ledgerPath, "ledger", cfg.LedgerPath, "Record reports in this SQLite ledger")
	cmd.StringVar(&opts.metricsFile, "metrics-file", cfg.MetricsFile, "Write Prometheus textfile metrics to this path")
	cmd.StringVar(&opts.traceFile, "trace-file", cfg.TraceFile, "Write trace spans as JSON to this path")
	cmd.BoolVar(&opts.jsonOutput, "json", false, "Print the JSON report to stdout")
	cmd.BoolVar(&opts.strict, "strict", cfg.Strict, "Treat WARN findings as failures")
	cmd.BoolVar(&opts.noWrite, "no-write", false, "Do not write report files")

	inputs, err := parseInterspersed(cmd, args)
	if err != nil {
		return exitFatal
	}
	base := cfg.Logger(stderr)
	v := &validator{
		opts:       opts,
		stdout:     stdout,
		stderr:     stderr,
		baseLogger: base,
		logger:     base.With("component", "cli"),
	}
	if opts.metricsFile != "" {
		v.metrics = observability.NewMetrics()
	}

	var code int
	if len(inputs) == 0 {
		code = v.fatal(observability.FatalUsage, "at least one input file is required")
		_, _ = fmt.Fprintln(stderr, "Usage: cdmcheck validate [flags] <input-file>...")
	} else {
		code = v.run(context.Background(), inputs)
	}

	if v.metrics != nil {
		if err := v.metrics.WriteTextfile(opts.metricsFile); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFatal
		}
	}
	return code
}

type validator struct {
	opts       validateOptions
	stdout     io.Writer
	stderr     io.Writer
	baseLogger *slog.Logger
	logger     *slog.Logger
	metrics    *observability.Metrics
}

func (v *validator) fatal(kind string, format string, args ...any) int {
	_, _ = fmt.Fprintf(v.stderr, "Error: "+format+"\n", args...)
	if v.metrics != nil {
		v.metrics.ObserveFatal(kind)
	}
	return exitFatal
}

func (v *validator) run(ctx context.Context, inputs []string) int {
	r, err := v.loadRules()
	if err != nil {
		return v.fatal(observability.FatalConfig, "%v", err)
	}

	engine := newEngine().WithLogger(v.baseLogger)

	if v.opts.traceFile != "" {
		f, err := os.OpenFile(v.opts.traceFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return v.fatal(observability.FatalIO, "open trace file: %v", err)
		}
		defer func() { _ = f.Close() }()

		tracing, err := observability.SetupTracing(ctx, f)
		if err != nil {
			return v.fatal(observability.FatalIO, "%v", err)
		}
		defer func() {
			if err := tracing.Shutdown(ctx); err != nil {
				v.logger.WarnContext(ctx, "trace shutdown failed", "error", err)
			}
		}()
		engine = engine.WithTracerProvider(tracing.Provider)
	}

	var history *ledger.Ledger
	if v.opts.ledgerPath != "" {
		history, err = ledger.Open(ctx, v.opts.ledgerPath)
		if err != nil {
			return v.fatal(observability.FatalIO, "%v", err)
		}
		defer func() { _ = history.Close() }()
	}

	code := exitOK
	reports := make([]*conform.Report, 0, len(inputs))
	for _, path := range inputs {
		report, fileCode := v.validateFile(ctx, engine, r, history, path)
		code = max(code, fileCode)
		if report != nil {
			reports = append(reports, report)
		}
	}

	if v.opts.jsonOutput {
		var out any = reports
		if len(inputs) == 1 && len(reports) == 1 {
			out = reports[0]
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return v.fatal(observability.FatalIO, "marshal reports: %v", err)
		}
		_, _ = fmt.Fprintln(v.stdout, string(data))
	}
	return code
}

func (v *validator) loadRules() (*rules.Rules, error) {
	var (
		r   *rules.Rules
		err error
	)
	if v.opts.rulesPath == "" {
		r = rules.Default()
	} else if r, err = rules.Load(v.opts.rulesPath); err != nil {
		return nil, err
	}
	if v.opts.strict {
		r.Policy.WarnIsFailure = true
	}
	return r, nil
}

// validateFile evaluates one input. A nil report means the input could not
// be turned into a message and nothing was written.
func (v *validator) validateFile(ctx context.Context, engine *conform.Engine, r *rules.Rules, history *ledger.Ledger, path string) (*conform.Report, int) {
	msg, err := cdm.LoadFile(path, cdm.WithAllowedFrames(r.State.AllowedFrames...))
	var schemaErr *cdm.SchemaError
	switch {
	case err == nil:
	case errors.As(err, &schemaErr):
		v.logger.InfoContext(ctx, "message has schema issues", "path", path, "issues", len(schemaErr.Issues))
	default:
		return nil, v.fatal(observability.FatalInput, "%v", err)
	}

	report, err := engine.Evaluate(ctx, msg, r)
	if err != nil {
		return nil, v.fatal(observability.FatalInput, "evaluate %s: %v", path, err)
	}
	if v.metrics != nil {
		v.metrics.ObserveReport(report)
	}

	if !v.opts.jsonOutput {
		render.Console(v.stdout, report)
	}

	if !v.opts.noWrite {
		bundle, err := render.WriteBundle(v.opts.outDir, render.BundleName(path), report)
		if err != nil {
			return report, v.fatal(observability.FatalIO, "%v", err)
		}
		if !v.opts.jsonOutput {
			_, _ = fmt.Fprintf(v.stdout, "Wrote: %s\n       %s\n", bundle.JSONPath, bundle.MarkdownPath)
		}
	}

	if history != nil {
		if _, err := history.Record(ctx, report); err != nil {
			return report, v.fatal(observability.FatalIO, "%v", err)
		}
	}

	if !v.opts.jsonOutput {
		_, _ = fmt.Fprintln(v.stdout)
	}
	if !report.OK {
		return report, exitNotOK
	}
	return report, exitOK
}
