package conform

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mindburn-Labs/cdmcheck/pkg/cdm"
	"github.com/Mindburn-Labs/cdmcheck/pkg/rules"
	"github.com/Mindburn-Labs/cdmcheck/pkg/versioning"
)

const instrumentationName = "github.com/Mindburn-Labs/cdmcheck/pkg/conform"

// Engine evaluates a message with an ordered list of checks.
type Engine struct {
	checks  map[string]Check
	ordered []string // check execution order
	clock   func() time.Time
	logger  *slog.Logger
	tracer  trace.Tracer
	newID   func() string
}

// NewEngine creates an engine with no checks registered.
func NewEngine() *Engine {
	return &Engine{
		checks:  make(map[string]Check),
		ordered: make([]string, 0),
		clock:   time.Now,
		logger:  slog.Default().With("component", "conform"),
		tracer:  otel.Tracer(instrumentationName),
		newID:   uuid.NewString,
	}
}

// WithClock overrides the clock for deterministic testing.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// WithLogger overrides the engine logger.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logger.With("component", "conform")
	return e
}

// WithTracerProvider sets the provider used for per-check spans.
func (e *Engine) WithTracerProvider(tp trace.TracerProvider) *Engine {
	e.tracer = tp.Tracer(instrumentationName, trace.WithInstrumentationVersion(versioning.Version))
	return e
}

// WithIDGenerator overrides report ID generation.
func (e *Engine) WithIDGenerator(gen func() string) *Engine {
	e.newID = gen
	return e
}

// RegisterCheck adds a check to the engine.
// Checks are run in registration order; registering an existing code
// replaces that check in place.
func (e *Engine) RegisterCheck(c Check) {
	code := c.Code()
	if _, exists := e.checks[code]; !exists {
		e.ordered = append(e.ordered, code)
	}
	e.checks[code] = c
}

// Checks returns the registered checks in execution order.
func (e *Engine) Checks() []Check {
	out := make([]Check, 0, len(e.ordered))
	for _, code := range e.ordered {
		out = append(out, e.checks[code])
	}
	return out
}

// Evaluate runs every registered check against msg and builds the Report.
// It only fails when msg or r is nil; check failures become findings.
func (e *Engine) Evaluate(ctx context.Context, msg *cdm.Message, r *rules.Rules) (*Report, error) {
	if msg == nil || r == nil {
		return nil, ErrMissingInput
	}

	ctx, span := e.tracer.Start(ctx, "conform.Evaluate",
		trace.WithAttributes(attribute.String("cdm.message_id", msg.MessageID)))
	defer span.End()

	digest, err := r.Digest()
	if err != nil {
		return nil, fmt.Errorf("rules digest: %w", err)
	}

	findings := make([]Finding, 0, len(e.ordered))
	for _, code := range e.ordered {
		findings = append(findings, e.runCheck(ctx, e.checks[code], msg, r)...)
	}

	summary := Summarize(findings)
	report := &Report{
		ReportID:         e.newID(),
		ValidatorVersion: versioning.Version,
		RulesDigest:      digest,
		MessageID:        msg.MessageID,
		ReportTime:       e.clock().UTC(),
		Findings:         findings,
		Summary:          summary,
		OK:               Verdict(summary, r.Policy.WarnIsFailure),
	}
	if msg.Available(cdm.FieldCreationTime) {
		t := msg.CreationTime
		report.CreationTime = &t
	}
	if msg.Available(cdm.FieldTCA) {
		t := msg.TCA
		report.TCA = &t
	}

	span.SetAttributes(
		attribute.Bool("cdm.ok", report.OK),
		attribute.Int("cdm.findings.fail", summary.Fail),
		attribute.Int("cdm.findings.warn", summary.Warn),
	)
	e.logger.InfoContext(ctx, "message evaluated",
		"message_id", msg.MessageID,
		"ok", report.OK,
		"pass", summary.Pass,
		"warn", summary.Warn,
		"fail", summary.Fail,
	)
	return report, nil
}

// runCheck executes one check, converting errors and panics into a FAIL finding.
func (e *Engine) runCheck(ctx context.Context, c Check, msg *cdm.Message, r *rules.Rules) (findings []Finding) {
	code := c.Code()
	ctx, span := e.tracer.Start(ctx, "check "+code,
		trace.WithAttributes(attribute.String("cdm.check", code)))
	defer span.End()

	fail := func(ie *CheckInternalError) {
		span.RecordError(ie)
		span.SetStatus(codes.Error, ie.Error())
		e.logger.ErrorContext(ctx, "check internal error", "check", code, "panic", ie.Panic, "error", ie.Err)
		findings = []Finding{ie.Finding()}
	}

	defer func() {
		if rec := recover(); rec != nil {
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}
			fail(&CheckInternalError{Code: code, Err: err, Panic: true})
		}
	}()

	start := e.clock()
	out, err := c.Run(msg, r)
	if err != nil {
		fail(&CheckInternalError{Code: code, Err: err})
		return findings
	}
	for _, f := range out {
		if !f.Severity.Valid() {
			fail(&CheckInternalError{Code: code, Err: fmt.Errorf("finding %s has invalid severity %d", f.Code, uint8(f.Severity))})
			return findings
		}
	}

	for _, f := range out {
		span.AddEvent("finding", trace.WithAttributes(
			attribute.String("code", f.Code),
			attribute.String("severity", f.Severity.String()),
		))
	}
	e.logger.DebugContext(ctx, "check complete",
		"check", code,
		"findings", len(out),
		"duration", e.clock().Sub(start),
	)
	return out
}
