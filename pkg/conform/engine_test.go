package conform

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Mindburn-Labs/cdmcheck/pkg/cdm"
	"github.com/Mindburn-Labs/cdmcheck/pkg/cdm/cdmtest"
	"github.com/Mindburn-Labs/cdmcheck/pkg/rules"
)

// stubCheck is a test check for engine tests.
type stubCheck struct {
	code     string
	severity Severity
	err      error
	panics   any
	calls    int
}

func (c *stubCheck) Code() string { return c.code }
func (c *stubCheck) Name() string { return "stub " + c.code }
func (c *stubCheck) Run(_ *cdm.Message, _ *rules.Rules) ([]Finding, error) {
	c.calls++
	if c.panics != nil {
		panic(c.panics)
	}
	if c.err != nil {
		return nil, c.err
	}
	return []Finding{NewFinding(c.code, c.severity, "stub", nil)}, nil
}

var testClock = func() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func testEngine(checks ...Check) *Engine {
	e := NewEngine().WithClock(testClock).WithIDGenerator(func() string { return "id" })
	for _, c := range checks {
		e.RegisterCheck(c)
	}
	return e
}

func testMessage(t *testing.T) *cdm.Message {
	return cdmtest.Parse(t, cdmtest.ValidDocument())
}

func TestEngine_RegisterAndRun(t *testing.T) {
	a := &stubCheck{code: "A", severity: SeverityPass}
	b := &stubCheck{code: "B", severity: SeverityWarn}
	e := testEngine(a, b)

	report, err := e.Evaluate(context.Background(), testMessage(t), rules.Default())
	require.NoError(t, err)
	require.Equal(t, 1, a.calls)
	require.Equal(t, 1, b.calls)
	require.Len(t, report.Findings, 2)
	require.Equal(t, "A", report.Findings[0].Code)
	require.Equal(t, "B", report.Findings[1].Code)
	require.Equal(t, Summary{Pass: 1, Warn: 1, Total: 2}, report.Summary)
	require.True(t, report.OK, "warnings alone do not fail the report")
	require.Equal(t, "id", report.ReportID)
	require.Equal(t, testClock(), report.ReportTime)
}

func TestEngine_FailingCheck(t *testing.T) {
	e := testEngine(
		&stubCheck{code: "A", severity: SeverityPass},
		&stubCheck{code: "B", severity: SeverityFail},
	)
	report, err := e.Evaluate(context.Background(), testMessage(t), rules.Default())
	require.NoError(t, err)
	require.False(t, report.OK, "report must fail when any check fails")
	require.Equal(t, SeverityFail, report.Worst())
}

func TestEngine_ReplaceKeepsOrder(t *testing.T) {
	e := testEngine(
		&stubCheck{code: "A", severity: SeverityPass},
		&stubCheck{code: "B", severity: SeverityPass},
	)
	replacement := &stubCheck{code: "A", severity: SeverityFail}
	e.RegisterCheck(replacement)

	checks := e.Checks()
	require.Len(t, checks, 2)
	require.Same(t, replacement, checks[0])
	require.Equal(t, "B", checks[1].Code())
}

func TestEngine_CheckErrorBecomesFinding(t *testing.T) {
	boom := errors.New("boom")
	after := &stubCheck{code: "AFTER", severity: SeverityPass}
	e := testEngine(&stubCheck{code: "BROKEN", err: boom}, after)

	report, err := e.Evaluate(context.Background(), testMessage(t), rules.Default())
	require.NoError(t, err)
	require.Equal(t, 1, after.calls, "later checks still run")

	f := report.FindingsFor("BROKEN")
	require.Len(t, f, 1)
	require.Equal(t, SeverityFail, f[0].Severity)
	require.Equal(t, "boom", f[0].Details["error"])
	require.Equal(t, false, f[0].Details["panic"])
	require.False(t, report.OK)
}

func TestEngine_PanicRecovered(t *testing.T) {
	e := testEngine(
		&stubCheck{code: "PANIC", panics: "index out of range"},
		&stubCheck{code: "AFTER", severity: SeverityPass},
	)
	report, err := e.Evaluate(context.Background(), testMessage(t), rules.Default())
	require.NoError(t, err)
	require.Len(t, report.Findings, 2)

	f := report.FindingsFor("PANIC")[0]
	require.Equal(t, SeverityFail, f.Severity)
	require.Equal(t, true, f.Details["panic"])
	require.Equal(t, "index out of range", f.Details["error"])
}

func TestEngine_InvalidSeverity(t *testing.T) {
	e := testEngine(&stubCheck{code: "ZERO", severity: 0})
	report, err := e.Evaluate(context.Background(), testMessage(t), rules.Default())
	require.NoError(t, err)
	require.Equal(t, SeverityFail, report.Findings[0].Severity)
	require.Contains(t, report.Findings[0].Details["error"], "invalid severity")
}

func TestEngine_MissingInput(t *testing.T) {
	e := testEngine()
	_, err := e.Evaluate(context.Background(), nil, rules.Default())
	require.ErrorIs(t, err, ErrMissingInput)
	_, err = e.Evaluate(context.Background(), testMessage(t), nil)
	require.ErrorIs(t, err, ErrMissingInput)
}

func TestEngine_TimesFromMessage(t *testing.T) {
	e := testEngine(&stubCheck{code: "A", severity: SeverityPass})

	report, err := e.Evaluate(context.Background(), testMessage(t), rules.Default())
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *report.CreationTime)

	msg := cdmtest.ParseLoose(t, cdmtest.Delete(cdmtest.ValidDocument(), "tca_utc"))
	report, err = e.Evaluate(context.Background(), msg, rules.Default())
	require.NoError(t, err)
	require.NotNil(t, report.CreationTime)
	require.Nil(t, report.TCA)
}

func TestEngine_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	e := testEngine(
		&stubCheck{code: "A", severity: SeverityPass},
		&stubCheck{code: "B", err: errors.New("boom")},
	).WithTracerProvider(tp)

	_, err := e.Evaluate(context.Background(), testMessage(t), rules.Default())
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	require.Equal(t, "check A", spans[0].Name())
	require.Equal(t, "check B", spans[1].Name())
	require.Equal(t, "conform.Evaluate", spans[2].Name())
	require.Len(t, spans[0].Events(), 1)
	require.Equal(t, spans[2].SpanContext().TraceID(), spans[0].SpanContext().TraceID())
}

func TestVerdict(t *testing.T) {
	require.True(t, Verdict(Summary{Pass: 3}, true))
	require.True(t, Verdict(Summary{Pass: 3, Warn: 1}, false))
	require.False(t, Verdict(Summary{Pass: 3, Warn: 1}, true))
	require.False(t, Verdict(Summary{Fail: 1}, false))
	require.True(t, Verdict(Summary{}, false))
}

func TestSeverity_Text(t *testing.T) {
	for _, s := range Severities() {
		parsed, err := ParseSeverity(s.String())
		require.NoError(t, err)
		require.Equal(t, s, parsed)
	}
	parsed, err := ParseSeverity(" warn ")
	require.NoError(t, err)
	require.Equal(t, SeverityWarn, parsed)

	_, err = ParseSeverity("INFO")
	require.Error(t, err)

	_, err = Severity(9).MarshalText()
	require.Error(t, err)
	require.Equal(t, "Severity(9)", Severity(9).String())
}

func TestFinding_JSON(t *testing.T) {
	details := map[string]any{"k": 1}
	f := Warn("LEAD_TIME", "short", details)
	details["k"] = 2
	require.Equal(t, 1, f.Details["k"], "details are copied")

	data, err := json.Marshal(f)
	require.NoError(t, err)
	require.JSONEq(t, `{"code":"LEAD_TIME","severity":"WARN","message":"short","details":{"k":1}}`, string(data))

	data, err = json.Marshal(Pass("SCHEMA", "ok", nil))
	require.NoError(t, err)
	require.JSONEq(t, `{"code":"SCHEMA","severity":"PASS","message":"ok"}`, string(data))

	var back Finding
	require.NoError(t, json.Unmarshal([]byte(`{"code":"X","severity":"fail","message":"m"}`), &back))
	require.Equal(t, SeverityFail, back.Severity)
}

func TestFinding_NonFiniteDetails(t *testing.T) {
	f := Fail("MISS_DISTANCE_CONSISTENCY", "overflow", map[string]any{
		"estimated_m": math.Inf(1),
		"rel_err":     math.NaN(),
		"floor":       math.Inf(-1),
		"finite":      2.5,
		"vector":      []float64{1, math.Inf(1)},
		"clean":       []float64{1, 2},
		"per_matrix":  map[string]any{"primary.covariance": math.Inf(1)},
	})

	require.Equal(t, "+Inf", f.Details["estimated_m"])
	require.Equal(t, "NaN", f.Details["rel_err"])
	require.Equal(t, "-Inf", f.Details["floor"])
	require.Equal(t, 2.5, f.Details["finite"])
	require.Equal(t, []any{1.0, "+Inf"}, f.Details["vector"])
	require.Equal(t, []float64{1, 2}, f.Details["clean"])
	require.Equal(t, map[string]any{"primary.covariance": "+Inf"}, f.Details["per_matrix"])

	_, err := json.Marshal(f)
	require.NoError(t, err)
}
