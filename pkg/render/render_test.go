package render

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/cdmcheck/pkg/cdm/cdmtest"
	"github.com/Mindburn-Labs/cdmcheck/pkg/conform"
	"github.com/Mindburn-Labs/cdmcheck/pkg/conform/checks"
	"github.com/Mindburn-Labs/cdmcheck/pkg/rules"
)

func sampleReport(t *testing.T, doc map[string]any) *conform.Report {
	t.Helper()
	e := checks.DefaultEngine().
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }).
		WithIDGenerator(func() string { return "7d3c1c9e-0000-4000-8000-000000000001" })
	report, err := e.Evaluate(context.Background(), cdmtest.ParseLoose(t, doc), rules.Default())
	require.NoError(t, err)
	return report
}

func failingDoc() map[string]any {
	doc := cdmtest.ValidDocument()
	cdmtest.Set(doc, "creation_time_utc", "2026-03-03T00:00:00Z")
	cdmtest.Set(doc, "secondary.frame", "ITRF")
	return doc
}

func TestJSON_RoundTrip(t *testing.T) {
	for name, doc := range map[string]map[string]any{
		"ok":     cdmtest.ValidDocument(),
		"not ok": failingDoc(),
		"schema": cdmtest.Delete(cdmtest.ValidDocument(), "tca_utc"),
	} {
		t.Run(name, func(t *testing.T) {
			report := sampleReport(t, doc)
			data, err := JSON(report)
			require.NoError(t, err)

			back, err := DecodeJSON(data)
			require.NoError(t, err)
			require.Equal(t, report.Summary, back.Summary)
			require.Equal(t, report.OK, back.OK)
			require.Equal(t, report.ReportID, back.ReportID)
			require.Equal(t, report.RulesDigest, back.RulesDigest)
			require.Len(t, back.Findings, len(report.Findings))
			for i := range report.Findings {
				require.Equal(t, report.Findings[i].Code, back.Findings[i].Code)
				require.Equal(t, report.Findings[i].Severity, back.Findings[i].Severity)
			}
			require.Equal(t, report.TCA == nil, back.TCA == nil)
		})
	}
}

func TestJSON_Shape(t *testing.T) {
	data, err := JSON(sampleReport(t, cdmtest.ValidDocument()))
	require.NoError(t, err)
	s := string(data)
	require.True(t, strings.HasSuffix(s, "}\n"))
	require.Contains(t, s, `"report_time_utc": "2026-03-01T12:00:00Z"`)
	require.Contains(t, s, `"tca_utc": "2026-03-02T12:00:00Z"`)
	require.Contains(t, s, `"severity": "PASS"`)
	require.Contains(t, s, `"ok": true`)
}

func TestDecodeJSON_Invalid(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"findings":[{"severity":"MAYBE"}]}`))
	require.Error(t, err)
	_, err = DecodeJSON([]byte(`not json`))
	require.Error(t, err)
}

func TestMarkdown(t *testing.T) {
	data, err := Markdown(sampleReport(t, failingDoc()))
	require.NoError(t, err)
	md := string(data)

	require.True(t, strings.HasPrefix(md, "# Conjunction Data Validation Report\n"))
	require.Contains(t, md, "- **Message ID:** CDM-2026-0001")
	require.Contains(t, md, "## Summary")
	require.Contains(t, md, "- FAIL: 2")
	require.Contains(t, md, "- **OK:** false")
	require.Contains(t, md, "### [FAIL] TIME_ORDER")
	require.Contains(t, md, "### [FAIL] FRAME_MATCH")
	require.Contains(t, md, "  - `secondary_frame`: `\"ITRF\"`")

	// Details are listed in key order.
	i := strings.Index(md, "`primary_frame`")
	j := strings.Index(md, "`secondary_frame`")
	require.True(t, i > 0 && i < j)

	// Sections appear in report order.
	require.Less(t, strings.Index(md, "] SCHEMA"), strings.Index(md, "] COV_STD"))
}

func TestMarkdown_MissingTimes(t *testing.T) {
	data, err := Markdown(sampleReport(t, cdmtest.Delete(cdmtest.ValidDocument(), "tca_utc")))
	require.NoError(t, err)
	require.Contains(t, string(data), "- **TCA (UTC):** n/a")
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	Console(&buf, sampleReport(t, cdmtest.ValidDocument()))
	out := buf.String()
	require.Contains(t, out, "Message:   CDM-2026-0001")
	require.Contains(t, out, "Result: OK (12 pass, 0 warn, 0 fail)")

	buf.Reset()
	Console(&buf, sampleReport(t, failingDoc()))
	require.Contains(t, buf.String(), "Result: NOT OK")
	require.Contains(t, buf.String(), "FAIL  TIME_ORDER")
}

func TestBundleName(t *testing.T) {
	require.Equal(t, "msg-001", BundleName("in/msg-001.yaml"))
	require.Equal(t, "cdm.v2", BundleName("/tmp/cdm.v2.json"))
	require.Equal(t, "plain", BundleName("plain"))
}

func TestWriteBundle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	report := sampleReport(t, cdmtest.ValidDocument())

	b, err := WriteBundle(dir, "msg", report)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "msg.report.json"), b.JSONPath)
	require.Equal(t, filepath.Join(dir, "msg.report.md"), b.MarkdownPath)

	info, err := os.Stat(b.JSONPath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(b.JSONPath)
	require.NoError(t, err)
	back, err := DecodeJSON(data)
	require.NoError(t, err)
	require.True(t, back.OK)

	md, err := os.ReadFile(b.MarkdownPath)
	require.NoError(t, err)
	require.Contains(t, string(md), "## Findings")
}

func TestWriteBundle_DirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(file, nil, 0600))
	_, err := WriteBundle(file, "msg", sampleReport(t, cdmtest.ValidDocument()))
	require.Error(t, err)
}
