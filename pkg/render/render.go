// Package render serializes validation reports for machines and humans.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Mindburn-Labs/cdmcheck/pkg/canonicalize"
	"github.com/Mindburn-Labs/cdmcheck/pkg/conform"
)

// JSON renders the report as indented JSON with a trailing newline.
func JSON(report *conform.Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeJSON parses a report rendered by JSON.
func DecodeJSON(data []byte) (*conform.Report, error) {
	var report conform.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

// Markdown renders the report as a titled Markdown document.
func Markdown(report *conform.Report) ([]byte, error) {
	var b bytes.Buffer
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("# Conjunction Data Validation Report")
	line("")
	line("- **Report ID:** %s", report.ReportID)
	line("- **Report time (UTC):** %s", formatTime(&report.ReportTime))
	line("- **Message ID:** %s", report.MessageID)
	line("- **Creation time (UTC):** %s", formatTime(report.CreationTime))
	line("- **TCA (UTC):** %s", formatTime(report.TCA))
	line("- **Validator version:** %s", report.ValidatorVersion)
	line("- **Rules digest:** `%s`", report.RulesDigest)
	line("")
	line("## Summary")
	line("")
	line("- PASS: %d", report.Summary.Pass)
	line("- WARN: %d", report.Summary.Warn)
	line("- FAIL: %d", report.Summary.Fail)
	line("- **OK:** %t", report.OK)
	line("")
	line("## Findings")

	for _, f := range report.Findings {
		line("")
		line("### [%s] %s", f.Severity, f.Code)
		line("")
		line("- %s", f.Message)
		if len(f.Details) == 0 {
			continue
		}
		line("- Details:")
		keys := make([]string, 0, len(f.Details))
		for k := range f.Details {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			v, err := canonicalize.JCS(f.Details[k])
			if err != nil {
				return nil, fmt.Errorf("render %s detail %q: %w", f.Code, k, err)
			}
			line("  - `%s`: `%s`", k, v)
		}
	}
	return b.Bytes(), nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "n/a"
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Console writes a concise terminal summary of the report.
func Console(w io.Writer, report *conform.Report) {
	_, _ = fmt.Fprintf(w, "CDM Validation Report\n")
	_, _ = fmt.Fprintf(w, "─────────────────────\n")
	_, _ = fmt.Fprintf(w, "Message:   %s\n", report.MessageID)
	_, _ = fmt.Fprintf(w, "Report ID: %s\n", report.ReportID)
	_, _ = fmt.Fprintf(w, "Timestamp: %s\n\n", report.ReportTime.UTC().Format(time.RFC3339))

	for _, f := range report.Findings {
		_, _ = fmt.Fprintf(w, "  %-4s  %-26s %s\n", f.Severity, f.Code, f.Message)
	}

	s := report.Summary
	_, _ = fmt.Fprintln(w)
	if report.OK {
		_, _ = fmt.Fprintf(w, "Result: OK (%d pass, %d warn, %d fail)\n", s.Pass, s.Warn, s.Fail)
	} else {
		_, _ = fmt.Fprintf(w, "Result: NOT OK (%d pass, %d warn, %d fail)\n", s.Pass, s.Warn, s.Fail)
	}
}

// Bundle lists the files written by WriteBundle.
type Bundle struct {
	JSONPath     string `json:"json_path"`
	MarkdownPath string `json:"markdown_path"`
}

// BundleName derives the report base name from an input path:
// "in/msg-001.yaml" becomes "msg-001".
func BundleName(inputPath string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// WriteBundle writes <name>.report.json and <name>.report.md under dir,
// creating dir if needed.
func WriteBundle(dir, name string, report *conform.Report) (*Bundle, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	jsonData, err := JSON(report)
	if err != nil {
		return nil, err
	}
	mdData, err := Markdown(report)
	if err != nil {
		return nil, err
	}

	b := &Bundle{
		JSONPath:     filepath.Join(dir, name+".report.json"),
		MarkdownPath: filepath.Join(dir, name+".report.md"),
	}
	if err := os.WriteFile(b.JSONPath, jsonData, 0600); err != nil {
		return nil, fmt.Errorf("write %s: %w", b.JSONPath, err)
	}
	if err := os.WriteFile(b.MarkdownPath, mdData, 0600); err != nil {
		return nil, fmt.Errorf("write %s: %w", b.MarkdownPath, err)
	}
	return b, nil
}
