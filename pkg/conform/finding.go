package conform

import (
	"math"
	"strconv"
)

// Finding is the outcome of one check (or one schema issue).
// Findings are values; Details is copied on construction and must not be
// modified afterwards.
type Finding struct {
	Code     string         `json:"code"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
}

// NewFinding builds a Finding, copying details. NaN and infinite floats in
// details are stored as strings ("NaN", "+Inf", "-Inf") so every finding can
// be rendered as JSON.
func NewFinding(code string, severity Severity, message string, details map[string]any) Finding {
	var d map[string]any
	if len(details) > 0 {
		d = detailMap(details)
	}
	return Finding{Code: code, Severity: severity, Message: message, Details: d}
}

// Pass builds a PASS finding.
func Pass(code, message string, details map[string]any) Finding {
	return NewFinding(code, SeverityPass, message, details)
}

// Warn builds a WARN finding.
func Warn(code, message string, details map[string]any) Finding {
	return NewFinding(code, SeverityWarn, message, details)
}

// Fail builds a FAIL finding.
func Fail(code, message string, details map[string]any) Finding {
	return NewFinding(code, SeverityFail, message, details)
}

func detailMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = detailValue(v)
	}
	return out
}

func detailValue(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return strconv.FormatFloat(x, 'g', -1, 64)
		}
	case []float64:
		for _, f := range x {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				out := make([]any, len(x))
				for i := range x {
					out[i] = detailValue(x[i])
				}
				return out
			}
		}
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = detailValue(x[i])
		}
		return out
	case map[string]any:
		return detailMap(x)
	}
	return v
}
