// Package cdmtest provides message fixtures for tests.
package cdmtest

import (
	"strings"
	"testing"

	"github.com/Mindburn-Labs/cdmcheck/pkg/cdm"
)

func list(vals ...float64) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func diag(vals ...float64) []any {
	rows := make([]any, len(vals))
	for i := range vals {
		row := make([]float64, len(vals))
		row[i] = vals[i]
		rows[i] = list(row...)
	}
	return rows
}

// ValidDocument returns a decoded message that passes every built-in check
// under the default rules. Each call returns a fresh copy.
//
// Primary and secondary are 100 m apart along x and separate at 10 m/s along z.
func ValidDocument() map[string]any {
	return map[string]any{
		"message_id":        "CDM-2026-0001",
		"creation_time_utc": "2026-03-01T00:00:00Z",
		"tca_utc":           "2026-03-02T12:00:00Z",
		"primary": map[string]any{
			"object_id":    "NORAD-25544",
			"frame":        "EME2000",
			"position_m":   list(7_000_000, 0, 0),
			"velocity_mps": list(0, 7_500, 0),
			"covariance":   diag(100, 100, 100),
		},
		"secondary": map[string]any{
			"object_id":    "NORAD-48274",
			"frame":        "EME2000",
			"position_m":   list(7_000_100, 0, 0),
			"velocity_mps": list(0, 7_500, 10),
			"covariance":   diag(400, 400, 400, 0.01, 0.01, 0.01),
		},
		"miss_distance_m":    100.0,
		"relative_speed_mps": 10.0,
		"rel_pos_cov_m2":     list(500, 0, 0, 0, 500, 0, 0, 0, 500),
	}
}

// Set replaces the value at a dotted path, creating nothing.
func Set(doc map[string]any, path string, value any) map[string]any {
	parent, key := walk(doc, path)
	parent[key] = value
	return doc
}

// Delete removes the value at a dotted path.
func Delete(doc map[string]any, path string) map[string]any {
	parent, key := walk(doc, path)
	delete(parent, key)
	return doc
}

func walk(doc map[string]any, path string) (map[string]any, string) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		cur = cur[p].(map[string]any)
	}
	return cur, parts[len(parts)-1]
}

// Vector builds a position or velocity value.
func Vector(x, y, z float64) []any { return list(x, y, z) }

// Matrix builds a covariance value from rows.
func Matrix(rows ...[]float64) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = list(r...)
	}
	return out
}

// Diagonal builds a diagonal covariance value.
func Diagonal(vals ...float64) []any { return diag(vals...) }

// Parse parses doc and fails the test on anything but a clean parse.
func Parse(t testing.TB, doc map[string]any) *cdm.Message {
	t.Helper()
	msg, err := cdm.Parse(doc)
	if err != nil {
		t.Fatalf("cdmtest: parse fixture: %v", err)
	}
	return msg
}

// ParseLoose parses doc and returns the message regardless of schema issues.
func ParseLoose(t testing.TB, doc map[string]any) *cdm.Message {
	t.Helper()
	msg, _ := cdm.Parse(doc)
	return msg
}
