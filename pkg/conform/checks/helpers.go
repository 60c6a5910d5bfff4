package checks

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Mindburn-Labs/cdmcheck/pkg/cdm"
	"github.com/Mindburn-Labs/cdmcheck/pkg/conform"
)

// requireFields returns a FAIL finding naming the unavailable fields, or nil
// when every field parsed.
func requireFields(code string, msg *cdm.Message, fields ...string) []conform.Finding {
	missing := msg.Unavailable(fields...)
	if len(missing) == 0 {
		return nil
	}
	return []conform.Finding{conform.Fail(code,
		fmt.Sprintf("Cannot evaluate: unavailable field(s) %s.", strings.Join(missing, ", ")),
		map[string]any{"unavailable_fields": missing},
	)}
}

func objectFields(field string) []string {
	return []string{
		cdm.ObjectField(cdm.FieldPrimary, field),
		cdm.ObjectField(cdm.FieldSecondary, field),
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func worse(a, b conform.Severity) conform.Severity {
	if b > a {
		return b
	}
	return a
}

// finite reports whether no value is NaN or infinite.
func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// notFinite is the FAIL finding for a derived value that overflowed. Details
// carry the inputs it was derived from.
func notFinite(code string, details map[string]any) []conform.Finding {
	return []conform.Finding{conform.Fail(code, "Derived value not finite.", details)}
}

func vec(v cdm.Vector3) []float64 {
	return []float64{v[0], v[1], v[2]}
}
