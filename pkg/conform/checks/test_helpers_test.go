package checks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/cdmcheck/pkg/cdm/cdmtest"
	"github.com/Mindburn-Labs/cdmcheck/pkg/conform"
	"github.com/Mindburn-Labs/cdmcheck/pkg/rules"
)

var fixedClock = func() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

// absoluteRules drops the relative tolerance fractions so the consistency
// bounds are the absolute tolerances exactly.
func absoluteRules() *rules.Rules {
	r := rules.Default()
	r.Consistency.MissDistanceRelTolFrac = 0
	r.Consistency.RelSpeedRelTolFrac = 0
	return r
}

func runCheck(t *testing.T, c conform.Check, doc map[string]any, r *rules.Rules) []conform.Finding {
	t.Helper()
	msg := cdmtest.ParseLoose(t, doc)
	out, err := c.Run(msg, r)
	require.NoError(t, err)
	for _, f := range out {
		require.True(t, f.Severity.Valid())
	}
	return out
}

func single(t *testing.T, c conform.Check, doc map[string]any, r *rules.Rules) conform.Finding {
	t.Helper()
	out := runCheck(t, c, doc, r)
	require.Len(t, out, 1)
	require.Equal(t, c.Code(), out[0].Code)
	return out[0]
}
