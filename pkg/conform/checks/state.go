package checks

import (
	"github.com/Mindburn-Labs/cdmcheck/pkg/cdm"
	"github.com/Mindburn-Labs/cdmcheck/pkg/conform"
	"github.com/Mindburn-Labs/cdmcheck/pkg/rules"
)

// band classifies a magnitude: FAIL outside [min, fail], WARN above warn.
type band struct {
	min, warn, fail float64
}

func (b band) classify(v float64) conform.Severity {
	switch {
	case v < b.min || v > b.fail:
		return conform.SeverityFail
	case v > b.warn:
		return conform.SeverityWarn
	default:
		return conform.SeverityPass
	}
}

// PositionNorm checks that both position magnitudes are physically plausible.
type PositionNorm struct{}

func (c *PositionNorm) Code() string { return rules.CodePosNorm }
func (c *PositionNorm) Name() string { return "Position Magnitude" }

func (c *PositionNorm) Run(msg *cdm.Message, r *rules.Rules) ([]conform.Finding, error) {
	if f := requireFields(c.Code(), msg, objectFields(cdm.FieldPosition)...); f != nil {
		return f, nil
	}

	b := band{min: r.State.PositionNormMinM, warn: r.State.PositionNormWarnM, fail: r.State.PositionNormFailM}
	pr := msg.Primary.Position.Norm()
	sr := msg.Secondary.Position.Norm()
	if !finite(pr, sr) {
		return notFinite(c.Code(), map[string]any{
			"primary_position_m":   vec(msg.Primary.Position),
			"secondary_position_m": vec(msg.Secondary.Position),
			"primary_r_m":          pr,
			"secondary_r_m":        sr,
		}), nil
	}
	details := map[string]any{
		"primary_r_m":   pr,
		"secondary_r_m": sr,
		"min_m":         b.min,
		"warn_m":        b.warn,
		"fail_m":        b.fail,
	}

	switch worse(b.classify(pr), b.classify(sr)) {
	case conform.SeverityFail:
		return []conform.Finding{conform.Fail(c.Code(), "Position norm outside plausible bounds (check units/reference).", details)}, nil
	case conform.SeverityWarn:
		return []conform.Finding{conform.Warn(c.Code(), "Large position norm detected (check units/reference).", details)}, nil
	default:
		return []conform.Finding{conform.Pass(c.Code(), "Position norms look reasonable.", details)}, nil
	}
}

// SpeedNorm checks that both velocity magnitudes are physically plausible.
type SpeedNorm struct{}

func (c *SpeedNorm) Code() string { return rules.CodeSpeedNorm }
func (c *SpeedNorm) Name() string { return "Speed Magnitude" }

func (c *SpeedNorm) Run(msg *cdm.Message, r *rules.Rules) ([]conform.Finding, error) {
	if f := requireFields(c.Code(), msg, objectFields(cdm.FieldVelocity)...); f != nil {
		return f, nil
	}

	b := band{min: r.State.SpeedNormMinMPS, warn: r.State.SpeedNormWarnMPS, fail: r.State.SpeedNormFailMPS}
	pv := msg.Primary.Velocity.Norm()
	sv := msg.Secondary.Velocity.Norm()
	if !finite(pv, sv) {
		return notFinite(c.Code(), map[string]any{
			"primary_velocity_mps":   vec(msg.Primary.Velocity),
			"secondary_velocity_mps": vec(msg.Secondary.Velocity),
			"primary_v_mps":          pv,
			"secondary_v_mps":        sv,
		}), nil
	}
	details := map[string]any{
		"primary_v_mps":   pv,
		"secondary_v_mps": sv,
		"min_mps":         b.min,
		"warn_mps":        b.warn,
		"fail_mps":        b.fail,
	}

	switch worse(b.classify(pv), b.classify(sv)) {
	case conform.SeverityFail:
		return []conform.Finding{conform.Fail(c.Code(), "Speed outside plausible bounds (check units/reference).", details)}, nil
	case conform.SeverityWarn:
		return []conform.Finding{conform.Warn(c.Code(), "Large speed detected (check units/reference).", details)}, nil
	default:
		return []conform.Finding{conform.Pass(c.Code(), "Speed norms look reasonable.", details)}, nil
	}
}
