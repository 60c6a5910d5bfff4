package checks

import (
	"math"

	"github.com/Mindburn-Labs/cdmcheck/pkg/cdm"
	"github.com/Mindburn-Labs/cdmcheck/pkg/conform"
	"github.com/Mindburn-Labs/cdmcheck/pkg/rules"
)

// relErrFloor keeps the relative error defined when the estimate is zero.
const relErrFloor = 1e-9

// MissDistanceConsistency compares the reported miss distance with the norm
// of the relative position. The tolerance bound is inclusive.
type MissDistanceConsistency struct{}

func (c *MissDistanceConsistency) Code() string { return rules.CodeMissDistanceConsistency }
func (c *MissDistanceConsistency) Name() string { return "Miss Distance Consistency" }

func (c *MissDistanceConsistency) Run(msg *cdm.Message, r *rules.Rules) ([]conform.Finding, error) {
	fields := append(objectFields(cdm.FieldPosition), cdm.FieldMissDistance)
	if f := requireFields(c.Code(), msg, fields...); f != nil {
		return f, nil
	}

	estimate := msg.Secondary.Position.Sub(msg.Primary.Position).Norm()
	if !finite(estimate) {
		return notFinite(c.Code(), map[string]any{
			"miss_distance_m":      msg.MissDistanceM,
			"primary_position_m":   vec(msg.Primary.Position),
			"secondary_position_m": vec(msg.Secondary.Position),
			"estimated_m":          estimate,
		}), nil
	}
	absErr := math.Abs(msg.MissDistanceM - estimate)
	tol := r.Consistency.MissDistanceTolerance(estimate)
	if !finite(tol) {
		return notFinite(c.Code(), map[string]any{
			"estimated_m":                estimate,
			"miss_distance_rel_tol_frac": r.Consistency.MissDistanceRelTolFrac,
			"tolerance_m":                tol,
		}), nil
	}
	details := map[string]any{
		"miss_distance_m": msg.MissDistanceM,
		"estimated_m":     estimate,
		"abs_err_m":       absErr,
		"rel_err":         absErr / math.Max(estimate, relErrFloor),
		"tolerance_m":     tol,
	}

	if absErr > tol {
		return []conform.Finding{conform.Fail(c.Code(), "miss_distance_m inconsistent with relative position norm.", details)}, nil
	}
	return []conform.Finding{conform.Pass(c.Code(), "miss_distance_m consistent with relative position norm.", details)}, nil
}

// RelSpeedConsistency compares the reported relative speed with the norm of
// the relative velocity. The tolerance bound is inclusive.
type RelSpeedConsistency struct{}

func (c *RelSpeedConsistency) Code() string { return rules.CodeRelSpeedConsistency }
func (c *RelSpeedConsistency) Name() string { return "Relative Speed Consistency" }

func (c *RelSpeedConsistency) Run(msg *cdm.Message, r *rules.Rules) ([]conform.Finding, error) {
	fields := append(objectFields(cdm.FieldVelocity), cdm.FieldRelativeSpeed)
	if f := requireFields(c.Code(), msg, fields...); f != nil {
		return f, nil
	}

	estimate := msg.Secondary.Velocity.Sub(msg.Primary.Velocity).Norm()
	if !finite(estimate) {
		return notFinite(c.Code(), map[string]any{
			"relative_speed_mps":     msg.RelativeSpeedMPS,
			"primary_velocity_mps":   vec(msg.Primary.Velocity),
			"secondary_velocity_mps": vec(msg.Secondary.Velocity),
			"estimated_mps":          estimate,
		}), nil
	}
	absErr := math.Abs(msg.RelativeSpeedMPS - estimate)
	tol := r.Consistency.RelSpeedTolerance(estimate)
	if !finite(tol) {
		return notFinite(c.Code(), map[string]any{
			"estimated_mps":          estimate,
			"rel_speed_rel_tol_frac": r.Consistency.RelSpeedRelTolFrac,
			"tolerance_mps":          tol,
		}), nil
	}
	details := map[string]any{
		"relative_speed_mps": msg.RelativeSpeedMPS,
		"estimated_mps":      estimate,
		"abs_err_mps":        absErr,
		"rel_err":            absErr / math.Max(estimate, relErrFloor),
		"tolerance_mps":      tol,
	}

	if absErr > tol {
		return []conform.Finding{conform.Fail(c.Code(), "relative_speed_mps inconsistent with relative velocity norm.", details)}, nil
	}
	return []conform.Finding{conform.Pass(c.Code(), "relative_speed_mps consistent with relative velocity norm.", details)}, nil
}
