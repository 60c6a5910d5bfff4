// Package rules holds the threshold configuration consumed by the checks.
//
// A Rules value is loaded once per run and passed explicitly to every check.
// Nothing mutates it after Validate has succeeded.
package rules

import (
	"fmt"
	"math"
	"slices"

	"github.com/Mindburn-Labs/cdmcheck/pkg/canonicalize"
	"github.com/Mindburn-Labs/cdmcheck/pkg/cdm"
	"github.com/Mindburn-Labs/cdmcheck/pkg/versioning"
)

// Rules is the complete rule configuration for a validation run.
type Rules struct {
	Version     string           `yaml:"version,omitempty" json:"version,omitempty"`
	Time        TimeRules        `yaml:"time" json:"time"`
	State       StateRules       `yaml:"state" json:"state"`
	Consistency ConsistencyRules `yaml:"consistency" json:"consistency"`
	Covariance  CovarianceRules  `yaml:"covariance" json:"covariance"`
	Policy      PolicyRules      `yaml:"policy" json:"policy"`
	CustomRules []CustomRule     `yaml:"custom_rules,omitempty" json:"custom_rules,omitempty"`
}

// TimeRules bounds the creation-to-TCA interval.
type TimeRules struct {
	MinLeadTimeS float64 `yaml:"min_lead_time_s" json:"min_lead_time_s"`
}

// StateRules are plausibility bounds on state vector magnitudes.
type StateRules struct {
	PositionNormMinM  float64 `yaml:"position_norm_min_m" json:"position_norm_min_m"`
	PositionNormWarnM float64 `yaml:"position_norm_warn_m" json:"position_norm_warn_m"`
	PositionNormFailM float64 `yaml:"position_norm_fail_m" json:"position_norm_fail_m"`
	SpeedNormMinMPS   float64 `yaml:"speed_norm_min_mps" json:"speed_norm_min_mps"`
	SpeedNormWarnMPS  float64 `yaml:"speed_norm_warn_mps" json:"speed_norm_warn_mps"`
	SpeedNormFailMPS  float64 `yaml:"speed_norm_fail_mps" json:"speed_norm_fail_mps"`

	// AllowedFrames are the reference frame labels a message may use.
	AllowedFrames []string `yaml:"allowed_frames" json:"allowed_frames"`
}

// ConsistencyRules are tolerances for reported vs. derived quantities.
type ConsistencyRules struct {
	MissDistanceAbsTolM    float64 `yaml:"miss_distance_abs_tol_m" json:"miss_distance_abs_tol_m"`
	MissDistanceRelTolFrac float64 `yaml:"miss_distance_rel_tol_frac" json:"miss_distance_rel_tol_frac"`
	RelSpeedAbsTolMPS      float64 `yaml:"rel_speed_abs_tol_mps" json:"rel_speed_abs_tol_mps"`
	RelSpeedRelTolFrac     float64 `yaml:"rel_speed_rel_tol_frac" json:"rel_speed_rel_tol_frac"`
}

// MissDistanceTolerance returns the effective tolerance for a derived miss distance.
func (c ConsistencyRules) MissDistanceTolerance(estimate float64) float64 {
	return math.Max(c.MissDistanceAbsTolM, c.MissDistanceRelTolFrac*estimate)
}

// RelSpeedTolerance returns the effective tolerance for a derived relative speed.
func (c ConsistencyRules) RelSpeedTolerance(estimate float64) float64 {
	return math.Max(c.RelSpeedAbsTolMPS, c.RelSpeedRelTolFrac*estimate)
}

// CovarianceRules bound covariance matrix quality.
type CovarianceRules struct {
	SymmetryTol        float64 `yaml:"symmetry_tol" json:"symmetry_tol"`
	PSDEps             float64 `yaml:"psd_eps" json:"psd_eps"`
	StdWarnM           float64 `yaml:"std_warn_m" json:"std_warn_m"`
	StdFailM           float64 `yaml:"std_fail_m" json:"std_fail_m"`
	VelocityStdWarnMPS float64 `yaml:"velocity_std_warn_mps" json:"velocity_std_warn_mps"`
	VelocityStdFailMPS float64 `yaml:"velocity_std_fail_mps" json:"velocity_std_fail_mps"`
}

// PolicyRules control how findings map to the overall verdict.
type PolicyRules struct {
	// WarnIsFailure makes any WARN finding fail the report.
	WarnIsFailure bool `yaml:"warn_is_failure" json:"warn_is_failure"`
}

// Default returns the built-in rule set.
func Default() *Rules {
	r := optionalDefaults()
	r.Version = versioning.RuleSetVersion
	r.Time.MinLeadTimeS = 60
	r.State.PositionNormMinM = 6_000_000
	r.State.PositionNormWarnM = 80_000_000
	r.State.PositionNormFailM = 500_000_000
	r.State.SpeedNormWarnMPS = 15_000
	r.State.SpeedNormFailMPS = 50_000
	r.Consistency.MissDistanceAbsTolM = 5
	r.Consistency.MissDistanceRelTolFrac = 0.10
	r.Consistency.RelSpeedAbsTolMPS = 0.2
	r.Consistency.RelSpeedRelTolFrac = 0.10
	r.Covariance.SymmetryTol = 1e-6
	r.Covariance.PSDEps = 1e-9
	r.Covariance.StdWarnM = 100_000
	r.Covariance.StdFailM = 10_000_000
	if err := r.Validate(); err != nil {
		panic(fmt.Sprintf("rules: built-in defaults invalid: %v", err))
	}
	return r
}

// optionalDefaults holds values for keys a rules file may omit. Required
// thresholds stay zero and are enforced by the document schema.
func optionalDefaults() *Rules {
	return &Rules{
		State: StateRules{
			SpeedNormMinMPS: 0,
			AllowedFrames:   slices.Clone(cdm.DefaultFrames),
		},
		Consistency: ConsistencyRules{
			MissDistanceRelTolFrac: 0,
			RelSpeedRelTolFrac:     0,
		},
		Covariance: CovarianceRules{
			VelocityStdWarnMPS: 100,
			VelocityStdFailMPS: 10_000,
		},
	}
}

// Digest returns the canonical SHA-256 of the effective rule set.
func (r *Rules) Digest() (string, error) {
	return canonicalize.CanonicalHash(r)
}
