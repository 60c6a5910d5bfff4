package rules

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/Mindburn-Labs/cdmcheck/pkg/versioning"
)

// ConfigError lists every problem found in a rule configuration.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid rule configuration: %s", strings.Join(e.Problems, "; "))
}

var customCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Validate checks cross-field consistency and compiles custom rules.
func (r *Rules) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}
	nonNegative := func(name string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			add("%s must be a finite non-negative number, got %v", name, v)
		}
	}
	notAbove := func(lo, hi string, a, b float64) {
		if a > b {
			add("%s (%v) must not exceed %s (%v)", lo, a, hi, b)
		}
	}

	if err := versioning.CheckRuleSet(r.Version); err != nil {
		add("version: %v", err)
	}

	nonNegative("time.min_lead_time_s", r.Time.MinLeadTimeS)

	s := r.State
	nonNegative("state.position_norm_min_m", s.PositionNormMinM)
	nonNegative("state.position_norm_warn_m", s.PositionNormWarnM)
	nonNegative("state.position_norm_fail_m", s.PositionNormFailM)
	nonNegative("state.speed_norm_min_mps", s.SpeedNormMinMPS)
	nonNegative("state.speed_norm_warn_mps", s.SpeedNormWarnMPS)
	nonNegative("state.speed_norm_fail_mps", s.SpeedNormFailMPS)
	notAbove("state.position_norm_min_m", "state.position_norm_warn_m", s.PositionNormMinM, s.PositionNormWarnM)
	notAbove("state.position_norm_warn_m", "state.position_norm_fail_m", s.PositionNormWarnM, s.PositionNormFailM)
	notAbove("state.speed_norm_min_mps", "state.speed_norm_warn_mps", s.SpeedNormMinMPS, s.SpeedNormWarnMPS)
	notAbove("state.speed_norm_warn_mps", "state.speed_norm_fail_mps", s.SpeedNormWarnMPS, s.SpeedNormFailMPS)

	if len(s.AllowedFrames) == 0 {
		add("state.allowed_frames must list at least one frame")
	}
	frames := make(map[string]bool, len(s.AllowedFrames))
	for i, f := range s.AllowedFrames {
		switch {
		case strings.TrimSpace(f) != f || f == "":
			add("state.allowed_frames[%d] %q must be a non-empty label without surrounding spaces", i, f)
		case frames[f]:
			add("state.allowed_frames[%d] %q is duplicated", i, f)
		}
		frames[f] = true
	}

	c := r.Consistency
	nonNegative("consistency.miss_distance_abs_tol_m", c.MissDistanceAbsTolM)
	nonNegative("consistency.miss_distance_rel_tol_frac", c.MissDistanceRelTolFrac)
	nonNegative("consistency.rel_speed_abs_tol_mps", c.RelSpeedAbsTolMPS)
	nonNegative("consistency.rel_speed_rel_tol_frac", c.RelSpeedRelTolFrac)

	v := r.Covariance
	nonNegative("covariance.symmetry_tol", v.SymmetryTol)
	nonNegative("covariance.psd_eps", v.PSDEps)
	nonNegative("covariance.std_warn_m", v.StdWarnM)
	nonNegative("covariance.std_fail_m", v.StdFailM)
	nonNegative("covariance.velocity_std_warn_mps", v.VelocityStdWarnMPS)
	nonNegative("covariance.velocity_std_fail_mps", v.VelocityStdFailMPS)
	notAbove("covariance.std_warn_m", "covariance.std_fail_m", v.StdWarnM, v.StdFailM)
	notAbove("covariance.velocity_std_warn_mps", "covariance.velocity_std_fail_mps", v.VelocityStdWarnMPS, v.VelocityStdFailMPS)

	seen := make(map[string]bool, len(r.CustomRules))
	for i := range r.CustomRules {
		cr := &r.CustomRules[i]
		name := fmt.Sprintf("custom_rules[%d]", i)
		switch {
		case !customCodePattern.MatchString(cr.Code):
			add("%s.code %q must be upper snake case", name, cr.Code)
		case IsReservedCode(cr.Code):
			add("%s.code %q collides with a built-in check", name, cr.Code)
		case seen[cr.Code]:
			add("%s.code %q is duplicated", name, cr.Code)
		}
		seen[cr.Code] = true

		if cr.Severity != SeverityWarn && cr.Severity != SeverityFail {
			add("%s.severity must be %s or %s, got %q", name, SeverityWarn, SeverityFail, cr.Severity)
		}
		if err := cr.compile(); err != nil {
			add("%s.expr: %v", name, err)
		}
	}

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}
