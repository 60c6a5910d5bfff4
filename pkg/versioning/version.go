// Package versioning tracks the validator version and the rule-set schema
// versions it understands.
package versioning

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version is the validator release. Overridden at build time with
// -ldflags "-X github.com/Mindburn-Labs/cdmcheck/pkg/versioning.Version=...".
var Version = "0.3.0"

// RuleSetVersion is the rule-set schema version written by this release.
const RuleSetVersion = "1.0.0"

// RuleSetConstraint is the range of rule-set schema versions this release can load.
const RuleSetConstraint = "^1.0.0"

// CheckRuleSet verifies a rule-set version against RuleSetConstraint.
// An empty version is treated as the current RuleSetVersion.
func CheckRuleSet(version string) error {
	if version == "" {
		return nil
	}

	constraint, err := semver.NewConstraint(RuleSetConstraint)
	if err != nil {
		return fmt.Errorf("invalid rule-set constraint %s: %w", RuleSetConstraint, err)
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid rule-set version %q: %w", version, err)
	}

	if !constraint.Check(v) {
		return fmt.Errorf("rule-set version %s is not supported (requires %s)", version, RuleSetConstraint)
	}
	return nil
}

// Validator returns the parsed validator version.
func Validator() (*semver.Version, error) {
	v, err := semver.NewVersion(Version)
	if err != nil {
		return nil, fmt.Errorf("invalid validator version %q: %w", Version, err)
	}
	return v, nil
}
