// Package checks provides the built-in validation checks and a default registry.
package checks

import "github.com/Mindburn-Labs/cdmcheck/pkg/conform"

// DefaultEngine returns an engine pre-loaded with every built-in check in
// canonical order (SCHEMA → COV_STD), followed by the custom rule check.
// This is the standard way to create an engine for CLI usage.
func DefaultEngine() *conform.Engine {
	e := conform.NewEngine()

	// Structure
	e.RegisterCheck(&Schema{})
	e.RegisterCheck(&IDDistinct{})

	// Time
	e.RegisterCheck(&TimeOrder{})
	e.RegisterCheck(&LeadTime{})

	// State plausibility
	e.RegisterCheck(&FrameMatch{})
	e.RegisterCheck(&PositionNorm{})
	e.RegisterCheck(&SpeedNorm{})

	// Internal consistency
	e.RegisterCheck(&MissDistanceConsistency{})
	e.RegisterCheck(&RelSpeedConsistency{})

	// Covariance
	e.RegisterCheck(&CovSymmetry{})
	e.RegisterCheck(&CovPSD{})
	e.RegisterCheck(&CovStd{})

	// Operator-defined
	e.RegisterCheck(&CustomRules{})

	return e
}
