// Package conform runs validation checks against a conjunction message and
// aggregates their findings into a Report.
//
// Checks run in registration order. A check that errors or panics produces a
// FAIL finding under its own code and does not stop later checks.
package conform

import (
	"github.com/Mindburn-Labs/cdmcheck/pkg/cdm"
	"github.com/Mindburn-Labs/cdmcheck/pkg/rules"
)

// Check is the interface every validation check must implement.
type Check interface {
	// Code returns the stable finding code (e.g. "TIME_ORDER").
	Code() string

	// Name returns a human-readable name.
	Name() string

	// Run inspects the message against the rules. It must not modify either.
	Run(msg *cdm.Message, r *rules.Rules) ([]Finding, error)
}
