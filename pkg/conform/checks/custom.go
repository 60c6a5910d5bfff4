package checks

import (
	"fmt"

	"github.com/Mindburn-Labs/cdmcheck/pkg/cdm"
	"github.com/Mindburn-Labs/cdmcheck/pkg/conform"
	"github.com/Mindburn-Labs/cdmcheck/pkg/rules"
)

// CustomRules evaluates the operator-defined CEL rules in configuration order,
// one finding per rule under the rule's own code.
type CustomRules struct{}

func (c *CustomRules) Code() string { return rules.CodeCustomRules }
func (c *CustomRules) Name() string { return "Custom Rules" }

func (c *CustomRules) Run(msg *cdm.Message, r *rules.Rules) ([]conform.Finding, error) {
	if len(r.CustomRules) == 0 {
		return nil, nil
	}

	unavailable := msg.Unavailable(cdm.AttributeFields()...)
	attrs := msg.Attributes()

	out := make([]conform.Finding, 0, len(r.CustomRules))
	for i := range r.CustomRules {
		cr := &r.CustomRules[i]
		details := map[string]any{"expr": cr.Expr}

		if len(unavailable) > 0 {
			details["unavailable_fields"] = unavailable
			out = append(out, conform.Fail(cr.Code, "Custom rule not evaluated: message fields unavailable.", details))
			continue
		}

		ok, err := cr.Evaluate(attrs)
		if err != nil {
			details["error"] = err.Error()
			out = append(out, conform.Fail(cr.Code, "Custom rule could not be evaluated.", details))
			continue
		}
		if ok {
			out = append(out, conform.Pass(cr.Code, fmt.Sprintf("Custom rule %s satisfied.", cr.Code), details))
			continue
		}

		sev, err := conform.ParseSeverity(cr.Severity)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", cr.Code, err)
		}
		text := cr.Message
		if text == "" {
			text = fmt.Sprintf("Custom rule %s not satisfied.", cr.Code)
		}
		out = append(out, conform.NewFinding(cr.Code, sev, text, details))
	}
	return out, nil
}
