package checks

import (
	"fmt"

	"github.com/Mindburn-Labs/cdmcheck/pkg/cdm"
	"github.com/Mindburn-Labs/cdmcheck/pkg/conform"
	"github.com/Mindburn-Labs/cdmcheck/pkg/rules"
)

// Schema reports the closed-schema issues recorded while parsing.
// It emits one FAIL per issue, or a single PASS.
type Schema struct{}

func (c *Schema) Code() string { return rules.CodeSchema }
func (c *Schema) Name() string { return "Closed Schema" }

func (c *Schema) Run(msg *cdm.Message, _ *rules.Rules) ([]conform.Finding, error) {
	issues := msg.Issues()
	if len(issues) == 0 {
		return []conform.Finding{conform.Pass(c.Code(), "Message conforms to the closed schema.", nil)}, nil
	}

	out := make([]conform.Finding, 0, len(issues))
	for _, issue := range issues {
		out = append(out, conform.Fail(c.Code(),
			fmt.Sprintf("Schema violation at %s: %s.", issue.Field, issue.Problem),
			map[string]any{"field": issue.Field, "problem": issue.Problem},
		))
	}
	return out, nil
}
