package checks

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Mindburn-Labs/cdmcheck/pkg/cdm"
	"github.com/Mindburn-Labs/cdmcheck/pkg/conform"
	"github.com/Mindburn-Labs/cdmcheck/pkg/rules"
)

// IDDistinct fails when both objects carry the same identifier. IDs are
// compared after trimming and NFC normalisation.
type IDDistinct struct{}

func (c *IDDistinct) Code() string { return rules.CodeIDDistinct }
func (c *IDDistinct) Name() string { return "Distinct Object IDs" }

func (c *IDDistinct) Run(msg *cdm.Message, _ *rules.Rules) ([]conform.Finding, error) {
	if f := requireFields(c.Code(), msg, objectFields(cdm.FieldObjectID)...); f != nil {
		return f, nil
	}

	details := map[string]any{
		"primary_object_id":   msg.Primary.ObjectID,
		"secondary_object_id": msg.Secondary.ObjectID,
	}
	if canonicalID(msg.Primary.ObjectID) == canonicalID(msg.Secondary.ObjectID) {
		return []conform.Finding{conform.Fail(c.Code(), "Primary and secondary object_id are identical.", details)}, nil
	}
	return []conform.Finding{conform.Pass(c.Code(), "Primary and secondary object_id are distinct.", details)}, nil
}

func canonicalID(id string) string {
	return norm.NFC.String(strings.TrimSpace(id))
}

// FrameMatch fails when the two state vectors are expressed in different frames.
type FrameMatch struct{}

func (c *FrameMatch) Code() string { return rules.CodeFrameMatch }
func (c *FrameMatch) Name() string { return "Reference Frame Match" }

func (c *FrameMatch) Run(msg *cdm.Message, _ *rules.Rules) ([]conform.Finding, error) {
	if f := requireFields(c.Code(), msg, objectFields(cdm.FieldFrame)...); f != nil {
		return f, nil
	}

	primary := strings.TrimSpace(msg.Primary.Frame)
	secondary := strings.TrimSpace(msg.Secondary.Frame)
	if primary != secondary {
		return []conform.Finding{conform.Fail(c.Code(), "Primary and secondary frames differ.", map[string]any{
			"primary_frame":   primary,
			"secondary_frame": secondary,
		})}, nil
	}
	return []conform.Finding{conform.Pass(c.Code(), "Primary and secondary frames match.", map[string]any{
		"frame": primary,
	})}, nil
}
