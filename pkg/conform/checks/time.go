package checks

import (
	"github.com/Mindburn-Labs/cdmcheck/pkg/cdm"
	"github.com/Mindburn-Labs/cdmcheck/pkg/conform"
	"github.com/Mindburn-Labs/cdmcheck/pkg/rules"
)

// TimeOrder fails unless the message was created strictly before TCA.
type TimeOrder struct{}

func (c *TimeOrder) Code() string { return rules.CodeTimeOrder }
func (c *TimeOrder) Name() string { return "Creation Before TCA" }

func (c *TimeOrder) Run(msg *cdm.Message, _ *rules.Rules) ([]conform.Finding, error) {
	if f := requireFields(c.Code(), msg, cdm.FieldCreationTime, cdm.FieldTCA); f != nil {
		return f, nil
	}

	details := map[string]any{
		"creation_time_utc": timestamp(msg.CreationTime),
		"tca_utc":           timestamp(msg.TCA),
	}
	if !msg.CreationTime.Before(msg.TCA) {
		return []conform.Finding{conform.Fail(c.Code(), "creation_time_utc is not before tca_utc.", details)}, nil
	}
	return []conform.Finding{conform.Pass(c.Code(), "creation_time_utc is before tca_utc.", details)}, nil
}

// LeadTime warns when TCA is closer to creation than the configured minimum.
// It runs independently of TimeOrder, so a negative lead time also warns.
type LeadTime struct{}

func (c *LeadTime) Code() string { return rules.CodeLeadTime }
func (c *LeadTime) Name() string { return "Minimum Lead Time" }

func (c *LeadTime) Run(msg *cdm.Message, r *rules.Rules) ([]conform.Finding, error) {
	if f := requireFields(c.Code(), msg, cdm.FieldCreationTime, cdm.FieldTCA); f != nil {
		return f, nil
	}

	lead := msg.LeadTime().Seconds()
	details := map[string]any{
		"lead_time_s":     lead,
		"min_lead_time_s": r.Time.MinLeadTimeS,
	}
	if lead < r.Time.MinLeadTimeS {
		return []conform.Finding{conform.Warn(c.Code(), "Very small lead time between creation and TCA.", details)}, nil
	}
	return []conform.Finding{conform.Pass(c.Code(), "Lead time between creation and TCA is within expectations.", details)}, nil
}
