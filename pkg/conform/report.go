package conform

import "time"

// Summary counts findings by severity.
type Summary struct {
	Pass  int `json:"pass"`
	Warn  int `json:"warn"`
	Fail  int `json:"fail"`
	Total int `json:"total"`
}

// Summarize counts findings by severity.
func Summarize(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Severity {
		case SeverityPass:
			s.Pass++
		case SeverityWarn:
			s.Warn++
		case SeverityFail:
			s.Fail++
		}
	}
	s.Total = len(findings)
	return s
}

// Verdict derives the overall result from a summary.
func Verdict(s Summary, warnIsFailure bool) bool {
	if s.Fail > 0 {
		return false
	}
	return !warnIsFailure || s.Warn == 0
}

// Report is the result of evaluating one message. Reports are built once by
// the Engine and never mutated afterwards.
type Report struct {
	ReportID         string     `json:"report_id"`
	ValidatorVersion string     `json:"validator_version"`
	RulesDigest      string     `json:"rules_digest"`
	MessageID        string     `json:"message_id"`
	ReportTime       time.Time  `json:"report_time_utc"`
	CreationTime     *time.Time `json:"creation_time_utc"`
	TCA              *time.Time `json:"tca_utc"`
	Findings         []Finding  `json:"findings"`
	Summary          Summary    `json:"summary"`
	OK               bool       `json:"ok"`
}

// FindingsFor returns the findings carrying code, in report order.
func (r *Report) FindingsFor(code string) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Code == code {
			out = append(out, f)
		}
	}
	return out
}

// Worst returns the most severe severity in the report, PASS when empty.
func (r *Report) Worst() Severity {
	worst := SeverityPass
	for _, f := range r.Findings {
		if f.Severity > worst {
			worst = f.Severity
		}
	}
	return worst
}
