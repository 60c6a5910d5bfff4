package conform

import (
	"fmt"
	"strings"
)

// Severity is the closed set of finding outcomes.
type Severity uint8

const (
	SeverityPass Severity = iota + 1
	SeverityWarn
	SeverityFail
)

// Severities returns every valid severity, least severe first.
func Severities() []Severity {
	return []Severity{SeverityPass, SeverityWarn, SeverityFail}
}

func (s Severity) String() string {
	switch s {
	case SeverityPass:
		return "PASS"
	case SeverityWarn:
		return "WARN"
	case SeverityFail:
		return "FAIL"
	default:
		return fmt.Sprintf("Severity(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the defined severities.
func (s Severity) Valid() bool {
	return s >= SeverityPass && s <= SeverityFail
}

// ParseSeverity converts "PASS", "WARN" or "FAIL" (any case) into a Severity.
func ParseSeverity(text string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "PASS":
		return SeverityPass, nil
	case "WARN":
		return SeverityWarn, nil
	case "FAIL":
		return SeverityFail, nil
	default:
		return 0, fmt.Errorf("unknown severity %q", text)
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid severity %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
