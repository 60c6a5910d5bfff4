package cdm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotDocument is returned when input does not decode to a key-value mapping.
// There is nothing to validate in that case, so callers treat it as fatal.
var ErrNotDocument = errors.New("input is not a key-value document")

// FieldIssue is a single closed-schema violation.
type FieldIssue struct {
	Field   string `json:"field"`
	Problem string `json:"problem"`
}

func (i FieldIssue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Problem)
}

// SchemaError lists every schema violation found in a message.
type SchemaError struct {
	Issues []FieldIssue
}

func (e *SchemaError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		msgs = append(msgs, issue.String())
	}
	return fmt.Sprintf("schema validation failed: %s", strings.Join(msgs, "; "))
}

// Fields returns the offending field paths in issue order.
func (e *SchemaError) Fields() []string {
	out := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		out = append(out, issue.Field)
	}
	return out
}
