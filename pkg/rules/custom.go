package rules

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Severities a custom rule may raise when its expression is false.
const (
	SeverityWarn = "WARN"
	SeverityFail = "FAIL"
)

// MessageVariable is the CEL variable bound to the message attributes.
const MessageVariable = "msg"

// CustomRule is an operator-defined CEL predicate over the message.
type CustomRule struct {
	Code     string `yaml:"code" json:"code"`
	Expr     string `yaml:"expr" json:"expr"`
	Severity string `yaml:"severity" json:"severity"`
	Message  string `yaml:"message,omitempty" json:"message,omitempty"`

	program cel.Program
}

var celEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable(MessageVariable, cel.MapType(cel.StringType, cel.DynType)),
	)
})

func (c *CustomRule) compile() error {
	env, err := celEnv()
	if err != nil {
		return fmt.Errorf("cel environment: %w", err)
	}

	ast, issues := env.Compile(c.Expr)
	if issues != nil && issues.Err() != nil {
		return issues.Err()
	}
	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return fmt.Errorf("expression must evaluate to bool, got %s", out)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return err
	}
	c.program = prg
	return nil
}

// ErrNotCompiled is returned when a rule is evaluated before Validate.
var ErrNotCompiled = errors.New("custom rule not compiled")

// Evaluate runs the rule against the message attributes.
func (c *CustomRule) Evaluate(attrs map[string]any) (bool, error) {
	if c.program == nil {
		return false, ErrNotCompiled
	}
	val, _, err := c.program.Eval(map[string]any{MessageVariable: attrs})
	if err != nil {
		return false, err
	}
	b, ok := val.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression returned %T, want bool", val.Value())
	}
	return b, nil
}
