package rules

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const schemaURL = "https://cdmcheck.schemas.local/rules.schema.json"

//go:embed rules.schema.json
var schemaJSON string

var documentSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("rules schema load failed: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("rules schema compile failed: %w", err)
	}
	return compiled, nil
})

// Load reads a rule configuration file (YAML or JSON).
func Load(path string) (*Rules, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied rules path
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load rules %s: %w", path, err)
	}
	return r, nil
}

// Parse decodes a rule configuration document.
//
// The document shape is checked against the embedded JSON Schema first, so a
// missing required threshold or a wrongly typed value is reported by name.
// Optional keys fall back to their defaults; unknown keys are ignored.
func Parse(data []byte) (*Rules, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Problems: []string{fmt.Sprintf("not a valid YAML or JSON document: %v", err)}}
	}
	if doc == nil {
		return nil, &ConfigError{Problems: []string{"rules document is empty"}}
	}

	instance, err := jsonValue(doc)
	if err != nil {
		return nil, &ConfigError{Problems: []string{err.Error()}}
	}

	schema, err := documentSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(instance); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, &ConfigError{Problems: schemaProblems(ve)}
		}
		return nil, fmt.Errorf("rules schema validation: %w", err)
	}

	r := optionalDefaults()
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, &ConfigError{Problems: []string{fmt.Sprintf("decode rules: %v", err)}}
	}
	for i := range r.CustomRules {
		r.CustomRules[i].Severity = strings.ToUpper(r.CustomRules[i].Severity)
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// jsonValue converts a decoded YAML tree into the plain JSON types the schema
// validator understands.
func jsonValue(doc any) (any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("rules document must be a mapping with string keys: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("rules document re-decode failed: %w", err)
	}
	return out, nil
}

// schemaProblems flattens a validation error into its leaf messages.
func schemaProblems(ve *jsonschema.ValidationError) []string {
	var problems []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		loc := strings.TrimPrefix(strings.ReplaceAll(e.InstanceLocation, "/", "."), ".")
		if loc == "" {
			loc = "(root)"
		}
		problems = append(problems, fmt.Sprintf("%s: %s", loc, e.Message))
	}
	walk(ve)
	if len(problems) == 0 {
		problems = append(problems, ve.Error())
	}
	sort.Strings(problems)
	return problems
}
