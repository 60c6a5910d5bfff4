package cdm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is an input serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported input format %q (expected .json, .yaml or .yml)", filepath.Ext(path))
	}
}

// Decode turns raw bytes into a generic key-value document.
func Decode(data []byte, format Format) (map[string]any, error) {
	var doc any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotDocument, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotDocument, err)
		}
	default:
		return nil, fmt.Errorf("unsupported input format %q", format)
	}

	m, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top level is %s", ErrNotDocument, typeName(doc))
	}
	return m, nil
}

// LoadFile reads, decodes and parses a message file.
//
// I/O and decode failures are returned with a nil Message. A *SchemaError is
// returned together with the best-effort Message.
func LoadFile(path string, opts ...ParseOption) (*Message, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // caller-supplied input path
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", path, err)
	}
	raw, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("decode input %s: %w", path, err)
	}
	return Parse(raw, opts...)
}
