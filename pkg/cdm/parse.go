package cdm

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"
)

// Closed schema. A key is allowed at a level iff it is in required ∪ optional.
var (
	messageRequired = []string{
		FieldMessageID, FieldCreationTime, FieldTCA,
		FieldPrimary, FieldSecondary,
		FieldMissDistance, FieldRelativeSpeed,
	}
	messageOptional = []string{FieldRelPosCov}

	objectRequired = []string{
		FieldObjectID, FieldFrame, FieldPosition, FieldVelocity, FieldCovariance,
	}
	objectOptional = []string{}
)

// Covariance dimensions accepted for object states: position only, or
// position and velocity.
var covarianceDims = map[int]bool{3: true, 6: true}

// DefaultFrames are the reference frame labels accepted when no other set is
// configured.
var DefaultFrames = []string{"EME2000", "ITRF", "TEME"}

// ParseOption customises Parse.
type ParseOption func(*parser)

// WithAllowedFrames replaces DefaultFrames as the accepted frame labels. An
// empty list keeps the defaults.
func WithAllowedFrames(frames ...string) ParseOption {
	return func(p *parser) {
		if len(frames) > 0 {
			p.frames = frames
		}
	}
}

// Parse converts a decoded document into a Message.
//
// The returned Message is never nil. When any field violates the schema the
// error is a *SchemaError and the offending fields are marked unavailable on
// the Message; all other fields are still populated.
func Parse(raw map[string]any, opts ...ParseOption) (*Message, error) {
	p := &parser{
		msg:    &Message{unavailable: make(map[string]struct{})},
		frames: DefaultFrames,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.checkKeys("", raw, messageRequired, messageOptional)

	m := p.msg
	m.MessageID = p.str(raw, "", FieldMessageID)
	m.CreationTime = p.timestamp(raw, "", FieldCreationTime)
	m.TCA = p.timestamp(raw, "", FieldTCA)
	p.object(raw, FieldPrimary, &m.Primary)
	p.object(raw, FieldSecondary, &m.Secondary)
	m.MissDistanceM = p.nonNegative(raw, "", FieldMissDistance)
	m.RelativeSpeedMPS = p.nonNegative(raw, "", FieldRelativeSpeed)
	m.RelPosCovariance = p.flatCovariance(raw, "", FieldRelPosCov)

	sort.SliceStable(m.issues, func(i, j int) bool {
		return m.issues[i].Field < m.issues[j].Field
	})
	return m, m.Err()
}

type parser struct {
	msg    *Message
	frames []string
}

func (p *parser) fail(field, format string, args ...any) {
	p.msg.issues = append(p.msg.issues, FieldIssue{Field: field, Problem: fmt.Sprintf(format, args...)})
	p.msg.unavailable[field] = struct{}{}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// checkKeys compares the present keys against the allowed set.
func (p *parser) checkKeys(prefix string, doc map[string]any, required, optional []string) {
	allowed := make(map[string]bool, len(required)+len(optional))
	for _, k := range required {
		allowed[k] = true
		if _, ok := doc[k]; !ok {
			p.fail(join(prefix, k), "missing required field")
		}
	}
	for _, k := range optional {
		allowed[k] = true
	}

	extra := make([]string, 0)
	for k := range doc {
		if !allowed[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		p.fail(join(prefix, k), "unexpected field")
	}
}

// lookup returns the raw value and whether it should be type-checked. Absent
// keys were already reported by checkKeys.
func lookup(doc map[string]any, key string) (any, bool) {
	v, ok := doc[key]
	return v, ok
}

func (p *parser) str(doc map[string]any, prefix, key string) string {
	v, ok := lookup(doc, key)
	if !ok {
		return ""
	}
	field := join(prefix, key)
	s, isStr := v.(string)
	switch {
	case !isStr:
		p.fail(field, "must be a string, got %s", typeName(v))
		return ""
	case s == "":
		p.fail(field, "must not be empty")
		return ""
	}
	return s
}

// frame reads a frame label, which must be one of the allowed frames after
// trimming.
func (p *parser) frame(doc map[string]any, prefix, key string) string {
	s := p.str(doc, prefix, key)
	if s == "" {
		return ""
	}
	if !slices.Contains(p.frames, strings.TrimSpace(s)) {
		p.fail(join(prefix, key), "must be one of %s, got %q", strings.Join(p.frames, ", "), s)
		return ""
	}
	return s
}

func (p *parser) timestamp(doc map[string]any, prefix, key string) time.Time {
	v, ok := lookup(doc, key)
	if !ok {
		return time.Time{}
	}
	field := join(prefix, key)
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		ts, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			p.fail(field, "must be an RFC 3339 date-time with a zone offset")
			return time.Time{}
		}
		return ts.UTC()
	default:
		p.fail(field, "must be an RFC 3339 date-time string, got %s", typeName(v))
		return time.Time{}
	}
}

func (p *parser) nonNegative(doc map[string]any, prefix, key string) float64 {
	v, ok := lookup(doc, key)
	if !ok {
		return 0
	}
	field := join(prefix, key)
	f, isNum := number(v)
	switch {
	case !isNum:
		p.fail(field, "must be a finite number, got %s", typeName(v))
		return 0
	case f < 0:
		p.fail(field, "must not be negative")
		return 0
	}
	return f
}

func (p *parser) object(doc map[string]any, key string, dst *ObjectState) {
	v, ok := lookup(doc, key)
	if !ok {
		return
	}
	obj, isMap := v.(map[string]any)
	if !isMap {
		p.fail(key, "must be a mapping, got %s", typeName(v))
		return
	}

	p.checkKeys(key, obj, objectRequired, objectOptional)
	dst.ObjectID = p.str(obj, key, FieldObjectID)
	dst.Frame = p.frame(obj, key, FieldFrame)
	dst.Position = p.vector(obj, key, FieldPosition)
	dst.Velocity = p.vector(obj, key, FieldVelocity)
	dst.Covariance = p.matrix(obj, key, FieldCovariance)
}

func (p *parser) vector(doc map[string]any, prefix, key string) Vector3 {
	var out Vector3
	v, ok := lookup(doc, key)
	if !ok {
		return out
	}
	field := join(prefix, key)
	vals, err := numbers(v, 3)
	if err != "" {
		p.fail(field, "%s", err)
		return out
	}
	copy(out[:], vals)
	return out
}

func (p *parser) matrix(doc map[string]any, prefix, key string) Matrix {
	v, ok := lookup(doc, key)
	if !ok {
		return nil
	}
	field := join(prefix, key)
	rows, isList := v.([]any)
	if !isList {
		p.fail(field, "must be a list of rows, got %s", typeName(v))
		return nil
	}
	n := len(rows)
	if !covarianceDims[n] {
		p.fail(field, "must be a 3x3 or 6x6 matrix, got %d rows", n)
		return nil
	}
	out := make(Matrix, n)
	for i, row := range rows {
		vals, err := numbers(row, n)
		if err != "" {
			p.fail(field, "row %d %s", i, err)
			return nil
		}
		out[i] = vals
	}
	return out
}

func (p *parser) flatCovariance(doc map[string]any, prefix, key string) Matrix {
	v, ok := lookup(doc, key)
	if !ok {
		return nil
	}
	vals, err := numbers(v, 9)
	if err != "" {
		p.fail(join(prefix, key), "%s", err)
		return nil
	}
	return Matrix{vals[0:3:3], vals[3:6:6], vals[6:9:9]}
}

// numbers converts v into exactly n finite floats. On failure it returns a
// problem description.
func numbers(v any, n int) ([]float64, string) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Sprintf("must be a list of %d numbers, got %s", n, typeName(v))
	}
	if len(list) != n {
		return nil, fmt.Sprintf("must have exactly %d elements, got %d", n, len(list))
	}
	out := make([]float64, n)
	for i, e := range list {
		f, ok := number(e)
		if !ok {
			return nil, fmt.Sprintf("element %d must be a finite number, got %s", i, typeName(e))
		}
		out[i] = f
	}
	return out, ""
}

func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case []any:
		return "list"
	case map[string]any:
		return "mapping"
	}
	if _, ok := number(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
