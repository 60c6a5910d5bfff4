// Package cdm models simplified conjunction data messages.
//
// A Message is produced by Parse from a generic key-value document. Parsing is
// best-effort: fields that fail the closed schema are recorded as FieldIssues and
// marked unavailable, everything else is populated so downstream checks can
// still run against the parts of the message that are sound.
package cdm

import (
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Top-level field names.
const (
	FieldMessageID     = "message_id"
	FieldCreationTime  = "creation_time_utc"
	FieldTCA           = "tca_utc"
	FieldPrimary       = "primary"
	FieldSecondary     = "secondary"
	FieldMissDistance  = "miss_distance_m"
	FieldRelativeSpeed = "relative_speed_mps"
	FieldRelPosCov     = "rel_pos_cov_m2"
)

// Object state field names, relative to "primary" or "secondary".
const (
	FieldObjectID   = "object_id"
	FieldFrame      = "frame"
	FieldPosition   = "position_m"
	FieldVelocity   = "velocity_mps"
	FieldCovariance = "covariance"
)

// ObjectField returns the dotted path of a field inside an object state.
func ObjectField(object, field string) string {
	return object + "." + field
}

// Vector3 is a Cartesian 3-vector.
type Vector3 [3]float64

// Sub returns v - o.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Norm returns the Euclidean length of v.
func (v Vector3) Norm() float64 {
	return floats.Norm(v[:], 2)
}

// Matrix is a dense row-major square matrix.
type Matrix [][]float64

// Dim returns the matrix dimension.
func (m Matrix) Dim() int { return len(m) }

// ObjectState is the state of one object at TCA.
type ObjectState struct {
	ObjectID   string
	Frame      string
	Position   Vector3
	Velocity   Vector3
	Covariance Matrix
}

// Message is a parsed conjunction message.
type Message struct {
	MessageID        string
	CreationTime     time.Time
	TCA              time.Time
	Primary          ObjectState
	Secondary        ObjectState
	MissDistanceM    float64
	RelativeSpeedMPS float64

	// RelPosCovariance is the optional 3x3 relative position covariance.
	// Nil when the message does not carry one.
	RelPosCovariance Matrix

	issues      []FieldIssue
	unavailable map[string]struct{}
}

// Issues returns the schema issues recorded while parsing, sorted by field.
func (m *Message) Issues() []FieldIssue {
	out := make([]FieldIssue, len(m.issues))
	copy(out, m.issues)
	return out
}

// Err returns a *SchemaError when parsing recorded any issue, nil otherwise.
func (m *Message) Err() error {
	if len(m.issues) == 0 {
		return nil
	}
	return &SchemaError{Issues: m.Issues()}
}

// Unavailable returns the subset of fields that could not be parsed. A field is
// unavailable when it, or any enclosing object, failed the schema.
func (m *Message) Unavailable(fields ...string) []string {
	var out []string
	for _, f := range fields {
		if m.isUnavailable(f) {
			out = append(out, f)
		}
	}
	return out
}

// Available reports whether every given field parsed successfully.
func (m *Message) Available(fields ...string) bool {
	return len(m.Unavailable(fields...)) == 0
}

func (m *Message) isUnavailable(field string) bool {
	if _, ok := m.unavailable[field]; ok {
		return true
	}
	for i := strings.LastIndexByte(field, '.'); i > 0; i = strings.LastIndexByte(field[:i], '.') {
		if _, ok := m.unavailable[field[:i]]; ok {
			return true
		}
	}
	return false
}

// HasRelPosCovariance reports whether the optional relative position
// covariance was present and well formed.
func (m *Message) HasRelPosCovariance() bool {
	return m.RelPosCovariance != nil
}

// LeadTime returns TCA minus creation time.
func (m *Message) LeadTime() time.Duration {
	return m.TCA.Sub(m.CreationTime)
}

// Attributes returns a flattened, JSON-like view of the message used as the
// input of custom rule expressions.
func (m *Message) Attributes() map[string]any {
	return map[string]any{
		FieldMessageID:     m.MessageID,
		FieldCreationTime:  m.CreationTime,
		FieldTCA:           m.TCA,
		"lead_time_s":      m.LeadTime().Seconds(),
		FieldPrimary:       m.Primary.attributes(),
		FieldSecondary:     m.Secondary.attributes(),
		FieldMissDistance:  m.MissDistanceM,
		FieldRelativeSpeed: m.RelativeSpeedMPS,
		"has_rel_pos_cov":  m.HasRelPosCovariance(),
	}
}

// AttributeFields lists the fields Attributes is built from, in document
// order.
func AttributeFields() []string {
	fields := []string{FieldMessageID, FieldCreationTime, FieldTCA}
	for _, object := range []string{FieldPrimary, FieldSecondary} {
		for _, f := range []string{FieldObjectID, FieldFrame, FieldPosition, FieldVelocity, FieldCovariance} {
			fields = append(fields, ObjectField(object, f))
		}
	}
	return append(fields, FieldMissDistance, FieldRelativeSpeed, FieldRelPosCov)
}

func (s *ObjectState) attributes() map[string]any {
	return map[string]any{
		FieldObjectID:     s.ObjectID,
		FieldFrame:        s.Frame,
		FieldPosition:     []float64{s.Position[0], s.Position[1], s.Position[2]},
		FieldVelocity:     []float64{s.Velocity[0], s.Velocity[1], s.Velocity[2]},
		"position_norm_m": s.Position.Norm(),
		"speed_mps":       s.Velocity.Norm(),
		"covariance_dim":  s.Covariance.Dim(),
	}
}
