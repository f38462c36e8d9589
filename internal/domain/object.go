package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PlaceholderValue marks an object whose value is resolved by a fact chain.
const PlaceholderValue = "*"

const (
	resolvedPrefix = "[placeholder["
	resolvedSuffix = "]]"
)

// ResolvedPlaceholder formats the value a fact chain assigns to a placeholder
// with the given fingerprint.
func ResolvedPlaceholder(fingerprint string) string {
	return resolvedPrefix + fingerprint + resolvedSuffix
}

type ObjectStatistics struct {
	Type               ObjectType `json:"type"`
	Count              int        `json:"count"`
	LastAddedTimestamp *time.Time `json:"last_added_timestamp,omitempty"`
	LastSeenTimestamp  *time.Time `json:"last_seen_timestamp,omitempty"`
}

// Object is a graph node. Two objects with the same type name and value are
// the same node regardless of id.
type Object struct {
	ID         uuid.UUID          `json:"id"`
	Type       ObjectType         `json:"type"`
	Value      string             `json:"value"`
	Statistics []ObjectStatistics `json:"statistics,omitempty"`
}

// NewObject returns a draft object. Only the type name is required; the rest
// of the descriptor is filled in from the registry when available.
func NewObject(typeName, value string) *Object {
	return &Object{Type: ObjectType{Name: typeName}, Value: value}
}

// Key returns the identity of the object as "type/value".
func (o *Object) Key() string {
	return o.Type.Name + "/" + o.Value
}

func (o *Object) String() string {
	return "(" + o.Key() + ")"
}

// Equal compares identity, ignoring ids.
func (o *Object) Equal(other *Object) bool {
	if o == nil || other == nil {
		return o == other
	}
	return o.Type.Name == other.Type.Name && o.Value == other.Value
}

func (o *Object) IsPlaceholder() bool {
	return o != nil && o.Value == PlaceholderValue
}

// IsResolvedPlaceholder reports whether the value was assigned by a fact
// chain. Such values are not checked against the object type's validator.
func (o *Object) IsResolvedPlaceholder() bool {
	if o == nil || len(o.Value) <= len(resolvedPrefix)+len(resolvedSuffix) {
		return false
	}
	return strings.HasPrefix(o.Value, resolvedPrefix) && strings.HasSuffix(o.Value, resolvedSuffix)
}

// Validate checks that the object can be referenced from a fact.
func (o *Object) Validate() error {
	if o.ID != uuid.Nil && o.Type.Name == "" && o.Value == "" {
		return nil
	}
	if o.Type.Name == "" {
		return &ValidationError{Field: "object.type", Message: "object type is required"}
	}
	if o.Value == "" {
		return &ValidationError{Field: "object.value", Message: fmt.Sprintf("value is required for %s object", o.Type.Name)}
	}
	if o.IsPlaceholder() || o.IsResolvedPlaceholder() {
		return nil
	}
	return o.Type.Validate(o.Value)
}

func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := *o
	c.Type = o.Type.Clone()
	if o.Statistics != nil {
		c.Statistics = append([]ObjectStatistics(nil), o.Statistics...)
	}
	return &c
}

// Clone returns a copy of t that shares no memory with it.
func (t ObjectType) Clone() ObjectType {
	if t.Namespace != nil {
		ns := *t.Namespace
		t.Namespace = &ns
	}
	return t
}

func (b ObjectBinding) clone() ObjectBinding {
	if b.SourceObjectType != nil {
		src := b.SourceObjectType.Clone()
		b.SourceObjectType = &src
	}
	if b.DestinationObjectType != nil {
		dst := b.DestinationObjectType.Clone()
		b.DestinationObjectType = &dst
	}
	return b
}

// Clone returns a copy of t that shares no memory with it.
func (t FactType) Clone() FactType {
	if t.Namespace != nil {
		ns := *t.Namespace
		t.Namespace = &ns
	}
	if t.DefaultConfidence != nil {
		c := *t.DefaultConfidence
		t.DefaultConfidence = &c
	}
	if t.RelevantObjectBindings != nil {
		bindings := make([]ObjectBinding, len(t.RelevantObjectBindings))
		for i, b := range t.RelevantObjectBindings {
			bindings[i] = b.clone()
		}
		t.RelevantObjectBindings = bindings
	}
	if t.RelevantFactBindings != nil {
		t.RelevantFactBindings = append([]FactBinding(nil), t.RelevantFactBindings...)
	}
	return t
}
