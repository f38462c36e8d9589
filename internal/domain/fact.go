package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type AccessMode string

const (
	AccessPublic    AccessMode = "Public"
	AccessRoleBased AccessMode = "RoleBased"
	AccessExplicit  AccessMode = "Explicit"
)

// DefaultAccessMode is applied by NewFact. Facts built as struct literals
// must set the access mode explicitly.
const DefaultAccessMode = AccessRoleBased

func ValidAccessMode(m string) bool {
	switch AccessMode(m) {
	case AccessPublic, AccessRoleBased, AccessExplicit:
		return true
	}
	return false
}

// FlagRetracted is set on facts that have been retracted.
const FlagRetracted = "Retracted"

// FactRef points a meta fact at the fact it is about.
type FactRef struct {
	ID    uuid.UUID `json:"id"`
	Type  FactType  `json:"type"`
	Value string    `json:"value,omitempty"`
}

// Fact is a typed edge between one or two objects, or a meta fact about
// another fact when InReferenceTo is set.
//
// The builder methods mutate and return the receiver. Usage errors are sticky
// and surface through Err, Validate and submission.
type Fact struct {
	ID                   uuid.UUID     `json:"id"`
	Type                 FactType      `json:"type"`
	Value                string        `json:"value"`
	AccessMode           AccessMode    `json:"access_mode"`
	Origin               *Origin       `json:"origin,omitempty"`
	AddedBy              *Origin       `json:"added_by,omitempty"`
	Organization         *Organization `json:"organization,omitempty"`
	Trust                *float64      `json:"trust,omitempty"`
	Confidence           *float64      `json:"confidence,omitempty"`
	Certainty            *float64      `json:"certainty,omitempty"`
	SourceObject         *Object       `json:"source_object,omitempty"`
	DestinationObject    *Object       `json:"destination_object,omitempty"`
	BidirectionalBinding bool          `json:"bidirectional_binding"`
	InReferenceTo        *FactRef      `json:"in_reference_to,omitempty"`
	Timestamp            *time.Time    `json:"timestamp,omitempty"`
	LastSeenTimestamp    *time.Time    `json:"last_seen_timestamp,omitempty"`
	Flags                []string      `json:"flags,omitempty"`

	// ACL lists subjects granted access to an Explicit fact. Submit only.
	ACL []uuid.UUID `json:"acl,omitempty"`

	err error
}

// NewFact returns a draft fact with the default access mode.
func NewFact(t FactType, value string) *Fact {
	return &Fact{Type: t, Value: value, AccessMode: DefaultAccessMode}
}

func (f *Fact) fail(op, reason string) *Fact {
	if f.err == nil {
		f.err = &ValidationError{Field: "fact." + op, Message: reason}
	}
	return f
}

// Err returns the first usage error recorded by a builder method.
func (f *Fact) Err() error {
	return f.err
}

// Source sets the source object. A later call replaces the earlier one.
func (f *Fact) Source(objectType, value string) *Fact {
	switch {
	case f.IsMeta():
		return f.fail("source", "meta facts cannot reference objects")
	case f.BidirectionalBinding:
		return f.fail("source", "source cannot be combined with a bidirectional binding")
	}
	f.SourceObject = NewObject(objectType, value)
	return f
}

// Destination sets the destination object. A later call replaces the earlier one.
func (f *Fact) Destination(objectType, value string) *Fact {
	switch {
	case f.IsMeta():
		return f.fail("destination", "meta facts cannot reference objects")
	case f.BidirectionalBinding:
		return f.fail("destination", "destination cannot be combined with a bidirectional binding")
	}
	f.DestinationObject = NewObject(objectType, value)
	return f
}

// Bidirectional binds both objects in a single call and marks the fact as
// bidirectional. It must be the only binding call on the fact.
func (f *Fact) Bidirectional(sourceType, sourceValue, destinationType, destinationValue string) *Fact {
	switch {
	case f.IsMeta():
		return f.fail("bidirectional", "meta facts cannot reference objects")
	case f.BidirectionalBinding:
		return f.fail("bidirectional", "bidirectional binding already set")
	case f.SourceObject != nil || f.DestinationObject != nil:
		return f.fail("bidirectional", "bidirectional binding cannot be combined with source or destination")
	}
	f.SourceObject = NewObject(sourceType, sourceValue)
	f.DestinationObject = NewObject(destinationType, destinationValue)
	f.BidirectionalBinding = true
	return f
}

func (f *Fact) WithAccessMode(m AccessMode) *Fact {
	f.AccessMode = m
	return f
}

func (f *Fact) WithOrigin(o *Origin) *Fact {
	f.Origin = o.Clone()
	return f
}

// WithOriginName attributes the fact to an origin known by name only.
func (f *Fact) WithOriginName(name string) *Fact {
	f.Origin = &Origin{Name: name}
	return f
}

func (f *Fact) WithOrganization(org Organization) *Fact {
	f.Organization = &org
	return f
}

// WithACL grants subjects access to the fact and sets the access mode to
// Explicit.
func (f *Fact) WithACL(subjects ...uuid.UUID) *Fact {
	f.ACL = append(f.ACL, subjects...)
	f.AccessMode = AccessExplicit
	return f
}

func (f *Fact) WithConfidence(c float64) *Fact {
	f.Confidence = &c
	return f
}

// Meta returns a draft meta fact referencing f. f must have been submitted.
func (f *Fact) Meta(t FactType, value string) (*Fact, error) {
	if f.ID == uuid.Nil {
		return nil, MissingID("meta", "referenced fact")
	}
	m := NewFact(t, value)
	m.InReferenceTo = &FactRef{ID: f.ID, Type: f.Type.Clone(), Value: f.Value}
	return m, nil
}

func (f *Fact) IsMeta() bool {
	return f.InReferenceTo != nil
}

func (f *Fact) Retracted() bool {
	return slices.Contains(f.Flags, FlagRetracted)
}

// MarkRetracted flags the fact as retracted, keeping its id.
func (f *Fact) MarkRetracted() {
	if !f.Retracted() {
		f.Flags = append(f.Flags, FlagRetracted)
	}
}

// Replace overwrites f with the canonical representation in other, keeping
// the receiver pointer stable.
func (f *Fact) Replace(other *Fact) {
	*f = *other.Clone()
}

// Validate runs every check that can be made without the platform.
func (f *Fact) Validate() error {
	if f.err != nil {
		return f.err
	}
	if f.Type.Name == "" {
		return &ValidationError{Field: "fact.type", Message: "fact type is required"}
	}
	if !ValidAccessMode(string(f.AccessMode)) {
		return &ValidationError{
			Field:   "fact.accessMode",
			Value:   string(f.AccessMode),
			Message: "access mode must be one of Public, RoleBased, Explicit",
		}
	}
	if f.Confidence != nil && (*f.Confidence < 0 || *f.Confidence > 1) {
		return &ValidationError{
			Field:   "fact.confidence",
			Value:   fmt.Sprintf("%g", *f.Confidence),
			Message: "confidence must be between 0 and 1",
		}
	}
	if err := f.Type.Validate(f.Value); err != nil {
		return err
	}

	if f.IsMeta() {
		return f.validateMeta()
	}
	return f.validateObjects()
}

func (f *Fact) validateMeta() error {
	if f.InReferenceTo.ID == uuid.Nil {
		return MissingID("meta", "referenced fact")
	}
	if f.SourceObject != nil || f.DestinationObject != nil || f.BidirectionalBinding {
		return &ValidationError{Field: "fact.inReferenceTo", Message: "meta facts cannot reference objects"}
	}
	ref := f.InReferenceTo.Type.Name
	if ref == "" {
		return nil
	}
	if allowed, ok := f.Type.AllowsFact(ref); ok && !allowed {
		return &ValidationError{
			Field:   "fact.inReferenceTo",
			Value:   ref,
			Message: fmt.Sprintf("meta fact type %q cannot reference %q facts", f.Type.Name, ref),
		}
	}
	return nil
}

func (f *Fact) validateObjects() error {
	if f.SourceObject == nil && f.DestinationObject == nil {
		return &ValidationError{Field: "fact.objects", Message: "fact must reference at least one object"}
	}
	if f.BidirectionalBinding && (f.SourceObject == nil || f.DestinationObject == nil) {
		return &ValidationError{Field: "fact.bidirectionalBinding", Message: "bidirectional facts need both objects"}
	}
	for _, o := range []*Object{f.SourceObject, f.DestinationObject} {
		if o == nil {
			continue
		}
		if err := o.Validate(); err != nil {
			return err
		}
	}

	var src, dst string
	if f.SourceObject != nil {
		src = f.SourceObject.Type.Name
	}
	if f.DestinationObject != nil {
		dst = f.DestinationObject.Type.Name
	}
	if allowed, ok := f.Type.AllowsObjects(src, dst, f.BidirectionalBinding); ok && !allowed {
		return &ValidationError{
			Field:   "fact.objects",
			Value:   fmt.Sprintf("%s/%s", src, dst),
			Message: fmt.Sprintf("fact type %q does not bind %s", f.Type.Name, bindingLabel(src, dst, f.BidirectionalBinding)),
		}
	}
	return nil
}

func bindingLabel(src, dst string, bidirectional bool) string {
	return ObjectBinding{
		SourceObjectType:      &ObjectType{Name: src},
		DestinationObjectType: &ObjectType{Name: dst},
		BidirectionalBinding:  bidirectional,
	}.String()
}

// String renders the fact as
// (src_type/src_value) -[type/value]-> (dst_type/dst_value).
func (f *Fact) String() string {
	var b strings.Builder
	if f.SourceObject != nil {
		fmt.Fprintf(&b, "(%s) -", f.SourceObject.Key())
	}
	b.WriteString("[" + f.Type.Name)
	if f.Value != "" && !strings.HasPrefix(f.Value, "-") {
		b.WriteString("/" + f.Value)
	}
	b.WriteString("]")
	if f.DestinationObject != nil {
		if f.BidirectionalBinding {
			b.WriteString("-")
		} else {
			b.WriteString("->")
		}
		fmt.Fprintf(&b, " (%s)", f.DestinationObject.Key())
	}
	return b.String()
}

// Clone returns a deep copy, including any recorded usage error.
func (f *Fact) Clone() *Fact {
	c := *f
	c.Type = f.Type.Clone()
	c.Origin = f.Origin.Clone()
	c.AddedBy = f.AddedBy.Clone()
	c.SourceObject = f.SourceObject.Clone()
	c.DestinationObject = f.DestinationObject.Clone()
	if f.Organization != nil {
		org := *f.Organization
		c.Organization = &org
	}
	if f.InReferenceTo != nil {
		ref := *f.InReferenceTo
		ref.Type = f.InReferenceTo.Type.Clone()
		c.InReferenceTo = &ref
	}
	for _, p := range []**float64{&c.Trust, &c.Confidence, &c.Certainty} {
		if *p != nil {
			v := **p
			*p = &v
		}
	}
	for _, p := range []**time.Time{&c.Timestamp, &c.LastSeenTimestamp} {
		if *p != nil {
			v := **p
			*p = &v
		}
	}
	if f.Flags != nil {
		c.Flags = append([]string(nil), f.Flags...)
	}
	if f.ACL != nil {
		c.ACL = append([]uuid.UUID(nil), f.ACL...)
	}
	return &c
}

// Comment is a free text note attached to a fact.
type Comment struct {
	ID        uuid.UUID  `json:"id"`
	Comment   string     `json:"comment"`
	ReplyTo   uuid.UUID  `json:"reply_to,omitempty"`
	Origin    *Origin    `json:"origin,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}
