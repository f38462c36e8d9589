package wire

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Harshitk-cp/actgraph/internal/domain"
)

type ObjectRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// FactRequest is the body of POST v1/fact. Field order is the order of the
// serialized payload.
type FactRequest struct {
	Type                 string         `json:"type"`
	Value                string         `json:"value"`
	AccessMode           string         `json:"accessMode"`
	Origin               string         `json:"origin,omitempty"`
	Organization         string         `json:"organization,omitempty"`
	Confidence           *float64       `json:"confidence,omitempty"`
	SourceObject         *ObjectRequest `json:"sourceObject,omitempty"`
	DestinationObject    *ObjectRequest `json:"destinationObject,omitempty"`
	BidirectionalBinding bool           `json:"bidirectionalBinding"`
	ACL                  []string       `json:"acl,omitempty"`
}

// MetaFactRequest is the body of POST v1/fact/uuid/{id}/meta.
type MetaFactRequest struct {
	Type         string   `json:"type"`
	Value        string   `json:"value,omitempty"`
	AccessMode   string   `json:"accessMode,omitempty"`
	Origin       string   `json:"origin,omitempty"`
	Organization string   `json:"organization,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
}

// RetractRequest is the body of POST v1/fact/uuid/{id}/retract.
type RetractRequest struct {
	Organization string   `json:"organization,omitempty"`
	Origin       string   `json:"origin,omitempty"`
	AccessMode   string   `json:"accessMode,omitempty"`
	Comment      string   `json:"comment,omitempty"`
	ACL          []string `json:"acl,omitempty"`
}

type CommentRequest struct {
	Comment string `json:"comment"`
	ReplyTo string `json:"replyTo,omitempty"`
}

func EncodeObject(o *domain.Object) *ObjectRequest {
	if o == nil {
		return nil
	}
	return &ObjectRequest{Type: o.Type.Name, Value: o.Value}
}

func originRef(o *domain.Origin) string {
	if o == nil {
		return ""
	}
	return refValue(o.ID, o.Name)
}

func organizationRef(o *domain.Organization) string {
	if o == nil {
		return ""
	}
	return refValue(o.ID, o.Name)
}

// EncodeFact builds the submit payload of a fact. Object ids are never sent;
// the platform resolves objects by type and value.
func EncodeFact(f *domain.Fact) FactRequest {
	return FactRequest{
		Type:                 f.Type.Name,
		Value:                f.Value,
		AccessMode:           string(f.AccessMode),
		Origin:               originRef(f.Origin),
		Organization:         organizationRef(f.Organization),
		Confidence:           f.Confidence,
		SourceObject:         EncodeObject(f.SourceObject),
		DestinationObject:    EncodeObject(f.DestinationObject),
		BidirectionalBinding: f.BidirectionalBinding,
		ACL:                  encodeACL(f.ACL),
	}
}

func encodeACL(ids []uuid.UUID) []string {
	var out []string
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func EncodeMetaFact(f *domain.Fact) MetaFactRequest {
	return MetaFactRequest{
		Type:         f.Type.Name,
		Value:        f.Value,
		AccessMode:   string(f.AccessMode),
		Origin:       originRef(f.Origin),
		Organization: organizationRef(f.Organization),
		Confidence:   f.Confidence,
	}
}

type ObjectResponse struct {
	ID         uuid.UUID            `json:"id"`
	Type       *Ref                 `json:"type"`
	Value      string               `json:"value"`
	Statistics []StatisticsResponse `json:"statistics,omitempty"`
}

type StatisticsResponse struct {
	Type               *Ref       `json:"type"`
	Count              int        `json:"count"`
	LastAddedTimestamp *time.Time `json:"lastAddedTimestamp,omitempty"`
	LastSeenTimestamp  *time.Time `json:"lastSeenTimestamp,omitempty"`
}

type FactRefResponse struct {
	ID    uuid.UUID `json:"id"`
	Type  *Ref      `json:"type"`
	Value string    `json:"value"`
}

// FactResponse is a fact as returned by the platform. Absent fields decode
// to their zero value and stay unset on the entity.
type FactResponse struct {
	ID                   uuid.UUID        `json:"id"`
	Type                 *Ref             `json:"type"`
	Value                string           `json:"value"`
	AccessMode           string           `json:"accessMode"`
	Origin               *Ref             `json:"origin"`
	AddedBy              *Ref             `json:"addedBy"`
	Organization         *Ref             `json:"organization"`
	Trust                *float64         `json:"trust"`
	Confidence           *float64         `json:"confidence"`
	Certainty            *float64         `json:"certainty"`
	SourceObject         *ObjectResponse  `json:"sourceObject"`
	DestinationObject    *ObjectResponse  `json:"destinationObject"`
	BidirectionalBinding bool             `json:"bidirectionalBinding"`
	InReferenceTo        *FactRefResponse `json:"inReferenceTo"`
	Timestamp            *time.Time       `json:"timestamp"`
	LastSeenTimestamp    *time.Time       `json:"lastSeenTimestamp"`
	Flags                []string         `json:"flags"`
}

func (r *ObjectResponse) toDomain() *domain.Object {
	if r == nil {
		return nil
	}
	o := &domain.Object{ID: r.ID, Type: r.Type.objectType(), Value: r.Value}
	for _, s := range r.Statistics {
		o.Statistics = append(o.Statistics, domain.ObjectStatistics{
			Type:               s.Type.objectType(),
			Count:              s.Count,
			LastAddedTimestamp: s.LastAddedTimestamp,
			LastSeenTimestamp:  s.LastSeenTimestamp,
		})
	}
	return o
}

func originFromRef(r *Ref) *domain.Origin {
	if r == nil {
		return nil
	}
	return &domain.Origin{ID: r.ID, Name: r.Name}
}

func (r *FactResponse) toDomain() *domain.Fact {
	f := &domain.Fact{
		ID:                   r.ID,
		Type:                 r.Type.factType(),
		Value:                r.Value,
		AccessMode:           domain.AccessMode(r.AccessMode),
		Origin:               originFromRef(r.Origin),
		AddedBy:              originFromRef(r.AddedBy),
		Organization:         r.Organization.organization(),
		Trust:                r.Trust,
		Confidence:           r.Confidence,
		Certainty:            r.Certainty,
		SourceObject:         r.SourceObject.toDomain(),
		DestinationObject:    r.DestinationObject.toDomain(),
		BidirectionalBinding: r.BidirectionalBinding,
		Timestamp:            r.Timestamp,
		LastSeenTimestamp:    r.LastSeenTimestamp,
		Flags:                r.Flags,
	}
	if r.InReferenceTo != nil {
		f.InReferenceTo = &domain.FactRef{
			ID:    r.InReferenceTo.ID,
			Type:  r.InReferenceTo.Type.factType(),
			Value: r.InReferenceTo.Value,
		}
	}
	return f
}

func DecodeFact(raw json.RawMessage) (*domain.Fact, error) {
	return decodeOne(raw, (*FactResponse).toDomain)
}

func DecodeFacts(raw json.RawMessage) ([]*domain.Fact, error) {
	return decodeList(raw, (*FactResponse).toDomain)
}

func DecodeObject(raw json.RawMessage) (*domain.Object, error) {
	return decodeOne(raw, (*ObjectResponse).toDomain)
}

func DecodeObjects(raw json.RawMessage) ([]*domain.Object, error) {
	return decodeList(raw, (*ObjectResponse).toDomain)
}

type CommentResponse struct {
	ID        uuid.UUID  `json:"id"`
	ReplyTo   uuid.UUID  `json:"replyTo"`
	Comment   string     `json:"comment"`
	Origin    *Ref       `json:"origin"`
	Timestamp *time.Time `json:"timestamp"`
}

func (r *CommentResponse) toDomain() domain.Comment {
	return domain.Comment{
		ID:        r.ID,
		ReplyTo:   r.ReplyTo,
		Comment:   r.Comment,
		Origin:    originFromRef(r.Origin),
		Timestamp: r.Timestamp,
	}
}

func DecodeComment(raw json.RawMessage) (domain.Comment, error) {
	return decodeOne(raw, (*CommentResponse).toDomain)
}

func DecodeComments(raw json.RawMessage) ([]domain.Comment, error) {
	return decodeList(raw, (*CommentResponse).toDomain)
}

func DecodeSubjects(raw json.RawMessage) ([]domain.Subject, error) {
	return decodeList(raw, func(r *Ref) domain.Subject {
		return domain.Subject{ID: r.ID, Name: r.Name}
	})
}
