package wire

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/Harshitk-cp/actgraph/internal/domain"
)

type ObjectTypeRequest struct {
	Name               string `json:"name"`
	Validator          string `json:"validator,omitempty"`
	ValidatorParameter string `json:"validatorParameter,omitempty"`
	IndexOption        string `json:"indexOption,omitempty"`
	Namespace          string `json:"namespace,omitempty"`
}

// ObjectBindingRequest references object types by id.
type ObjectBindingRequest struct {
	SourceObjectType      string `json:"sourceObjectType,omitempty"`
	DestinationObjectType string `json:"destinationObjectType,omitempty"`
	BidirectionalBinding  bool   `json:"bidirectionalBinding"`
}

type FactBindingRequest struct {
	FactType string `json:"factType"`
}

type FactTypeRequest struct {
	Name                   string                 `json:"name"`
	Validator              string                 `json:"validator,omitempty"`
	ValidatorParameter     string                 `json:"validatorParameter,omitempty"`
	DefaultConfidence      *float64               `json:"defaultConfidence,omitempty"`
	Namespace              string                 `json:"namespace,omitempty"`
	RelevantObjectBindings []ObjectBindingRequest `json:"relevantObjectBindings,omitempty"`
	RelevantFactBindings   []FactBindingRequest   `json:"relevantFactBindings,omitempty"`
}

// FactTypeUpdateRequest is the body of PUT v1/factType/uuid/{id}.
type FactTypeUpdateRequest struct {
	Name              string                 `json:"name,omitempty"`
	AddObjectBindings []ObjectBindingRequest `json:"addObjectBindings,omitempty"`
	AddFactBindings   []FactBindingRequest   `json:"addFactBindings,omitempty"`
}

func namespaceRef(ns *domain.NameSpace) string {
	if ns == nil {
		return ""
	}
	return refValue(ns.ID, ns.Name)
}

func EncodeObjectType(t domain.ObjectType) ObjectTypeRequest {
	return ObjectTypeRequest{
		Name:               t.Name,
		Validator:          string(t.Validator),
		ValidatorParameter: t.ValidatorParameter,
		IndexOption:        t.IndexOption,
		Namespace:          namespaceRef(t.Namespace),
	}
}

func typeID(t *domain.ObjectType) string {
	if t == nil || t.ID == uuid.Nil {
		return ""
	}
	return t.ID.String()
}

// EncodeObjectBinding renders a binding with object type ids. Callers must
// resolve ids first.
func EncodeObjectBinding(b domain.ObjectBinding) ObjectBindingRequest {
	return ObjectBindingRequest{
		SourceObjectType:      typeID(b.SourceObjectType),
		DestinationObjectType: typeID(b.DestinationObjectType),
		BidirectionalBinding:  b.BidirectionalBinding,
	}
}

func EncodeFactBinding(b domain.FactBinding) FactBindingRequest {
	return FactBindingRequest{FactType: b.ID.String()}
}

func EncodeFactType(t domain.FactType) FactTypeRequest {
	req := FactTypeRequest{
		Name:               t.Name,
		Validator:          string(t.Validator),
		ValidatorParameter: t.ValidatorParameter,
		DefaultConfidence:  t.DefaultConfidence,
		Namespace:          namespaceRef(t.Namespace),
	}
	for _, b := range t.RelevantObjectBindings {
		req.RelevantObjectBindings = append(req.RelevantObjectBindings, EncodeObjectBinding(b))
	}
	for _, b := range t.RelevantFactBindings {
		req.RelevantFactBindings = append(req.RelevantFactBindings, EncodeFactBinding(b))
	}
	return req
}

type ObjectTypeResponse struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Validator          string    `json:"validator"`
	ValidatorParameter string    `json:"validatorParameter"`
	IndexOption        string    `json:"indexOption"`
	Namespace          *Ref      `json:"namespace"`
}

func (r *ObjectTypeResponse) toDomain() domain.ObjectType {
	return domain.ObjectType{
		ID:                 r.ID,
		Name:               r.Name,
		Validator:          domain.ValidatorKind(r.Validator),
		ValidatorParameter: r.ValidatorParameter,
		IndexOption:        r.IndexOption,
		Namespace:          r.Namespace.nameSpace(),
	}
}

type ObjectBindingResponse struct {
	SourceObjectType      *Ref `json:"sourceObjectType"`
	DestinationObjectType *Ref `json:"destinationObjectType"`
	BidirectionalBinding  bool `json:"bidirectionalBinding"`
}

type FactTypeResponse struct {
	ID                     uuid.UUID               `json:"id"`
	Name                   string                  `json:"name"`
	Validator              string                  `json:"validator"`
	ValidatorParameter     string                  `json:"validatorParameter"`
	DefaultConfidence      *float64                `json:"defaultConfidence"`
	Namespace              *Ref                    `json:"namespace"`
	RelevantObjectBindings []ObjectBindingResponse `json:"relevantObjectBindings"`
	RelevantFactBindings   []Ref                   `json:"relevantFactBindings"`
}

func optionalObjectType(r *Ref) *domain.ObjectType {
	if r == nil {
		return nil
	}
	t := r.objectType()
	return &t
}

func (r *FactTypeResponse) toDomain() domain.FactType {
	t := domain.FactType{
		ID:                 r.ID,
		Name:               r.Name,
		Validator:          domain.ValidatorKind(r.Validator),
		ValidatorParameter: r.ValidatorParameter,
		DefaultConfidence:  r.DefaultConfidence,
		Namespace:          r.Namespace.nameSpace(),
	}
	for _, b := range r.RelevantObjectBindings {
		t.RelevantObjectBindings = append(t.RelevantObjectBindings, domain.ObjectBinding{
			SourceObjectType:      optionalObjectType(b.SourceObjectType),
			DestinationObjectType: optionalObjectType(b.DestinationObjectType),
			BidirectionalBinding:  b.BidirectionalBinding,
		})
	}
	for _, b := range r.RelevantFactBindings {
		t.RelevantFactBindings = append(t.RelevantFactBindings, domain.FactBinding{ID: b.ID, Name: b.Name})
	}
	return t
}

func DecodeObjectType(raw json.RawMessage) (domain.ObjectType, error) {
	return decodeOne(raw, (*ObjectTypeResponse).toDomain)
}

func DecodeObjectTypes(raw json.RawMessage) ([]domain.ObjectType, error) {
	return decodeList(raw, (*ObjectTypeResponse).toDomain)
}

func DecodeFactType(raw json.RawMessage) (domain.FactType, error) {
	return decodeOne(raw, (*FactTypeResponse).toDomain)
}

func DecodeFactTypes(raw json.RawMessage) ([]domain.FactType, error) {
	return decodeList(raw, (*FactTypeResponse).toDomain)
}
