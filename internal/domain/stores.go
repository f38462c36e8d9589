package domain

import (
	"context"
	"encoding/json"
	"fmt"
)

// Transport performs one request against the platform. For GET and DELETE
// the payload is a url.Values (or nil); otherwise it is JSON encoded.
type Transport interface {
	Request(ctx context.Context, method, path string, payload any) (*Envelope, error)
}

// TypeRegistry resolves type names to their descriptors.
type TypeRegistry interface {
	ResolveObjectType(ctx context.Context, name string) (ObjectType, error)
	ResolveFactType(ctx context.Context, name string) (FactType, error)
	ListObjectTypes(ctx context.Context) ([]ObjectType, error)
	ListFactTypes(ctx context.Context) ([]FactType, error)
}

// TypeCache stores type descriptors between registry refreshes.
type TypeCache interface {
	ObjectTypes(ctx context.Context) ([]ObjectType, error)
	FactTypes(ctx context.Context) ([]FactType, error)
	PutObjectTypes(ctx context.Context, types []ObjectType) error
	PutFactTypes(ctx context.Context, types []FactType) error
}

// TypeLookup is implemented by caches that can fetch one descriptor without
// loading the full set.
type TypeLookup interface {
	GetObjectType(ctx context.Context, name string) (ObjectType, error)
	GetFactType(ctx context.Context, name string) (FactType, error)
}

// Envelope is the response wrapper returned by every platform endpoint.
type Envelope struct {
	ResponseCode int             `json:"responseCode"`
	Limit        int             `json:"limit"`
	Count        int             `json:"count"`
	Size         int             `json:"size"`
	Messages     []Message       `json:"messages,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
}

// Payload returns the response body, accepting either "data" or "result".
func (e *Envelope) Payload() json.RawMessage {
	if len(e.Data) > 0 {
		return e.Data
	}
	return e.Result
}

type Message struct {
	Type            string          `json:"type"`
	Message         string          `json:"message"`
	MessageTemplate string          `json:"messageTemplate"`
	Field           string          `json:"field,omitempty"`
	Parameter       string          `json:"parameter,omitempty"`
	Timestamp       json.RawMessage `json:"timestamp,omitempty"`
}

func (m Message) String() string {
	if m.Field == "" {
		return m.Message
	}
	return fmt.Sprintf("%s (%s=%s)", m.Message, m.Field, m.Parameter)
}
