package domain

import (
	"time"

	"github.com/google/uuid"
)

// FactQuery filters a fact search. Empty fields are not sent.
type FactQuery struct {
	Keywords         string
	ObjectTypes      []string
	FactTypes        []string
	ObjectValues     []string
	FactValues       []string
	Organizations    []string
	Origins          []string
	MinConfidence    *float64
	IncludeRetracted bool
	Before           *time.Time
	After            *time.Time
	Limit            int
}

// ObjectQuery filters an object search.
type ObjectQuery struct {
	Keywords      string
	ObjectTypes   []string
	FactTypes     []string
	ObjectValues  []string
	FactValues    []string
	Organizations []string
	Origins       []string
	Before        *time.Time
	After         *time.Time
	Limit         int
}

// MetaQuery bounds the meta facts listed for a fact.
type MetaQuery struct {
	Before *time.Time
	After  *time.Time
	Limit  int
}

type RetractOptions struct {
	Organization string
	Origin       string
	AccessMode   AccessMode
	Comment      string
	ACL          []uuid.UUID
}

type OriginQuery struct {
	IncludeDeleted bool
	Limit          int
}

// TraversalElement is one row of a traversal result. Exactly one of Fact and
// Object is set for rows that map to graph entities; other rows keep Raw.
type TraversalElement struct {
	Fact   *Fact
	Object *Object
	Raw    []byte
}
