package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Origin attributes authorship of facts.
type Origin struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	Namespace    *NameSpace    `json:"namespace,omitempty"`
	Organization *Organization `json:"organization,omitempty"`
	Trust        *float64      `json:"trust,omitempty"`
	Description  string        `json:"description,omitempty"`
	Type         string        `json:"type,omitempty"`
	Flags        []string      `json:"flags,omitempty"`
}

func NewOrigin(name string) *Origin {
	return &Origin{Name: name}
}

// WithTrust sets the trust level. Values outside [0,1] fail Validate.
func (o *Origin) WithTrust(trust float64) *Origin {
	o.Trust = &trust
	return o
}

func (o *Origin) WithDescription(d string) *Origin {
	o.Description = d
	return o
}

func (o *Origin) WithOrganization(org Organization) *Origin {
	o.Organization = &org
	return o
}

func (o *Origin) Validate() error {
	if o.Name == "" {
		return &ValidationError{Field: "origin.name", Message: "origin name is required"}
	}
	if o.Trust != nil && (*o.Trust < 0 || *o.Trust > 1) {
		return &ValidationError{
			Field:   "origin.trust",
			Value:   fmt.Sprintf("%g", *o.Trust),
			Message: "trust must be between 0 and 1",
		}
	}
	return nil
}

// FlagDeleted is set on origins that have been deleted.
const FlagDeleted = "Deleted"

// Deleted reports whether the platform has flagged the origin as deleted.
func (o *Origin) Deleted() bool {
	for _, f := range o.Flags {
		if f == FlagDeleted {
			return true
		}
	}
	return false
}

func (o *Origin) String() string {
	return o.Name
}

func (o *Origin) Clone() *Origin {
	if o == nil {
		return nil
	}
	c := *o
	if o.Namespace != nil {
		ns := *o.Namespace
		c.Namespace = &ns
	}
	if o.Organization != nil {
		org := *o.Organization
		c.Organization = &org
	}
	if o.Trust != nil {
		t := *o.Trust
		c.Trust = &t
	}
	if o.Flags != nil {
		c.Flags = append([]string(nil), o.Flags...)
	}
	return &c
}
