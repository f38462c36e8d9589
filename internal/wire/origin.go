package wire

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/Harshitk-cp/actgraph/internal/domain"
)

type OriginRequest struct {
	Name         string   `json:"name"`
	Namespace    string   `json:"namespace,omitempty"`
	Organization string   `json:"organization,omitempty"`
	Description  string   `json:"description,omitempty"`
	Trust        *float64 `json:"trust,omitempty"`
}

func EncodeOrigin(o *domain.Origin) OriginRequest {
	return OriginRequest{
		Name:         o.Name,
		Namespace:    namespaceRef(o.Namespace),
		Organization: organizationRef(o.Organization),
		Description:  o.Description,
		Trust:        o.Trust,
	}
}

type OriginResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Namespace    *Ref      `json:"namespace"`
	Organization *Ref      `json:"organization"`
	Description  string    `json:"description"`
	Trust        *float64  `json:"trust"`
	Type         string    `json:"type"`
	Flags        []string  `json:"flags"`
}

func (r *OriginResponse) toDomain() *domain.Origin {
	return &domain.Origin{
		ID:           r.ID,
		Name:         r.Name,
		Namespace:    r.Namespace.nameSpace(),
		Organization: r.Organization.organization(),
		Description:  r.Description,
		Trust:        r.Trust,
		Type:         r.Type,
		Flags:        r.Flags,
	}
}

func DecodeOrigin(raw json.RawMessage) (*domain.Origin, error) {
	return decodeOne(raw, (*OriginResponse).toDomain)
}

func DecodeOrigins(raw json.RawMessage) ([]*domain.Origin, error) {
	return decodeList(raw, (*OriginResponse).toDomain)
}
