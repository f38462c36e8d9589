package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/actgraph/internal/domain"
	"github.com/Harshitk-cp/actgraph/internal/wire"
)

type OriginService struct {
	transport domain.Transport
	logger    *zap.Logger
}

func NewOriginService(t domain.Transport, logger *zap.Logger) *OriginService {
	return &OriginService{transport: t, logger: logger}
}

func originPath(id uuid.UUID) string {
	return "v1/origin/uuid/" + id.String()
}

// Add creates o and replaces it in place with the platform's representation.
func (s *OriginService) Add(ctx context.Context, o *domain.Origin) error {
	if err := o.Validate(); err != nil {
		return err
	}
	env, err := s.transport.Request(ctx, http.MethodPost, "v1/origin", wire.EncodeOrigin(o))
	if err != nil {
		return classify(err, "origin", o.Name)
	}
	added, err := wire.DecodeOrigin(env.Payload())
	if err != nil {
		return fmt.Errorf("decode origin: %w", err)
	}
	*o = *added

	s.logger.Info("origin added", zap.String("origin_id", o.ID.String()), zap.String("name", o.Name))
	return nil
}

func (s *OriginService) Get(ctx context.Context, id uuid.UUID) (*domain.Origin, error) {
	if id == uuid.Nil {
		return nil, domain.MissingID("get", "origin")
	}
	env, err := s.transport.Request(ctx, http.MethodGet, originPath(id), nil)
	if err != nil {
		return nil, classify(err, "origin", id.String())
	}
	return wire.DecodeOrigin(env.Payload())
}

// Delete marks the origin deleted on the platform and updates o's flags.
func (s *OriginService) Delete(ctx context.Context, o *domain.Origin) error {
	if o.ID == uuid.Nil {
		return domain.MissingID("delete", "origin")
	}
	env, err := s.transport.Request(ctx, http.MethodDelete, originPath(o.ID), nil)
	if err != nil {
		return classify(err, "origin", o.ID.String())
	}
	if deleted, err := wire.DecodeOrigin(env.Payload()); err == nil && deleted.ID == o.ID {
		*o = *deleted
	} else if !o.Deleted() {
		o.Flags = append(o.Flags, domain.FlagDeleted)
	}

	s.logger.Info("origin deleted", zap.String("origin_id", o.ID.String()))
	return nil
}

func (s *OriginService) List(ctx context.Context, q domain.OriginQuery) (*domain.ResultSet[*domain.Origin], error) {
	env, err := s.transport.Request(ctx, http.MethodGet, "v1/origin", wire.EncodeOriginQuery(q))
	if err != nil {
		return nil, classify(err, "origin", "list")
	}
	origins, err := wire.DecodeOrigins(env.Payload())
	if err != nil {
		return nil, fmt.Errorf("decode origins: %w", err)
	}
	return domain.NewResultSet(origins, env.Size, env.Count, env.Limit), nil
}
