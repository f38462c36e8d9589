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

// Refresher is implemented by registries that cache type descriptors.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type TypeService struct {
	transport domain.Transport
	registry  domain.TypeRegistry
	logger    *zap.Logger
}

func NewTypeService(t domain.Transport, reg domain.TypeRegistry, logger *zap.Logger) *TypeService {
	return &TypeService{transport: t, registry: reg, logger: logger}
}

// refresh lets a caching registry pick up a type change. Failures only cost
// a later cache miss.
func (s *TypeService) refresh(ctx context.Context) {
	r, ok := s.registry.(Refresher)
	if !ok {
		return
	}
	if err := r.Refresh(ctx); err != nil {
		s.logger.Warn("type registry refresh failed", zap.Error(err))
	}
}

func validateTypeDefinition(kind, name string, validator domain.ValidatorKind) error {
	if name == "" {
		return &domain.ValidationError{Field: kind + ".name", Message: "name is required"}
	}
	if validator != "" && !domain.ValidValidatorKind(string(validator)) {
		return &domain.ValidationError{Field: kind + ".validator", Value: string(validator), Message: "unknown validator"}
	}
	return nil
}

func (s *TypeService) CreateObjectType(ctx context.Context, t domain.ObjectType) (domain.ObjectType, error) {
	if err := validateTypeDefinition("objectType", t.Name, t.Validator); err != nil {
		return domain.ObjectType{}, err
	}
	env, err := s.transport.Request(ctx, http.MethodPost, "v1/objectType", wire.EncodeObjectType(t))
	if err != nil {
		return domain.ObjectType{}, classify(err, "objectType", t.Name)
	}
	created, err := wire.DecodeObjectType(env.Payload())
	if err != nil {
		return domain.ObjectType{}, fmt.Errorf("decode object type: %w", err)
	}
	s.logger.Info("object type created", zap.String("name", created.Name), zap.String("type_id", created.ID.String()))
	s.refresh(ctx)
	return created, nil
}

func (s *TypeService) CreateFactType(ctx context.Context, t domain.FactType) (domain.FactType, error) {
	if err := validateTypeDefinition("factType", t.Name, t.Validator); err != nil {
		return domain.FactType{}, err
	}
	if c := t.DefaultConfidence; c != nil && (*c < 0 || *c > 1) {
		return domain.FactType{}, &domain.ValidationError{Field: "factType.defaultConfidence", Value: fmt.Sprintf("%g", *c), Message: "confidence must be between 0 and 1"}
	}
	var err error
	if t.RelevantObjectBindings, err = s.resolveObjectBindings(ctx, t.RelevantObjectBindings); err != nil {
		return domain.FactType{}, err
	}
	if t.RelevantFactBindings, err = s.resolveFactBindings(ctx, t.RelevantFactBindings); err != nil {
		return domain.FactType{}, err
	}

	env, err := s.transport.Request(ctx, http.MethodPost, "v1/factType", wire.EncodeFactType(t))
	if err != nil {
		return domain.FactType{}, classify(err, "factType", t.Name)
	}
	created, err := wire.DecodeFactType(env.Payload())
	if err != nil {
		return domain.FactType{}, fmt.Errorf("decode fact type: %w", err)
	}
	s.logger.Info("fact type created", zap.String("name", created.Name), zap.String("type_id", created.ID.String()))
	s.refresh(ctx)
	return created, nil
}

// AddObjectBindings adds bindings to t, skipping those it already has. t is
// returned unchanged when nothing is new.
func (s *TypeService) AddObjectBindings(ctx context.Context, t domain.FactType, bindings ...domain.ObjectBinding) (domain.FactType, error) {
	var fresh []domain.ObjectBinding
	for _, b := range bindings {
		if !containsBinding(t.RelevantObjectBindings, b) && !containsBinding(fresh, b) {
			fresh = append(fresh, b)
		}
	}
	if len(fresh) == 0 {
		s.logger.Warn("no new object bindings", zap.String("fact_type", t.Name))
		return t, nil
	}
	resolved, err := s.resolveObjectBindings(ctx, fresh)
	if err != nil {
		return t, err
	}

	req := wire.FactTypeUpdateRequest{}
	for _, b := range resolved {
		req.AddObjectBindings = append(req.AddObjectBindings, wire.EncodeObjectBinding(b))
	}
	return s.update(ctx, t, req)
}

// AddFactBindings lets the meta fact type t reference the given fact types.
func (s *TypeService) AddFactBindings(ctx context.Context, t domain.FactType, bindings ...domain.FactBinding) (domain.FactType, error) {
	var fresh []domain.FactBinding
	for _, b := range bindings {
		if allowed, _ := t.AllowsFact(b.Name); !allowed {
			fresh = append(fresh, b)
		}
	}
	if len(fresh) == 0 {
		s.logger.Warn("no new fact bindings", zap.String("fact_type", t.Name))
		return t, nil
	}
	resolved, err := s.resolveFactBindings(ctx, fresh)
	if err != nil {
		return t, err
	}

	req := wire.FactTypeUpdateRequest{}
	for _, b := range resolved {
		req.AddFactBindings = append(req.AddFactBindings, wire.EncodeFactBinding(b))
	}
	return s.update(ctx, t, req)
}

func (s *TypeService) RenameFactType(ctx context.Context, t domain.FactType, name string) (domain.FactType, error) {
	if name == "" {
		return t, &domain.ValidationError{Field: "factType.name", Message: "name is required"}
	}
	return s.update(ctx, t, wire.FactTypeUpdateRequest{Name: name})
}

func (s *TypeService) update(ctx context.Context, t domain.FactType, req wire.FactTypeUpdateRequest) (domain.FactType, error) {
	if t.ID == uuid.Nil {
		resolved, err := s.registry.ResolveFactType(ctx, t.Name)
		if err != nil {
			return t, err
		}
		t.ID = resolved.ID
	}
	env, err := s.transport.Request(ctx, http.MethodPut, "v1/factType/uuid/"+t.ID.String(), req)
	if err != nil {
		return t, classify(err, "factType", t.ID.String())
	}
	updated, err := wire.DecodeFactType(env.Payload())
	if err != nil {
		return t, fmt.Errorf("decode fact type: %w", err)
	}
	s.logger.Info("fact type updated", zap.String("name", updated.Name), zap.String("type_id", updated.ID.String()))
	s.refresh(ctx)
	return updated, nil
}

func containsBinding(bindings []domain.ObjectBinding, b domain.ObjectBinding) bool {
	for _, e := range bindings {
		if e.Equal(b) {
			return true
		}
	}
	return false
}

func (s *TypeService) resolveObjectType(ctx context.Context, t *domain.ObjectType) (*domain.ObjectType, error) {
	if t == nil || t.ID != uuid.Nil {
		return t, nil
	}
	resolved, err := s.registry.ResolveObjectType(ctx, t.Name)
	if err != nil {
		return nil, err
	}
	return &resolved, nil
}

// resolveObjectBindings fills in missing object type ids, which the platform
// requires in binding definitions.
func (s *TypeService) resolveObjectBindings(ctx context.Context, bindings []domain.ObjectBinding) ([]domain.ObjectBinding, error) {
	out := make([]domain.ObjectBinding, 0, len(bindings))
	for _, b := range bindings {
		src, err := s.resolveObjectType(ctx, b.SourceObjectType)
		if err != nil {
			return nil, err
		}
		dst, err := s.resolveObjectType(ctx, b.DestinationObjectType)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.ObjectBinding{SourceObjectType: src, DestinationObjectType: dst, BidirectionalBinding: b.BidirectionalBinding})
	}
	return out, nil
}

func (s *TypeService) resolveFactBindings(ctx context.Context, bindings []domain.FactBinding) ([]domain.FactBinding, error) {
	out := make([]domain.FactBinding, 0, len(bindings))
	for _, b := range bindings {
		if b.ID == uuid.Nil {
			resolved, err := s.registry.ResolveFactType(ctx, b.Name)
			if err != nil {
				return nil, err
			}
			b.ID = resolved.ID
		}
		out = append(out, b)
	}
	return out, nil
}
