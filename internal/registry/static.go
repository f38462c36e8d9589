package registry

import (
	"context"

	"github.com/Harshitk-cp/actgraph/internal/domain"
)

// Static is a TypeRegistry over a fixed set of types, used offline and in
// dry runs.
type Static struct {
	objectTypes []domain.ObjectType
	factTypes   []domain.FactType
}

func NewStatic(objectTypes []domain.ObjectType, factTypes []domain.FactType) *Static {
	return &Static{objectTypes: cloneTypes(objectTypes), factTypes: cloneTypes(factTypes)}
}

func (s *Static) ResolveObjectType(ctx context.Context, name string) (domain.ObjectType, error) {
	if t, ok := find(s.objectTypes, name, func(t domain.ObjectType) string { return t.Name }); ok {
		return t.Clone(), nil
	}
	return domain.ObjectType{}, &domain.TypeResolutionError{Kind: "object", Name: name}
}

func (s *Static) ResolveFactType(ctx context.Context, name string) (domain.FactType, error) {
	if t, ok := find(s.factTypes, name, func(t domain.FactType) string { return t.Name }); ok {
		return t.Clone(), nil
	}
	return domain.FactType{}, &domain.TypeResolutionError{Kind: "fact", Name: name}
}

func (s *Static) ListObjectTypes(ctx context.Context) ([]domain.ObjectType, error) {
	return cloneTypes(s.objectTypes), nil
}

func (s *Static) ListFactTypes(ctx context.Context) ([]domain.FactType, error) {
	return cloneTypes(s.factTypes), nil
}
