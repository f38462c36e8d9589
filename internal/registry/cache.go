package registry

import (
	"context"
	"sync"

	"github.com/Harshitk-cp/actgraph/internal/domain"
)

// MemoryCache is an in-process TypeCache.
type MemoryCache struct {
	mu          sync.RWMutex
	objectTypes []domain.ObjectType
	factTypes   []domain.FactType
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) ObjectTypes(ctx context.Context) ([]domain.ObjectType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneTypes(c.objectTypes), nil
}

func (c *MemoryCache) FactTypes(ctx context.Context) ([]domain.FactType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneTypes(c.factTypes), nil
}

func (c *MemoryCache) GetObjectType(ctx context.Context, name string) (domain.ObjectType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if t, ok := find(c.objectTypes, name, func(t domain.ObjectType) string { return t.Name }); ok {
		return t.Clone(), nil
	}
	return domain.ObjectType{}, domain.ErrTypeNotCached
}

func (c *MemoryCache) GetFactType(ctx context.Context, name string) (domain.FactType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if t, ok := find(c.factTypes, name, func(t domain.FactType) string { return t.Name }); ok {
		return t.Clone(), nil
	}
	return domain.FactType{}, domain.ErrTypeNotCached
}

// PutObjectTypes replaces the cached object types.
func (c *MemoryCache) PutObjectTypes(ctx context.Context, types []domain.ObjectType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objectTypes = cloneTypes(types)
	return nil
}

// PutFactTypes replaces the cached fact types.
func (c *MemoryCache) PutFactTypes(ctx context.Context, types []domain.FactType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factTypes = cloneTypes(types)
	return nil
}

// cloneTypes deep-copies type descriptors so callers never alias cache
// entries.
func cloneTypes[T interface{ Clone() T }](types []T) []T {
	if types == nil {
		return nil
	}
	out := make([]T, len(types))
	for i, t := range types {
		out[i] = t.Clone()
	}
	return out
}
