// Package registry resolves object and fact type names to the descriptors
// published by the platform.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Harshitk-cp/actgraph/internal/domain"
	"github.com/Harshitk-cp/actgraph/internal/wire"
)

// Remote is a TypeRegistry backed by the platform's type endpoints. Lookups
// are served from the cache; a miss triggers one refresh before giving up.
type Remote struct {
	transport domain.Transport
	cache     domain.TypeCache
	logger    *zap.Logger

	refreshMu sync.Mutex
}

// NewRemote returns a remote registry. A nil cache gets a MemoryCache.
func NewRemote(transport domain.Transport, cache domain.TypeCache, logger *zap.Logger) *Remote {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Remote{transport: transport, cache: cache, logger: logger}
}

// Refresh fetches every object and fact type and stores them in the cache.
func (r *Remote) Refresh(ctx context.Context) error {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	start := time.Now()

	env, err := r.transport.Request(ctx, http.MethodGet, "v1/objectType", nil)
	if err != nil {
		return fmt.Errorf("list object types: %w", err)
	}
	objectTypes, err := wire.DecodeObjectTypes(env.Payload())
	if err != nil {
		return fmt.Errorf("decode object types: %w", err)
	}

	env, err = r.transport.Request(ctx, http.MethodGet, "v1/factType", nil)
	if err != nil {
		return fmt.Errorf("list fact types: %w", err)
	}
	factTypes, err := wire.DecodeFactTypes(env.Payload())
	if err != nil {
		return fmt.Errorf("decode fact types: %w", err)
	}

	if err := r.cache.PutObjectTypes(ctx, objectTypes); err != nil {
		return fmt.Errorf("cache object types: %w", err)
	}
	if err := r.cache.PutFactTypes(ctx, factTypes); err != nil {
		return fmt.Errorf("cache fact types: %w", err)
	}

	r.logger.Debug("type registry refreshed",
		zap.Int("object_types", len(objectTypes)),
		zap.Int("fact_types", len(factTypes)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (r *Remote) ResolveObjectType(ctx context.Context, name string) (domain.ObjectType, error) {
	get := func(ctx context.Context, name string) (domain.ObjectType, error) {
		return scan(ctx, r.cache.ObjectTypes, name, func(t domain.ObjectType) string { return t.Name })
	}
	if l, ok := r.cache.(domain.TypeLookup); ok {
		get = l.GetObjectType
	}
	return resolve(ctx, r, "object", name, get)
}

func (r *Remote) ResolveFactType(ctx context.Context, name string) (domain.FactType, error) {
	get := func(ctx context.Context, name string) (domain.FactType, error) {
		return scan(ctx, r.cache.FactTypes, name, func(t domain.FactType) string { return t.Name })
	}
	if l, ok := r.cache.(domain.TypeLookup); ok {
		get = l.GetFactType
	}
	return resolve(ctx, r, "fact", name, get)
}

func (r *Remote) ListObjectTypes(ctx context.Context) ([]domain.ObjectType, error) {
	return list(ctx, r, r.cache.ObjectTypes)
}

func (r *Remote) ListFactTypes(ctx context.Context) ([]domain.FactType, error) {
	return list(ctx, r, r.cache.FactTypes)
}

func find[T any](types []T, name string, nameOf func(T) string) (T, bool) {
	for _, t := range types {
		if nameOf(t) == name {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// scan looks name up in the full cached set, for caches without TypeLookup.
func scan[T any](ctx context.Context, load func(context.Context) ([]T, error), name string, nameOf func(T) string) (T, error) {
	var zero T
	types, err := load(ctx)
	if err != nil {
		return zero, err
	}
	if t, ok := find(types, name, nameOf); ok {
		return t, nil
	}
	return zero, domain.ErrTypeNotCached
}

func resolve[T any](ctx context.Context, r *Remote, kind, name string, get func(context.Context, string) (T, error)) (T, error) {
	var zero T
	if name == "" {
		return zero, &domain.TypeResolutionError{Kind: kind, Name: name}
	}

	t, err := get(ctx, name)
	if !errors.Is(err, domain.ErrTypeNotCached) {
		return t, err
	}

	if err := r.Refresh(ctx); err != nil {
		return zero, err
	}
	t, err = get(ctx, name)
	if errors.Is(err, domain.ErrTypeNotCached) {
		return zero, &domain.TypeResolutionError{Kind: kind, Name: name}
	}
	return t, err
}

func list[T any](ctx context.Context, r *Remote, load func(context.Context) ([]T, error)) ([]T, error) {
	types, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if len(types) > 0 {
		return types, nil
	}
	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return load(ctx)
}
