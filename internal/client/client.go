// Package client wires the transport, type registry and entity services into
// a single session against the platform.
package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/actgraph/internal/config"
	"github.com/Harshitk-cp/actgraph/internal/domain"
	"github.com/Harshitk-cp/actgraph/internal/registry"
	"github.com/Harshitk-cp/actgraph/internal/service"
	"github.com/Harshitk-cp/actgraph/internal/store"
	"github.com/Harshitk-cp/actgraph/internal/transport"
)

// Session holds the defaults applied to entities built through a Client.
type Session struct {
	OriginName   string
	OriginID     uuid.UUID
	Organization string
	// AccessMode defaults to RoleBased.
	AccessMode domain.AccessMode
}

func (s Session) defaults() service.Defaults {
	var d service.Defaults
	switch {
	case s.OriginID != uuid.Nil:
		d.Origin = &domain.Origin{ID: s.OriginID, Name: s.OriginName}
	case s.OriginName != "":
		d.Origin = domain.NewOrigin(s.OriginName)
	}
	if s.Organization != "" {
		org := domain.Organization{Name: s.Organization}
		if id, err := uuid.Parse(s.Organization); err == nil {
			org = domain.Organization{ID: id}
		}
		d.Organization = &org
	}
	return d
}

type Client struct {
	Facts   *service.FactService
	Objects *service.ObjectService
	Origins *service.OriginService
	Types   *service.TypeService

	registry   domain.TypeRegistry
	accessMode domain.AccessMode
	logger     *zap.Logger
}

func New(t domain.Transport, reg domain.TypeRegistry, session Session, logger *zap.Logger) *Client {
	mode := session.AccessMode
	if mode == "" {
		mode = domain.DefaultAccessMode
	}
	return &Client{
		Facts:      service.NewFactService(t, reg, session.defaults(), logger),
		Objects:    service.NewObjectService(t, logger),
		Origins:    service.NewOriginService(t, logger),
		Types:      service.NewTypeService(t, reg, logger),
		registry:   reg,
		accessMode: mode,
		logger:     logger,
	}
}

// Options configure Open.
type Options struct {
	Transport transport.Config
	Session   Session
	// DatabaseURL enables the Postgres type cache when set.
	DatabaseURL string
}

// OptionsFromConfig reads Options from the environment.
func OptionsFromConfig() (Options, error) {
	originID, err := config.OriginID()
	if err != nil {
		return Options{}, err
	}
	mode, err := config.AccessMode()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Transport: transport.Config{
			BaseURL:        config.BaseURL(),
			UserID:         config.UserID(),
			Timeout:        config.RequestTimeout(),
			RateLimitRPS:   config.RateLimitRPS(),
			RateLimitBurst: config.RateLimitBurst(),
			CircuitBreaker: config.CircuitBreakerEnabled(),
		},
		Session: Session{
			OriginName:   config.OriginName(),
			OriginID:     originID,
			Organization: config.Organization(),
			AccessMode:   mode,
		},
		DatabaseURL: config.DatabaseURL(),
	}, nil
}

// Open connects a client to the platform. The returned func releases the
// type cache pool and is never nil.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Client, func(), error) {
	noop := func() {}

	tr, err := transport.NewHTTPTransport(opts.Transport, logger)
	if err != nil {
		return nil, noop, err
	}

	var cache domain.TypeCache
	closeFn := noop
	if opts.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("connect type cache: %w", err)
		}
		types := store.NewTypeStore(pool)
		if err := types.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("prepare type cache: %w", err)
		}
		logger.Info("using postgres type cache")
		cache = types
		closeFn = pool.Close
	}

	return New(tr, registry.NewRemote(tr, cache, logger), opts.Session, logger), closeFn, nil
}

// NewFromConfig opens a client configured from the environment.
func NewFromConfig(ctx context.Context, logger *zap.Logger) (*Client, func(), error) {
	opts, err := OptionsFromConfig()
	if err != nil {
		return nil, func() {}, err
	}
	return Open(ctx, opts, logger)
}

// Registry returns the type registry the client resolves names with.
func (c *Client) Registry() domain.TypeRegistry {
	return c.registry
}

// Fact returns a draft fact of the named type, carrying the full type
// descriptor and the session's access mode.
func (c *Client) Fact(ctx context.Context, typeName, value string) (*domain.Fact, error) {
	t, err := c.registry.ResolveFactType(ctx, typeName)
	if err != nil {
		return nil, err
	}
	return domain.NewFact(t, value).WithAccessMode(c.accessMode), nil
}

// Draft returns a fact whose type carries only its name. Use it when no
// registry is reachable; the platform checks the rest on submit.
func (c *Client) Draft(typeName, value string) *domain.Fact {
	return domain.NewFact(domain.FactType{Name: typeName}, value).WithAccessMode(c.accessMode)
}

// Meta returns a draft meta fact of the named type about f.
func (c *Client) Meta(ctx context.Context, f *domain.Fact, typeName, value string) (*domain.Fact, error) {
	t, err := c.registry.ResolveFactType(ctx, typeName)
	if err != nil {
		return nil, err
	}
	meta, err := f.Meta(t, value)
	if err != nil {
		return nil, err
	}
	return meta.WithAccessMode(c.accessMode), nil
}

// Object returns an object of the named type. The value is checked against
// the type's validator.
func (c *Client) Object(ctx context.Context, typeName, value string) (*domain.Object, error) {
	t, err := c.registry.ResolveObjectType(ctx, typeName)
	if err != nil {
		return nil, err
	}
	o := &domain.Object{Type: t, Value: value}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Origin returns a draft origin owned by the session's organization.
func (c *Client) Origin(name string) *domain.Origin {
	o := domain.NewOrigin(name)
	if org := c.Facts.Defaults().Organization; org != nil {
		o.WithOrganization(*org)
	}
	return o
}

// FactChain resolves the placeholders in facts and submits them in order.
func (c *Client) FactChain(ctx context.Context, facts ...*domain.Fact) ([]*domain.Fact, error) {
	return c.Facts.AddChain(ctx, facts...)
}

func (c *Client) FactSearch(ctx context.Context, q domain.FactQuery) (*domain.ResultSet[*domain.Fact], error) {
	return c.Facts.Search(ctx, q)
}

func (c *Client) ObjectSearch(ctx context.Context, q domain.ObjectQuery) (*domain.ResultSet[*domain.Object], error) {
	return c.Objects.Search(ctx, q)
}
