package service

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/actgraph/internal/chain"
	"github.com/Harshitk-cp/actgraph/internal/domain"
	"github.com/Harshitk-cp/actgraph/internal/wire"
)

// Defaults are applied to facts submitted without an origin or organization.
type Defaults struct {
	Origin       *domain.Origin
	Organization *domain.Organization
}

type FactService struct {
	transport domain.Transport
	registry  domain.TypeRegistry
	defaults  Defaults
	logger    *zap.Logger
}

// NewFactService returns a fact service. registry may be nil, in which case
// facts are validated only against the type information they carry.
func NewFactService(t domain.Transport, reg domain.TypeRegistry, defaults Defaults, logger *zap.Logger) *FactService {
	return &FactService{
		transport: t,
		registry:  reg,
		defaults:  defaults,
		logger:    logger,
	}
}

// Defaults returns the session defaults applied by Add.
func (s *FactService) Defaults() Defaults {
	return s.defaults
}

func factPath(id uuid.UUID, suffix string) string {
	return "v1/fact/uuid/" + id.String() + suffix
}

// Add validates and submits draft. On success draft is overwritten in place
// with the platform's representation; on failure it is left as it was.
// Nothing is sent when validation fails.
func (s *FactService) Add(ctx context.Context, draft *domain.Fact) error {
	if draft == nil {
		return &domain.ValidationError{Field: "fact", Message: "fact is nil"}
	}
	if err := draft.Err(); err != nil {
		return err
	}

	f := draft.Clone()
	s.enrich(ctx, f)
	if f.Origin == nil && s.defaults.Origin != nil {
		f.Origin = s.defaults.Origin.Clone()
	}
	if f.Organization == nil && s.defaults.Organization != nil {
		org := *s.defaults.Organization
		f.Organization = &org
	}
	if err := f.Validate(); err != nil {
		return err
	}

	start := time.Now()
	var (
		env *domain.Envelope
		err error
		ref = f.String()
	)
	if f.IsMeta() {
		ref = f.InReferenceTo.ID.String()
		env, err = s.transport.Request(ctx, http.MethodPost, factPath(f.InReferenceTo.ID, "/meta"), wire.EncodeMetaFact(f))
	} else {
		env, err = s.transport.Request(ctx, http.MethodPost, "v1/fact", wire.EncodeFact(f))
	}
	if err != nil {
		return classify(err, "fact", ref)
	}

	added, err := wire.DecodeFact(env.Payload())
	if err != nil {
		return fmt.Errorf("decode fact: %w", err)
	}
	keepDescriptor(added, f)
	draft.Replace(added)

	s.logger.Info("fact added",
		zap.String("fact_id", draft.ID.String()),
		zap.String("fact", draft.String()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// keepDescriptor carries the local type descriptor over to a platform
// response that only names the type.
func keepDescriptor(added, local *domain.Fact) {
	if added.Type.Name != local.Type.Name || added.Type.Validator != "" {
		return
	}
	id := added.Type.ID
	added.Type = local.Type
	if id != uuid.Nil {
		added.Type.ID = id
	}
}

// enrich fills in type descriptors missing from f. Lookup failures are left
// for the platform to report.
func (s *FactService) enrich(ctx context.Context, f *domain.Fact) {
	if s.registry == nil {
		return
	}
	if f.Type.Validator == "" && len(f.Type.RelevantObjectBindings) == 0 && len(f.Type.RelevantFactBindings) == 0 {
		if t, err := s.registry.ResolveFactType(ctx, f.Type.Name); err == nil {
			f.Type = t
		} else {
			s.logger.Debug("fact type not resolved", zap.String("type", f.Type.Name), zap.Error(err))
		}
	}
	for _, o := range []*domain.Object{f.SourceObject, f.DestinationObject} {
		if o == nil || o.Type.Validator != "" {
			continue
		}
		if t, err := s.registry.ResolveObjectType(ctx, o.Type.Name); err == nil {
			o.Type = t
		} else {
			s.logger.Debug("object type not resolved", zap.String("type", o.Type.Name), zap.Error(err))
		}
	}
}

// Get refreshes f from the platform.
func (s *FactService) Get(ctx context.Context, f *domain.Fact) error {
	if f.ID == uuid.Nil {
		return domain.MissingID("get", "fact")
	}
	env, err := s.transport.Request(ctx, http.MethodGet, factPath(f.ID, ""), nil)
	if err != nil {
		return classify(err, "fact", f.ID.String())
	}
	got, err := wire.DecodeFact(env.Payload())
	if err != nil {
		return fmt.Errorf("decode fact: %w", err)
	}
	keepDescriptor(got, f)
	f.Replace(got)
	return nil
}

// Retract retracts f and returns the Retraction meta fact created by the
// platform. f keeps its id and gains the Retracted flag.
func (s *FactService) Retract(ctx context.Context, f *domain.Fact, opts domain.RetractOptions) (*domain.Fact, error) {
	if f.ID == uuid.Nil {
		return nil, domain.MissingID("retract", "fact")
	}
	if opts.AccessMode != "" && !domain.ValidAccessMode(string(opts.AccessMode)) {
		return nil, &domain.ValidationError{Field: "retract.accessMode", Value: string(opts.AccessMode), Message: "invalid access mode"}
	}

	env, err := s.transport.Request(ctx, http.MethodPost, factPath(f.ID, "/retract"), wire.EncodeRetract(opts))
	if err != nil {
		return nil, classify(err, "fact", f.ID.String())
	}
	retraction, err := wire.DecodeFact(env.Payload())
	if err != nil {
		return nil, fmt.Errorf("decode retraction: %w", err)
	}
	f.MarkRetracted()

	s.logger.Info("fact retracted",
		zap.String("fact_id", f.ID.String()),
		zap.String("retraction_id", retraction.ID.String()),
	)
	return retraction, nil
}

// GetMeta lists the meta facts referencing f, newest first.
func (s *FactService) GetMeta(ctx context.Context, f *domain.Fact, q domain.MetaQuery) ([]*domain.Fact, error) {
	if f.ID == uuid.Nil {
		return nil, domain.MissingID("get meta", "fact")
	}
	env, err := s.transport.Request(ctx, http.MethodGet, factPath(f.ID, "/meta"), wire.EncodeMetaQuery(q))
	if err != nil {
		return nil, classify(err, "fact", f.ID.String())
	}
	facts, err := wire.DecodeFacts(env.Payload())
	if err != nil {
		return nil, fmt.Errorf("decode meta facts: %w", err)
	}
	sort.SliceStable(facts, func(i, j int) bool {
		a, b := facts[i].Timestamp, facts[j].Timestamp
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.After(*b)
	})
	return facts, nil
}

// ACL lists the subjects with explicit access to f.
func (s *FactService) ACL(ctx context.Context, f *domain.Fact) ([]domain.Subject, error) {
	if f.ID == uuid.Nil {
		return nil, domain.MissingID("acl", "fact")
	}
	env, err := s.transport.Request(ctx, http.MethodGet, factPath(f.ID, "/access"), nil)
	if err != nil {
		return nil, classify(err, "fact", f.ID.String())
	}
	return wire.DecodeSubjects(env.Payload())
}

func (s *FactService) Comments(ctx context.Context, f *domain.Fact) (*domain.ResultSet[domain.Comment], error) {
	if f.ID == uuid.Nil {
		return nil, domain.MissingID("comments", "fact")
	}
	env, err := s.transport.Request(ctx, http.MethodGet, factPath(f.ID, "/comments"), nil)
	if err != nil {
		return nil, classify(err, "fact", f.ID.String())
	}
	comments, err := wire.DecodeComments(env.Payload())
	if err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return domain.NewResultSet(comments, env.Size, env.Count, env.Limit), nil
}

// AddComment attaches a comment to f. replyTo, when set, must be the id of
// another comment.
func (s *FactService) AddComment(ctx context.Context, f *domain.Fact, comment, replyTo string) (*domain.Comment, error) {
	if f.ID == uuid.Nil {
		return nil, domain.MissingID("comment", "fact")
	}
	if comment == "" {
		return nil, &domain.ValidationError{Field: "comment", Message: "comment is required"}
	}
	if replyTo != "" {
		if _, err := uuid.Parse(replyTo); err != nil {
			return nil, &domain.ValidationError{Field: "comment.replyTo", Value: replyTo, Message: "replyTo must be a UUID"}
		}
	}

	req := wire.CommentRequest{Comment: comment, ReplyTo: replyTo}
	env, err := s.transport.Request(ctx, http.MethodPost, factPath(f.ID, "/comments"), req)
	if err != nil {
		return nil, classify(err, "fact", f.ID.String())
	}
	c, err := wire.DecodeComment(env.Payload())
	if err != nil {
		return nil, fmt.Errorf("decode comment: %w", err)
	}
	return &c, nil
}

// Search runs a fact search. Results are not paginated further.
func (s *FactService) Search(ctx context.Context, q domain.FactQuery) (*domain.ResultSet[*domain.Fact], error) {
	env, err := s.transport.Request(ctx, http.MethodPost, "v1/fact/search", wire.EncodeFactQuery(q))
	if err != nil {
		return nil, classify(err, "fact", "search")
	}
	facts, err := wire.DecodeFacts(env.Payload())
	if err != nil {
		return nil, fmt.Errorf("decode facts: %w", err)
	}
	return domain.NewResultSet(facts, env.Size, env.Count, env.Limit), nil
}

// AddChain resolves the placeholders of a fact chain and submits every fact
// in order. Submission stops at the first failure; the facts committed so far
// are returned with the error.
func (s *FactService) AddChain(ctx context.Context, facts ...*domain.Fact) ([]*domain.Fact, error) {
	resolved, err := chain.Resolve(facts...)
	if err != nil {
		return nil, err
	}
	for _, f := range resolved {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}

	added := make([]*domain.Fact, 0, len(resolved))
	for i, f := range resolved {
		if err := s.Add(ctx, f); err != nil {
			return added, fmt.Errorf("fact %d of chain: %w", i+1, err)
		}
		added = append(added, f)
	}
	return added, nil
}
