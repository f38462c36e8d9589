package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/actgraph/internal/acttest"
	"github.com/Harshitk-cp/actgraph/internal/domain"
)

func setupFactTest(t *testing.T) (*platform, *FactService) {
	p := newPlatform(t)
	p.server.AddObjectType("threatActor", "")
	p.server.AddObjectType("ipv4", `\d+\.\d+\.\d+\.\d+`)
	p.server.AddFactType("name", acttest.Binding{Source: "threatActor"})
	p.server.AddFactType("seenIn", acttest.Binding{Source: "ipv4", Destination: "threatActor"})
	p.server.AddMetaFactType("observationTime", "name")
	return p, p.facts()
}

func nameFact(value string) *domain.Fact {
	return domain.NewFact(domain.FactType{Name: "name"}, value).Source("threatActor", value)
}

func TestFactService_Add(t *testing.T) {
	p, svc := setupFactTest(t)
	ctx := context.Background()

	f := nameFact("APT1")
	draft := f
	require.NoError(t, svc.Add(ctx, f))

	assert.Same(t, draft, f)
	assert.NotEqual(t, uuid.Nil, f.ID)
	assert.Equal(t, "name", f.Type.Name)
	assert.NotEmpty(t, f.Type.RelevantObjectBindings, "type descriptor should survive the round trip")
	assert.Equal(t, "APT1", f.SourceObject.Value)
	assert.NotEqual(t, uuid.Nil, f.SourceObject.ID)
	assert.Equal(t, "John Doe", f.Origin.Name)
	assert.NotNil(t, f.Timestamp)
	assert.Equal(t, 1, p.server.FactCount())
}

func TestFactService_Add_AppliesDefaults(t *testing.T) {
	p, _ := setupFactTest(t)
	originID := p.server.AddOrigin("feed", 0.5)
	svc := NewFactService(p.transport, p.registry, Defaults{
		Origin:       &domain.Origin{ID: originID},
		Organization: &domain.Organization{Name: "Test Organization 1"},
	}, zap.NewNop())

	f := nameFact("APT1")
	require.NoError(t, svc.Add(context.Background(), f))
	assert.Equal(t, originID, f.Origin.ID)
	assert.Equal(t, "Test Organization 1", f.Organization.Name)
	assert.InDelta(t, 0.5, *f.Certainty, 1e-9)
}

func TestFactService_Add_ValidationFailsWithoutRequests(t *testing.T) {
	tests := []struct {
		name string
		fact *domain.Fact
	}{
		{"no objects", domain.NewFact(domain.FactType{Name: "name"}, "x")},
		{"no type", domain.NewFact(domain.FactType{}, "x").Source("threatActor", "x")},
		{"sticky builder error", domain.NewFact(domain.FactType{Name: "alias"}, "").
			Source("threatActor", "a").
			Bidirectional("threatActor", "a", "threatActor", "b")},
		{"meta with objects", &domain.Fact{
			Type:          domain.FactType{Name: "observationTime"},
			AccessMode:    domain.AccessPublic,
			InReferenceTo: &domain.FactRef{ID: uuid.New()},
			SourceObject:  domain.NewObject("threatActor", "x"),
		}},
		{"zero access mode", &domain.Fact{Type: domain.FactType{Name: "name"}, SourceObject: domain.NewObject("threatActor", "x")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &MockTransport{}
			svc := NewFactService(m, nil, Defaults{}, zap.NewNop())

			err := svc.Add(context.Background(), tt.fact)
			assert.ErrorIs(t, err, &domain.ValidationError{})
			m.AssertNotCalled(t, "Request", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			assert.Equal(t, uuid.Nil, tt.fact.ID)
		})
	}
}

func TestFactService_Add_UsesRegistryTypes(t *testing.T) {
	p, svc := setupFactTest(t)
	ctx := context.Background()

	bad := domain.NewFact(domain.FactType{Name: "seenIn"}, "").
		Source("ipv4", "not-an-address").
		Destination("threatActor", "APT1")
	err := svc.Add(ctx, bad)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)

	unbound := domain.NewFact(domain.FactType{Name: "seenIn"}, "").
		Source("threatActor", "APT1").
		Destination("ipv4", "10.0.0.1")
	err = svc.Add(ctx, unbound)
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, "does not bind")

	assert.Zero(t, p.server.FactCount())
}

func TestFactService_Add_ServerRejection(t *testing.T) {
	p, _ := setupFactTest(t)
	svc := NewFactService(p.transport, nil, Defaults{}, zap.NewNop())

	f := nameFact("APT1").WithOriginName("nobody")
	err := svc.Add(context.Background(), f)

	var ce *domain.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusPreconditionFailed, ce.Status)
	assert.Equal(t, "origin.not.exist", ce.Template())
	assert.Equal(t, uuid.Nil, f.ID)
}

func TestFactService_Add_TransportFailure(t *testing.T) {
	p, svc := setupFactTest(t)
	p.server.FailOn(http.MethodPost, "/v1/fact", 0, http.StatusInternalServerError, "boom")

	err := svc.Add(context.Background(), nameFact("APT1"))
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusInternalServerError, te.Status)
}

func TestFactService_Add_FailureLeavesDraftUnchanged(t *testing.T) {
	p, _ := setupFactTest(t)
	originID := p.server.AddOrigin("feed", 0.5)
	svc := NewFactService(p.transport, p.registry, Defaults{
		Origin:       &domain.Origin{ID: originID},
		Organization: &domain.Organization{Name: "Test Organization 1"},
	}, zap.NewNop())
	p.server.FailOn(http.MethodPost, "/v1/fact", 0, http.StatusBadGateway, "upstream")

	f := nameFact("APT1")
	require.Error(t, svc.Add(context.Background(), f))

	assert.Equal(t, domain.FactType{Name: "name"}, f.Type)
	assert.Equal(t, domain.ObjectType{Name: "threatActor"}, f.SourceObject.Type)
	assert.Nil(t, f.Origin)
	assert.Nil(t, f.Organization)
	assert.Equal(t, uuid.Nil, f.ID)

	require.NoError(t, svc.Add(context.Background(), f))
	assert.Equal(t, originID, f.Origin.ID)
	assert.NotEmpty(t, f.Type.RelevantObjectBindings)
}

func TestFactService_Get(t *testing.T) {
	_, svc := setupFactTest(t)
	ctx := context.Background()

	err := svc.Get(ctx, nameFact("APT1"))
	assert.ErrorIs(t, err, &domain.PreconditionError{})
	assert.ErrorIs(t, err, domain.ErrMissingID)

	missing := nameFact("APT1")
	missing.ID = uuid.New()
	err = svc.Get(ctx, missing)
	assert.ErrorIs(t, err, &domain.NotFoundError{})

	f := nameFact("APT1")
	require.NoError(t, svc.Add(ctx, f))
	fetched := &domain.Fact{ID: f.ID}
	require.NoError(t, svc.Get(ctx, fetched))
	assert.Equal(t, f.String(), fetched.String())
	assert.Equal(t, f.Timestamp, fetched.Timestamp)
}

func TestFactService_Retract_RequiresID(t *testing.T) {
	m := &MockTransport{}
	svc := NewFactService(m, nil, Defaults{}, zap.NewNop())

	_, err := svc.Retract(context.Background(), nameFact("APT1"), domain.RetractOptions{Comment: "x"})
	assert.ErrorIs(t, err, &domain.PreconditionError{})
	assert.ErrorIs(t, err, domain.ErrMissingID)
	m.AssertNotCalled(t, "Request", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFactService_Retract(t *testing.T) {
	_, svc := setupFactTest(t)
	ctx := context.Background()

	f := nameFact("APT1")
	require.NoError(t, svc.Add(ctx, f))
	id := f.ID

	retraction, err := svc.Retract(ctx, f, domain.RetractOptions{Comment: "false positive"})
	require.NoError(t, err)
	assert.Equal(t, acttest.RetractionFactType, retraction.Type.Name)
	assert.Equal(t, id, retraction.InReferenceTo.ID)
	assert.Equal(t, id, f.ID)
	assert.True(t, f.Retracted())

	require.NoError(t, svc.Get(ctx, f))
	assert.True(t, f.Retracted())

	meta, err := svc.GetMeta(ctx, f, domain.MetaQuery{})
	require.NoError(t, err)
	require.Len(t, meta, 1)
	assert.Equal(t, retraction.ID, meta[0].ID)
}

func TestFactService_Meta(t *testing.T) {
	_, svc := setupFactTest(t)
	ctx := context.Background()

	f := nameFact("APT1")
	require.NoError(t, svc.Add(ctx, f))

	var added []*domain.Fact
	for _, v := range []string{"2019", "2020"} {
		m, err := f.Meta(domain.FactType{Name: "observationTime"}, v)
		require.NoError(t, err)
		require.NoError(t, svc.Add(ctx, m))
		assert.True(t, m.IsMeta())
		assert.Equal(t, f.ID, m.InReferenceTo.ID)
		assert.Nil(t, m.SourceObject)
		added = append(added, m)
	}

	meta, err := svc.GetMeta(ctx, f, domain.MetaQuery{})
	require.NoError(t, err)
	require.Len(t, meta, 2)
	assert.Equal(t, added[1].ID, meta[0].ID, "newest first")
	assert.Equal(t, added[0].ID, meta[1].ID)

	meta, err = svc.GetMeta(ctx, f, domain.MetaQuery{After: added[0].Timestamp})
	require.NoError(t, err)
	require.Len(t, meta, 1)
	assert.Equal(t, "2020", meta[0].Value)
}

func TestFactService_MetaFactBindingChecked(t *testing.T) {
	p, svc := setupFactTest(t)
	p.server.AddMetaFactType("seenMeta", "seenIn")
	ctx := context.Background()

	f := nameFact("APT1")
	require.NoError(t, svc.Add(ctx, f))

	m, err := f.Meta(domain.FactType{Name: "seenMeta"}, "")
	require.NoError(t, err)
	err = svc.Add(ctx, m)
	assert.ErrorIs(t, err, &domain.ValidationError{})
}

func TestFactService_Comments(t *testing.T) {
	_, svc := setupFactTest(t)
	ctx := context.Background()

	f := nameFact("APT1")
	require.NoError(t, svc.Add(ctx, f))

	c, err := svc.AddComment(ctx, f, "looks right", "")
	require.NoError(t, err)
	assert.Equal(t, "looks right", c.Comment)

	reply, err := svc.AddComment(ctx, f, "agreed", c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, c.ID, reply.ReplyTo)

	_, err = svc.AddComment(ctx, f, "x", "not-a-uuid")
	assert.ErrorIs(t, err, &domain.ValidationError{})

	comments, err := svc.Comments(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 2, comments.Len())
	assert.True(t, comments.Complete())
}

func TestFactService_ACL(t *testing.T) {
	_, svc := setupFactTest(t)
	ctx := context.Background()

	subject := uuid.New()
	f := nameFact("APT1").WithACL(subject)
	require.NoError(t, svc.Add(ctx, f))
	assert.Equal(t, domain.AccessExplicit, f.AccessMode)

	subjects, err := svc.ACL(ctx, f)
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, subject, subjects[0].ID)
}

func TestFactService_Search(t *testing.T) {
	_, svc := setupFactTest(t)
	ctx := context.Background()

	for _, v := range []string{"APT1", "APT2", "APT3"} {
		require.NoError(t, svc.Add(ctx, nameFact(v)))
	}

	rs, err := svc.Search(ctx, domain.FactQuery{FactTypes: []string{"name"}, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Len())
	assert.Equal(t, 3, rs.Count)
	assert.False(t, rs.Complete())

	var values []string
	for _, f := range rs.All() {
		values = append(values, f.Value)
	}
	assert.Equal(t, []string{"APT3", "APT2"}, values)

	rs, err = svc.Search(ctx, domain.FactQuery{ObjectValues: []string{"APT2"}})
	require.NoError(t, err)
	require.Equal(t, 1, rs.Len())
	assert.True(t, rs.Complete())
}

func setupChainTest(t *testing.T) (*platform, *FactService) {
	p := newPlatform(t)
	for _, name := range []string{"uri", "incident", "threatActor"} {
		p.server.AddObjectType(name, "")
	}
	p.server.AddFactType("observedIn", acttest.Binding{Source: "uri", Destination: "incident"})
	p.server.AddFactType("attributedTo", acttest.Binding{Source: "incident", Destination: "threatActor"})
	return p, p.facts()
}

func incidentChain() []*domain.Fact {
	return []*domain.Fact{
		domain.NewFact(domain.FactType{Name: "observedIn"}, "").
			Source("uri", "http://uri.no").
			Destination("incident", domain.PlaceholderValue),
		domain.NewFact(domain.FactType{Name: "attributedTo"}, "").
			Source("incident", domain.PlaceholderValue).
			Destination("threatActor", "APT99"),
	}
}

func TestFactService_AddChain(t *testing.T) {
	p, svc := setupChainTest(t)

	input := incidentChain()
	added, err := svc.AddChain(context.Background(), input...)
	require.NoError(t, err)
	require.Len(t, added, 2)

	incident := added[0].DestinationObject
	assert.True(t, strings.HasPrefix(incident.Value, "[placeholder["))
	assert.Equal(t, incident.Value, added[1].SourceObject.Value)
	assert.Equal(t, incident.ID, added[1].SourceObject.ID)
	assert.Equal(t, domain.PlaceholderValue, input[0].DestinationObject.Value, "inputs are not modified")
	assert.Equal(t, 2, p.server.FactCount())
}

func TestFactService_AddChain_StrictValidator(t *testing.T) {
	p := newPlatform(t)
	p.server.AddObjectType("content", `[0-9a-f]{64}`)
	p.server.AddObjectType("tool", "")
	p.server.AddFactType("classifiedAs", acttest.Binding{Source: "content", Destination: "tool"})
	svc := p.facts()

	added, err := svc.AddChain(context.Background(),
		domain.NewFact(domain.FactType{Name: "classifiedAs"}, "").
			Source("content", domain.PlaceholderValue).
			Destination("tool", "windshield"),
	)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.True(t, added[0].SourceObject.IsResolvedPlaceholder())
	assert.Equal(t, 1, p.server.FactCount())

	bad := domain.NewFact(domain.FactType{Name: "classifiedAs"}, "").
		Source("content", "not-a-digest").
		Destination("tool", "windshield")
	assert.ErrorIs(t, svc.Add(context.Background(), bad), &domain.ValidationError{})
}

func TestFactService_AddChain_PartialFailure(t *testing.T) {
	p, svc := setupChainTest(t)
	p.server.FailOn(http.MethodPost, "/v1/fact", 1, http.StatusBadGateway, "upstream")

	added, err := svc.AddChain(context.Background(), incidentChain()...)
	require.Error(t, err)
	assert.ErrorIs(t, err, &domain.TransportError{})
	assert.NotErrorIs(t, err, &domain.ConflictError{})
	require.Len(t, added, 1)
	assert.NotEqual(t, uuid.Nil, added[0].ID)
	assert.Equal(t, 1, p.server.FactCount())
}

func TestFactService_AddChain_Illegal(t *testing.T) {
	m := &MockTransport{}
	svc := NewFactService(m, nil, Defaults{}, zap.NewNop())

	noPlaceholder := domain.NewFact(domain.FactType{Name: "observedIn"}, "").
		Source("uri", "http://uri.no").
		Destination("incident", "x")
	_, err := svc.AddChain(context.Background(), noPlaceholder)

	var ice *domain.IllegalChainError
	require.True(t, errors.As(err, &ice))
	assert.ErrorIs(t, err, &domain.ValidationError{})
	m.AssertNotCalled(t, "Request", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
