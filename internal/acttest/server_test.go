package acttest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/actgraph/internal/domain"
	"github.com/Harshitk-cp/actgraph/internal/wire"
)

type response struct {
	ResponseCode int              `json:"responseCode"`
	Count        int              `json:"count"`
	Size         int              `json:"size"`
	Messages     []domain.Message `json:"messages"`
	Data         json.RawMessage  `json:"data"`
}

func call(t *testing.T, s *Server, method, path string, body any) (int, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("ACT-User-ID", "1")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func newServer() *Server {
	s := New(zap.NewNop())
	s.AddObjectType("threatActor", "")
	s.AddObjectType("ipv4", `\d+\.\d+\.\d+\.\d+`)
	s.AddFactType("name", Binding{Source: "threatActor"})
	return s
}

func nameFact(value string) wire.FactRequest {
	return wire.FactRequest{
		Type:         "name",
		Value:        value,
		AccessMode:   "RoleBased",
		SourceObject: &wire.ObjectRequest{Type: "threatActor", Value: value},
	}
}

func TestMissingUserIsDenied(t *testing.T) {
	s := newServer()
	req := httptest.NewRequest(http.MethodGet, "/v1/objectType", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, int64(1), s.Errors())
}

func TestCreateFactAssignsIDsAndDeduplicates(t *testing.T) {
	s := newServer()

	code, resp := call(t, s, http.MethodPost, "/v1/fact", nameFact("APT1"))
	require.Equal(t, http.StatusCreated, code)
	first, err := wire.DecodeFact(resp.Data)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, "John Doe", first.Origin.Name)
	assert.InDelta(t, 0.8, *first.Certainty, 1e-9)

	_, resp = call(t, s, http.MethodPost, "/v1/fact", nameFact("APT1"))
	second, err := wire.DecodeFact(resp.Data)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.LastSeenTimestamp.After(*first.LastSeenTimestamp))
	assert.Equal(t, 1, s.FactCount())
}

func TestCreateFactRejections(t *testing.T) {
	tests := []struct {
		name     string
		req      wire.FactRequest
		template string
		field    string
	}{
		{
			name:     "unknown fact type",
			req:      wire.FactRequest{Type: "nope", SourceObject: &wire.ObjectRequest{Type: "threatActor", Value: "x"}},
			template: "fact.type.not.exist",
			field:    "type",
		},
		{
			name:     "no objects",
			req:      wire.FactRequest{Type: "name", Value: "x"},
			template: "fact.not.valid",
			field:    "sourceObject",
		},
		{
			name:     "invalid object value",
			req:      wire.FactRequest{Type: "name", Value: "x", SourceObject: &wire.ObjectRequest{Type: "ipv4", Value: "nope"}},
			template: "object.not.valid",
			field:    "sourceObject",
		},
		{
			name: "binding not allowed",
			req: wire.FactRequest{
				Type:              "name",
				Value:             "x",
				DestinationObject: &wire.ObjectRequest{Type: "threatActor", Value: "x"},
			},
			template: "fact.not.valid",
			field:    "sourceObject",
		},
		{
			name: "unknown origin",
			req: wire.FactRequest{
				Type:         "name",
				Value:        "x",
				Origin:       "nobody",
				SourceObject: &wire.ObjectRequest{Type: "threatActor", Value: "x"},
			},
			template: "origin.not.exist",
			field:    "origin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer()
			code, resp := call(t, s, http.MethodPost, "/v1/fact", tt.req)
			assert.Equal(t, http.StatusPreconditionFailed, code)
			require.Len(t, resp.Messages, 1)
			assert.Equal(t, tt.template, resp.Messages[0].MessageTemplate)
			assert.Equal(t, tt.field, resp.Messages[0].Field)
			assert.Zero(t, s.FactCount())
		})
	}
}

func TestRetractFlagsParent(t *testing.T) {
	s := newServer()
	_, resp := call(t, s, http.MethodPost, "/v1/fact", nameFact("APT1"))
	f, err := wire.DecodeFact(resp.Data)
	require.NoError(t, err)

	code, resp := call(t, s, http.MethodPost, "/v1/fact/uuid/"+f.ID.String()+"/retract", wire.RetractRequest{})
	require.Equal(t, http.StatusCreated, code)
	retraction, err := wire.DecodeFact(resp.Data)
	require.NoError(t, err)
	assert.Equal(t, RetractionFactType, retraction.Type.Name)
	assert.Equal(t, f.ID, retraction.InReferenceTo.ID)

	_, resp = call(t, s, http.MethodGet, "/v1/fact/uuid/"+f.ID.String(), nil)
	got, err := wire.DecodeFact(resp.Data)
	require.NoError(t, err)
	assert.True(t, got.Retracted())

	_, resp = call(t, s, http.MethodPost, "/v1/fact/search", wire.FactSearchRequest{Limit: 25})
	assert.Zero(t, resp.Count)

	yes := true
	_, resp = call(t, s, http.MethodPost, "/v1/fact/search", wire.FactSearchRequest{IncludeRetracted: &yes, Limit: 25})
	assert.Equal(t, 1, resp.Count)

	_, resp = call(t, s, http.MethodGet, "/v1/fact/uuid/"+f.ID.String()+"/meta", nil)
	assert.Equal(t, 1, resp.Count)
}

func TestSearchFactsNewestFirstWithLimit(t *testing.T) {
	s := newServer()
	for _, v := range []string{"APT1", "APT2", "APT3"} {
		code, _ := call(t, s, http.MethodPost, "/v1/fact", nameFact(v))
		require.Equal(t, http.StatusCreated, code)
	}

	_, resp := call(t, s, http.MethodPost, "/v1/fact/search", wire.FactSearchRequest{FactType: []string{"name"}, Limit: 2})
	facts, err := wire.DecodeFacts(resp.Data)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, 2, resp.Size)
	require.Len(t, facts, 2)
	assert.Equal(t, "APT3", facts[0].Value)
	assert.Equal(t, "APT2", facts[1].Value)
}

func TestGetFactNotFound(t *testing.T) {
	s := newServer()
	code, resp := call(t, s, http.MethodGet, "/v1/fact/uuid/7b7bd2e8-1e5a-4c1e-a1f1-4cf1b3b5c7f1", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "fact.not.exist", resp.Messages[0].MessageTemplate)
}

func TestMetaFactBindings(t *testing.T) {
	s := newServer()
	s.AddMetaFactType("observationTime", "name")
	s.AddMetaFactType("unrelated", RetractionFactType)
	_, resp := call(t, s, http.MethodPost, "/v1/fact", nameFact("APT1"))
	f, err := wire.DecodeFact(resp.Data)
	require.NoError(t, err)

	code, _ := call(t, s, http.MethodPost, "/v1/fact/uuid/"+f.ID.String()+"/meta", wire.MetaFactRequest{Type: "observationTime", Value: "1"})
	assert.Equal(t, http.StatusCreated, code)

	code, _ = call(t, s, http.MethodPost, "/v1/fact/uuid/"+f.ID.String()+"/meta", wire.MetaFactRequest{Type: "unrelated"})
	assert.Equal(t, http.StatusPreconditionFailed, code)
}

func TestObjectsAndTraversal(t *testing.T) {
	s := newServer()
	s.AddFactType("seenIn", Binding{Source: "ipv4", Destination: "threatActor"})
	call(t, s, http.MethodPost, "/v1/fact", nameFact("APT1"))
	call(t, s, http.MethodPost, "/v1/fact", wire.FactRequest{
		Type:              "seenIn",
		SourceObject:      &wire.ObjectRequest{Type: "ipv4", Value: "10.0.0.1"},
		DestinationObject: &wire.ObjectRequest{Type: "threatActor", Value: "APT1"},
	})

	_, resp := call(t, s, http.MethodPost, "/v1/object/search", wire.ObjectSearchRequest{ObjectType: []string{"threatActor"}})
	objects, err := wire.DecodeObjects(resp.Data)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Len(t, objects[0].Statistics, 2)

	_, resp = call(t, s, http.MethodPost, "/v1/object/threatActor/APT1/facts", wire.FactSearchRequest{})
	assert.Equal(t, 2, resp.Count)

	code, resp := call(t, s, http.MethodPost, "/v1/object/threatActor/APT1/traverse", wire.TraverseRequest{Query: "g.outE()"})
	require.Equal(t, http.StatusOK, code)
	rows, err := wire.DecodeTraversal(resp.Data)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, "g.outE()", s.LastTraversal())
}

func TestFactTypeLifecycle(t *testing.T) {
	s := newServer()

	code, resp := call(t, s, http.MethodPost, "/v1/factType", wire.FactTypeRequest{Name: "alias"})
	require.Equal(t, http.StatusCreated, code)
	ft, err := wire.DecodeFactType(resp.Data)
	require.NoError(t, err)

	code, _ = call(t, s, http.MethodPost, "/v1/factType", wire.FactTypeRequest{Name: "alias"})
	assert.Equal(t, http.StatusConflict, code)

	bind := wire.ObjectBindingRequest{SourceObjectType: "threatActor", DestinationObjectType: "threatActor", BidirectionalBinding: true}
	update := wire.FactTypeUpdateRequest{Name: "aliasOf", AddObjectBindings: []wire.ObjectBindingRequest{bind, bind}}
	code, resp = call(t, s, http.MethodPut, "/v1/factType/uuid/"+ft.ID.String(), update)
	require.Equal(t, http.StatusOK, code)
	ft, err = wire.DecodeFactType(resp.Data)
	require.NoError(t, err)
	assert.Equal(t, "aliasOf", ft.Name)
	assert.Len(t, ft.RelevantObjectBindings, 1)
}

func TestOriginLifecycle(t *testing.T) {
	s := newServer()

	trust := 0.5
	code, resp := call(t, s, http.MethodPost, "/v1/origin", wire.OriginRequest{Name: "feed", Trust: &trust})
	require.Equal(t, http.StatusCreated, code)
	o, err := wire.DecodeOrigin(resp.Data)
	require.NoError(t, err)

	code, _ = call(t, s, http.MethodPost, "/v1/origin", wire.OriginRequest{Name: "feed"})
	assert.Equal(t, http.StatusConflict, code)

	bad := 2.0
	code, _ = call(t, s, http.MethodPost, "/v1/origin", wire.OriginRequest{Name: "other", Trust: &bad})
	assert.Equal(t, http.StatusPreconditionFailed, code)

	code, resp = call(t, s, http.MethodDelete, "/v1/origin/uuid/"+o.ID.String(), nil)
	require.Equal(t, http.StatusOK, code)
	deleted, err := wire.DecodeOrigin(resp.Data)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted())

	_, resp = call(t, s, http.MethodGet, "/v1/origin", nil)
	assert.Equal(t, 1, resp.Count)
	_, resp = call(t, s, http.MethodGet, "/v1/origin?includeDeleted=true", nil)
	assert.Equal(t, 2, resp.Count)
}

func TestFailOnSkipsThenFails(t *testing.T) {
	s := newServer()
	s.FailOn(http.MethodPost, "/v1/fact", 1, http.StatusInternalServerError, "boom")

	code, _ := call(t, s, http.MethodPost, "/v1/fact", nameFact("APT1"))
	assert.Equal(t, http.StatusCreated, code)
	code, resp := call(t, s, http.MethodPost, "/v1/fact", nameFact("APT2"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "boom", resp.Messages[0].MessageTemplate)
	code, _ = call(t, s, http.MethodPost, "/v1/fact", nameFact("APT2"))
	assert.Equal(t, http.StatusCreated, code)
}
