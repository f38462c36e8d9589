// Package acttest provides an in-memory fake of the ACT platform API for
// tests. It keeps enough state to create, fetch, search and retract facts and
// to manage types and origins. Traversal queries are not interpreted.
package acttest

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/actgraph/internal/domain"
	"github.com/Harshitk-cp/actgraph/internal/wire"
)

// RetractionFactType is the meta fact type created when a fact is retracted.
const RetractionFactType = "Retraction"

type failure struct {
	method   string
	path     string
	skip     int
	status   int
	template string
}

type Server struct {
	Router *chi.Mux

	mu            sync.Mutex
	objectTypes   map[string]*wire.ObjectTypeResponse
	factTypes     map[string]*wire.FactTypeResponse
	objects       map[string]*wire.ObjectResponse
	facts         []*wire.FactResponse
	comments      map[uuid.UUID][]wire.CommentResponse
	acl           map[uuid.UUID][]wire.Ref
	origins       []*wire.OriginResponse
	organizations []wire.Ref
	failures      []*failure
	lastQuery     string
	clock         time.Time

	requestCount atomic.Int64
	errorCount   atomic.Int64
}

// New returns a fake platform with the Retraction meta fact type, one
// organization and one origin for the calling user.
func New(logger *zap.Logger) *Server {
	s := &Server{
		objectTypes: map[string]*wire.ObjectTypeResponse{},
		factTypes:   map[string]*wire.FactTypeResponse{},
		objects:     map[string]*wire.ObjectResponse{},
		comments:    map[uuid.UUID][]wire.CommentResponse{},
		acl:         map[uuid.UUID][]wire.Ref{},
		clock:       time.Date(2019, 9, 23, 18, 0, 0, 0, time.UTC),
	}
	s.AddOrganization("Test Organization 1")
	s.AddOrigin("John Doe", 0.8)
	s.AddFactType(RetractionFactType)

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.metrics)
	r.Use(logging(logger))
	r.Use(userAuth)
	r.Use(s.injectFailures)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/objectType", s.listObjectTypes)
		r.Post("/objectType", s.createObjectType)
		r.Get("/factType", s.listFactTypes)
		r.Post("/factType", s.createFactType)
		r.Put("/factType/uuid/{id}", s.updateFactType)

		r.Post("/fact", s.createFact)
		r.Post("/fact/search", s.searchFacts)
		r.Get("/fact/uuid/{id}", s.getFact)
		r.Get("/fact/uuid/{id}/meta", s.listMeta)
		r.Post("/fact/uuid/{id}/meta", s.createMeta)
		r.Post("/fact/uuid/{id}/retract", s.retractFact)
		r.Get("/fact/uuid/{id}/access", s.getACL)
		r.Get("/fact/uuid/{id}/comments", s.listComments)
		r.Post("/fact/uuid/{id}/comments", s.createComment)

		r.Post("/object/search", s.searchObjects)
		r.Get("/object/uuid/{id}", s.getObject)
		r.Post("/object/uuid/{id}/facts", s.objectFacts)
		r.Post("/object/{type}/{value}/facts", s.objectFacts)
		r.Post("/object/uuid/{id}/traverse", s.traverse)
		r.Post("/object/{type}/{value}/traverse", s.traverse)

		r.Get("/origin", s.listOrigins)
		r.Post("/origin", s.createOrigin)
		r.Get("/origin/uuid/{id}", s.getOrigin)
		r.Delete("/origin/uuid/{id}", s.deleteOrigin)
	})

	s.Router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// Requests returns the number of requests served.
func (s *Server) Requests() int64 {
	return s.requestCount.Load()
}

// Errors returns the number of responses with status >= 400.
func (s *Server) Errors() int64 {
	return s.errorCount.Load()
}

// LastTraversal returns the most recent traversal query received.
func (s *Server) LastTraversal() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery
}

// FailOn makes the request matching method and path fail with status after
// skip matching requests have succeeded. template is reported as the
// message template of the error.
func (s *Server) FailOn(method, path string, skip, status int, template string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, &failure{method: method, path: path, skip: skip, status: status, template: template})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var hit *failure
		for i, f := range s.failures {
			if f.method != r.Method || f.path != r.URL.Path {
				continue
			}
			if f.skip > 0 {
				f.skip--
				continue
			}
			hit = f
			s.failures = append(s.failures[:i], s.failures[i+1:]...)
			break
		}
		s.mu.Unlock()

		if hit != nil {
			writeMessage(w, hit.status, "ActionError", hit.template, "", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *Server) AddOrganization(name string) wire.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := wire.Ref{ID: uuid.New(), Name: name}
	s.organizations = append(s.organizations, ref)
	return ref
}

func (s *Server) AddOrigin(name string, trust float64) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	org := s.organizations[0]
	o := &wire.OriginResponse{
		ID:           uuid.New(),
		Name:         name,
		Namespace:    &wire.Ref{ID: uuid.New(), Name: "Global"},
		Organization: &org,
		Trust:        &trust,
		Type:         "Group",
	}
	s.origins = append(s.origins, o)
	return o.ID
}

// AddObjectType registers an object type. An empty pattern accepts any value.
func (s *Server) AddObjectType(name, pattern string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pattern == "" {
		pattern = domain.DefaultValidatorParameter
	}
	t := &wire.ObjectTypeResponse{
		ID:                 uuid.New(),
		Name:               name,
		Validator:          string(domain.ValidatorRegex),
		ValidatorParameter: pattern,
		IndexOption:        "Daily",
		Namespace:          &wire.Ref{Name: "Global"},
	}
	s.objectTypes[name] = t
	return t.ID
}

// Binding declares a legal object type pair for AddFactType.
type Binding struct {
	Source        string
	Destination   string
	Bidirectional bool
}

// AddFactType registers a fact type. A fact type without bindings accepts
// any object pair.
func (s *Server) AddFactType(name string, bindings ...Binding) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &wire.FactTypeResponse{
		ID:                 uuid.New(),
		Name:               name,
		Validator:          string(domain.ValidatorRegex),
		ValidatorParameter: domain.DefaultValidatorParameter,
		Namespace:          &wire.Ref{Name: "Global"},
	}
	for _, b := range bindings {
		t.RelevantObjectBindings = append(t.RelevantObjectBindings, wire.ObjectBindingResponse{
			SourceObjectType:      s.typeRef(b.Source),
			DestinationObjectType: s.typeRef(b.Destination),
			BidirectionalBinding:  b.Bidirectional,
		})
	}
	s.factTypes[name] = t
	return t.ID
}

// AddMetaFactType registers a meta fact type that may reference the named
// fact types.
func (s *Server) AddMetaFactType(name string, references ...string) uuid.UUID {
	id := s.AddFactType(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.factTypes[name]
	for _, ref := range references {
		if ft, ok := s.factTypes[ref]; ok {
			t.RelevantFactBindings = append(t.RelevantFactBindings, wire.Ref{ID: ft.ID, Name: ft.Name})
		}
	}
	return id
}

func (s *Server) typeRef(name string) *wire.Ref {
	if name == "" {
		return nil
	}
	if t, ok := s.objectTypes[name]; ok {
		return &wire.Ref{ID: t.ID, Name: t.Name}
	}
	return &wire.Ref{Name: name}
}

// FactCount returns the number of stored facts, meta facts included.
func (s *Server) FactCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.facts)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type envelope struct {
	ResponseCode int              `json:"responseCode"`
	Limit        int              `json:"limit"`
	Count        int              `json:"count"`
	Size         int              `json:"size"`
	Messages     []domain.Message `json:"messages"`
	Data         any              `json:"data"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{ResponseCode: status, Messages: []domain.Message{}, Data: data})
}

func writeList[T any](w http.ResponseWriter, items []T, limit int) {
	count := len(items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, envelope{
		ResponseCode: http.StatusOK,
		Limit:        limit,
		Count:        count,
		Size:         len(items),
		Messages:     []domain.Message{},
		Data:         items,
	})
}

func writeMessage(w http.ResponseWriter, status int, kind, template, field, parameter string) {
	writeJSON(w, status, envelope{
		ResponseCode: status,
		Messages: []domain.Message{{
			Type:            kind,
			Message:         template,
			MessageTemplate: template,
			Field:           field,
			Parameter:       parameter,
		}},
	})
}
