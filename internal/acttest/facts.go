package acttest

import (
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Harshitk-cp/actgraph/internal/domain"
	"github.com/Harshitk-cp/actgraph/internal/wire"
)

// apiError is a rejection rendered as a platform message.
type apiError struct {
	status    int
	template  string
	field     string
	parameter string
}

func (e *apiError) write(w http.ResponseWriter) {
	kind := "FieldError"
	if e.field == "" {
		kind = "ActionError"
	}
	writeMessage(w, e.status, kind, e.template, e.field, e.parameter)
}

func invalid(template, field, parameter string) *apiError {
	return &apiError{status: http.StatusPreconditionFailed, template: template, field: field, parameter: parameter}
}

func notFound(template, parameter string) *apiError {
	return &apiError{status: http.StatusNotFound, template: template, field: "id", parameter: parameter}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "ActionError", "invalid.request", "", "")
		return false
	}
	return true
}

func copyFact(f *wire.FactResponse) wire.FactResponse {
	c := *f
	c.Flags = slices.Clone(f.Flags)
	if c.Flags == nil {
		c.Flags = []string{}
	}
	return c
}

func (s *Server) findFact(id string) (*wire.FactResponse, *apiError) {
	fid, err := uuid.Parse(id)
	if err != nil {
		return nil, notFound("fact.not.exist", id)
	}
	for _, f := range s.facts {
		if f.ID == fid {
			return f, nil
		}
	}
	return nil, notFound("fact.not.exist", id)
}

func (s *Server) findOrigin(ref string) *wire.OriginResponse {
	for _, o := range s.origins {
		if o.Name == ref || o.ID.String() == ref {
			return o
		}
	}
	return nil
}

func (s *Server) findOrganization(ref string) (wire.Ref, bool) {
	for _, o := range s.organizations {
		if o.Name == ref || o.ID.String() == ref {
			return o, true
		}
	}
	return wire.Ref{}, false
}

func (s *Server) checkObject(req *wire.ObjectRequest, field string) *apiError {
	if req == nil {
		return nil
	}
	t, ok := s.objectTypes[req.Type]
	if !ok {
		return invalid("object.type.not.exist", field, req.Type)
	}
	ot := domain.ObjectType{Name: t.Name, Validator: domain.ValidatorKind(t.Validator), ValidatorParameter: t.ValidatorParameter}
	if req.Value == "" || ot.Validate(req.Value) != nil {
		return invalid("object.not.valid", field, req.Value)
	}
	return nil
}

func (s *Server) upsertObject(req *wire.ObjectRequest) *wire.ObjectResponse {
	if req == nil {
		return nil
	}
	key := req.Type + "/" + req.Value
	if o, ok := s.objects[key]; ok {
		return o
	}
	t := s.objectTypes[req.Type]
	o := &wire.ObjectResponse{ID: uuid.New(), Type: &wire.Ref{ID: t.ID, Name: t.Name}, Value: req.Value}
	s.objects[key] = o
	return o
}

func requestName(o *wire.ObjectRequest) string {
	if o == nil {
		return ""
	}
	return o.Type
}

func bindingAllowed(ft *wire.FactTypeResponse, src, dst string, bidirectional bool) bool {
	if len(ft.RelevantObjectBindings) == 0 {
		return true
	}
	for _, b := range ft.RelevantObjectBindings {
		ob := domain.ObjectBinding{BidirectionalBinding: b.BidirectionalBinding}
		if b.SourceObjectType != nil {
			ob.SourceObjectType = &domain.ObjectType{Name: b.SourceObjectType.Name}
		}
		if b.DestinationObjectType != nil {
			ob.DestinationObjectType = &domain.ObjectType{Name: b.DestinationObjectType.Name}
		}
		if ob.Matches(src, dst, bidirectional) {
			return true
		}
	}
	return false
}

// attribution resolves origin and organization for a new fact, defaulting to
// the first origin and organization.
func (s *Server) attribution(origin, organization string) (*wire.OriginResponse, wire.Ref, *apiError) {
	o := s.origins[0]
	if origin != "" {
		if o = s.findOrigin(origin); o == nil || slices.Contains(o.Flags, domain.FlagDeleted) {
			return nil, wire.Ref{}, invalid("origin.not.exist", "origin", origin)
		}
	}
	org := s.organizations[0]
	if organization != "" {
		var ok bool
		if org, ok = s.findOrganization(organization); !ok {
			return nil, wire.Ref{}, invalid("organization.not.exist", "organization", organization)
		}
	}
	return o, org, nil
}

func (s *Server) newFact(ft *wire.FactTypeResponse, value, accessMode string, confidence *float64, origin *wire.OriginResponse, org wire.Ref) *wire.FactResponse {
	if accessMode == "" {
		accessMode = string(domain.DefaultAccessMode)
	}
	conf := 1.0
	if ft.DefaultConfidence != nil {
		conf = *ft.DefaultConfidence
	}
	if confidence != nil {
		conf = *confidence
	}
	trust := 0.0
	if origin.Trust != nil {
		trust = *origin.Trust
	}
	certainty := trust * conf
	now := s.tick()
	return &wire.FactResponse{
		ID:                uuid.New(),
		Type:              &wire.Ref{ID: ft.ID, Name: ft.Name},
		Value:             value,
		AccessMode:        accessMode,
		Origin:            &wire.Ref{ID: origin.ID, Name: origin.Name},
		AddedBy:           &wire.Ref{ID: s.origins[0].ID, Name: s.origins[0].Name},
		Organization:      &org,
		Trust:             &trust,
		Confidence:        &conf,
		Certainty:         &certainty,
		Timestamp:         &now,
		LastSeenTimestamp: &now,
		Flags:             []string{},
	}
}

func sameObject(o *wire.ObjectResponse, req *wire.ObjectRequest) bool {
	if o == nil || req == nil {
		return o == nil && req == nil
	}
	return o.Type.Name == req.Type && o.Value == req.Value
}

func (s *Server) createFact(w http.ResponseWriter, r *http.Request) {
	var req wire.FactRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, apiErr := s.addFact(req)
	if apiErr != nil {
		apiErr.write(w)
		return
	}
	writeData(w, http.StatusCreated, copyFact(f))
}

func (s *Server) addFact(req wire.FactRequest) (*wire.FactResponse, *apiError) {
	ft, ok := s.factTypes[req.Type]
	if !ok {
		return nil, invalid("fact.type.not.exist", "type", req.Type)
	}
	t := domain.FactType{Name: ft.Name, Validator: domain.ValidatorKind(ft.Validator), ValidatorParameter: ft.ValidatorParameter}
	if t.Validate(req.Value) != nil {
		return nil, invalid("fact.not.valid", "value", req.Value)
	}
	if req.AccessMode != "" && !domain.ValidAccessMode(req.AccessMode) {
		return nil, invalid("fact.not.valid", "accessMode", req.AccessMode)
	}
	if req.SourceObject == nil && req.DestinationObject == nil {
		return nil, invalid("fact.not.valid", "sourceObject", "")
	}
	if err := s.checkObject(req.SourceObject, "sourceObject"); err != nil {
		return nil, err
	}
	if err := s.checkObject(req.DestinationObject, "destinationObject"); err != nil {
		return nil, err
	}
	if !bindingAllowed(ft, requestName(req.SourceObject), requestName(req.DestinationObject), req.BidirectionalBinding) {
		return nil, invalid("fact.not.valid", "sourceObject", requestName(req.SourceObject))
	}
	origin, org, apiErr := s.attribution(req.Origin, req.Organization)
	if apiErr != nil {
		return nil, apiErr
	}

	for _, f := range s.facts {
		if f.InReferenceTo == nil && f.Type.Name == req.Type && f.Value == req.Value &&
			f.BidirectionalBinding == req.BidirectionalBinding &&
			sameObject(f.SourceObject, req.SourceObject) && sameObject(f.DestinationObject, req.DestinationObject) &&
			!slices.Contains(f.Flags, domain.FlagRetracted) {
			now := s.tick()
			f.LastSeenTimestamp = &now
			return f, nil
		}
	}

	f := s.newFact(ft, req.Value, req.AccessMode, req.Confidence, origin, org)
	f.SourceObject = s.upsertObject(req.SourceObject)
	f.DestinationObject = s.upsertObject(req.DestinationObject)
	f.BidirectionalBinding = req.BidirectionalBinding
	s.facts = append(s.facts, f)

	for _, id := range req.ACL {
		if sid, err := uuid.Parse(id); err == nil {
			s.acl[f.ID] = append(s.acl[f.ID], wire.Ref{ID: sid, Name: "subject-" + id[:8]})
		}
	}
	return f, nil
}

func (s *Server) getFact(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, apiErr := s.findFact(chi.URLParam(r, "id"))
	if apiErr != nil {
		apiErr.write(w)
		return
	}
	writeData(w, http.StatusOK, copyFact(f))
}

func (s *Server) createMeta(w http.ResponseWriter, r *http.Request) {
	var req wire.MetaFactRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, apiErr := s.findFact(chi.URLParam(r, "id"))
	if apiErr != nil {
		apiErr.write(w)
		return
	}
	ft, ok := s.factTypes[req.Type]
	if !ok {
		invalid("fact.type.not.exist", "type", req.Type).write(w)
		return
	}
	if len(ft.RelevantFactBindings) > 0 && !slices.ContainsFunc(ft.RelevantFactBindings, func(b wire.Ref) bool {
		return b.Name == parent.Type.Name
	}) {
		invalid("fact.not.valid", "type", req.Type).write(w)
		return
	}
	origin, org, apiErr := s.attribution(req.Origin, req.Organization)
	if apiErr != nil {
		apiErr.write(w)
		return
	}

	f := s.newFact(ft, req.Value, req.AccessMode, req.Confidence, origin, org)
	f.InReferenceTo = &wire.FactRefResponse{ID: parent.ID, Type: parent.Type, Value: parent.Value}
	s.facts = append(s.facts, f)
	writeData(w, http.StatusCreated, copyFact(f))
}

func parseTime(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := time.Parse(wire.TimeFormat, v)
	if err != nil {
		return nil
	}
	return &t
}

func inWindow(ts *time.Time, before, after *time.Time) bool {
	if ts == nil {
		return before == nil && after == nil
	}
	if before != nil && !ts.Before(*before) {
		return false
	}
	if after != nil && !ts.After(*after) {
		return false
	}
	return true
}

func (s *Server) listMeta(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent, apiErr := s.findFact(chi.URLParam(r, "id"))
	if apiErr != nil {
		apiErr.write(w)
		return
	}
	q := r.URL.Query()
	before, after := parseTime(q.Get("before")), parseTime(q.Get("after"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	var out []wire.FactResponse
	for _, f := range s.facts {
		if f.InReferenceTo != nil && f.InReferenceTo.ID == parent.ID && inWindow(f.Timestamp, before, after) {
			out = append(out, copyFact(f))
		}
	}
	writeList(w, out, limit)
}

func (s *Server) retractFact(w http.ResponseWriter, r *http.Request) {
	var req wire.RetractRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, apiErr := s.findFact(chi.URLParam(r, "id"))
	if apiErr != nil {
		apiErr.write(w)
		return
	}
	origin, org, apiErr := s.attribution(req.Origin, req.Organization)
	if apiErr != nil {
		apiErr.write(w)
		return
	}
	accessMode := req.AccessMode
	if accessMode == "" {
		accessMode = parent.AccessMode
	}

	retraction := s.newFact(s.factTypes[RetractionFactType], "", accessMode, nil, origin, org)
	retraction.InReferenceTo = &wire.FactRefResponse{ID: parent.ID, Type: parent.Type, Value: parent.Value}
	s.facts = append(s.facts, retraction)
	if !slices.Contains(parent.Flags, domain.FlagRetracted) {
		parent.Flags = append(parent.Flags, domain.FlagRetracted)
	}
	if req.Comment != "" {
		s.comments[retraction.ID] = append(s.comments[retraction.ID], wire.CommentResponse{
			ID: uuid.New(), Comment: req.Comment, Timestamp: retraction.Timestamp,
		})
	}
	writeData(w, http.StatusCreated, copyFact(retraction))
}

func (s *Server) getACL(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, apiErr := s.findFact(chi.URLParam(r, "id"))
	if apiErr != nil {
		apiErr.write(w)
		return
	}
	writeList(w, s.acl[f.ID], 0)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, apiErr := s.findFact(chi.URLParam(r, "id"))
	if apiErr != nil {
		apiErr.write(w)
		return
	}
	writeList(w, s.comments[f.ID], 0)
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	var req wire.CommentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, apiErr := s.findFact(chi.URLParam(r, "id"))
	if apiErr != nil {
		apiErr.write(w)
		return
	}
	if req.Comment == "" {
		invalid("comment.not.valid", "comment", "").write(w)
		return
	}
	c := wire.CommentResponse{ID: uuid.New(), Comment: req.Comment}
	if req.ReplyTo != "" {
		id, err := uuid.Parse(req.ReplyTo)
		if err != nil {
			invalid("comment.not.valid", "replyTo", req.ReplyTo).write(w)
			return
		}
		c.ReplyTo = id
	}
	now := s.tick()
	c.Timestamp = &now
	c.Origin = &wire.Ref{ID: s.origins[0].ID, Name: s.origins[0].Name}
	s.comments[f.ID] = append(s.comments[f.ID], c)
	writeData(w, http.StatusCreated, c)
}

func containsAny(filter []string, values ...string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, v := range values {
		if v != "" && slices.Contains(filter, v) {
			return true
		}
	}
	return false
}

func refValues(r *wire.Ref) []string {
	if r == nil {
		return nil
	}
	return []string{r.Name, r.ID.String()}
}

func (s *Server) matchFact(f *wire.FactResponse, req wire.FactSearchRequest) bool {
	if f.InReferenceTo != nil {
		return false
	}
	if slices.Contains(f.Flags, domain.FlagRetracted) && (req.IncludeRetracted == nil || !*req.IncludeRetracted) {
		return false
	}
	if !containsAny(req.FactType, refValues(f.Type)...) || !containsAny(req.FactValue, f.Value) {
		return false
	}
	if !containsAny(req.Origin, refValues(f.Origin)...) || !containsAny(req.Organization, refValues(f.Organization)...) {
		return false
	}
	var types, values []string
	for _, o := range []*wire.ObjectResponse{f.SourceObject, f.DestinationObject} {
		if o != nil {
			types = append(types, o.Type.Name)
			values = append(values, o.Value)
		}
	}
	if !containsAny(req.ObjectType, types...) || !containsAny(req.ObjectValue, values...) {
		return false
	}
	if req.MinimumConfidence != nil && f.Confidence != nil && *f.Confidence < *req.MinimumConfidence {
		return false
	}
	if req.Keywords != "" {
		kw := strings.ToLower(req.Keywords)
		hay := strings.ToLower(f.Value + " " + strings.Join(values, " "))
		if !strings.Contains(hay, kw) {
			return false
		}
	}
	return inWindow(f.Timestamp, parseTime(req.Before), parseTime(req.After))
}

// newestFirst returns matching facts ordered by timestamp, most recent first.
func (s *Server) newestFirst(match func(*wire.FactResponse) bool) []wire.FactResponse {
	var out []wire.FactResponse
	for _, f := range s.facts {
		if match(f) {
			out = append(out, copyFact(f))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(*out[j].Timestamp)
	})
	return out
}

func (s *Server) searchFacts(w http.ResponseWriter, r *http.Request) {
	var req wire.FactSearchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.newestFirst(func(f *wire.FactResponse) bool { return s.matchFact(f, req) })
	writeList(w, out, req.Limit)
}

// objectFromPath finds the object addressed by {id} or {type}/{value}.
func (s *Server) objectFromPath(r *http.Request) (*wire.ObjectResponse, *apiError) {
	if id := chi.URLParam(r, "id"); id != "" {
		for _, o := range s.objects {
			if o.ID.String() == id {
				return o, nil
			}
		}
		return nil, notFound("object.not.exist", id)
	}
	typ, _ := url.PathUnescape(chi.URLParam(r, "type"))
	value, _ := url.PathUnescape(chi.URLParam(r, "value"))
	if o, ok := s.objects[typ+"/"+value]; ok {
		return o, nil
	}
	return nil, notFound("object.not.exist", typ+"/"+value)
}

func touches(f *wire.FactResponse, o *wire.ObjectResponse) bool {
	return (f.SourceObject != nil && f.SourceObject.ID == o.ID) ||
		(f.DestinationObject != nil && f.DestinationObject.ID == o.ID)
}

func (s *Server) objectFacts(w http.ResponseWriter, r *http.Request) {
	var req wire.FactSearchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, apiErr := s.objectFromPath(r)
	if apiErr != nil {
		apiErr.write(w)
		return
	}
	out := s.newestFirst(func(f *wire.FactResponse) bool {
		return touches(f, o) && s.matchFact(f, req)
	})
	writeList(w, out, req.Limit)
}

// traverse records the query and returns the facts touching the start object
// followed by their other objects.
func (s *Server) traverse(w http.ResponseWriter, r *http.Request) {
	var req wire.TraverseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, apiErr := s.objectFromPath(r)
	if apiErr != nil {
		apiErr.write(w)
		return
	}
	s.lastQuery = req.Query

	var rows []any
	seen := map[uuid.UUID]bool{o.ID: true}
	var neighbours []wire.ObjectResponse
	for _, f := range s.facts {
		if f.InReferenceTo != nil || slices.Contains(f.Flags, domain.FlagRetracted) || !touches(f, o) {
			continue
		}
		rows = append(rows, copyFact(f))
		for _, n := range []*wire.ObjectResponse{f.SourceObject, f.DestinationObject} {
			if n != nil && !seen[n.ID] {
				seen[n.ID] = true
				neighbours = append(neighbours, *n)
			}
		}
	}
	for _, n := range neighbours {
		rows = append(rows, n)
	}
	writeList(w, rows, 0)
}
