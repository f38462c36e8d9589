package acttest

import (
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Harshitk-cp/actgraph/internal/domain"
	"github.com/Harshitk-cp/actgraph/internal/wire"
)

func sortedValues[T any](m map[string]*T) []T {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, *m[k])
	}
	return out
}

func (s *Server) listObjectTypes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeList(w, sortedValues(s.objectTypes), 0)
}

func (s *Server) listFactTypes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeList(w, sortedValues(s.factTypes), 0)
}

func (s *Server) createObjectType(w http.ResponseWriter, r *http.Request) {
	var req wire.ObjectTypeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Name == "" {
		invalid("object.type.not.valid", "name", "").write(w)
		return
	}
	if _, ok := s.objectTypes[req.Name]; ok {
		writeMessage(w, http.StatusConflict, "ActionError", "object.type.exist", "name", req.Name)
		return
	}
	if req.Validator == "" {
		req.Validator = string(domain.ValidatorRegex)
	}
	if !domain.ValidValidatorKind(req.Validator) {
		invalid("object.type.not.valid", "validator", req.Validator).write(w)
		return
	}
	if req.Validator == string(domain.ValidatorRegex) && req.ValidatorParameter == "" {
		req.ValidatorParameter = domain.DefaultValidatorParameter
	}
	if req.IndexOption == "" {
		req.IndexOption = "Daily"
	}
	t := &wire.ObjectTypeResponse{
		ID:                 uuid.New(),
		Name:               req.Name,
		Validator:          req.Validator,
		ValidatorParameter: req.ValidatorParameter,
		IndexOption:        req.IndexOption,
		Namespace:          &wire.Ref{Name: "Global"},
	}
	s.objectTypes[t.Name] = t
	writeData(w, http.StatusCreated, *t)
}

func (s *Server) objectTypeByID(id string) *wire.Ref {
	for _, t := range s.objectTypes {
		if t.ID.String() == id || t.Name == id {
			return &wire.Ref{ID: t.ID, Name: t.Name}
		}
	}
	return nil
}

func (s *Server) factTypeByID(id string) *wire.FactTypeResponse {
	for _, t := range s.factTypes {
		if t.ID.String() == id || t.Name == id {
			return t
		}
	}
	return nil
}

func (s *Server) objectBindings(reqs []wire.ObjectBindingRequest) ([]wire.ObjectBindingResponse, *apiError) {
	var out []wire.ObjectBindingResponse
	for _, b := range reqs {
		var resp wire.ObjectBindingResponse
		resp.BidirectionalBinding = b.BidirectionalBinding
		if b.SourceObjectType != "" {
			if resp.SourceObjectType = s.objectTypeByID(b.SourceObjectType); resp.SourceObjectType == nil {
				return nil, invalid("object.type.not.exist", "sourceObjectType", b.SourceObjectType)
			}
		}
		if b.DestinationObjectType != "" {
			if resp.DestinationObjectType = s.objectTypeByID(b.DestinationObjectType); resp.DestinationObjectType == nil {
				return nil, invalid("object.type.not.exist", "destinationObjectType", b.DestinationObjectType)
			}
		}
		out = append(out, resp)
	}
	return out, nil
}

func (s *Server) factBindings(reqs []wire.FactBindingRequest) ([]wire.Ref, *apiError) {
	var out []wire.Ref
	for _, b := range reqs {
		t := s.factTypeByID(b.FactType)
		if t == nil {
			return nil, invalid("fact.type.not.exist", "factType", b.FactType)
		}
		out = append(out, wire.Ref{ID: t.ID, Name: t.Name})
	}
	return out, nil
}

func refName(r *wire.Ref) string {
	if r == nil {
		return ""
	}
	return r.Name
}

func sameBinding(a, b wire.ObjectBindingResponse) bool {
	return refName(a.SourceObjectType) == refName(b.SourceObjectType) &&
		refName(a.DestinationObjectType) == refName(b.DestinationObjectType) &&
		a.BidirectionalBinding == b.BidirectionalBinding
}

func (s *Server) createFactType(w http.ResponseWriter, r *http.Request) {
	var req wire.FactTypeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Name == "" {
		invalid("fact.type.not.valid", "name", "").write(w)
		return
	}
	if _, ok := s.factTypes[req.Name]; ok {
		writeMessage(w, http.StatusConflict, "ActionError", "fact.type.exist", "name", req.Name)
		return
	}
	if req.DefaultConfidence != nil && (*req.DefaultConfidence < 0 || *req.DefaultConfidence > 1) {
		invalid("fact.type.not.valid", "defaultConfidence", strconv.FormatFloat(*req.DefaultConfidence, 'g', -1, 64)).write(w)
		return
	}
	objectBindings, apiErr := s.objectBindings(req.RelevantObjectBindings)
	if apiErr != nil {
		apiErr.write(w)
		return
	}
	factBindings, apiErr := s.factBindings(req.RelevantFactBindings)
	if apiErr != nil {
		apiErr.write(w)
		return
	}
	if req.Validator == "" {
		req.Validator = string(domain.ValidatorRegex)
	}
	if req.Validator == string(domain.ValidatorRegex) && req.ValidatorParameter == "" {
		req.ValidatorParameter = domain.DefaultValidatorParameter
	}

	t := &wire.FactTypeResponse{
		ID:                     uuid.New(),
		Name:                   req.Name,
		Validator:              req.Validator,
		ValidatorParameter:     req.ValidatorParameter,
		DefaultConfidence:      req.DefaultConfidence,
		Namespace:              &wire.Ref{Name: "Global"},
		RelevantObjectBindings: objectBindings,
		RelevantFactBindings:   factBindings,
	}
	s.factTypes[t.Name] = t
	writeData(w, http.StatusCreated, *t)
}

func (s *Server) updateFactType(w http.ResponseWriter, r *http.Request) {
	var req wire.FactTypeUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")
	var t *wire.FactTypeResponse
	for _, ft := range s.factTypes {
		if ft.ID.String() == id {
			t = ft
		}
	}
	if t == nil {
		notFound("fact.type.not.exist", id).write(w)
		return
	}

	objectBindings, apiErr := s.objectBindings(req.AddObjectBindings)
	if apiErr != nil {
		apiErr.write(w)
		return
	}
	factBindings, apiErr := s.factBindings(req.AddFactBindings)
	if apiErr != nil {
		apiErr.write(w)
		return
	}
	if req.Name != "" && req.Name != t.Name {
		if _, ok := s.factTypes[req.Name]; ok {
			writeMessage(w, http.StatusConflict, "ActionError", "fact.type.exist", "name", req.Name)
			return
		}
		delete(s.factTypes, t.Name)
		t.Name = req.Name
		s.factTypes[t.Name] = t
	}
	for _, b := range objectBindings {
		if !slices.ContainsFunc(t.RelevantObjectBindings, func(e wire.ObjectBindingResponse) bool { return sameBinding(e, b) }) {
			t.RelevantObjectBindings = append(t.RelevantObjectBindings, b)
		}
	}
	for _, b := range factBindings {
		if !slices.ContainsFunc(t.RelevantFactBindings, func(e wire.Ref) bool { return e.ID == b.ID }) {
			t.RelevantFactBindings = append(t.RelevantFactBindings, b)
		}
	}
	writeData(w, http.StatusOK, *t)
}

// statistics summarises the live facts touching o, per fact type.
func (s *Server) statistics(o *wire.ObjectResponse) []wire.StatisticsResponse {
	byType := map[string]*wire.StatisticsResponse{}
	var order []string
	for _, f := range s.facts {
		if f.InReferenceTo != nil || slices.Contains(f.Flags, domain.FlagRetracted) || !touches(f, o) {
			continue
		}
		st, ok := byType[f.Type.Name]
		if !ok {
			st = &wire.StatisticsResponse{Type: f.Type}
			byType[f.Type.Name] = st
			order = append(order, f.Type.Name)
		}
		st.Count++
		st.LastAddedTimestamp = f.Timestamp
		st.LastSeenTimestamp = f.LastSeenTimestamp
	}
	out := make([]wire.StatisticsResponse, 0, len(order))
	for _, name := range order {
		out = append(out, *byType[name])
	}
	return out
}

func (s *Server) withStatistics(o *wire.ObjectResponse) wire.ObjectResponse {
	c := *o
	c.Statistics = s.statistics(o)
	return c
}

func (s *Server) matchObject(o *wire.ObjectResponse, req wire.ObjectSearchRequest) bool {
	if !containsAny(req.ObjectType, o.Type.Name, o.Type.ID.String()) || !containsAny(req.ObjectValue, o.Value) {
		return false
	}
	if req.Keywords != "" && !strings.Contains(strings.ToLower(o.Value), strings.ToLower(req.Keywords)) {
		return false
	}
	if len(req.FactType) == 0 && len(req.FactValue) == 0 && len(req.Origin) == 0 && len(req.Organization) == 0 &&
		req.Before == "" && req.After == "" {
		return true
	}
	before, after := parseTime(req.Before), parseTime(req.After)
	for _, f := range s.facts {
		if f.InReferenceTo != nil || !touches(f, o) {
			continue
		}
		if containsAny(req.FactType, refValues(f.Type)...) && containsAny(req.FactValue, f.Value) &&
			containsAny(req.Origin, refValues(f.Origin)...) && containsAny(req.Organization, refValues(f.Organization)...) &&
			inWindow(f.Timestamp, before, after) {
			return true
		}
	}
	return false
}

func (s *Server) searchObjects(w http.ResponseWriter, r *http.Request) {
	var req wire.ObjectSearchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []wire.ObjectResponse
	for _, k := range keys {
		if o := s.objects[k]; s.matchObject(o, req) {
			out = append(out, s.withStatistics(o))
		}
	}
	writeList(w, out, req.Limit)
}

func (s *Server) getObject(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, apiErr := s.objectFromPath(r)
	if apiErr != nil {
		apiErr.write(w)
		return
	}
	writeData(w, http.StatusOK, s.withStatistics(o))
}

func copyOrigin(o *wire.OriginResponse) wire.OriginResponse {
	c := *o
	c.Flags = slices.Clone(o.Flags)
	if c.Flags == nil {
		c.Flags = []string{}
	}
	return c
}

func (s *Server) listOrigins(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := r.URL.Query()
	includeDeleted := q.Get("includeDeleted") == "true"
	limit, _ := strconv.Atoi(q.Get("limit"))

	var out []wire.OriginResponse
	for _, o := range s.origins {
		if !includeDeleted && slices.Contains(o.Flags, domain.FlagDeleted) {
			continue
		}
		out = append(out, copyOrigin(o))
	}
	writeList(w, out, limit)
}

func (s *Server) createOrigin(w http.ResponseWriter, r *http.Request) {
	var req wire.OriginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Name == "" {
		invalid("origin.not.valid", "name", "").write(w)
		return
	}
	if req.Trust != nil && (*req.Trust < 0 || *req.Trust > 1) {
		invalid("origin.not.valid", "trust", strconv.FormatFloat(*req.Trust, 'g', -1, 64)).write(w)
		return
	}
	for _, o := range s.origins {
		if o.Name == req.Name && !slices.Contains(o.Flags, domain.FlagDeleted) {
			writeMessage(w, http.StatusConflict, "ActionError", "origin.exist", "name", req.Name)
			return
		}
	}
	org := s.organizations[0]
	if req.Organization != "" {
		var ok bool
		if org, ok = s.findOrganization(req.Organization); !ok {
			invalid("organization.not.exist", "organization", req.Organization).write(w)
			return
		}
	}
	trust := 0.8
	if req.Trust != nil {
		trust = *req.Trust
	}
	o := &wire.OriginResponse{
		ID:           uuid.New(),
		Name:         req.Name,
		Namespace:    &wire.Ref{ID: uuid.New(), Name: "Global"},
		Organization: &org,
		Description:  req.Description,
		Trust:        &trust,
		Type:         "Group",
		Flags:        []string{},
	}
	s.origins = append(s.origins, o)
	writeData(w, http.StatusCreated, copyOrigin(o))
}

func (s *Server) originFromPath(r *http.Request) (*wire.OriginResponse, *apiError) {
	id := chi.URLParam(r, "id")
	for _, o := range s.origins {
		if o.ID.String() == id {
			return o, nil
		}
	}
	return nil, notFound("origin.not.exist", id)
}

func (s *Server) getOrigin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, apiErr := s.originFromPath(r)
	if apiErr != nil {
		apiErr.write(w)
		return
	}
	writeData(w, http.StatusOK, copyOrigin(o))
}

func (s *Server) deleteOrigin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, apiErr := s.originFromPath(r)
	if apiErr != nil {
		apiErr.write(w)
		return
	}
	if !slices.Contains(o.Flags, domain.FlagDeleted) {
		o.Flags = append(o.Flags, domain.FlagDeleted)
	}
	writeData(w, http.StatusOK, copyOrigin(o))
}
