// Package wire maps between domain entities and the JSON payloads exchanged
// with the platform. Submit payloads carry names and values only; retrieved
// payloads carry resolved ids, nested descriptors and timestamps.
package wire

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/Harshitk-cp/actgraph/internal/domain"
)

// Ref is a reference that the platform renders either as a bare string (a
// name or an id) or as a nested {id, name} descriptor.
type Ref struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if id, err := uuid.Parse(s); err == nil {
			r.ID = id
			return nil
		}
		r.Name = s
		return nil
	}
	type plain Ref
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = Ref(p)
	return nil
}

// refValue renders a reference for a submit payload, preferring the id.
func refValue(id uuid.UUID, name string) string {
	if id != uuid.Nil {
		return id.String()
	}
	return name
}

func (r *Ref) nameSpace() *domain.NameSpace {
	if r == nil {
		return nil
	}
	return &domain.NameSpace{ID: r.ID, Name: r.Name}
}

func (r *Ref) organization() *domain.Organization {
	if r == nil {
		return nil
	}
	return &domain.Organization{ID: r.ID, Name: r.Name}
}

func (r *Ref) objectType() domain.ObjectType {
	if r == nil {
		return domain.ObjectType{}
	}
	return domain.ObjectType{ID: r.ID, Name: r.Name}
}

func (r *Ref) factType() domain.FactType {
	if r == nil {
		return domain.FactType{}
	}
	return domain.FactType{ID: r.ID, Name: r.Name}
}

// decodeList decodes a JSON array, mapping each element with fn.
func decodeList[R any, T any](raw json.RawMessage, fn func(*R) T) ([]T, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var rs []R
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rs))
	for i := range rs {
		out = append(out, fn(&rs[i]))
	}
	return out, nil
}

func decodeOne[R any, T any](raw json.RawMessage, fn func(*R) T) (T, error) {
	var r R
	if err := json.Unmarshal(raw, &r); err != nil {
		var zero T
		return zero, err
	}
	return fn(&r), nil
}
