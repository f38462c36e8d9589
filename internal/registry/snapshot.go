package registry

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Harshitk-cp/actgraph/internal/domain"
)

// Snapshot is the YAML form of a type catalogue. Bindings refer to types by
// name so a snapshot can be edited by hand and loaded offline.
type Snapshot struct {
	ObjectTypes []ObjectTypeEntry `yaml:"objectTypes"`
	FactTypes   []FactTypeEntry   `yaml:"factTypes"`
}

type ObjectTypeEntry struct {
	ID                 string `yaml:"id,omitempty"`
	Name               string `yaml:"name"`
	Validator          string `yaml:"validator,omitempty"`
	ValidatorParameter string `yaml:"validatorParameter,omitempty"`
	IndexOption        string `yaml:"indexOption,omitempty"`
}

type BindingEntry struct {
	Source        string `yaml:"source,omitempty"`
	Destination   string `yaml:"destination,omitempty"`
	Bidirectional bool   `yaml:"bidirectional,omitempty"`
}

type FactTypeEntry struct {
	ID                 string         `yaml:"id,omitempty"`
	Name               string         `yaml:"name"`
	Validator          string         `yaml:"validator,omitempty"`
	ValidatorParameter string         `yaml:"validatorParameter,omitempty"`
	DefaultConfidence  *float64       `yaml:"defaultConfidence,omitempty"`
	ObjectBindings     []BindingEntry `yaml:"objectBindings,omitempty"`
	FactBindings       []string       `yaml:"factBindings,omitempty"`
}

func formatID(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func parseID(kind, name, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, &domain.ValidationError{Field: kind + ".id", Value: s, Message: fmt.Sprintf("type %q has an invalid id", name)}
	}
	return id, nil
}

func bindingName(t *domain.ObjectType) string {
	if t == nil {
		return ""
	}
	return t.Name
}

// NewSnapshot captures the given types.
func NewSnapshot(objectTypes []domain.ObjectType, factTypes []domain.FactType) Snapshot {
	var s Snapshot
	for _, t := range objectTypes {
		s.ObjectTypes = append(s.ObjectTypes, ObjectTypeEntry{
			ID:                 formatID(t.ID),
			Name:               t.Name,
			Validator:          string(t.Validator),
			ValidatorParameter: t.ValidatorParameter,
			IndexOption:        t.IndexOption,
		})
	}
	for _, t := range factTypes {
		e := FactTypeEntry{
			ID:                 formatID(t.ID),
			Name:               t.Name,
			Validator:          string(t.Validator),
			ValidatorParameter: t.ValidatorParameter,
			DefaultConfidence:  t.DefaultConfidence,
		}
		for _, b := range t.RelevantObjectBindings {
			e.ObjectBindings = append(e.ObjectBindings, BindingEntry{
				Source:        bindingName(b.SourceObjectType),
				Destination:   bindingName(b.DestinationObjectType),
				Bidirectional: b.BidirectionalBinding,
			})
		}
		for _, b := range t.RelevantFactBindings {
			e.FactBindings = append(e.FactBindings, b.Name)
		}
		s.FactTypes = append(s.FactTypes, e)
	}
	return s
}

// Export writes the types known to reg as a YAML snapshot.
func Export(ctx context.Context, reg domain.TypeRegistry, w io.Writer) error {
	objectTypes, err := reg.ListObjectTypes(ctx)
	if err != nil {
		return err
	}
	factTypes, err := reg.ListFactTypes(ctx)
	if err != nil {
		return err
	}
	return WriteSnapshot(w, NewSnapshot(objectTypes, factTypes))
}

func WriteSnapshot(w io.Writer, s Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return enc.Close()
}

// LoadSnapshot reads a YAML snapshot and returns a registry serving it.
// Binding endpoints are resolved against the snapshot's object types; an
// endpoint naming an unknown type is an error.
func LoadSnapshot(r io.Reader) (*Static, error) {
	var s Snapshot
	if err := yaml.NewDecoder(r).Decode(&s); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	objectTypes := make([]domain.ObjectType, 0, len(s.ObjectTypes))
	byName := map[string]domain.ObjectType{}
	for _, e := range s.ObjectTypes {
		id, err := parseID("objectType", e.Name, e.ID)
		if err != nil {
			return nil, err
		}
		t := domain.ObjectType{
			ID:                 id,
			Name:               e.Name,
			Validator:          domain.ValidatorKind(e.Validator),
			ValidatorParameter: e.ValidatorParameter,
			IndexOption:        e.IndexOption,
		}
		objectTypes = append(objectTypes, t)
		byName[t.Name] = t
	}

	endpoint := func(name string) (*domain.ObjectType, error) {
		if name == "" {
			return nil, nil
		}
		t, ok := byName[name]
		if !ok {
			return nil, &domain.TypeResolutionError{Kind: "object", Name: name}
		}
		return &t, nil
	}

	factIDs := map[string]uuid.UUID{}
	for _, e := range s.FactTypes {
		id, err := parseID("factType", e.Name, e.ID)
		if err != nil {
			return nil, err
		}
		factIDs[e.Name] = id
	}

	factTypes := make([]domain.FactType, 0, len(s.FactTypes))
	for _, e := range s.FactTypes {
		t := domain.FactType{
			ID:                 factIDs[e.Name],
			Name:               e.Name,
			Validator:          domain.ValidatorKind(e.Validator),
			ValidatorParameter: e.ValidatorParameter,
			DefaultConfidence:  e.DefaultConfidence,
		}
		for _, b := range e.ObjectBindings {
			src, err := endpoint(b.Source)
			if err != nil {
				return nil, err
			}
			dst, err := endpoint(b.Destination)
			if err != nil {
				return nil, err
			}
			t.RelevantObjectBindings = append(t.RelevantObjectBindings, domain.ObjectBinding{
				SourceObjectType:      src,
				DestinationObjectType: dst,
				BidirectionalBinding:  b.Bidirectional,
			})
		}
		for _, name := range e.FactBindings {
			id, ok := factIDs[name]
			if !ok {
				return nil, &domain.TypeResolutionError{Kind: "fact", Name: name}
			}
			t.RelevantFactBindings = append(t.RelevantFactBindings, domain.FactBinding{ID: id, Name: name})
		}
		factTypes = append(factTypes, t)
	}

	return NewStatic(objectTypes, factTypes), nil
}
