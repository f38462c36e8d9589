package domain

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/google/uuid"
)

// DefaultValidatorParameter accepts any value, including multi-line values.
const DefaultValidatorParameter = `(.|\n)*`

type ValidatorKind string

const (
	ValidatorRegex ValidatorKind = "RegexValidator"
	ValidatorTrue  ValidatorKind = "TrueValidator"
	ValidatorNull  ValidatorKind = "NullValidator"
)

func ValidValidatorKind(k string) bool {
	switch ValidatorKind(k) {
	case ValidatorRegex, ValidatorTrue, ValidatorNull:
		return true
	}
	return false
}

type NameSpace struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Organization struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Subject is a user or role granted access to an explicit fact.
type Subject struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type ObjectType struct {
	ID                 uuid.UUID     `json:"id"`
	Name               string        `json:"name"`
	Validator          ValidatorKind `json:"validator,omitempty"`
	ValidatorParameter string        `json:"validator_parameter,omitempty"`
	IndexOption        string        `json:"index_option,omitempty"`
	Namespace          *NameSpace    `json:"namespace,omitempty"`
}

// Validate checks value against the type's validator.
func (t ObjectType) Validate(value string) error {
	return validateValue("object", t.Name, t.Validator, t.ValidatorParameter, value)
}

// ObjectBinding declares a legal (source, destination) object type pair for a
// fact type. A nil side means the fact carries no object on that side.
type ObjectBinding struct {
	SourceObjectType      *ObjectType `json:"source_object_type,omitempty"`
	DestinationObjectType *ObjectType `json:"destination_object_type,omitempty"`
	BidirectionalBinding  bool        `json:"bidirectional_binding"`
}

func (b ObjectBinding) sourceName() string {
	if b.SourceObjectType == nil {
		return ""
	}
	return b.SourceObjectType.Name
}

func (b ObjectBinding) destinationName() string {
	if b.DestinationObjectType == nil {
		return ""
	}
	return b.DestinationObjectType.Name
}

// Matches reports whether the binding allows a fact from src to dst.
// Bidirectional bindings match in either order.
func (b ObjectBinding) Matches(src, dst string, bidirectional bool) bool {
	if b.BidirectionalBinding != bidirectional {
		return false
	}
	if b.sourceName() == src && b.destinationName() == dst {
		return true
	}
	return bidirectional && b.sourceName() == dst && b.destinationName() == src
}

// Equal compares bindings by object type names.
func (b ObjectBinding) Equal(o ObjectBinding) bool {
	return b.sourceName() == o.sourceName() &&
		b.destinationName() == o.destinationName() &&
		b.BidirectionalBinding == o.BidirectionalBinding
}

func (b ObjectBinding) String() string {
	arrow := "->"
	if b.BidirectionalBinding {
		arrow = "<->"
	}
	return fmt.Sprintf("%s %s %s", b.sourceName(), arrow, b.destinationName())
}

// FactBinding names a fact type a meta fact type may reference.
type FactBinding struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type FactType struct {
	ID                     uuid.UUID       `json:"id"`
	Name                   string          `json:"name"`
	Validator              ValidatorKind   `json:"validator,omitempty"`
	ValidatorParameter     string          `json:"validator_parameter,omitempty"`
	DefaultConfidence      *float64        `json:"default_confidence,omitempty"`
	Namespace              *NameSpace      `json:"namespace,omitempty"`
	RelevantObjectBindings []ObjectBinding `json:"relevant_object_bindings,omitempty"`
	RelevantFactBindings   []FactBinding   `json:"relevant_fact_bindings,omitempty"`
}

// Validate checks value against the type's validator.
func (t FactType) Validate(value string) error {
	return validateValue("fact", t.Name, t.Validator, t.ValidatorParameter, value)
}

// AllowsObjects reports whether the type's relevant bindings permit a fact
// between the given object types. ok is false when the type carries no
// binding information, in which case the check is left to the server.
func (t FactType) AllowsObjects(src, dst string, bidirectional bool) (allowed, ok bool) {
	if len(t.RelevantObjectBindings) == 0 {
		return false, false
	}
	for _, b := range t.RelevantObjectBindings {
		if b.Matches(src, dst, bidirectional) {
			return true, true
		}
	}
	return false, true
}

// AllowsFact reports whether a meta fact of this type may reference a fact of
// the named type. ok is false when no fact bindings are known.
func (t FactType) AllowsFact(name string) (allowed, ok bool) {
	if len(t.RelevantFactBindings) == 0 {
		return false, false
	}
	for _, b := range t.RelevantFactBindings {
		if b.Name == name {
			return true, true
		}
	}
	return false, true
}

var (
	patternMu    sync.RWMutex
	patternCache = map[string]*regexp.Regexp{}
)

func compilePattern(p string) (*regexp.Regexp, error) {
	patternMu.RLock()
	re, ok := patternCache[p]
	patternMu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(`^(?:` + p + `)$`)
	if err != nil {
		return nil, err
	}

	patternMu.Lock()
	patternCache[p] = re
	patternMu.Unlock()
	return re, nil
}

func validateValue(kind, typeName string, validator ValidatorKind, param, value string) error {
	switch validator {
	case ValidatorTrue:
		return nil
	case ValidatorNull:
		if value != "" {
			return &ValidationError{
				Field:   kind + ".value",
				Value:   value,
				Message: fmt.Sprintf("%s type %q does not accept a value", kind, typeName),
			}
		}
		return nil
	case "", ValidatorRegex:
		if param == "" {
			param = DefaultValidatorParameter
		}
		re, err := compilePattern(param)
		if err != nil {
			// Server side patterns may use syntax RE2 does not support.
			return nil
		}
		if !re.MatchString(value) {
			return &ValidationError{
				Field:   kind + ".value",
				Value:   value,
				Message: fmt.Sprintf("value does not match %s type %q validator %q", kind, typeName, param),
			}
		}
		return nil
	default:
		return nil
	}
}
