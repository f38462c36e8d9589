package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectTypeValidate(t *testing.T) {
	tests := []struct {
		name    string
		typ     ObjectType
		value   string
		wantErr bool
	}{
		{"default pattern", ObjectType{Name: "report"}, "multi\nline", false},
		{"regex full match", ObjectType{Name: "port", Validator: ValidatorRegex, ValidatorParameter: `\d+`}, "443", false},
		{"regex partial match rejected", ObjectType{Name: "port", Validator: ValidatorRegex, ValidatorParameter: `\d+`}, "443x", true},
		{"alternation anchored", ObjectType{Name: "scheme", ValidatorParameter: `http|https`}, "httpsx", true},
		{"true validator", ObjectType{Name: "any", Validator: ValidatorTrue}, "", false},
		{"unsupported pattern deferred", ObjectType{Name: "odd", ValidatorParameter: `(?<=a)b`}, "b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.typ.Validate(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestFactTypeAllowsObjects(t *testing.T) {
	uri := &ObjectType{Name: "uri"}
	fqdn := &ObjectType{Name: "fqdn"}
	ft := FactType{
		Name: "componentOf",
		RelevantObjectBindings: []ObjectBinding{
			{SourceObjectType: fqdn, DestinationObjectType: uri},
		},
	}

	allowed, ok := ft.AllowsObjects("fqdn", "uri", false)
	assert.True(t, ok)
	assert.True(t, allowed)

	allowed, ok = ft.AllowsObjects("uri", "fqdn", false)
	assert.True(t, ok)
	assert.False(t, allowed)

	_, ok = FactType{Name: "unknown"}.AllowsObjects("uri", "fqdn", false)
	assert.False(t, ok)
}

func TestObjectBindingEqual(t *testing.T) {
	a := ObjectBinding{SourceObjectType: &ObjectType{Name: "uri"}, DestinationObjectType: &ObjectType{Name: "fqdn"}}
	b := ObjectBinding{SourceObjectType: &ObjectType{Name: "uri"}, DestinationObjectType: &ObjectType{Name: "fqdn"}}
	c := ObjectBinding{SourceObjectType: &ObjectType{Name: "uri"}}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, "uri -> fqdn", a.String())
}

func TestObjectIdentity(t *testing.T) {
	a := NewObject("ipv4", "127.0.0.1")
	b := &Object{Type: ObjectType{Name: "ipv4"}, Value: "127.0.0.1"}

	assert.True(t, a.Equal(b))
	assert.Equal(t, "(ipv4/127.0.0.1)", a.String())
	assert.False(t, a.IsPlaceholder())
	assert.True(t, NewObject("incident", "*").IsPlaceholder())
}

func TestObjectValidateResolvedPlaceholder(t *testing.T) {
	digest := ObjectType{Name: "content", ValidatorParameter: `[0-9a-f]{64}`}

	tests := []struct {
		name     string
		value    string
		resolved bool
		wantErr  bool
	}{
		{"resolved placeholder", ResolvedPlaceholder("45e6ee"), true, false},
		{"unresolved placeholder", PlaceholderValue, false, false},
		{"empty fingerprint", "[placeholder[]]", false, true},
		{"prefix only", "[placeholder[abc", false, true},
		{"plain value", "abc", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Object{Type: digest, Value: tt.value}
			assert.Equal(t, tt.resolved, o.IsResolvedPlaceholder())
			if tt.wantErr {
				assert.Error(t, o.Validate())
			} else {
				assert.NoError(t, o.Validate())
			}
		})
	}
}

func TestOriginValidate(t *testing.T) {
	assert.NoError(t, NewOrigin("my-origin").WithTrust(0.8).Validate())
	assert.Error(t, NewOrigin("my-origin").WithTrust(1.2).Validate())
	assert.Error(t, NewOrigin("").Validate())
}
