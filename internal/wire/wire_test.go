package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshitk-cp/actgraph/internal/domain"
)

func TestEncodeFactPayload(t *testing.T) {
	f := domain.NewFact(domain.FactType{Name: "mentions"}, "").
		Source("report", "R1").
		Destination("ipv4", "1.2.3.4")

	b, err := json.Marshal(EncodeFact(f))
	require.NoError(t, err)

	want := `{"type":"mentions","value":"","accessMode":"RoleBased","sourceObject":{"type":"report","value":"R1"},"destinationObject":{"type":"ipv4","value":"1.2.3.4"},"bidirectionalBinding":false}`
	assert.Equal(t, want, string(b))
}

func TestEncodeFactOptionalFields(t *testing.T) {
	originID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	f := domain.NewFact(domain.FactType{Name: "alias"}, "").
		Bidirectional("threatActor", "a", "threatActor", "b").
		WithOrigin(&domain.Origin{ID: originID, Name: "ignored"}).
		WithOrganization(domain.Organization{Name: "mnemonic"}).
		WithConfidence(0.5)

	b, err := json.Marshal(EncodeFact(f))
	require.NoError(t, err)

	want := `{"type":"alias","value":"","accessMode":"RoleBased","origin":"00000000-0000-0000-0000-000000000001","organization":"mnemonic","confidence":0.5,"sourceObject":{"type":"threatActor","value":"a"},"destinationObject":{"type":"threatActor","value":"b"},"bidirectionalBinding":true}`
	assert.Equal(t, want, string(b))
}

func TestEncodeMetaFactOmitsObjects(t *testing.T) {
	parent := domain.NewFact(domain.FactType{Name: "mentions"}, "")
	parent.ID = uuid.New()
	meta, err := parent.Meta(domain.FactType{Name: "observationTime"}, "2019")
	require.NoError(t, err)

	b, err := json.Marshal(EncodeMetaFact(meta))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"observationTime","value":"2019","accessMode":"RoleBased"}`, string(b))
}

func TestObjectSubmitRoundTrip(t *testing.T) {
	objects := []*domain.Object{
		domain.NewObject("ipv4", "127.0.0.1"),
		domain.NewObject("report", "multi\nline \"quoted\""),
		{ID: uuid.New(), Type: domain.ObjectType{ID: uuid.New(), Name: "fqdn"}, Value: "example.com"},
	}

	for _, o := range objects {
		first, err := json.Marshal(EncodeObject(o))
		require.NoError(t, err)

		decoded, err := DecodeObject(first)
		require.NoError(t, err)

		second, err := json.Marshal(EncodeObject(decoded))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(second))
	}
}

func TestFactSubmitRoundTrip(t *testing.T) {
	facts := []*domain.Fact{
		domain.NewFact(domain.FactType{Name: "mentions"}, "").Source("report", "R1").Destination("ipv4", "1.2.3.4"),
		domain.NewFact(domain.FactType{Name: "alias"}, "").Bidirectional("threatActor", "a", "threatActor", "b").WithOriginName("osint"),
		domain.NewFact(domain.FactType{Name: "name"}, "Sofacy").Source("threatActor", "APT28").WithAccessMode(domain.AccessPublic),
	}

	for _, f := range facts {
		first, err := json.Marshal(EncodeFact(f))
		require.NoError(t, err)

		decoded, err := DecodeFact(first)
		require.NoError(t, err)
		assert.Equal(t, f.Type.Name, decoded.Type.Name)
		assert.Equal(t, f.Value, decoded.Value)
		assert.True(t, f.SourceObject.Equal(decoded.SourceObject))
		assert.True(t, f.DestinationObject.Equal(decoded.DestinationObject))
		assert.Equal(t, f.BidirectionalBinding, decoded.BidirectionalBinding)

		second, err := json.Marshal(EncodeFact(decoded))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(second))
	}
}

const retrievedFact = `{
  "id": "2f16e6f5-c7b1-4b1b-9b1d-1c2a4e2c7c13",
  "type": {"id": "ef1a0ab3-5b2d-4b0f-8e9d-26ec6b5a5b61", "name": "mentions", "extra": 1},
  "value": "",
  "inReferenceTo": null,
  "organization": {"id": "00000000-0000-0000-0000-000000000001", "name": "Test Organization 1"},
  "origin": {"id": "00000000-0000-0000-0000-000000000002", "name": "John Doe"},
  "addedBy": {"id": "00000000-0000-0000-0000-000000000003", "name": "John Doe"},
  "accessMode": "RoleBased",
  "trust": 0.8,
  "confidence": 1.0,
  "certainty": 0.8,
  "timestamp": "2019-09-23T18:19:26.476Z",
  "lastSeenTimestamp": "2019-09-23T18:19:26.476Z",
  "sourceObject": {"id": "9d1b3c6e-5c44-4c3f-a0ff-8c2f1a8f6e11", "type": {"id": "6e6f6a3b-57a1-45b4-9f8b-4bb8e4a8b9d0", "name": "report"}, "value": "R1"},
  "destinationObject": {"id": "b7f2e8a4-0a1b-4c8f-9a55-1a3b5c7d9e11", "type": {"id": "0e1c7a7f-5b3d-4b1c-9a0e-4f2d7b8c6a21", "name": "ipv4"}, "value": "1.2.3.4"},
  "bidirectionalBinding": false,
  "flags": [],
  "somethingNew": {"nested": true}
}`

func TestDecodeFactRetrieved(t *testing.T) {
	f, err := DecodeFact(json.RawMessage(retrievedFact))
	require.NoError(t, err)

	assert.Equal(t, "2f16e6f5-c7b1-4b1b-9b1d-1c2a4e2c7c13", f.ID.String())
	assert.Equal(t, "mentions", f.Type.Name)
	assert.NotEqual(t, uuid.Nil, f.Type.ID)
	assert.Equal(t, domain.AccessRoleBased, f.AccessMode)
	assert.Equal(t, "Test Organization 1", f.Organization.Name)
	assert.Equal(t, "John Doe", f.Origin.Name)
	require.NotNil(t, f.Trust)
	assert.InDelta(t, 0.8, *f.Trust, 1e-9)
	require.NotNil(t, f.Timestamp)
	assert.Equal(t, time.Date(2019, 9, 23, 18, 19, 26, 476000000, time.UTC), f.Timestamp.UTC())
	assert.Equal(t, "ipv4", f.DestinationObject.Type.Name)
	assert.Nil(t, f.InReferenceTo)
	assert.False(t, f.Retracted())
}

func TestDecodeFactLeavesAbsentFieldsUnset(t *testing.T) {
	f, err := DecodeFact(json.RawMessage(`{"type":"mentions"}`))
	require.NoError(t, err)

	assert.Equal(t, domain.AccessMode(""), f.AccessMode)
	assert.Nil(t, f.Origin)
	assert.Nil(t, f.Organization)
	assert.Nil(t, f.Confidence)
	assert.Nil(t, f.Timestamp)
	assert.Nil(t, f.SourceObject)
}

func TestRefAcceptsStringOrObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantName string
		wantID   bool
	}{
		{"name string", `"osint"`, "osint", false},
		{"uuid string", `"00000000-0000-0000-0000-000000000002"`, "", true},
		{"object", `{"id":"00000000-0000-0000-0000-000000000002","name":"osint"}`, "osint", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Ref
			require.NoError(t, json.Unmarshal([]byte(tt.input), &r))
			assert.Equal(t, tt.wantName, r.Name)
			assert.Equal(t, tt.wantID, r.ID != uuid.Nil)
		})
	}
}

func TestDecodeFactTypeBindings(t *testing.T) {
	raw := `{
	  "id": "ef1a0ab3-5b2d-4b0f-8e9d-26ec6b5a5b61",
	  "name": "observedIn",
	  "validator": "RegexValidator",
	  "validatorParameter": "(.|\\n)*",
	  "namespace": {"id": "61c8c9fd-0000-0000-0000-000000000000", "name": "Global"},
	  "relevantObjectBindings": [
	    {"sourceObjectType": {"id": "6e6f6a3b-57a1-45b4-9f8b-4bb8e4a8b9d0", "name": "uri"}, "destinationObjectType": {"id": "0e1c7a7f-5b3d-4b1c-9a0e-4f2d7b8c6a21", "name": "incident"}, "bidirectionalBinding": false}
	  ],
	  "relevantFactBindings": null
	}`

	ft, err := DecodeFactType(json.RawMessage(raw))
	require.NoError(t, err)
	assert.Equal(t, domain.ValidatorRegex, ft.Validator)
	assert.Equal(t, "Global", ft.Namespace.Name)
	require.Len(t, ft.RelevantObjectBindings, 1)

	allowed, ok := ft.AllowsObjects("uri", "incident", false)
	assert.True(t, ok)
	assert.True(t, allowed)
}

func TestEncodeFactQuery(t *testing.T) {
	before := time.Date(2016, 9, 28, 21, 26, 22, 0, time.UTC)
	req := EncodeFactQuery(domain.FactQuery{
		FactTypes:    []string{"mentions"},
		ObjectValues: []string{"1.2.3.4"},
		Before:       &before,
	})

	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"factType":["mentions"],"objectValue":["1.2.3.4"],"before":"2016-09-28T21:26:22Z","limit":25}`, string(b))

	req = EncodeFactQuery(domain.FactQuery{IncludeRetracted: true, Limit: 2000})
	b, err = json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"includeRetracted":true,"limit":2000}`, string(b))
}

func TestEncodeMetaQuery(t *testing.T) {
	after := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	v := EncodeMetaQuery(domain.MetaQuery{After: &after, Limit: 10})
	assert.Equal(t, "after=2020-01-02T03%3A04%3A05Z&limit=10", v.Encode())
	assert.Empty(t, EncodeMetaQuery(domain.MetaQuery{}).Encode())
}

func TestDecodeTraversal(t *testing.T) {
	raw := `[
	  {"id":"9d1b3c6e-5c44-4c3f-a0ff-8c2f1a8f6e11","type":{"name":"threatActor"},"value":"APT1"},
	  {"id":"2f16e6f5-c7b1-4b1b-9b1d-1c2a4e2c7c13","type":{"name":"alias"},"value":"","accessMode":"Public","sourceObject":{"type":{"name":"threatActor"},"value":"APT1"}},
	  "a plain value",
	  42
	]`

	els, err := DecodeTraversal(json.RawMessage(raw))
	require.NoError(t, err)
	require.Len(t, els, 4)

	require.NotNil(t, els[0].Object)
	assert.Equal(t, "threatActor", els[0].Object.Type.Name)
	require.NotNil(t, els[1].Fact)
	assert.Equal(t, "alias", els[1].Fact.Type.Name)
	assert.Equal(t, `"a plain value"`, string(els[2].Raw))
	assert.Equal(t, "42", string(els[3].Raw))
}

func TestEncodeFactTypeBindingsUseIDs(t *testing.T) {
	src := &domain.ObjectType{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), Name: "uri"}
	ft := domain.FactType{
		Name:                   "observedIn",
		RelevantObjectBindings: []domain.ObjectBinding{{SourceObjectType: src}},
	}

	b, err := json.Marshal(EncodeFactType(ft))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"observedIn","relevantObjectBindings":[{"sourceObjectType":"00000000-0000-0000-0000-00000000000a","bidirectionalBinding":false}]}`, string(b))
}
