package wire

import (
	"net/url"
	"strconv"
	"time"

	"github.com/Harshitk-cp/actgraph/internal/domain"
)

// TimeFormat is the timestamp format accepted by before/after filters.
const TimeFormat = "2006-01-02T15:04:05Z"

type FactSearchRequest struct {
	Keywords          string   `json:"keywords,omitempty"`
	ObjectType        []string `json:"objectType,omitempty"`
	FactType          []string `json:"factType,omitempty"`
	ObjectValue       []string `json:"objectValue,omitempty"`
	FactValue         []string `json:"factValue,omitempty"`
	Organization      []string `json:"organization,omitempty"`
	Origin            []string `json:"origin,omitempty"`
	MinimumConfidence *float64 `json:"minimumConfidence,omitempty"`
	IncludeRetracted  *bool    `json:"includeRetracted,omitempty"`
	Before            string   `json:"before,omitempty"`
	After             string   `json:"after,omitempty"`
	Limit             int      `json:"limit"`
}

type ObjectSearchRequest struct {
	Keywords     string   `json:"keywords,omitempty"`
	ObjectType   []string `json:"objectType,omitempty"`
	FactType     []string `json:"factType,omitempty"`
	ObjectValue  []string `json:"objectValue,omitempty"`
	FactValue    []string `json:"factValue,omitempty"`
	Organization []string `json:"organization,omitempty"`
	Origin       []string `json:"origin,omitempty"`
	Before       string   `json:"before,omitempty"`
	After        string   `json:"after,omitempty"`
	Limit        int      `json:"limit"`
}

type TraverseRequest struct {
	Query string `json:"query"`
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(TimeFormat)
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return domain.DefaultSearchLimit
	}
	return n
}

func EncodeFactQuery(q domain.FactQuery) FactSearchRequest {
	req := FactSearchRequest{
		Keywords:          q.Keywords,
		ObjectType:        q.ObjectTypes,
		FactType:          q.FactTypes,
		ObjectValue:       q.ObjectValues,
		FactValue:         q.FactValues,
		Organization:      q.Organizations,
		Origin:            q.Origins,
		MinimumConfidence: q.MinConfidence,
		Before:            formatTime(q.Before),
		After:             formatTime(q.After),
		Limit:             limitOrDefault(q.Limit),
	}
	if q.IncludeRetracted {
		req.IncludeRetracted = &q.IncludeRetracted
	}
	return req
}

func EncodeObjectQuery(q domain.ObjectQuery) ObjectSearchRequest {
	return ObjectSearchRequest{
		Keywords:     q.Keywords,
		ObjectType:   q.ObjectTypes,
		FactType:     q.FactTypes,
		ObjectValue:  q.ObjectValues,
		FactValue:    q.FactValues,
		Organization: q.Organizations,
		Origin:       q.Origins,
		Before:       formatTime(q.Before),
		After:        formatTime(q.After),
		Limit:        limitOrDefault(q.Limit),
	}
}

// EncodeMetaQuery renders query parameters for GET v1/fact/uuid/{id}/meta.
func EncodeMetaQuery(q domain.MetaQuery) url.Values {
	v := url.Values{}
	if s := formatTime(q.Before); s != "" {
		v.Set("before", s)
	}
	if s := formatTime(q.After); s != "" {
		v.Set("after", s)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func EncodeOriginQuery(q domain.OriginQuery) url.Values {
	v := url.Values{}
	if q.IncludeDeleted {
		v.Set("includeDeleted", "true")
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func EncodeRetract(o domain.RetractOptions) RetractRequest {
	req := RetractRequest{
		Organization: o.Organization,
		Origin:       o.Origin,
		AccessMode:   string(o.AccessMode),
		Comment:      o.Comment,
	}
	req.ACL = encodeACL(o.ACL)
	return req
}
