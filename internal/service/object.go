package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/actgraph/internal/domain"
	"github.com/Harshitk-cp/actgraph/internal/wire"
)

type ObjectService struct {
	transport domain.Transport
	logger    *zap.Logger
}

func NewObjectService(t domain.Transport, logger *zap.Logger) *ObjectService {
	return &ObjectService{transport: t, logger: logger}
}

// objectPath addresses o by id when known, otherwise by type and value.
func objectPath(o *domain.Object, suffix string) (string, error) {
	if o.ID != uuid.Nil {
		return "v1/object/uuid/" + o.ID.String() + suffix, nil
	}
	if o.Type.Name == "" || o.Value == "" {
		return "", &domain.ValidationError{Field: "object", Value: o.Key(), Message: "object needs an id or a type and value"}
	}
	return "v1/object/" + url.PathEscape(o.Type.Name) + "/" + url.PathEscape(o.Value) + suffix, nil
}

func (s *ObjectService) Search(ctx context.Context, q domain.ObjectQuery) (*domain.ResultSet[*domain.Object], error) {
	env, err := s.transport.Request(ctx, http.MethodPost, "v1/object/search", wire.EncodeObjectQuery(q))
	if err != nil {
		return nil, classify(err, "object", "search")
	}
	objects, err := wire.DecodeObjects(env.Payload())
	if err != nil {
		return nil, fmt.Errorf("decode objects: %w", err)
	}
	return domain.NewResultSet(objects, env.Size, env.Count, env.Limit), nil
}

// Get fetches an object by id.
func (s *ObjectService) Get(ctx context.Context, id uuid.UUID) (*domain.Object, error) {
	if id == uuid.Nil {
		return nil, domain.MissingID("get", "object")
	}
	env, err := s.transport.Request(ctx, http.MethodGet, "v1/object/uuid/"+id.String(), nil)
	if err != nil {
		return nil, classify(err, "object", id.String())
	}
	o, err := wire.DecodeObject(env.Payload())
	if err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	return o, nil
}

// Facts lists the facts bound to o.
func (s *ObjectService) Facts(ctx context.Context, o *domain.Object, q domain.FactQuery) (*domain.ResultSet[*domain.Fact], error) {
	path, err := objectPath(o, "/facts")
	if err != nil {
		return nil, err
	}
	env, err := s.transport.Request(ctx, http.MethodPost, path, wire.EncodeFactQuery(q))
	if err != nil {
		return nil, classify(err, "object", o.Key())
	}
	facts, err := wire.DecodeFacts(env.Payload())
	if err != nil {
		return nil, fmt.Errorf("decode facts: %w", err)
	}
	return domain.NewResultSet(facts, env.Size, env.Count, env.Limit), nil
}

// Traverse runs query starting at o. The query is passed through unchanged;
// rows that are neither facts nor objects are kept raw.
func (s *ObjectService) Traverse(ctx context.Context, o *domain.Object, query string) (*domain.ResultSet[domain.TraversalElement], error) {
	if query == "" {
		return nil, &domain.ValidationError{Field: "traverse.query", Message: "query is required"}
	}
	path, err := objectPath(o, "/traverse")
	if err != nil {
		return nil, err
	}
	env, err := s.transport.Request(ctx, http.MethodPost, path, wire.TraverseRequest{Query: query})
	if err != nil {
		return nil, classify(err, "object", o.Key())
	}
	rows, err := wire.DecodeTraversal(env.Payload())
	if err != nil {
		return nil, fmt.Errorf("decode traversal: %w", err)
	}
	for _, row := range rows {
		if row.Fact == nil && row.Object == nil {
			s.logger.Warn("unrecognised traversal row", zap.ByteString("row", row.Raw))
		}
	}
	return domain.NewResultSet(rows, env.Size, env.Count, env.Limit), nil
}
