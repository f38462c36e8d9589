package extract

import (
	"context"
	"net/url"
	"strings"

	"github.com/Harshitk-cp/actgraph/internal/domain"
)

// FactFactory builds draft facts by type name. *client.Client implements it.
type FactFactory interface {
	Fact(ctx context.Context, typeName, value string) (*domain.Fact, error)
}

// FactoryFunc adapts a function to FactFactory.
type FactoryFunc func(ctx context.Context, typeName, value string) (*domain.Fact, error)

func (f FactoryFunc) Fact(ctx context.Context, typeName, value string) (*domain.Fact, error) {
	return f(ctx, typeName, value)
}

// Drafts builds facts without a registry. Type descriptors hold only the
// name.
var Drafts = FactoryFunc(func(_ context.Context, typeName, value string) (*domain.Fact, error) {
	return domain.NewFact(domain.FactType{Name: typeName}, value), nil
})

// URIFacts returns the facts describing the components of uri: the address
// it points at, its port, scheme, path, basename and query.
func URIFacts(ctx context.Context, factory FactFactory, uri string) ([]*domain.Fact, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, &domain.ValidationError{Field: "uri", Value: uri, Message: "error parsing URI: " + err.Error()}
	}
	addr := strings.ToLower(u.Hostname())
	if u.Scheme == "" || addr == "" {
		return nil, &domain.ValidationError{Field: "uri", Value: uri, Message: "URI requires both scheme and address part"}
	}

	addrType := "fqdn"
	if typ, ip, err := IPObject(addr); err == nil {
		addrType, addr = typ, ip
	}

	b := &builder{ctx: ctx, factory: factory}
	b.add("componentOf", "", addrType, addr, "uri", uri)
	if port := u.Port(); port != "" && strings.TrimLeft(port, "0") != "" {
		b.add("port", port, "uri", uri, "", "")
	}
	b.add("scheme", u.Scheme, "uri", uri, "", "")

	if path := u.EscapedPath(); path != "" && strings.TrimSpace(path) != "/" {
		b.add("componentOf", "", "path", path, "uri", uri)
		if base := path[strings.LastIndex(path, "/")+1:]; strings.TrimSpace(base) != "" {
			b.add("basename", base, "path", path, "", "")
		}
	}
	if u.RawQuery != "" {
		b.add("componentOf", "", "query", u.RawQuery, "uri", uri)
	}
	return b.facts, b.err
}

// builder collects facts and keeps the first factory error.
type builder struct {
	ctx     context.Context
	factory FactFactory
	facts   []*domain.Fact
	err     error
}

func (b *builder) add(typeName, value, srcType, srcValue, dstType, dstValue string) {
	if b.err != nil {
		return
	}
	f, err := b.factory.Fact(b.ctx, typeName, value)
	if err != nil {
		b.err = err
		b.facts = nil
		return
	}
	f.Source(srcType, srcValue)
	if dstType != "" {
		f.Destination(dstType, dstValue)
	}
	b.facts = append(b.facts, f)
}
