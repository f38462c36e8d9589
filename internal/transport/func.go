package transport

import (
	"context"

	"github.com/Harshitk-cp/actgraph/internal/domain"
)

// Func adapts a plain function to domain.Transport.
type Func func(ctx context.Context, method, path string, payload any) (*domain.Envelope, error)

func (f Func) Request(ctx context.Context, method, path string, payload any) (*domain.Envelope, error) {
	return f(ctx, method, path, payload)
}
