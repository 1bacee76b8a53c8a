package service

import (
	"context"
	"errors"
	"fmt"

	"postline-server/internal/domain"
)

type owned interface {
	Owner() string
}

// requireOwner loads the resource and checks it belongs to principalID. It
// always reads the current document; callers mutate only the returned value.
func requireOwner[T owned](ctx context.Context, load func(context.Context, string) (T, error), principalID, id, notFoundCode string) (T, error) {
	var zero T

	resource, err := load(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return zero, domain.NewError(domain.KindResourceNotFound, notFoundCode, err)
		}
		return zero, domain.Internal(fmt.Errorf("failed to load resource: %w", err))
	}

	if principalID == "" || resource.Owner() != principalID {
		return zero, domain.NewError(domain.KindNotOwner, domain.CodeNotOwner, nil)
	}

	return resource, nil
}
