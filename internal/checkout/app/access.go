package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/ivmarchuk/filmstore/internal/checkout/ports"
)

// AccessGuard authorizes order and payment operations: the resource owner and
// administrators pass, everyone else is denied.
type AccessGuard struct {
	users ports.UserDirectory
}

func NewAccessGuard(users ports.UserDirectory) *AccessGuard {
	return &AccessGuard{users: users}
}

// Authorize grants access when the requester owns the resource or is an
// administrator.
func (g *AccessGuard) Authorize(ctx context.Context, requesterID, ownerID int64) error {
	if requesterID == ownerID {
		return nil
	}

	user, err := g.users.GetByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: user %d", domain.ErrNotFound, requesterID)
		}
		return fmt.Errorf("fetch requester: %w", err)
	}

	if !user.IsAdmin {
		return domain.ErrAccessDenied
	}
	return nil
}

// IsAdmin reports whether the requester holds the administrator flag.
func (g *AccessGuard) IsAdmin(ctx context.Context, requesterID int64) (bool, error) {
	user, err := g.users.GetByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, fmt.Errorf("%w: user %d", domain.ErrNotFound, requesterID)
		}
		return false, fmt.Errorf("fetch requester: %w", err)
	}
	return user.IsAdmin, nil
}
