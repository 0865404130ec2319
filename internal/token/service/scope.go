package service

import (
	"context"

	"github.com/ledgerline/shopauth/internal/token/store"
)

// StoreScopeSource derives scope strings from the user's current roles in
// the store. Scope is computed at issuance time; later role changes are
// caught by the validator's user gate, not by reissuing.
type StoreScopeSource struct {
	Users store.Users
}

func (s StoreScopeSource) Scope(ctx context.Context, userID string) (string, error) {
	user, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Scope(), nil
}
