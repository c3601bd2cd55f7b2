// Package accounts declares the credential store contract and its
// PostgreSQL implementation.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/accounthub/internal/server/models"
)

// Repository persists accounts. Lookups return common.ErrorNotFound when no
// row matches; writes that collide with the username or email unique
// constraints return common.ErrDuplicateAccount.
type Repository interface {
	// Create inserts a new account and fills in its id and timestamps.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	FindByID(ctx context.Context, id string) (*models.Account, error)

	// LockByID is FindByID that also locks the row until the surrounding
	// transaction ends.
	LockByID(ctx context.Context, id string) (*models.Account, error)

	// FindByUsernameOrEmail runs a single lookup matching either value.
	// When both match different accounts the username match wins.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.Account, error)

	// UpdateRefreshToken overwrites the stored refresh token. An empty token
	// clears it. Missing accounts are not an error.
	UpdateRefreshToken(ctx context.Context, id, token string) error

	// SwapRefreshToken replaces the stored refresh token only if it still
	// equals current. It reports whether the swap happened.
	SwapRefreshToken(ctx context.Context, id, current, next string) (bool, error)

	UpdatePasswordHash(ctx context.Context, id, hash string) error

	// UpdateFields applies a partial update and returns the updated row.
	UpdateFields(ctx context.Context, id string, update models.AccountUpdate) (*models.Account, error)
}
