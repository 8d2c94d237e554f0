// Package accounts declares the persistence contract for user accounts and
// their single active refresh token.
package accounts

import (
	"context"

	"github.com/clipstream/clipstream/internal/server/models"
)

// Repository defines the storage operations the session coordinator needs.
// Implementations return common.ErrConflict on duplicate username/email and
// common.ErrNotFound when no row matches.
type Repository interface {
	// Create inserts a new account. The caller supplies the id and the
	// password hash; username uniqueness is case-insensitive.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	// GetByLogin finds an account whose username (case-insensitive) or email
	// equals identifier.
	GetByLogin(ctx context.Context, identifier string) (*models.Account, error)

	// GetByID finds an account by its id.
	GetByID(ctx context.Context, id string) (*models.Account, error)

	// SetRefreshToken overwrites the stored refresh token. An empty token
	// clears the session (logout). Also stamps last_login_at when a token is
	// being set.
	SetRefreshToken(ctx context.Context, id, token string) error

	// RotateRefreshToken replaces the stored token with next only if the
	// stored value still equals presented (compare-and-swap). When the swap
	// loses it returns common.ErrNotFound: the presented token was already
	// superseded.
	RotateRefreshToken(ctx context.Context, id, presented, next string) error

	// SetPasswordHash replaces the stored password hash wholesale.
	SetPasswordHash(ctx context.Context, id, hash string) error

	// UpdateProfile updates fullname and/or email, returning the new state.
	UpdateProfile(ctx context.Context, id, fullname, email string) (*models.Account, error)

	// SetAvatarURL / SetCoverImageURL update the media attributes.
	SetAvatarURL(ctx context.Context, id, url string) (*models.Account, error)
	SetCoverImageURL(ctx context.Context, id, url string) (*models.Account, error)
}
