// Package services contains server-side business logic. This file implements
// SessionService, the coordinator for registration, login, logout, refresh
// token rotation, and password changes.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/clipstream/clipstream/internal/common"
	"github.com/clipstream/clipstream/internal/dbx"
	"github.com/clipstream/clipstream/internal/logging"
	"github.com/clipstream/clipstream/internal/server/auth"
	"github.com/clipstream/clipstream/internal/server/blobstore"
	"github.com/clipstream/clipstream/internal/server/models"
	"github.com/clipstream/clipstream/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is what a successful login returns: the public account plus a
// fresh token pair.
type LoginResult struct {
	Account *models.PublicAccount
	Tokens  TokenPair
}

// SessionService mediates between the token issuer and the accounts store.
// An account has at most one active session: the stored refresh token is
// overwritten on every login and refresh, and cleared on logout.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.Hasher
	issuer      *auth.Issuer
	blobs       blobstore.BlobStore
	logger      logging.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.Hasher,
	issuer *auth.Issuer, blobs blobstore.BlobStore, logger logging.Logger) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		issuer:      issuer,
		blobs:       blobs,
		logger:      logger.With("module", "session_service"),
	}
}

// Register creates a new account. It does not authenticate: registration and
// login are separate steps, so no tokens are issued here.
func (s *SessionService) Register(ctx context.Context, username, email, password, fullname string) (*models.PublicAccount, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.TrimSpace(email)
	fullname = strings.TrimSpace(fullname)
	if username == "" || email == "" || strings.TrimSpace(password) == "" || fullname == "" {
		return nil, common.NewError(common.ErrValidation, "all fields are required")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, s.internal(ctx, "hashing password", err)
	}

	account := &models.Account{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		Fullname:     fullname,
		PasswordHash: hash,
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		for _, identifier := range []string{username, email} {
			_, err := repo.GetByLogin(ctx, identifier)
			if err == nil {
				return common.NewError(common.ErrConflict, "user or email already exists")
			}
			if !errors.Is(err, common.ErrNotFound) {
				return err
			}
		}

		_, err := repo.Create(ctx, account)
		return err
	}); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.NewError(common.ErrConflict, "user or email already exists")
		}
		var de *common.Error
		if errors.As(err, &de) {
			return nil, de
		}
		return nil, s.internal(ctx, "creating account", err)
	}

	s.logger.Info(ctx, "account registered", "username", username)
	return account.PublicView(), nil
}

// Login verifies credentials and, on success, issues a token pair and
// persists the refresh token as the account's single active session.
func (s *SessionService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, common.NewError(common.ErrValidation, "username or email is required")
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.GetByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrNotFound, "user not found")
		}
		return nil, s.internal(ctx, "loading account", err)
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		s.logger.Warn(ctx, "login failed: password incorrect", "username", account.Username)
		return nil, common.NewError(common.ErrUnauthorized, "password incorrect")
	}

	pair, err := s.mintPair(ctx, account)
	if err != nil {
		return nil, err
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Accounts(tx).SetRefreshToken(ctx, account.ID, pair.RefreshToken)
	}); err != nil {
		return nil, s.internal(ctx, "persisting refresh token", err)
	}

	s.logger.Info(ctx, "login", "username", account.Username)
	return &LoginResult{Account: account.PublicView(), Tokens: *pair}, nil
}

// Logout clears the stored refresh token, ending the account's session. It is
// idempotent: logging out an already-anonymous account succeeds.
func (s *SessionService) Logout(ctx context.Context, accountID string) error {
	repo := s.repomanager.Accounts(s.db)
	if err := repo.SetRefreshToken(ctx, accountID, ""); err != nil && !errors.Is(err, common.ErrNotFound) {
		return s.internal(ctx, "clearing refresh token", err)
	}
	s.logger.Info(ctx, "logout", "account_id", accountID)
	return nil
}

// Refresh exchanges a still-current refresh token for a new pair, rotating
// the stored token. A token that was already superseded is a replay and is
// rejected even though its signature is still valid.
func (s *SessionService) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	if presented == "" {
		return nil, common.NewError(common.ErrUnauthorized, "unauthorized request")
	}

	accountID, err := s.issuer.VerifyRefresh(presented)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			s.logger.Warn(ctx, "refresh rejected: token expired")
		} else {
			s.logger.Warn(ctx, "refresh rejected: invalid token")
		}
		return nil, common.NewError(common.ErrUnauthorized, "invalid refresh token")
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrUnauthorized, "invalid refresh token")
		}
		return nil, s.internal(ctx, "loading account", err)
	}

	if account.CurrentRefreshToken != presented {
		s.logger.Warn(ctx, "refresh rejected: token superseded", "account_id", accountID)
		return nil, common.NewError(common.ErrUnauthorized, "refresh token is expired or used")
	}

	pair, err := s.mintPair(ctx, account)
	if err != nil {
		return nil, err
	}

	// The compare-and-swap is the authoritative replay check: of two
	// concurrent rotations presenting the same token, exactly one wins.
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Accounts(tx).RotateRefreshToken(ctx, accountID, presented, pair.RefreshToken)
	}); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Warn(ctx, "refresh rejected: lost rotation race", "account_id", accountID)
			return nil, common.NewError(common.ErrUnauthorized, "refresh token is expired or used")
		}
		return nil, s.internal(ctx, "rotating refresh token", err)
	}

	s.logger.Info(ctx, "refresh token rotated", "account_id", accountID)
	return pair, nil
}

// ChangePassword replaces the stored hash after verifying the old password.
// The current refresh token deliberately survives: a password change does not
// force re-login.
func (s *SessionService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return common.NewError(common.ErrValidation, "new password is required")
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		account, err := repo.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		if !s.hasher.Verify(oldPassword, account.PasswordHash) {
			return common.NewError(common.ErrUnauthorized, "incorrect password")
		}

		hash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return err
		}
		return repo.SetPasswordHash(ctx, accountID, hash)
	})
	if err != nil {
		var de *common.Error
		if errors.As(err, &de) {
			return de
		}
		if errors.Is(err, common.ErrNotFound) {
			return common.NewError(common.ErrNotFound, "user not found")
		}
		return s.internal(ctx, "changing password", err)
	}

	s.logger.Info(ctx, "password changed", "account_id", accountID)
	return nil
}

// CurrentAccount returns the public view of an account.
func (s *SessionService) CurrentAccount(ctx context.Context, accountID string) (*models.PublicAccount, error) {
	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrNotFound, "user not found")
		}
		return nil, s.internal(ctx, "loading account", err)
	}
	return account.PublicView(), nil
}

// UpdateProfile changes fullname and/or email.
func (s *SessionService) UpdateProfile(ctx context.Context, accountID, fullname, email string) (*models.PublicAccount, error) {
	fullname = strings.TrimSpace(fullname)
	email = strings.TrimSpace(email)
	if fullname == "" && email == "" {
		return nil, common.NewError(common.ErrValidation, "fullname or email is required")
	}

	account, err := s.repomanager.Accounts(s.db).UpdateProfile(ctx, accountID, fullname, email)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrConflict):
			return nil, common.NewError(common.ErrConflict, "email already in use")
		case errors.Is(err, common.ErrNotFound):
			return nil, common.NewError(common.ErrNotFound, "user not found")
		}
		return nil, s.internal(ctx, "updating profile", err)
	}
	return account.PublicView(), nil
}

// UpdateAvatar uploads the staged file to blob storage and stores its URL.
func (s *SessionService) UpdateAvatar(ctx context.Context, accountID, localPath string) (*models.PublicAccount, error) {
	return s.updateMedia(ctx, accountID, localPath, s.repomanager.Accounts(s.db).SetAvatarURL)
}

// UpdateCoverImage uploads the staged file to blob storage and stores its URL.
func (s *SessionService) UpdateCoverImage(ctx context.Context, accountID, localPath string) (*models.PublicAccount, error) {
	return s.updateMedia(ctx, accountID, localPath, s.repomanager.Accounts(s.db).SetCoverImageURL)
}

func (s *SessionService) updateMedia(ctx context.Context, accountID, localPath string,
	set func(ctx context.Context, id, url string) (*models.Account, error)) (*models.PublicAccount, error) {

	url, err := s.blobs.Upload(ctx, localPath)
	if err != nil {
		return nil, s.internal(ctx, "uploading media", err)
	}

	account, err := set(ctx, accountID, url)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrNotFound, "user not found")
		}
		return nil, s.internal(ctx, "storing media url", err)
	}
	return account.PublicView(), nil
}

// --- helpers below ---

func (s *SessionService) mintPair(ctx context.Context, account *models.Account) (*TokenPair, error) {
	access, err := s.issuer.IssueAccessToken(account.ID, account.Username, account.Email, account.Fullname)
	if err != nil {
		return nil, s.internal(ctx, "signing access token", err)
	}
	refresh, err := s.issuer.IssueRefreshToken(account.ID)
	if err != nil {
		return nil, s.internal(ctx, "signing refresh token", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// internal logs the cause server-side and returns the generic internal error;
// the original failure never reaches a client.
func (s *SessionService) internal(ctx context.Context, msg string, err error) error {
	s.logger.Error(ctx, msg, "error", err)
	return common.NewError(common.ErrInternal, "internal error")
}
