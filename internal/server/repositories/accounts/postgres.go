package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clipstream/clipstream/internal/common"
	"github.com/clipstream/clipstream/internal/dbx"
	"github.com/clipstream/clipstream/internal/server/models"
)

const uniqueViolation = "23505"

// PostgresRepository implements Repository over dbx.DBTX (satisfied by both
// *sql.DB and *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, username, email, fullname, password_hash,
         current_refresh_token, avatar_url, cover_image_url, created_at, last_login_at`

func (r *PostgresRepository) scanAccount(row *sql.Row) (*models.Account, error) {
	a := &models.Account{}
	var lastLogin sql.NullTime
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.Fullname, &a.PasswordHash,
		&a.CurrentRefreshToken, &a.AvatarURL, &a.CoverImageURL, &a.CreatedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if lastLogin.Valid {
		a.LastLoginAt = lastLogin.Time
	}
	return a, nil
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {

	query :=
		`INSERT INTO accounts (id, username, email, fullname, password_hash, avatar_url, cover_image_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.Username, account.Email, account.Fullname,
		account.PasswordHash, account.AvatarURL, account.CoverImageURL).Scan(&account.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByLogin(ctx context.Context, identifier string) (*models.Account, error) {
	query :=
		`SELECT ` + accountColumns + `
		 FROM accounts
		 WHERE lower(username) = lower($1) OR email = $1
		 `

	return r.scanAccount(r.db.QueryRowContext(ctx, query, identifier))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query :=
		`SELECT ` + accountColumns + `
		 FROM accounts
		 WHERE id = $1
		 `

	return r.scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	query :=
		`UPDATE accounts
		 SET current_refresh_token = $2,
		     last_login_at = CASE WHEN $2 <> '' THEN now() ELSE last_login_at END
		 WHERE id = $1
		 `

	return r.execOne(ctx, query, id, token)
}

// RotateRefreshToken is the compare-and-swap that enforces the anti-replay
// invariant: of two concurrent rotations presenting the same token, exactly
// one matches the stored value and wins.
func (r *PostgresRepository) RotateRefreshToken(ctx context.Context, id, presented, next string) error {
	query :=
		`UPDATE accounts
		 SET current_refresh_token = $3
		 WHERE id = $1 AND current_refresh_token = $2
		 `

	return r.execOne(ctx, query, id, presented, next)
}

func (r *PostgresRepository) SetPasswordHash(ctx context.Context, id, hash string) error {
	query :=
		`UPDATE accounts
		 SET password_hash = $2
		 WHERE id = $1
		 `

	return r.execOne(ctx, query, id, hash)
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id, fullname, email string) (*models.Account, error) {
	query :=
		`UPDATE accounts
		 SET fullname = COALESCE(NULLIF($2, ''), fullname),
		     email = COALESCE(NULLIF($3, ''), email)
		 WHERE id = $1
		 RETURNING ` + accountColumns + `
		 `

	account, err := r.scanAccount(r.db.QueryRowContext(ctx, query, id, fullname, email))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrConflict
		}
		return nil, err
	}
	return account, nil
}

func (r *PostgresRepository) SetAvatarURL(ctx context.Context, id, url string) (*models.Account, error) {
	query :=
		`UPDATE accounts
		 SET avatar_url = $2
		 WHERE id = $1
		 RETURNING ` + accountColumns + `
		 `

	return r.scanAccount(r.db.QueryRowContext(ctx, query, id, url))
}

func (r *PostgresRepository) SetCoverImageURL(ctx context.Context, id, url string) (*models.Account, error) {
	query :=
		`UPDATE accounts
		 SET cover_image_url = $2
		 WHERE id = $1
		 RETURNING ` + accountColumns + `
		 `

	return r.scanAccount(r.db.QueryRowContext(ctx, query, id, url))
}

// execOne runs an UPDATE expected to touch exactly one row and maps zero
// affected rows to common.ErrNotFound.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}
