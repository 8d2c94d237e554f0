// Package repomanager vends repository implementations bound to a database
// handle and exposes the schema migration hook.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/clipstream/clipstream/internal/dbx"
	"github.com/clipstream/clipstream/internal/server/repositories/accounts"
)

// RepositoryManager abstracts repository construction so services can run the
// same code against *sql.DB or an open transaction.
type RepositoryManager interface {
	// Accounts returns an accounts.Repository bound to the provided DBTX.
	Accounts(db dbx.DBTX) accounts.Repository

	// RunMigrations brings the schema up to date.
	RunMigrations(ctx context.Context, db *sql.DB) error
}
