package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/accounthub/internal/dbx"
	"github.com/dmitrijs2005/accounthub/internal/server/repositories/accounts"
)

// RepositoryManager vends repositories bound to a connection or transaction
// and owns the schema lifecycle.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
}
