package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/playerhub/internal/dbx"
	"github.com/dmitrijs2005/playerhub/internal/server/repositories/codes"
	"github.com/dmitrijs2005/playerhub/internal/server/repositories/contents"
	"github.com/dmitrijs2005/playerhub/internal/server/repositories/devices"
	"github.com/dmitrijs2005/playerhub/internal/server/repositories/permissions"
	"github.com/dmitrijs2005/playerhub/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a connection or transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Codes(db dbx.DBTX) codes.Repository
	Devices(db dbx.DBTX) devices.Repository
	Permissions(db dbx.DBTX) permissions.Repository
	Contents(db dbx.DBTX) contents.Repository
}
