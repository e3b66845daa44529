// Package codes provides a PostgreSQL-backed repository for the one-time
// codes sent during enrollment and PIN recovery.
package codes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/playerhub/internal/common"
	"github.com/dmitrijs2005/playerhub/internal/dbx"
	"github.com/dmitrijs2005/playerhub/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Put upserts the pending code for code.Email.
func (r *PostgresRepository) Put(ctx context.Context, code *models.PendingCode) error {
	query := `
		INSERT INTO pending_codes (email, code, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at
	`
	if _, err := r.db.ExecContext(ctx, query, code.Email, code.Code, code.ExpiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Find returns the pending code for email or common.ErrorNotFound.
func (r *PostgresRepository) Find(ctx context.Context, email string) (*models.PendingCode, error) {
	query := `
		SELECT email, code, expires_at
		FROM pending_codes
		WHERE email = $1
	`
	code := &models.PendingCode{}
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&code.Email, &code.Code, &code.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return code, nil
}

// Delete removes the pending code for email. Deleting nothing is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, email string) error {
	query := `
		DELETE FROM pending_codes
		WHERE email = $1
	`
	if _, err := r.db.ExecContext(ctx, query, email); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
