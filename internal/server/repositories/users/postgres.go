// Package users provides the PostgreSQL-backed credential store.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/playerhub/internal/common"
	"github.com/dmitrijs2005/playerhub/internal/dbx"
	"github.com/dmitrijs2005/playerhub/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanProfile(row interface{ Scan(...any) error }) (*models.UserProfile, error) {
	user := &models.UserProfile{}
	var lockedUntil sql.NullTime
	if err := row.Scan(&user.Email, &user.PinHash, &user.IsAdmin, &user.FailedAttempts, &lockedUntil, &user.CreatedAt); err != nil {
		return nil, err
	}
	if lockedUntil.Valid {
		user.LockedUntil = lockedUntil.Time
	}
	return user, nil
}

func (r *PostgresRepository) Get(ctx context.Context, email string) (*models.UserProfile, error) {
	query :=
		`SELECT email, pin_hash, is_admin, failed_attempts, locked_until, created_at FROM users
		 WHERE email = $1
		 `

	user, err := scanProfile(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) AnyWithPin(ctx context.Context) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE pin_hash <> '')`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) ClaimAdmin(ctx context.Context, email string) (bool, error) {
	query :=
		`INSERT INTO system_flags (name, owner)
		 VALUES ($1, $2)
		 ON CONFLICT (name) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query, AdminFlag, email)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) SavePin(ctx context.Context, email, pinHash string, isAdmin bool, now time.Time) (*models.UserProfile, error) {
	query :=
		`INSERT INTO users (email, pin_hash, is_admin, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (email) DO UPDATE
		 SET pin_hash = EXCLUDED.pin_hash,
		     is_admin = users.is_admin OR EXCLUDED.is_admin,
		     failed_attempts = 0,
		     locked_until = NULL
		 RETURNING email, pin_hash, is_admin, failed_attempts, locked_until, created_at
		 `

	user, err := scanProfile(r.db.QueryRowContext(ctx, query, email, pinHash, isAdmin, now))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) ClaimAttempt(ctx context.Context, email string, now time.Time, maxAttempts int, lockUntil time.Time) (*models.UserProfile, error) {
	// The WHERE clause is re-evaluated against the latest row version when
	// a concurrent update wins the row lock, so two attempts can never both
	// pass a lock that one of them set.
	query :=
		`UPDATE users
		 SET failed_attempts = CASE WHEN locked_until IS NULL THEN failed_attempts + 1 ELSE 1 END,
		     locked_until = CASE
		         WHEN (CASE WHEN locked_until IS NULL THEN failed_attempts + 1 ELSE 1 END) >= $3 THEN $4::timestamptz
		         ELSE NULL
		     END
		 WHERE email = $1 AND (locked_until IS NULL OR locked_until <= $2)
		 RETURNING email, pin_hash, is_admin, failed_attempts, locked_until, created_at
		 `

	user, err := scanProfile(r.db.QueryRowContext(ctx, query, email, now, maxAttempts, lockUntil))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if _, err := r.Get(ctx, email); err != nil {
		return nil, err
	}
	return nil, common.ErrorLocked
}

func (r *PostgresRepository) ResetAttempts(ctx context.Context, email string) error {
	query :=
		`UPDATE users SET failed_attempts = 0, locked_until = NULL
		 WHERE email = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, email); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
