// Package permissions provides the PostgreSQL-backed role grant store.
package permissions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) Get(ctx context.Context, email, deviceID string) (*models.Permission, error) {
	query :=
		`SELECT email, device_id, role, added_by, created_at FROM permissions
		 WHERE email = $1 AND device_id = $2
		 `

	p := &models.Permission{}
	var role string
	err := r.db.QueryRowContext(ctx, query, email, deviceID).Scan(&p.Email, &p.DeviceID, &role, &p.AddedBy, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	p.Role = models.Role(role)
	return p, nil
}

func (r *PostgresRepository) Put(ctx context.Context, p *models.Permission) error {
	query :=
		`INSERT INTO permissions (email, device_id, role, added_by, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (email, device_id) DO UPDATE
		 SET role = EXCLUDED.role, added_by = EXCLUDED.added_by
		 `

	if _, err := r.db.ExecContext(ctx, query, p.Email, p.DeviceID, string(p.Role), p.AddedBy, p.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, email, deviceID string) error {
	query := `DELETE FROM permissions WHERE email = $1 AND device_id = $2`

	res, err := r.db.ExecContext(ctx, query, email, deviceID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteAllForDevice(ctx context.Context, deviceID string) (int64, error) {
	query := `DELETE FROM permissions WHERE device_id = $1`

	res, err := r.db.ExecContext(ctx, query, deviceID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListForDevice(ctx context.Context, deviceID string) ([]models.Permission, error) {
	query :=
		`SELECT email, device_id, role, added_by, created_at FROM permissions
		 WHERE device_id = $1
		 ORDER BY role DESC, created_at, email
		 `

	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Permission, 0)
	for rows.Next() {
		var p models.Permission
		var role string
		if err := rows.Scan(&p.Email, &p.DeviceID, &role, &p.AddedBy, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		p.Role = models.Role(role)
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
