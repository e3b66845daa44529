// Package devices provides the PostgreSQL-backed device registry.
package devices

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

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Device, error) {
	query :=
		`SELECT id, friendly_name, master_email, dispatch_endpoint, created_at FROM devices
		 WHERE id = $1
		 `

	d := &models.Device{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.FriendlyName, &d.MasterEmail, &d.DispatchEndpoint, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) Create(ctx context.Context, d *models.Device) error {
	query :=
		`INSERT INTO devices (id, friendly_name, master_email, dispatch_endpoint, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 `

	if _, err := r.db.ExecContext(ctx, query, d.ID, d.FriendlyName, d.MasterEmail, d.DispatchEndpoint, d.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, d *models.Device) error {
	query :=
		`UPDATE devices
		 SET friendly_name = $2, master_email = $3, dispatch_endpoint = $4
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, d.ID, d.FriendlyName, d.MasterEmail, d.DispatchEndpoint)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) UpdateName(ctx context.Context, id, master, name string) (*models.Device, error) {
	query :=
		`UPDATE devices SET friendly_name = $3
		 WHERE id = $1 AND master_email = $2
		 RETURNING id, friendly_name, master_email, dispatch_endpoint, created_at
		 `

	return r.updateReturning(ctx, query, id, master, name)
}

func (r *PostgresRepository) UpdateEndpoint(ctx context.Context, id, master, endpoint string) (*models.Device, error) {
	query :=
		`UPDATE devices SET dispatch_endpoint = $3
		 WHERE id = $1 AND master_email = $2
		 RETURNING id, friendly_name, master_email, dispatch_endpoint, created_at
		 `

	return r.updateReturning(ctx, query, id, master, endpoint)
}

func (r *PostgresRepository) updateReturning(ctx context.Context, query string, args ...any) (*models.Device, error) {
	d := &models.Device{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&d.ID, &d.FriendlyName, &d.MasterEmail, &d.DispatchEndpoint, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM devices WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) ListForUser(ctx context.Context, email string) ([]models.DeviceAccess, error) {
	query :=
		`SELECT d.id, d.friendly_name, d.master_email, d.dispatch_endpoint, d.created_at, p.role
		 FROM devices d
		 JOIN permissions p ON p.device_id = d.id
		 WHERE p.email = $1
		 ORDER BY d.created_at, d.id
		 `

	return r.list(ctx, query, email)
}

func (r *PostgresRepository) ListAll(ctx context.Context, email string) ([]models.DeviceAccess, error) {
	query :=
		`SELECT d.id, d.friendly_name, d.master_email, d.dispatch_endpoint, d.created_at, COALESCE(p.role, 'admin')
		 FROM devices d
		 LEFT JOIN permissions p ON p.device_id = d.id AND p.email = $1
		 ORDER BY d.created_at, d.id
		 `

	return r.list(ctx, query, email)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]models.DeviceAccess, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.DeviceAccess, 0)
	for rows.Next() {
		var a models.DeviceAccess
		var role string
		if err := rows.Scan(&a.ID, &a.FriendlyName, &a.MasterEmail, &a.DispatchEndpoint, &a.CreatedAt, &role); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		a.Role = models.Role(role)
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
