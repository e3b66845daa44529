// Package contents provides the PostgreSQL-backed content metadata store.
package contents

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/playerhub/internal/dbx"
	"github.com/dmitrijs2005/playerhub/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Content) error {
	query :=
		`INSERT INTO contents (id, device_id, title, content_type, storage_key, posted_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `

	_, err := r.db.ExecContext(ctx, query, c.ID, c.DeviceID, c.Title, c.ContentType, c.StorageKey, c.PostedBy, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListForDevice(ctx context.Context, deviceID string) ([]models.Content, error) {
	query :=
		`SELECT id, device_id, title, content_type, storage_key, posted_by, created_at FROM contents
		 WHERE device_id = $1
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Content, 0)
	for rows.Next() {
		var c models.Content
		if err := rows.Scan(&c.ID, &c.DeviceID, &c.Title, &c.ContentType, &c.StorageKey, &c.PostedBy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
