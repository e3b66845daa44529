package permissions

import (
	"context"

	"github.com/dmitrijs2005/playerhub/internal/server/models"
)

// Repository stores per-device role grants keyed by (email, device).
type Repository interface {
	// Get returns common.ErrorNotFound when email has no grant on deviceID.
	Get(ctx context.Context, email, deviceID string) (*models.Permission, error)
	// Put creates the grant or replaces its role.
	Put(ctx context.Context, p *models.Permission) error
	Delete(ctx context.Context, email, deviceID string) error
	// DeleteAllForDevice removes every grant on deviceID and returns how
	// many were removed.
	DeleteAllForDevice(ctx context.Context, deviceID string) (int64, error)
	ListForDevice(ctx context.Context, deviceID string) ([]models.Permission, error)
}
