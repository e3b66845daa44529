package contents

import (
	"context"

	"github.com/dmitrijs2005/playerhub/internal/server/models"
)

// Repository stores content metadata; payloads live in object storage.
type Repository interface {
	Create(ctx context.Context, c *models.Content) error
	ListForDevice(ctx context.Context, deviceID string) ([]models.Content, error)
}
