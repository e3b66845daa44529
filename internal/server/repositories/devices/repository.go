package devices

import (
	"context"

	"github.com/dmitrijs2005/playerhub/internal/server/models"
)

// Repository is the device registry.
type Repository interface {
	// Get returns common.ErrorNotFound for unknown ids.
	Get(ctx context.Context, id string) (*models.Device, error)
	Create(ctx context.Context, device *models.Device) error
	// Update overwrites friendly name, master and dispatch endpoint. Callers
	// must have read the row in the same transaction.
	Update(ctx context.Context, device *models.Device) error
	// UpdateName and UpdateEndpoint change one column and return the new
	// row. They apply only while master is still the device master and
	// return common.ErrorNotFound otherwise.
	UpdateName(ctx context.Context, id, master, name string) (*models.Device, error)
	UpdateEndpoint(ctx context.Context, id, master, endpoint string) (*models.Device, error)
	Delete(ctx context.Context, id string) error
	// ListForUser returns the devices email holds a permission on.
	ListForUser(ctx context.Context, email string) ([]models.DeviceAccess, error)
	// ListAll returns every device; roles are resolved against email.
	ListAll(ctx context.Context, email string) ([]models.DeviceAccess, error)
}
