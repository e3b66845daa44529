package codes

import (
	"context"

	"github.com/dmitrijs2005/playerhub/internal/server/models"
)

// Repository stores at most one pending enrollment code per email.
type Repository interface {
	// Put stores code, replacing any earlier code for the same email.
	Put(ctx context.Context, code *models.PendingCode) error
	// Find returns common.ErrorNotFound when no code is pending.
	Find(ctx context.Context, email string) (*models.PendingCode, error)
	Delete(ctx context.Context, email string) error
}
