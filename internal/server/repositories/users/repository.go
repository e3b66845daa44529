package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/playerhub/internal/server/models"
)

// AdminFlag names the system flag row whose insertion decides the first admin.
const AdminFlag = "admin_assigned"

// Repository is the credential store: one profile per email.
type Repository interface {
	// Get returns common.ErrorNotFound for unknown emails.
	Get(ctx context.Context, email string) (*models.UserProfile, error)

	// AnyWithPin reports whether any profile has completed enrollment.
	AnyWithPin(ctx context.Context) (bool, error)

	// ClaimAdmin atomically records email as the admin assignee. It
	// returns true only for the single caller whose claim was stored.
	ClaimAdmin(ctx context.Context, email string) (bool, error)

	// SavePin creates or updates the profile with a new PIN hash and
	// clears any lockout. An existing admin flag is never cleared.
	SavePin(ctx context.Context, email, pinHash string, isAdmin bool, now time.Time) (*models.UserProfile, error)

	// ClaimAttempt charges one login attempt before the PIN is compared.
	// It returns common.ErrorLocked while the lock is still in effect at
	// now. Otherwise the failure counter grows by one, restarting after an
	// expired lock, and reaching maxAttempts stores lockUntil. A correct PIN
	// must be followed by ResetAttempts.
	ClaimAttempt(ctx context.Context, email string, now time.Time, maxAttempts int, lockUntil time.Time) (*models.UserProfile, error)

	// ResetAttempts clears the failure counter and any lockout.
	ResetAttempts(ctx context.Context, email string) error
}
