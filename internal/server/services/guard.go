package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/playerhub/internal/clock"
	"github.com/dmitrijs2005/playerhub/internal/common"
	"github.com/dmitrijs2005/playerhub/internal/dbx"
	"github.com/dmitrijs2005/playerhub/internal/logging"
	"github.com/dmitrijs2005/playerhub/internal/server/auth"
	"github.com/dmitrijs2005/playerhub/internal/server/models"
	"github.com/dmitrijs2005/playerhub/internal/server/repositories/repomanager"
)

// Principal is the authenticated caller.
type Principal struct {
	Email   string
	IsAdmin bool
}

// Access is a successful authorization against one device.
type Access struct {
	Principal
	Device *models.Device
	Role   models.Role
}

// Role sets accepted by Authorize.
var (
	MasterOnly = []models.Role{models.RoleMaster}
	AnyMember  = []models.Role{models.RoleMaster, models.RoleContributor}
)

// AccessGuard decides whether a caller may act on a device.
type AccessGuard struct {
	runner      dbx.Runner
	repomanager repomanager.RepositoryManager
	clock       clock.Clock
	log         logging.Logger
	secret      []byte
}

func NewAccessGuard(runner dbx.Runner, m repomanager.RepositoryManager, clk clock.Clock, log logging.Logger, secret []byte) *AccessGuard {
	return &AccessGuard{
		runner:      runner,
		repomanager: m,
		clock:       clk,
		log:         log.With("module", "guard"),
		secret:      secret,
	}
}

// Authenticate validates a session token. Setup tokens are rejected with
// common.ErrWrongPurpose.
func (g *AccessGuard) Authenticate(token string) (*Principal, error) {
	claims, err := auth.ParseToken(token, g.secret, g.clock.Now())
	if err != nil {
		return nil, err
	}
	if claims.Purpose != auth.PurposeSession {
		return nil, common.ErrWrongPurpose
	}
	return &Principal{Email: common.NormalizeEmail(claims.Email), IsAdmin: claims.IsAdmin}, nil
}

// AuthorizeToken is Authenticate followed by Authorize.
func (g *AccessGuard) AuthorizeToken(ctx context.Context, token, deviceID string, required []models.Role) (*Access, error) {
	p, err := g.Authenticate(token)
	if err != nil {
		return nil, err
	}
	return g.Authorize(ctx, p, deviceID, required)
}

// Authorize resolves p's role on deviceID and checks it against required.
// Mastership is read from the device record. Admins pass every check.
// A caller without a permission whose identity equals deviceID is
// provisioned as master of that device.
func (g *AccessGuard) Authorize(ctx context.Context, p *Principal, deviceID string, required []models.Role) (*Access, error) {
	if deviceID == "" {
		return nil, common.ErrInvalidDeviceID
	}

	conn := g.runner.Conn()
	device, err := g.repomanager.Devices(conn).Get(ctx, deviceID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("get device: %w", err)
	}

	if p.IsAdmin {
		if device == nil {
			return nil, common.ErrDeviceNotFound
		}
		return &Access{Principal: *p, Device: device, Role: g.adminRole(device, p.Email)}, nil
	}

	_, err = g.repomanager.Permissions(conn).Get(ctx, p.Email, deviceID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("get permission: %w", err)
	}
	if err != nil || device == nil {
		if deviceID != p.Email {
			return nil, common.ErrNotMember
		}
		if device, err = g.autoProvision(ctx, p.Email); err != nil {
			return nil, err
		}
	}

	role := models.RoleContributor
	if device.MasterEmail == p.Email {
		role = models.RoleMaster
	}
	if !hasRole(required, role) {
		return nil, common.ErrInsufficientRole
	}
	return &Access{Principal: *p, Device: device, Role: role}, nil
}

func (g *AccessGuard) adminRole(device *models.Device, email string) models.Role {
	if device.MasterEmail == email {
		return models.RoleMaster
	}
	return models.RoleAdmin
}

// autoProvision grants email mastership of the device named after it. An
// existing device with a different master is never taken over.
func (g *AccessGuard) autoProvision(ctx context.Context, email string) (*models.Device, error) {
	var device *models.Device
	err := g.runner.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		devices := g.repomanager.Devices(tx)
		now := g.clock.Now()

		d, err := devices.Get(ctx, email)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			d = &models.Device{ID: email, FriendlyName: email, MasterEmail: email, CreatedAt: now}
			if err := devices.Create(ctx, d); err != nil {
				return err
			}
		case err != nil:
			return err
		case d.MasterEmail != email:
			return common.ErrNotMember
		}

		device = d
		return g.repomanager.Permissions(tx).Put(ctx, &models.Permission{
			Email:     email,
			DeviceID:  email,
			Role:      models.RoleMaster,
			AddedBy:   email,
			CreatedAt: now,
		})
	})
	if err != nil {
		if errors.Is(err, common.ErrNotMember) {
			return nil, err
		}
		return nil, fmt.Errorf("auto-provision: %w", err)
	}

	g.log.Info(ctx, "legacy device provisioned", "device_id", email)
	return device, nil
}

func hasRole(required []models.Role, role models.Role) bool {
	return len(required) == 0 || slices.Contains(required, role)
}
