package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/playerhub/internal/clock"
	"github.com/dmitrijs2005/playerhub/internal/common"
	"github.com/dmitrijs2005/playerhub/internal/dbx"
	"github.com/dmitrijs2005/playerhub/internal/logging"
	"github.com/dmitrijs2005/playerhub/internal/server/models"
	"github.com/dmitrijs2005/playerhub/internal/server/repositories/devices"
	"github.com/dmitrijs2005/playerhub/internal/server/repositories/repomanager"
)

// Announce outcomes.
const (
	AnnounceRegistered  = "registered"
	AnnounceUnchanged   = "unchanged"
	AnnounceTransferred = "transferred"
)

const maxNameLen = 64

// DeviceService manages ownership and sharing. Every method taking an
// *Access expects the caller to have been authorized for it already.
type DeviceService struct {
	runner      dbx.Runner
	repomanager repomanager.RepositoryManager
	clock       clock.Clock
	log         logging.Logger
}

func NewDeviceService(runner dbx.Runner, m repomanager.RepositoryManager, clk clock.Clock, log logging.Logger) *DeviceService {
	return &DeviceService{
		runner:      runner,
		repomanager: m,
		clock:       clk,
		log:         log.With("module", "devices"),
	}
}

// List returns the devices visible to p with p's role on each. Admins see
// every device.
func (s *DeviceService) List(ctx context.Context, p *Principal) ([]models.DeviceAccess, error) {
	repo := s.repomanager.Devices(s.runner.Conn())

	var (
		list []models.DeviceAccess
		err  error
	)
	if p.IsAdmin {
		list, err = repo.ListAll(ctx, p.Email)
	} else {
		list, err = repo.ListForUser(ctx, p.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	for i := range list {
		switch {
		case list[i].MasterEmail == p.Email:
			list[i].Role = models.RoleMaster
		case list[i].Role == models.RoleMaster:
			// stale grant, the device record wins
			list[i].Role = models.RoleContributor
		}
	}
	return list, nil
}

// Claim registers deviceID with p as master. Claiming a device p already
// owns succeeds without changes.
func (s *DeviceService) Claim(ctx context.Context, p *Principal, deviceID, friendlyName string) (*models.Device, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, common.ErrInvalidDeviceID
	}
	name, err := validName(friendlyName, deviceID)
	if err != nil {
		return nil, err
	}

	var device *models.Device
	err = s.runner.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		devices := s.repomanager.Devices(tx)

		existing, err := devices.Get(ctx, deviceID)
		switch {
		case err == nil:
			if existing.MasterEmail != p.Email {
				return common.ErrAlreadyClaimed
			}
			device = existing
			return nil
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		now := s.clock.Now()
		device = &models.Device{ID: deviceID, FriendlyName: name, MasterEmail: p.Email, CreatedAt: now}
		if err := devices.Create(ctx, device); err != nil {
			return err
		}
		return s.repomanager.Permissions(tx).Put(ctx, &models.Permission{
			Email: p.Email, DeviceID: deviceID, Role: models.RoleMaster, AddedBy: p.Email, CreatedAt: now,
		})
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyClaimed) {
			return nil, err
		}
		return nil, fmt.Errorf("claim device: %w", err)
	}

	s.log.Info(ctx, "device claimed", "device_id", deviceID, "master", p.Email)
	return device, nil
}

// Share grants email contributor access.
func (s *DeviceService) Share(ctx context.Context, a *Access, email string) error {
	email, err := common.ValidateEmail(email)
	if err != nil {
		return err
	}
	if email == a.Device.MasterEmail {
		return common.ErrShareWithMaster
	}

	err = s.repomanager.Permissions(s.runner.Conn()).Put(ctx, &models.Permission{
		Email:     email,
		DeviceID:  a.Device.ID,
		Role:      models.RoleContributor,
		AddedBy:   a.Email,
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("share device: %w", err)
	}

	s.log.Info(ctx, "device shared", "device_id", a.Device.ID, "with", email)
	return nil
}

// Unshare revokes a contributor. The master cannot be removed this way.
func (s *DeviceService) Unshare(ctx context.Context, a *Access, email string) error {
	email = common.NormalizeEmail(email)
	if email == a.Device.MasterEmail {
		return common.ErrRemovingMaster
	}

	if err := s.repomanager.Permissions(s.runner.Conn()).Delete(ctx, email, a.Device.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrMemberNotFound
		}
		return fmt.Errorf("unshare device: %w", err)
	}

	s.log.Info(ctx, "device unshared", "device_id", a.Device.ID, "from", email)
	return nil
}

// Release deletes the device with all of its grants and content records.
func (s *DeviceService) Release(ctx context.Context, a *Access) error {
	err := s.runner.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Permissions(tx).DeleteAllForDevice(ctx, a.Device.ID); err != nil {
			return err
		}
		return s.repomanager.Devices(tx).Delete(ctx, a.Device.ID)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrDeviceNotFound
		}
		return fmt.Errorf("release device: %w", err)
	}

	s.log.Info(ctx, "device released", "device_id", a.Device.ID)
	return nil
}

// Rename changes the friendly name. Like RegisterDispatch it applies only
// while the master seen at authorization still owns the device.
func (s *DeviceService) Rename(ctx context.Context, a *Access, friendlyName string) (*models.Device, error) {
	name, err := validName(friendlyName, "")
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Devices(s.runner.Conn())
	d, err := repo.UpdateName(ctx, a.Device.ID, a.Device.MasterEmail, name)
	if err != nil {
		return nil, s.updateError(ctx, repo, a.Device.ID, err, "rename device")
	}
	return d, nil
}

// RegisterDispatch stores the gRPC endpoint used for direct commands. An
// empty endpoint unregisters it, routing every command to the queue.
func (s *DeviceService) RegisterDispatch(ctx context.Context, a *Access, endpoint string) (*models.Device, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint != "" {
		if _, _, err := net.SplitHostPort(endpoint); err != nil {
			return nil, common.ErrInvalidEndpoint
		}
	}

	repo := s.repomanager.Devices(s.runner.Conn())
	d, err := repo.UpdateEndpoint(ctx, a.Device.ID, a.Device.MasterEmail, endpoint)
	if err != nil {
		return nil, s.updateError(ctx, repo, a.Device.ID, err, "register dispatch")
	}

	s.log.Info(ctx, "dispatch endpoint set", "device_id", d.ID, "endpoint", endpoint)
	return d, nil
}

// updateError tells a released device from one transferred to another
// master after the caller was authorized.
func (s *DeviceService) updateError(ctx context.Context, repo devices.Repository, id string, err error, op string) error {
	if !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := repo.Get(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrDeviceNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return common.ErrNotMember
}

// Members lists every grant on the device, master first.
func (s *DeviceService) Members(ctx context.Context, a *Access) ([]models.Permission, error) {
	list, err := s.repomanager.Permissions(s.runner.Conn()).ListForDevice(ctx, a.Device.ID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return list, nil
}

// Announce is the device bootstrap call. A device reporting a new owner
// is transferred: every existing grant is revoked before the new master's
// grant is written, all in one transaction.
func (s *DeviceService) Announce(ctx context.Context, deviceID, email, friendlyName string) (string, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return "", common.ErrInvalidDeviceID
	}
	email, err := common.ValidateEmail(email)
	if err != nil {
		return "", err
	}
	friendlyName = strings.TrimSpace(friendlyName)
	if utf8.RuneCountInString(friendlyName) > maxNameLen {
		return "", common.ErrInvalidName
	}

	var status string
	err = s.runner.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		devices := s.repomanager.Devices(tx)
		perms := s.repomanager.Permissions(tx)
		now := s.clock.Now()
		master := &models.Permission{Email: email, DeviceID: deviceID, Role: models.RoleMaster, AddedBy: email, CreatedAt: now}

		d, err := devices.Get(ctx, deviceID)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			name := friendlyName
			if name == "" {
				name = deviceID
			}
			status = AnnounceRegistered
			if err := devices.Create(ctx, &models.Device{ID: deviceID, FriendlyName: name, MasterEmail: email, CreatedAt: now}); err != nil {
				return err
			}
			return perms.Put(ctx, master)
		case err != nil:
			return err
		}

		if friendlyName != "" {
			d.FriendlyName = friendlyName
		}

		if d.MasterEmail == email {
			status = AnnounceUnchanged
			if err := devices.Update(ctx, d); err != nil {
				return err
			}
			return perms.Put(ctx, master)
		}

		status = AnnounceTransferred
		if _, err := perms.DeleteAllForDevice(ctx, deviceID); err != nil {
			return err
		}
		d.MasterEmail = email
		if err := devices.Update(ctx, d); err != nil {
			return err
		}
		return perms.Put(ctx, master)
	})
	if err != nil {
		return "", fmt.Errorf("announce device: %w", err)
	}

	s.log.Info(ctx, "device announced", "device_id", deviceID, "master", email, "status", status)
	return status, nil
}

func validName(name, fallback string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fallback
	}
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return "", common.ErrInvalidName
	}
	return name, nil
}
