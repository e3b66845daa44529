package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/playerhub/internal/common"
	"github.com/dmitrijs2005/playerhub/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := &Principal{Email: "a@example.com"}

	d, err := env.devices.Claim(ctx, a, " pi-1 ", "Lobby")
	require.NoError(t, err)
	assert.Equal(t, "pi-1", d.ID)
	assert.Equal(t, "Lobby", d.FriendlyName)
	assert.Equal(t, t0, d.CreatedAt)

	again, err := env.devices.Claim(ctx, a, "pi-1", "Other")
	require.NoError(t, err)
	assert.Equal(t, "Lobby", again.FriendlyName)

	_, err = env.devices.Claim(ctx, &Principal{Email: "b@example.com"}, "pi-1", "")
	assert.ErrorIs(t, err, common.ErrAlreadyClaimed)

	_, err = env.devices.Claim(ctx, a, "  ", "")
	assert.ErrorIs(t, err, common.ErrInvalidDeviceID)

	d, err = env.devices.Claim(ctx, a, "pi-2", "")
	require.NoError(t, err)
	assert.Equal(t, "pi-2", d.FriendlyName)
}

func TestList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.claim(t, "a@example.com", "pi-1")
	env.clock.Advance(1)
	env.claim(t, "b@example.com", "pi-2")
	require.NoError(t, env.devices.Share(ctx, a, "b@example.com"))

	list, err := env.devices.List(ctx, &Principal{Email: "b@example.com"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "pi-1", list[0].ID)
	assert.Equal(t, models.RoleContributor, list[0].Role)
	assert.Equal(t, models.RoleMaster, list[1].Role)

	list, err = env.devices.List(ctx, &Principal{Email: "c@example.com"})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = env.devices.List(ctx, &Principal{Email: "root@example.com", IsAdmin: true})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.RoleAdmin, list[0].Role)
}

func TestShareAndUnshare(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.claim(t, "a@example.com", "pi-1")

	assert.ErrorIs(t, env.devices.Share(ctx, a, "not an email"), common.ErrInvalidEmail)
	assert.ErrorIs(t, env.devices.Share(ctx, a, "A@example.com"), common.ErrShareWithMaster)

	require.NoError(t, env.devices.Share(ctx, a, "B@Example.com"))
	members, err := env.devices.Members(ctx, a)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "a@example.com", members[0].Email)
	assert.Equal(t, models.Permission{Email: "b@example.com", DeviceID: "pi-1", Role: models.RoleContributor, AddedBy: "a@example.com", CreatedAt: t0}, members[1])

	assert.ErrorIs(t, env.devices.Unshare(ctx, a, "a@example.com"), common.ErrRemovingMaster)
	require.NoError(t, env.devices.Unshare(ctx, a, "b@example.com"))
	assert.ErrorIs(t, env.devices.Unshare(ctx, a, "b@example.com"), common.ErrMemberNotFound)

	_, err = env.authorize("b@example.com", "pi-1", AnyMember)
	assert.ErrorIs(t, err, common.ErrNotMember)
}

func TestRenameAndRegisterDispatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.claim(t, "a@example.com", "pi-1")

	d, err := env.devices.Rename(ctx, a, "  Front desk ")
	require.NoError(t, err)
	assert.Equal(t, "Front desk", d.FriendlyName)

	_, err = env.devices.Rename(ctx, a, " ")
	assert.ErrorIs(t, err, common.ErrInvalidName)

	_, err = env.devices.RegisterDispatch(ctx, a, "10.0.0.5")
	assert.ErrorIs(t, err, common.ErrInvalidEndpoint)

	d, err = env.devices.RegisterDispatch(ctx, a, "10.0.0.5:7443")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:7443", d.DispatchEndpoint)
	assert.Equal(t, "Front desk", d.FriendlyName)

	stored, err := env.store.Devices(nil).Get(ctx, "pi-1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:7443", stored.DispatchEndpoint)
}

func TestRenameAfterTransferKeepsNewMaster(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	stale := env.claim(t, "a@example.com", "pi-1")

	status, err := env.devices.Announce(ctx, "pi-1", "b@example.com", "")
	require.NoError(t, err)
	require.Equal(t, AnnounceTransferred, status)

	_, err = env.devices.Rename(ctx, stale, "Hijacked")
	assert.ErrorIs(t, err, common.ErrNotMember)
	_, err = env.devices.RegisterDispatch(ctx, stale, "10.0.0.9:7443")
	assert.ErrorIs(t, err, common.ErrNotMember)

	stored, err := env.store.Devices(nil).Get(ctx, "pi-1")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", stored.MasterEmail)
	assert.Equal(t, "pi-1", stored.FriendlyName)
	assert.Empty(t, stored.DispatchEndpoint)

	b, err := env.authorize("b@example.com", "pi-1", MasterOnly)
	require.NoError(t, err)
	d, err := env.devices.Rename(ctx, b, "Lobby")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", d.MasterEmail)

	require.NoError(t, env.devices.Release(ctx, b))
	_, err = env.devices.Rename(ctx, b, "Gone")
	assert.ErrorIs(t, err, common.ErrDeviceNotFound)
}

func TestRelease(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.claim(t, "a@example.com", "pi-1")
	require.NoError(t, env.devices.Share(ctx, a, "b@example.com"))

	require.NoError(t, env.devices.Release(ctx, a))

	_, err := env.store.Devices(nil).Get(ctx, "pi-1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = env.authorize("b@example.com", "pi-1", AnyMember)
	assert.ErrorIs(t, err, common.ErrNotMember)

	assert.ErrorIs(t, env.devices.Release(ctx, a), common.ErrDeviceNotFound)

	// released ids can be claimed again
	env.claim(t, "c@example.com", "pi-1")
}

func TestAnnounce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	status, err := env.devices.Announce(ctx, "pi-1", "a@example.com", "Lobby")
	require.NoError(t, err)
	assert.Equal(t, AnnounceRegistered, status)

	a, err := env.authorize("a@example.com", "pi-1", MasterOnly)
	require.NoError(t, err)
	require.NoError(t, env.devices.Share(ctx, a, "b@example.com"))

	status, err = env.devices.Announce(ctx, "pi-1", "A@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, AnnounceUnchanged, status)
	_, err = env.authorize("b@example.com", "pi-1", AnyMember)
	require.NoError(t, err, "unchanged announce keeps contributors")

	status, err = env.devices.Announce(ctx, "pi-1", "c@example.com", "Hall")
	require.NoError(t, err)
	assert.Equal(t, AnnounceTransferred, status)

	_, err = env.authorize("a@example.com", "pi-1", MasterOnly)
	assert.ErrorIs(t, err, common.ErrNotMember, "old master loses access")
	_, err = env.authorize("b@example.com", "pi-1", AnyMember)
	assert.ErrorIs(t, err, common.ErrNotMember, "old contributors lose access")

	c, err := env.authorize("c@example.com", "pi-1", MasterOnly)
	require.NoError(t, err)
	assert.Equal(t, "Hall", c.Device.FriendlyName)

	members, err := env.devices.Members(ctx, c)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "c@example.com", members[0].Email)

	_, err = env.devices.Announce(ctx, "", "c@example.com", "")
	assert.ErrorIs(t, err, common.ErrInvalidDeviceID)
	_, err = env.devices.Announce(ctx, "pi-1", "nope", "")
	assert.ErrorIs(t, err, common.ErrInvalidEmail)
}
