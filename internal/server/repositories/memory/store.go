// Package memory provides map-backed repositories for development mode and
// service tests. A Store implements both repomanager.RepositoryManager and
// dbx.Runner; the DBTX handles it receives are ignored.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/playerhub/internal/common"
	"github.com/dmitrijs2005/playerhub/internal/dbx"
	"github.com/dmitrijs2005/playerhub/internal/server/models"
	"github.com/dmitrijs2005/playerhub/internal/server/repositories/codes"
	"github.com/dmitrijs2005/playerhub/internal/server/repositories/contents"
	"github.com/dmitrijs2005/playerhub/internal/server/repositories/devices"
	"github.com/dmitrijs2005/playerhub/internal/server/repositories/permissions"
	"github.com/dmitrijs2005/playerhub/internal/server/repositories/users"
)

type permKey struct {
	email    string
	deviceID string
}

type state struct {
	users    map[string]models.UserProfile
	codes    map[string]models.PendingCode
	flags    map[string]string
	devices  map[string]models.Device
	perms    map[permKey]models.Permission
	contents []models.Content
}

func newState() state {
	return state{
		users:   map[string]models.UserProfile{},
		codes:   map[string]models.PendingCode{},
		flags:   map[string]string{},
		devices: map[string]models.Device{},
		perms:   map[permKey]models.Permission{},
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.codes {
		c.codes[k] = v
	}
	for k, v := range s.flags {
		c.flags[k] = v
	}
	for k, v := range s.devices {
		c.devices[k] = v
	}
	for k, v := range s.perms {
		c.perms[k] = v
	}
	c.contents = append([]models.Content(nil), s.contents...)
	return c
}

type Store struct {
	mu sync.Mutex
	st state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) RunMigrations(context.Context, *sql.DB) error { return nil }

func (s *Store) Users(db dbx.DBTX) users.Repository             { return &userRepo{s.scopeFor(db)} }
func (s *Store) Codes(db dbx.DBTX) codes.Repository             { return &codeRepo{s.scopeFor(db)} }
func (s *Store) Devices(db dbx.DBTX) devices.Repository         { return &deviceRepo{s.scopeFor(db)} }
func (s *Store) Permissions(db dbx.DBTX) permissions.Repository { return &permRepo{s.scopeFor(db)} }
func (s *Store) Contents(db dbx.DBTX) contents.Repository       { return &contentRepo{s.scopeFor(db)} }

func (s *Store) Conn() dbx.DBTX { return nil }

// txConn marks repositories created inside WithTx. Its methods are never
// called.
type txConn struct{ dbx.DBTX }

// scope is embedded by every repository. Outside a transaction each call
// takes the store lock; inside one the lock is already held by WithTx.
type scope struct {
	s    *Store
	inTx bool
}

func (s *Store) scopeFor(db dbx.DBTX) scope {
	_, inTx := db.(*txConn)
	return scope{s: s, inTx: inTx}
}

func (sc scope) lock() func() {
	if sc.inTx {
		return func() {}
	}
	sc.s.mu.Lock()
	return sc.s.mu.Unlock
}

// WithTx holds the store lock for the whole of fn, so calls made outside
// the transaction wait for it to finish. The state is restored when fn
// fails or panics. fn must use repositories built from tx only.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	defer func() {
		if p := recover(); p != nil {
			s.st = snapshot
			panic(p)
		}
		if err != nil {
			s.st = snapshot
		}
	}()

	return fn(ctx, &txConn{})
}

type userRepo struct{ scope }

func (r *userRepo) Get(_ context.Context, email string) (*models.UserProfile, error) {
	defer r.lock()()
	u, ok := r.s.st.users[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *userRepo) AnyWithPin(context.Context) (bool, error) {
	defer r.lock()()
	for _, u := range r.s.st.users {
		if u.PinHash != "" {
			return true, nil
		}
	}
	return false, nil
}

func (r *userRepo) ClaimAdmin(_ context.Context, email string) (bool, error) {
	defer r.lock()()
	if _, ok := r.s.st.flags[users.AdminFlag]; ok {
		return false, nil
	}
	r.s.st.flags[users.AdminFlag] = email
	return true, nil
}

func (r *userRepo) SavePin(_ context.Context, email, pinHash string, isAdmin bool, now time.Time) (*models.UserProfile, error) {
	defer r.lock()()
	u, ok := r.s.st.users[email]
	if !ok {
		u = models.UserProfile{Email: email, CreatedAt: now}
	}
	u.PinHash = pinHash
	u.IsAdmin = u.IsAdmin || isAdmin
	u.FailedAttempts = 0
	u.LockedUntil = time.Time{}
	r.s.st.users[email] = u
	return &u, nil
}

func (r *userRepo) ClaimAttempt(_ context.Context, email string, now time.Time, maxAttempts int, lockUntil time.Time) (*models.UserProfile, error) {
	defer r.lock()()
	u, ok := r.s.st.users[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if now.Before(u.LockedUntil) {
		return nil, common.ErrorLocked
	}
	if !u.LockedUntil.IsZero() {
		u.FailedAttempts = 0
		u.LockedUntil = time.Time{}
	}
	u.FailedAttempts++
	if u.FailedAttempts >= maxAttempts {
		u.LockedUntil = lockUntil
	}
	r.s.st.users[email] = u
	return &u, nil
}

func (r *userRepo) ResetAttempts(_ context.Context, email string) error {
	defer r.lock()()
	if u, ok := r.s.st.users[email]; ok {
		u.FailedAttempts = 0
		u.LockedUntil = time.Time{}
		r.s.st.users[email] = u
	}
	return nil
}

type codeRepo struct{ scope }

func (r *codeRepo) Put(_ context.Context, c *models.PendingCode) error {
	defer r.lock()()
	r.s.st.codes[c.Email] = *c
	return nil
}

func (r *codeRepo) Find(_ context.Context, email string) (*models.PendingCode, error) {
	defer r.lock()()
	c, ok := r.s.st.codes[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &c, nil
}

func (r *codeRepo) Delete(_ context.Context, email string) error {
	defer r.lock()()
	delete(r.s.st.codes, email)
	return nil
}

type deviceRepo struct{ scope }

func (r *deviceRepo) Get(_ context.Context, id string) (*models.Device, error) {
	defer r.lock()()
	d, ok := r.s.st.devices[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &d, nil
}

func (r *deviceRepo) Create(_ context.Context, d *models.Device) error {
	defer r.lock()()
	if _, ok := r.s.st.devices[d.ID]; ok {
		return fmt.Errorf("db error: duplicate device %q", d.ID)
	}
	r.s.st.devices[d.ID] = *d
	return nil
}

func (r *deviceRepo) Update(_ context.Context, d *models.Device) error {
	defer r.lock()()
	cur, ok := r.s.st.devices[d.ID]
	if !ok {
		return common.ErrorNotFound
	}
	cur.FriendlyName = d.FriendlyName
	cur.MasterEmail = d.MasterEmail
	cur.DispatchEndpoint = d.DispatchEndpoint
	r.s.st.devices[d.ID] = cur
	return nil
}

func (r *deviceRepo) UpdateName(_ context.Context, id, master, name string) (*models.Device, error) {
	return r.updateIf(id, master, func(d *models.Device) { d.FriendlyName = name })
}

func (r *deviceRepo) UpdateEndpoint(_ context.Context, id, master, endpoint string) (*models.Device, error) {
	return r.updateIf(id, master, func(d *models.Device) { d.DispatchEndpoint = endpoint })
}

func (r *deviceRepo) updateIf(id, master string, apply func(*models.Device)) (*models.Device, error) {
	defer r.lock()()
	d, ok := r.s.st.devices[id]
	if !ok || d.MasterEmail != master {
		return nil, common.ErrorNotFound
	}
	apply(&d)
	r.s.st.devices[id] = d
	return &d, nil
}

func (r *deviceRepo) Delete(_ context.Context, id string) error {
	defer r.lock()()
	if _, ok := r.s.st.devices[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.st.devices, id)
	for k := range r.s.st.perms {
		if k.deviceID == id {
			delete(r.s.st.perms, k)
		}
	}
	kept := r.s.st.contents[:0]
	for _, c := range r.s.st.contents {
		if c.DeviceID != id {
			kept = append(kept, c)
		}
	}
	r.s.st.contents = kept
	return nil
}

func (r *deviceRepo) ListForUser(_ context.Context, email string) ([]models.DeviceAccess, error) {
	defer r.lock()()
	result := make([]models.DeviceAccess, 0)
	for k, p := range r.s.st.perms {
		if k.email != email {
			continue
		}
		if d, ok := r.s.st.devices[k.deviceID]; ok {
			result = append(result, models.DeviceAccess{Device: d, Role: p.Role})
		}
	}
	sortAccess(result)
	return result, nil
}

func (r *deviceRepo) ListAll(_ context.Context, email string) ([]models.DeviceAccess, error) {
	defer r.lock()()
	result := make([]models.DeviceAccess, 0, len(r.s.st.devices))
	for id, d := range r.s.st.devices {
		role := models.RoleAdmin
		if p, ok := r.s.st.perms[permKey{email, id}]; ok {
			role = p.Role
		}
		result = append(result, models.DeviceAccess{Device: d, Role: role})
	}
	sortAccess(result)
	return result, nil
}

func sortAccess(a []models.DeviceAccess) {
	sort.Slice(a, func(i, j int) bool {
		if !a[i].CreatedAt.Equal(a[j].CreatedAt) {
			return a[i].CreatedAt.Before(a[j].CreatedAt)
		}
		return a[i].ID < a[j].ID
	})
}

type permRepo struct{ scope }

func (r *permRepo) Get(_ context.Context, email, deviceID string) (*models.Permission, error) {
	defer r.lock()()
	p, ok := r.s.st.perms[permKey{email, deviceID}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &p, nil
}

func (r *permRepo) Put(_ context.Context, p *models.Permission) error {
	defer r.lock()()
	if _, ok := r.s.st.devices[p.DeviceID]; !ok {
		return fmt.Errorf("db error: unknown device %q", p.DeviceID)
	}
	k := permKey{p.Email, p.DeviceID}
	if cur, ok := r.s.st.perms[k]; ok {
		cur.Role = p.Role
		cur.AddedBy = p.AddedBy
		r.s.st.perms[k] = cur
		return nil
	}
	r.s.st.perms[k] = *p
	return nil
}

func (r *permRepo) Delete(_ context.Context, email, deviceID string) error {
	defer r.lock()()
	k := permKey{email, deviceID}
	if _, ok := r.s.st.perms[k]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.st.perms, k)
	return nil
}

func (r *permRepo) DeleteAllForDevice(_ context.Context, deviceID string) (int64, error) {
	defer r.lock()()
	var n int64
	for k := range r.s.st.perms {
		if k.deviceID == deviceID {
			delete(r.s.st.perms, k)
			n++
		}
	}
	return n, nil
}

func (r *permRepo) ListForDevice(_ context.Context, deviceID string) ([]models.Permission, error) {
	defer r.lock()()
	result := make([]models.Permission, 0)
	for k, p := range r.s.st.perms {
		if k.deviceID == deviceID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Role != result[j].Role {
			return result[i].Role == models.RoleMaster
		}
		return result[i].Email < result[j].Email
	})
	return result, nil
}

type contentRepo struct{ scope }

func (r *contentRepo) Create(_ context.Context, c *models.Content) error {
	defer r.lock()()
	if _, ok := r.s.st.devices[c.DeviceID]; !ok {
		return fmt.Errorf("db error: unknown device %q", c.DeviceID)
	}
	r.s.st.contents = append(r.s.st.contents, *c)
	return nil
}

func (r *contentRepo) ListForDevice(_ context.Context, deviceID string) ([]models.Content, error) {
	defer r.lock()()
	result := make([]models.Content, 0)
	for i := len(r.s.st.contents) - 1; i >= 0; i-- {
		if c := r.s.st.contents[i]; c.DeviceID == deviceID {
			result = append(result, c)
		}
	}
	return result, nil
}
