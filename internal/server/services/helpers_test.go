package services

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/playerhub/internal/clock"
	"github.com/dmitrijs2005/playerhub/internal/logging"
	"github.com/dmitrijs2005/playerhub/internal/server/auth"
	"github.com/dmitrijs2005/playerhub/internal/server/models"
	"github.com/dmitrijs2005/playerhub/internal/server/repositories/memory"
	"github.com/stretchr/testify/require"
)

var (
	t0     = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	secret = []byte("test-secret")
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

var codeInBody = regexp.MustCompile(`\b(\d{6})\b`)

func (m *fakeMailer) lastCode(t *testing.T, to string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].to == to {
			match := codeInBody.FindStringSubmatch(m.sent[i].body)
			require.Len(t, match, 2)
			return match[1]
		}
	}
	t.Fatalf("no mail sent to %s", to)
	return ""
}

type testEnv struct {
	store   *memory.Store
	clock   *clock.FakeClock
	mailer  *fakeMailer
	auth    *AuthService
	guard   *AccessGuard
	devices *DeviceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	clk := clock.Fake(t0)
	ml := &fakeMailer{}
	log := logging.Discard()

	return &testEnv{
		store:  store,
		clock:  clk,
		mailer: ml,
		auth: NewAuthService(store, store, ml, clk, log, AuthConfig{
			SecretKey:         secret,
			SetupTokenTTL:     15 * time.Minute,
			SessionTokenTTL:   180 * 24 * time.Hour,
			CodeTTL:           10 * time.Minute,
			MaxFailedAttempts: 3,
			LockoutDuration:   15 * time.Minute,
		}),
		guard:   NewAccessGuard(store, store, clk, log, secret),
		devices: NewDeviceService(store, store, clk, log),
	}
}

// enroll runs the full code → setup token → PIN flow.
func (e *testEnv) enroll(t *testing.T, email, pin string) *Session {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.auth.SendCode(ctx, email))
	setup, err := e.auth.VerifyCode(ctx, email, e.mailer.lastCode(t, email))
	require.NoError(t, err)
	s, err := e.auth.SetPin(ctx, setup, pin)
	require.NoError(t, err)
	return s
}

func sessionToken(t *testing.T, email string, isAdmin bool, now time.Time) string {
	t.Helper()
	tok, err := auth.GenerateToken(auth.Claims{Email: email, IsAdmin: isAdmin, Purpose: auth.PurposeSession}, secret, now, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) claim(t *testing.T, email, deviceID string) *Access {
	t.Helper()
	p := &Principal{Email: email}
	_, err := e.devices.Claim(context.Background(), p, deviceID, "")
	require.NoError(t, err)
	a, err := e.guard.Authorize(context.Background(), p, deviceID, MasterOnly)
	require.NoError(t, err)
	return a
}

func (e *testEnv) authorize(email, deviceID string, roles []models.Role) (*Access, error) {
	return e.guard.Authorize(context.Background(), &Principal{Email: email}, deviceID, roles)
}
