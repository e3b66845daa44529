package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/playerhub/internal/common"
	"github.com/dmitrijs2005/playerhub/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.auth.Lookup(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, res.Exists)

	env.enroll(t, "a@example.com", "1234")

	res, err = env.auth.Lookup(ctx, " A@Example.com ")
	require.NoError(t, err)
	assert.True(t, res.Exists)
	assert.True(t, res.IsAdmin)

	_, err = env.auth.Lookup(ctx, "")
	assert.ErrorIs(t, err, common.ErrInvalidEmail)
}

func TestSendCode_OverwritesAndMails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.auth.SendCode(ctx, "a@example.com"))
	first := env.mailer.lastCode(t, "a@example.com")
	require.NoError(t, env.auth.SendCode(ctx, "a@example.com"))
	second := env.mailer.lastCode(t, "a@example.com")

	pending, err := env.store.Codes(nil).Find(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, second, pending.Code)
	assert.Equal(t, t0.Add(10*time.Minute), pending.ExpiresAt)

	if first != second {
		_, err = env.auth.VerifyCode(ctx, "a@example.com", first)
		assert.ErrorIs(t, err, common.ErrInvalidCode)
	}
}

func TestSendCode_MailFailureKeepsCode(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.err = errors.New("smtp down")

	err := env.auth.SendCode(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, common.ErrMailFailed)
	assert.ErrorIs(t, err, common.ErrorDependency)

	_, err = env.store.Codes(nil).Find(context.Background(), "a@example.com")
	assert.NoError(t, err)
}

func TestVerifyCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.VerifyCode(ctx, "a@example.com", "123456")
	assert.ErrorIs(t, err, common.ErrInvalidCode, "no pending code")

	require.NoError(t, env.auth.SendCode(ctx, "a@example.com"))
	code := env.mailer.lastCode(t, "a@example.com")

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = env.auth.VerifyCode(ctx, "a@example.com", wrong)
	assert.ErrorIs(t, err, common.ErrInvalidCode)

	token, err := env.auth.VerifyCode(ctx, "a@example.com", code)
	require.NoError(t, err)

	claims, err := auth.ParseToken(token, secret, t0)
	require.NoError(t, err)
	assert.Equal(t, auth.PurposeSetup, claims.Purpose)
	assert.Equal(t, "a@example.com", claims.Email)

	_, err = env.auth.VerifyCode(ctx, "a@example.com", code)
	assert.ErrorIs(t, err, common.ErrInvalidCode, "code is single use")
}

func TestVerifyCode_Expired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.auth.SendCode(ctx, "a@example.com"))
	code := env.mailer.lastCode(t, "a@example.com")

	env.clock.Advance(10*time.Minute + time.Second)
	_, err := env.auth.VerifyCode(ctx, "a@example.com", code)
	assert.ErrorIs(t, err, common.ErrCodeExpired)
}

func TestSetPin_RejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.SetPin(ctx, "garbage", "1234")
	assert.ErrorIs(t, err, common.ErrInvalidSetupToken)

	_, err = env.auth.SetPin(ctx, sessionToken(t, "a@example.com", false, t0), "1234")
	assert.ErrorIs(t, err, common.ErrInvalidSetupToken, "session token must not set a pin")

	require.NoError(t, env.auth.SendCode(ctx, "a@example.com"))
	setup, err := env.auth.VerifyCode(ctx, "a@example.com", env.mailer.lastCode(t, "a@example.com"))
	require.NoError(t, err)

	env.clock.Advance(16 * time.Minute)
	_, err = env.auth.SetPin(ctx, setup, "1234")
	assert.ErrorIs(t, err, common.ErrInvalidSetupToken, "expired")
}

func TestSetPin_ValidatesPin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.auth.SendCode(ctx, "a@example.com"))
	setup, err := env.auth.VerifyCode(ctx, "a@example.com", env.mailer.lastCode(t, "a@example.com"))
	require.NoError(t, err)

	for _, pin := range []string{"", "123", "12345", "12a4", " 1234", "١٢٣٤"} {
		_, err := env.auth.SetPin(ctx, setup, pin)
		assert.ErrorIs(t, err, common.ErrInvalidPinFormat, "%q", pin)
	}
}

func TestSetPin_FirstEnrollmentIsAdmin(t *testing.T) {
	env := newTestEnv(t)

	a := env.enroll(t, "a@example.com", "1234")
	b := env.enroll(t, "b@example.com", "5678")

	assert.True(t, a.IsAdmin)
	assert.False(t, b.IsAdmin)

	// re-enrolling the admin keeps the flag, re-enrolling b never grants it
	a2 := env.enroll(t, "a@example.com", "4321")
	b2 := env.enroll(t, "b@example.com", "8765")
	assert.True(t, a2.IsAdmin)
	assert.False(t, b2.IsAdmin)

	claims, err := auth.ParseToken(a.Token, secret, t0)
	require.NoError(t, err)
	assert.Equal(t, auth.PurposeSession, claims.Purpose)
	assert.True(t, claims.IsAdmin)
}

func TestSetPin_ConcurrentFirstEnrollments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	emails := []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"}
	setups := make([]string, len(emails))
	for i, e := range emails {
		require.NoError(t, env.auth.SendCode(ctx, e))
		tok, err := env.auth.VerifyCode(ctx, e, env.mailer.lastCode(t, e))
		require.NoError(t, err)
		setups[i] = tok
	}

	var wg sync.WaitGroup
	results := make([]*Session, len(emails))
	for i := range emails {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := env.auth.SetPin(ctx, setups[i], "1234")
			if assert.NoError(t, err) {
				results[i] = s
			}
		}(i)
	}
	wg.Wait()

	admins := 0
	for _, s := range results {
		if s != nil && s.IsAdmin {
			admins++
		}
	}
	assert.Equal(t, 1, admins)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.enroll(t, "a@example.com", "1234")

	_, err := env.auth.Login(ctx, "nobody@example.com", "1234")
	assert.ErrorIs(t, err, common.ErrUnknownUser)

	s, err := env.auth.Login(ctx, "A@example.com", "1234")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", s.Email)
	assert.True(t, s.IsAdmin)

	p, err := env.guard.Authenticate(s.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", p.Email)
}

func TestLogin_LockoutAfterThreeMismatches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.enroll(t, "a@example.com", "1234")

	for i := 0; i < 2; i++ {
		_, err := env.auth.Login(ctx, "a@example.com", "0000")
		assert.ErrorIs(t, err, common.ErrInvalidPin)
	}

	_, err := env.auth.Login(ctx, "a@example.com", "0000")
	var locked *common.LockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 15, locked.RemainingMinutes())

	profile, err := env.store.Users(nil).Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(15*time.Minute), profile.LockedUntil)

	// the correct pin is refused while locked
	env.clock.Advance(10 * time.Minute)
	_, err = env.auth.Login(ctx, "a@example.com", "1234")
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 5, locked.RemainingMinutes())
	assert.ErrorIs(t, err, common.ErrorLocked)

	env.clock.Advance(5 * time.Minute)
	_, err = env.auth.Login(ctx, "a@example.com", "1234")
	require.NoError(t, err)

	profile, err = env.store.Users(nil).Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Zero(t, profile.FailedAttempts)
	assert.True(t, profile.LockedUntil.IsZero())
}

func TestLogin_ConcurrentGuessesStopAtLock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.enroll(t, "a@example.com", "1234")

	const guesses = 12
	var wg sync.WaitGroup
	var mu sync.Mutex
	invalid, locked, other := 0, 0, 0
	for i := 0; i < guesses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.auth.Login(ctx, "a@example.com", "0000")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, common.ErrInvalidPin):
				invalid++
			case errors.Is(err, common.ErrorLocked):
				locked++
			default:
				other++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, invalid)
	assert.Equal(t, guesses-2, locked)
	assert.Zero(t, other)

	_, err := env.auth.Login(ctx, "a@example.com", "1234")
	assert.ErrorIs(t, err, common.ErrorLocked)
}

func TestLogin_CorrectPinOnLastAttemptSucceeds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.enroll(t, "a@example.com", "1234")

	for i := 0; i < 2; i++ {
		_, err := env.auth.Login(ctx, "a@example.com", "0000")
		require.ErrorIs(t, err, common.ErrInvalidPin)
	}
	_, err := env.auth.Login(ctx, "a@example.com", "1234")
	require.NoError(t, err)

	profile, err := env.store.Users(nil).Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Zero(t, profile.FailedAttempts)
	assert.True(t, profile.LockedUntil.IsZero())
}

func TestLogin_SuccessResetsCounter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.enroll(t, "a@example.com", "1234")

	for _, pin := range []string{"0000", "0000", "1234", "0000", "0000"} {
		_, err := env.auth.Login(ctx, "a@example.com", pin)
		if pin == "1234" {
			require.NoError(t, err)
			continue
		}
		assert.ErrorIs(t, err, common.ErrInvalidPin)
	}
}

func TestLogin_NewPinClearsLockout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.enroll(t, "a@example.com", "1234")

	for i := 0; i < 3; i++ {
		_, _ = env.auth.Login(ctx, "a@example.com", "9999")
	}

	// forgot-pin path: code, setup token, new pin
	env.enroll(t, "a@example.com", "2468")
	_, err := env.auth.Login(ctx, "a@example.com", "2468")
	assert.NoError(t, err)
}
