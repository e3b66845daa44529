// Package services contains server-side business logic: the enrollment and
// login state machine, the per-device access guard, device management,
// content posting and command delivery.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/dmitrijs2005/playerhub/internal/clock"
	"github.com/dmitrijs2005/playerhub/internal/common"
	"github.com/dmitrijs2005/playerhub/internal/cryptox"
	"github.com/dmitrijs2005/playerhub/internal/dbx"
	"github.com/dmitrijs2005/playerhub/internal/logging"
	"github.com/dmitrijs2005/playerhub/internal/server/auth"
	"github.com/dmitrijs2005/playerhub/internal/server/mailer"
	"github.com/dmitrijs2005/playerhub/internal/server/models"
	"github.com/dmitrijs2005/playerhub/internal/server/repositories/repomanager"
)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// AuthConfig carries the token secret and the enrollment/lockout policy.
type AuthConfig struct {
	SecretKey         []byte
	SetupTokenTTL     time.Duration
	SessionTokenTTL   time.Duration
	CodeTTL           time.Duration
	MaxFailedAttempts int
	LockoutDuration   time.Duration
}

// Session is the outcome of a successful PIN set or login.
type Session struct {
	Token   string `json:"token"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

type LookupResult struct {
	Exists  bool
	IsAdmin bool
}

// AuthService drives enrollment (code, setup token, PIN) and login.
// Sessions are stateless signed tokens.
type AuthService struct {
	runner      dbx.Runner
	repomanager repomanager.RepositoryManager
	mailer      mailer.Mailer
	clock       clock.Clock
	log         logging.Logger
	cfg         AuthConfig
}

func NewAuthService(runner dbx.Runner, m repomanager.RepositoryManager, ml mailer.Mailer, clk clock.Clock, log logging.Logger, cfg AuthConfig) *AuthService {
	return &AuthService{
		runner:      runner,
		repomanager: m,
		mailer:      ml,
		clock:       clk,
		log:         log.With("module", "auth"),
		cfg:         cfg,
	}
}

// Lookup reports whether email has completed enrollment.
func (s *AuthService) Lookup(ctx context.Context, email string) (*LookupResult, error) {
	email, err := common.ValidateEmail(email)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.runner.Conn()).Get(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &LookupResult{}, nil
		}
		return nil, fmt.Errorf("lookup %s: %w", email, err)
	}
	return &LookupResult{Exists: user.HasPin(), IsAdmin: user.IsAdmin}, nil
}

// SendCode stores a fresh one-time code for email, replacing any earlier
// one, and mails it. The code stays stored when mailing fails.
func (s *AuthService) SendCode(ctx context.Context, email string) error {
	email, err := common.ValidateEmail(email)
	if err != nil {
		return err
	}

	code, err := cryptox.GenerateCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	pending := &models.PendingCode{Email: email, Code: code, ExpiresAt: s.clock.Now().Add(s.cfg.CodeTTL)}
	if err := s.repomanager.Codes(s.runner.Conn()).Put(ctx, pending); err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	body := fmt.Sprintf("Your PlayerHub verification code is %s.\nIt expires in %d minutes.\n", code, int(s.cfg.CodeTTL.Minutes()))
	if err := s.mailer.Send(ctx, email, "PlayerHub verification code", body); err != nil {
		s.log.Error(ctx, "code mail failed", "email", email, "error", err)
		return fmt.Errorf("%w: %v", common.ErrMailFailed, err)
	}

	s.log.Info(ctx, "code sent", "email", email)
	return nil
}

// VerifyCode consumes the pending code and returns a setup token.
func (s *AuthService) VerifyCode(ctx context.Context, email, code string) (string, error) {
	email, err := common.ValidateEmail(email)
	if err != nil {
		return "", err
	}

	repo := s.repomanager.Codes(s.runner.Conn())
	pending, err := repo.Find(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrInvalidCode
		}
		return "", fmt.Errorf("find code: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(pending.Code), []byte(code)) != 1 {
		return "", common.ErrInvalidCode
	}

	now := s.clock.Now()
	if now.After(pending.ExpiresAt) {
		return "", common.ErrCodeExpired
	}

	if err := repo.Delete(ctx, email); err != nil {
		return "", fmt.Errorf("delete code: %w", err)
	}

	token, err := auth.GenerateToken(auth.Claims{Email: email, Purpose: auth.PurposeSetup}, s.cfg.SecretKey, now, s.cfg.SetupTokenTTL)
	if err != nil {
		return "", fmt.Errorf("sign setup token: %w", err)
	}
	return token, nil
}

// SetPin completes enrollment. The first profile ever to get a PIN becomes
// admin; the admin marker insert decides races between simultaneous first
// enrollments.
func (s *AuthService) SetPin(ctx context.Context, setupToken, pin string) (*Session, error) {
	now := s.clock.Now()

	claims, err := auth.ParseToken(setupToken, s.cfg.SecretKey, now)
	if err != nil || claims.Purpose != auth.PurposeSetup {
		return nil, common.ErrInvalidSetupToken
	}
	email := common.NormalizeEmail(claims.Email)

	if !pinPattern.MatchString(pin) {
		return nil, common.ErrInvalidPinFormat
	}

	hash, err := cryptox.HashPin(pin)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}

	var profile *models.UserProfile
	err = s.runner.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)

		enrolled, err := users.AnyWithPin(ctx)
		if err != nil {
			return err
		}
		isAdmin := false
		if !enrolled {
			if isAdmin, err = users.ClaimAdmin(ctx, email); err != nil {
				return err
			}
		}

		profile, err = users.SavePin(ctx, email, hash, isAdmin, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("save pin: %w", err)
	}

	s.log.Info(ctx, "pin set", "email", email, "is_admin", profile.IsAdmin)
	return s.issueSession(profile.Email, profile.IsAdmin, now)
}

// Login checks pin against the stored hash. Every MaxFailedAttempts
// consecutive mismatches lock the account for LockoutDuration; a locked
// account rejects even the correct PIN. The attempt is charged before the
// comparison, so concurrent guesses cannot outrun the lock.
func (s *AuthService) Login(ctx context.Context, email, pin string) (*Session, error) {
	email, err := common.ValidateEmail(email)
	if err != nil {
		return nil, err
	}

	users := s.repomanager.Users(s.runner.Conn())
	user, err := users.Get(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnknownUser
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.HasPin() {
		return nil, common.ErrUnknownUser
	}

	now := s.clock.Now()
	if now.Before(user.LockedUntil) {
		return nil, &common.LockedError{Remaining: user.LockedUntil.Sub(now)}
	}

	claimed, err := users.ClaimAttempt(ctx, email, now, s.cfg.MaxFailedAttempts, now.Add(s.cfg.LockoutDuration))
	switch {
	case errors.Is(err, common.ErrorLocked):
		return nil, s.lockedError(ctx, email, now)
	case errors.Is(err, common.ErrorNotFound):
		return nil, common.ErrUnknownUser
	case err != nil:
		return nil, fmt.Errorf("claim attempt: %w", err)
	}

	ok, err := cryptox.CheckPin(claimed.PinHash, pin)
	if err != nil {
		return nil, fmt.Errorf("check pin: %w", err)
	}

	if !ok {
		if !claimed.LockedUntil.IsZero() {
			s.log.Warn(ctx, "account locked", "email", email)
			return nil, &common.LockedError{Remaining: claimed.LockedUntil.Sub(now)}
		}
		return nil, common.ErrInvalidPin
	}

	if err := users.ResetAttempts(ctx, email); err != nil {
		return nil, fmt.Errorf("reset attempts: %w", err)
	}

	return s.issueSession(email, claimed.IsAdmin, now)
}

// lockedError reports the lock another attempt set after this one read the
// profile.
func (s *AuthService) lockedError(ctx context.Context, email string, now time.Time) error {
	user, err := s.repomanager.Users(s.runner.Conn()).Get(ctx, email)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	return &common.LockedError{Remaining: user.LockedUntil.Sub(now)}
}

func (s *AuthService) issueSession(email string, isAdmin bool, now time.Time) (*Session, error) {
	token, err := auth.GenerateToken(auth.Claims{Email: email, IsAdmin: isAdmin, Purpose: auth.PurposeSession}, s.cfg.SecretKey, now, s.cfg.SessionTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return &Session{Token: token, Email: email, IsAdmin: isAdmin}, nil
}
