// Package services contains the client-side workflows behind playerctl
// commands: enrollment, login with a cached session, and content upload.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/playerhub/internal/client/client"
	"github.com/dmitrijs2005/playerhub/internal/client/models"
)

// AuthService drives enrollment and login and keeps the resulting session.
//
//   - StartEnrollment mails a one-time code to email.
//   - CompleteEnrollment exchanges the code for a setup token and sets the PIN.
//   - Login authenticates with email and PIN.
//   - Restore loads a cached session into the API client.
//   - Logout forgets the cached session.
type AuthService interface {
	Lookup(ctx context.Context, email string) (*models.LookupResult, error)
	StartEnrollment(ctx context.Context, email string) error
	CompleteEnrollment(ctx context.Context, email, code, pin string) (*models.Session, error)
	Login(ctx context.Context, email, pin string) (*models.Session, error)
	Restore() (*models.Session, error)
	Logout() error
}

type authService struct {
	client   client.Client
	sessions SessionStore
}

// NewAuthService constructs an AuthService bound to the given API client and
// session store.
func NewAuthService(c client.Client, sessions SessionStore) AuthService {
	return &authService{client: c, sessions: sessions}
}

func (a *authService) Lookup(ctx context.Context, email string) (*models.LookupResult, error) {
	return a.client.Lookup(ctx, email)
}

func (a *authService) StartEnrollment(ctx context.Context, email string) error {
	if err := a.client.SendCode(ctx, email); err != nil {
		return fmt.Errorf("send code: %w", err)
	}
	return nil
}

func (a *authService) CompleteEnrollment(ctx context.Context, email, code, pin string) (*models.Session, error) {
	setupToken, err := a.client.VerifyCode(ctx, email, code)
	if err != nil {
		return nil, fmt.Errorf("verify code: %w", err)
	}

	s, err := a.client.SetPin(ctx, setupToken, pin)
	if err != nil {
		return nil, fmt.Errorf("set pin: %w", err)
	}
	return s, a.remember(s)
}

func (a *authService) Login(ctx context.Context, email, pin string) (*models.Session, error) {
	s, err := a.client.Login(ctx, email, pin)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return s, a.remember(s)
}

func (a *authService) remember(s *models.Session) error {
	a.client.SetToken(s.Token)
	if err := a.sessions.Save(s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (a *authService) Restore() (*models.Session, error) {
	s, err := a.sessions.Load()
	if err != nil {
		return nil, err
	}
	a.client.SetToken(s.Token)
	return s, nil
}

func (a *authService) Logout() error {
	a.client.SetToken("")
	if err := a.sessions.Clear(); err != nil && !errors.Is(err, ErrNoSession) {
		return err
	}
	return nil
}
