package services

import (
	"context"

	"github.com/dmitrijs2005/playerhub/internal/client/models"
)

// fakeClient implements client.Client for unit tests. Only the auth and
// content calls are scripted; the rest return zero values.
type fakeClient struct {
	token string

	LookupRet *models.LookupResult
	SendErr   error
	VerifyRet string
	VerifyErr error
	SetPinRet *models.Session
	SetPinErr error
	LoginRet  *models.Session
	LoginErr  error
	PostRet   *models.Content
	PostErr   error

	LastSendEmail   string
	LastVerifyCode  string
	LastSetPinToken string
	LastSetPinPin   string
	LastLoginEmail  string
	LastLoginPin    string
	LastPostTitle   string
}

func (f *fakeClient) SetToken(token string)          { f.token = token }
func (f *fakeClient) Ping(ctx context.Context) error { return nil }

func (f *fakeClient) Lookup(ctx context.Context, email string) (*models.LookupResult, error) {
	return f.LookupRet, nil
}

func (f *fakeClient) SendCode(ctx context.Context, email string) error {
	f.LastSendEmail = email
	return f.SendErr
}

func (f *fakeClient) VerifyCode(ctx context.Context, email, code string) (string, error) {
	f.LastVerifyCode = code
	return f.VerifyRet, f.VerifyErr
}

func (f *fakeClient) SetPin(ctx context.Context, setupToken, pin string) (*models.Session, error) {
	f.LastSetPinToken, f.LastSetPinPin = setupToken, pin
	return f.SetPinRet, f.SetPinErr
}

func (f *fakeClient) Login(ctx context.Context, email, pin string) (*models.Session, error) {
	f.LastLoginEmail, f.LastLoginPin = email, pin
	return f.LoginRet, f.LoginErr
}

func (f *fakeClient) Devices(ctx context.Context) ([]models.Device, error) { return nil, nil }
func (f *fakeClient) Claim(ctx context.Context, deviceID, friendlyName string) error {
	return nil
}
func (f *fakeClient) Rename(ctx context.Context, deviceID, friendlyName string) (*models.Device, error) {
	return nil, nil
}
func (f *fakeClient) Release(ctx context.Context, deviceID string) error { return nil }
func (f *fakeClient) RegisterDispatch(ctx context.Context, deviceID, endpoint string) (*models.Device, error) {
	return nil, nil
}
func (f *fakeClient) Members(ctx context.Context, deviceID string) ([]models.Member, error) {
	return nil, nil
}
func (f *fakeClient) Share(ctx context.Context, deviceID, email string) error   { return nil }
func (f *fakeClient) Unshare(ctx context.Context, deviceID, email string) error { return nil }

func (f *fakeClient) PostContent(ctx context.Context, deviceID, title, contentType string) (*models.Content, error) {
	f.LastPostTitle = title
	return f.PostRet, f.PostErr
}

func (f *fakeClient) ListContent(ctx context.Context, deviceID string) ([]models.Content, error) {
	return nil, nil
}

func (f *fakeClient) Command(ctx context.Context, deviceID, command string, payload map[string]any) (*models.CommandResult, error) {
	return nil, nil
}

type memSessions struct {
	s       *models.Session
	saveErr error
}

func (m *memSessions) Load() (*models.Session, error) {
	if m.s == nil {
		return nil, ErrNoSession
	}
	return m.s, nil
}

func (m *memSessions) Save(s *models.Session) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.s = s
	return nil
}

func (m *memSessions) Clear() error {
	m.s = nil
	return nil
}
