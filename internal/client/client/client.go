package client

import (
	"context"

	"github.com/dmitrijs2005/playerhub/internal/client/models"
)

// Client is the PlayerHub API as seen by the command-line tool.
type Client interface {
	SetToken(token string)
	Ping(ctx context.Context) error

	Lookup(ctx context.Context, email string) (*models.LookupResult, error)
	SendCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (string, error)
	SetPin(ctx context.Context, setupToken, pin string) (*models.Session, error)
	Login(ctx context.Context, email, pin string) (*models.Session, error)

	Devices(ctx context.Context) ([]models.Device, error)
	Claim(ctx context.Context, deviceID, friendlyName string) error
	Rename(ctx context.Context, deviceID, friendlyName string) (*models.Device, error)
	Release(ctx context.Context, deviceID string) error
	RegisterDispatch(ctx context.Context, deviceID, endpoint string) (*models.Device, error)

	Members(ctx context.Context, deviceID string) ([]models.Member, error)
	Share(ctx context.Context, deviceID, email string) error
	Unshare(ctx context.Context, deviceID, email string) error

	PostContent(ctx context.Context, deviceID, title, contentType string) (*models.Content, error)
	ListContent(ctx context.Context, deviceID string) ([]models.Content, error)

	Command(ctx context.Context, deviceID, command string, payload map[string]any) (*models.CommandResult, error)
}
