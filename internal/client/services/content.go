package services

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/playerhub/internal/client/client"
	"github.com/dmitrijs2005/playerhub/internal/client/models"
	"github.com/dmitrijs2005/playerhub/internal/netx"
)

// uploadToPresignedURL is a test seam for netx.UploadToPresignedURL.
var uploadToPresignedURL = netx.UploadToPresignedURL

// ContentService posts content to a device: the server records the item and
// hands back a presigned URL, then the bytes go straight to object storage.
type ContentService interface {
	Upload(ctx context.Context, deviceID, title, contentType string, body io.Reader) (*models.Content, error)
}

type contentService struct {
	client client.Client
	http   *http.Client
}

func NewContentService(c client.Client, hc *http.Client) ContentService {
	return &contentService{client: c, http: hc}
}

func (s *contentService) Upload(ctx context.Context, deviceID, title, contentType string, body io.Reader) (*models.Content, error) {
	posted, err := s.client.PostContent(ctx, deviceID, title, contentType)
	if err != nil {
		return nil, fmt.Errorf("post content: %w", err)
	}

	if err := uploadToPresignedURL(ctx, s.http, posted.UploadURL, contentType, body); err != nil {
		return posted, fmt.Errorf("upload %s: %w", posted.ID, err)
	}
	return posted, nil
}
