package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/playerhub/internal/clock"
	"github.com/dmitrijs2005/playerhub/internal/common"
	"github.com/dmitrijs2005/playerhub/internal/dbx"
	"github.com/dmitrijs2005/playerhub/internal/logging"
	"github.com/dmitrijs2005/playerhub/internal/server/models"
	"github.com/dmitrijs2005/playerhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/playerhub/internal/server/storage"
	"github.com/google/uuid"
)

// Presigner issues object storage URLs.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

type PostedContent struct {
	models.Content
	UploadURL string
}

type ContentItem struct {
	models.Content
	DownloadURL string
}

// ContentService records content posted to a device. Bytes go straight to
// object storage through presigned URLs.
type ContentService struct {
	runner      dbx.Runner
	repomanager repomanager.RepositoryManager
	presigner   Presigner
	clock       clock.Clock
	log         logging.Logger
}

func NewContentService(runner dbx.Runner, m repomanager.RepositoryManager, presigner Presigner, clk clock.Clock, log logging.Logger) *ContentService {
	return &ContentService{
		runner:      runner,
		repomanager: m,
		presigner:   presigner,
		clock:       clk,
		log:         log.With("module", "content"),
	}
}

func (s *ContentService) Post(ctx context.Context, a *Access, title, contentType string) (*PostedContent, error) {
	title, contentType = strings.TrimSpace(title), strings.TrimSpace(contentType)
	if title == "" || contentType == "" {
		return nil, common.ErrInvalidContent
	}

	now := s.clock.Now()
	c := models.Content{
		ID:          uuid.NewString(),
		DeviceID:    a.Device.ID,
		Title:       title,
		ContentType: contentType,
		StorageKey:  storage.StorageKey(a.Device.ID, now),
		PostedBy:    a.Email,
		CreatedAt:   now,
	}

	url, err := s.presigner.PresignPut(ctx, c.StorageKey, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorDependency, err)
	}

	if err := s.repomanager.Contents(s.runner.Conn()).Create(ctx, &c); err != nil {
		return nil, fmt.Errorf("post content: %w", err)
	}

	s.log.Info(ctx, "content posted", "device_id", c.DeviceID, "content_id", c.ID, "by", a.Email)
	return &PostedContent{Content: c, UploadURL: url}, nil
}

func (s *ContentService) List(ctx context.Context, a *Access) ([]ContentItem, error) {
	list, err := s.repomanager.Contents(s.runner.Conn()).ListForDevice(ctx, a.Device.ID)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}

	items := make([]ContentItem, 0, len(list))
	for _, c := range list {
		url, err := s.presigner.PresignGet(ctx, c.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrorDependency, err)
		}
		items = append(items, ContentItem{Content: c, DownloadURL: url})
	}
	return items, nil
}
