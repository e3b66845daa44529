package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/playerhub/internal/common"
	"github.com/dmitrijs2005/playerhub/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	err error
}

func (p *fakePresigner) PresignPut(_ context.Context, key, contentType string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return "https://s3.local/put/" + key + "?ct=" + contentType, nil
}

func (p *fakePresigner) PresignGet(_ context.Context, key string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return "https://s3.local/get/" + key, nil
}

func TestContent_PostAndList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewContentService(env.store, env.store, &fakePresigner{}, env.clock, logging.Discard())

	a := env.claim(t, "a@example.com", "pi-1")
	require.NoError(t, env.devices.Share(ctx, a, "b@example.com"))
	b, err := env.authorize("b@example.com", "pi-1", AnyMember)
	require.NoError(t, err)

	posted, err := svc.Post(ctx, b, "intro.mp4", "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", posted.PostedBy)
	assert.True(t, strings.HasPrefix(posted.StorageKey, "devices/pi-1/"))
	assert.Equal(t, "https://s3.local/put/"+posted.StorageKey+"?ct=video/mp4", posted.UploadURL)

	items, err := svc.List(ctx, a)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, posted.ID, items[0].ID)
	assert.Equal(t, "https://s3.local/get/"+posted.StorageKey, items[0].DownloadURL)

	_, err = svc.Post(ctx, b, " ", "video/mp4")
	assert.ErrorIs(t, err, common.ErrInvalidContent)
}

func TestContent_StorageFailure(t *testing.T) {
	env := newTestEnv(t)
	svc := NewContentService(env.store, env.store, &fakePresigner{err: errors.New("no creds")}, env.clock, logging.Discard())
	a := env.claim(t, "a@example.com", "pi-1")

	_, err := svc.Post(context.Background(), a, "x", "image/png")
	assert.ErrorIs(t, err, common.ErrorDependency)

	items, err := svc.List(context.Background(), a)
	require.NoError(t, err)
	assert.Empty(t, items, "nothing recorded when presigning fails")
}
