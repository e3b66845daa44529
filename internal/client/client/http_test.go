package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dmitrijs2005/playerhub/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Client = (*HTTPClient)(nil)

type recordedRequest struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

type recorder struct {
	mu   sync.Mutex
	reqs []recordedRequest
}

func (r *recorder) requests() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.reqs...)
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*HTTPClient, *recorder) {
	t.Helper()
	rec := &recorder{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := recordedRequest{method: r.Method, path: r.URL.EscapedPath(), auth: r.Header.Get("Authorization")}
		_ = json.NewDecoder(r.Body).Decode(&req.body)
		rec.mu.Lock()
		rec.reqs = append(rec.reqs, req)
		rec.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(ts.Close)
	return NewHTTPClient(ts.URL+"/", ts.Client()), rec
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginStoresToken(t *testing.T) {
	c, seen := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			writeJSON(w, http.StatusOK, map[string]any{"token": "tok-1", "email": "a@example.com", "isAdmin": true})
		case "/devices":
			writeJSON(w, http.StatusOK, []map[string]any{{"id": "pi-1", "friendlyName": "Lobby", "role": "master"}})
		}
	})
	ctx := context.Background()

	s, err := c.Login(ctx, "a@example.com", "1234")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", s.Token)
	assert.True(t, s.IsAdmin)

	devices, err := c.Devices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "master", devices[0].Role)

	reqs := seen.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, map[string]any{"email": "a@example.com", "pin": "1234"}, reqs[0].body)
	assert.Empty(t, reqs[0].auth)
	assert.Equal(t, "Bearer tok-1", reqs[1].auth)
}

func TestEnrollmentCalls(t *testing.T) {
	c, seen := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/lookup":
			writeJSON(w, http.StatusOK, map[string]any{"exists": false})
		case "/auth/send-otp":
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		case "/auth/verify-otp":
			writeJSON(w, http.StatusOK, map[string]any{"setupToken": "setup-1"})
		case "/auth/set-pin":
			writeJSON(w, http.StatusOK, map[string]any{"token": "tok-2", "email": "a@example.com"})
		}
	})
	ctx := context.Background()

	res, err := c.Lookup(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, res.Exists)

	require.NoError(t, c.SendCode(ctx, "a@example.com"))

	setup, err := c.VerifyCode(ctx, "a@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, "setup-1", setup)

	s, err := c.SetPin(ctx, setup, "1234")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", s.Token)
	assert.Equal(t, "tok-2", c.bearer())

	assert.Equal(t, map[string]any{"pin": "1234", "setupToken": "setup-1"}, seen.requests()[3].body)
}

func TestDeviceRoutes(t *testing.T) {
	c, seen := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/devices/pi-1/share":
			writeJSON(w, http.StatusOK, []map[string]any{{"email": "a@example.com", "role": "master"}})
		case r.URL.Path == "/devices/pi-1/commands/play":
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "mode": "c2d", "messageId": "m-1", "command": "play"})
		case r.URL.Path == "/devices/pi-1/content" && r.Method == http.MethodPost:
			writeJSON(w, http.StatusCreated, map[string]any{"id": "c-1", "uploadUrl": "https://s3/put"})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": "pi-1"})
		}
	})
	ctx := context.Background()
	c.SetToken("tok")

	require.NoError(t, c.Claim(ctx, "pi-1", "Lobby"))
	require.NoError(t, c.Share(ctx, "pi-1", "b@example.com"))
	require.NoError(t, c.Unshare(ctx, "pi-1", "b@example.com"))
	_, err := c.Rename(ctx, "pi-1", "Hall")
	require.NoError(t, err)
	_, err = c.RegisterDispatch(ctx, "pi-1", "pi-1.local:50051")
	require.NoError(t, err)
	require.NoError(t, c.Release(ctx, "pi-1"))

	members, err := c.Members(ctx, "pi-1")
	require.NoError(t, err)
	require.Len(t, members, 1)

	posted, err := c.PostContent(ctx, "pi-1", "Promo", "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://s3/put", posted.UploadURL)

	res, err := c.Command(ctx, "pi-1", "play", nil)
	require.NoError(t, err)
	assert.Equal(t, "c2d", res.Mode)
	assert.Equal(t, "m-1", res.MessageID)

	reqs := seen.requests()
	got := make([]string, 0, len(reqs))
	for _, r := range reqs {
		got = append(got, r.method+" "+r.path)
	}
	assert.Equal(t, []string{
		"POST /devices/claim",
		"POST /devices/pi-1/share",
		"DELETE /devices/pi-1/share/b@example.com",
		"PATCH /devices/pi-1",
		"PUT /devices/pi-1/dispatch",
		"DELETE /devices/pi-1",
		"GET /devices/pi-1/share",
		"POST /devices/pi-1/content",
		"POST /devices/pi-1/commands/play",
	}, got)
	assert.Nil(t, reqs[len(reqs)-1].body, "empty payload sends no body")
}

func TestAPIErrors(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/devices/pi-1/commands/play":
			w.Header().Set("Retry-After", "42")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate_limited", "message": "too many requests"})
		case "/auth/login":
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "account_locked"})
		case "/devices":
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
		default:
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "not_master"})
		}
	})
	ctx := context.Background()

	_, err := c.Command(ctx, "pi-1", "play", map[string]any{"x": 1})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 42, apiErr.RetryAfter)
	assert.Equal(t, "rate_limited", apiErr.Code)
	assert.ErrorIs(t, err, common.ErrorRateLimited)

	_, err = c.Login(ctx, "a@example.com", "0000")
	assert.ErrorIs(t, err, common.ErrorLocked)

	_, err = c.Devices(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)

	err = c.Share(ctx, "pi-1", "b@example.com")
	assert.ErrorIs(t, err, common.ErrorForbidden)
	assert.False(t, errors.Is(err, common.ErrorNotFound))
}

func TestUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := NewHTTPClient(url, nil)
	err := c.Ping(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestAnnounce(t *testing.T) {
	c, seen := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": "transferred"})
	})

	status, err := c.Announce(context.Background(), "pi-1", "b@example.com", "Lobby")
	require.NoError(t, err)
	assert.Equal(t, "transferred", status)

	reqs := seen.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/devices/announce", reqs[0].path)
	assert.Empty(t, reqs[0].auth)
	assert.Equal(t, map[string]any{"deviceId": "pi-1", "email": "b@example.com", "friendlyName": "Lobby"}, reqs[0].body)
}
