package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/dmitrijs2005/playerhub/internal/client/models"
	"github.com/dmitrijs2005/playerhub/internal/common"
)

type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// NewHTTPClient builds a client for the server at baseURL. A nil hc uses
// http.DefaultClient.
func NewHTTPClient(baseURL string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *HTTPClient) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func mapTransportError(err error) error {
	var netErr net.Error
	var opErr *net.OpError
	if errors.As(err, &opErr) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err == nil {
		apiErr.Code = payload.Error
		apiErr.Message = payload.Message
	}
	if v := resp.Header.Get("Retry-After"); v != "" {
		apiErr.RetryAfter, _ = strconv.Atoi(v)
	}
	return apiErr
}

func devicePath(deviceID string, parts ...string) string {
	p := "/devices/" + url.PathEscape(deviceID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *HTTPClient) Lookup(ctx context.Context, email string) (*models.LookupResult, error) {
	var out models.LookupResult
	if err := c.do(ctx, http.MethodPost, "/auth/lookup", map[string]string{"email": email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) SendCode(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/send-otp", map[string]string{"email": email}, nil)
}

func (c *HTTPClient) VerifyCode(ctx context.Context, email, code string) (string, error) {
	var out struct {
		SetupToken string `json:"setupToken"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/verify-otp", map[string]string{"email": email, "code": code}, &out); err != nil {
		return "", err
	}
	return out.SetupToken, nil
}

func (c *HTTPClient) SetPin(ctx context.Context, setupToken, pin string) (*models.Session, error) {
	var out models.Session
	if err := c.do(ctx, http.MethodPost, "/auth/set-pin", map[string]string{"pin": pin, "setupToken": setupToken}, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

func (c *HTTPClient) Login(ctx context.Context, email, pin string) (*models.Session, error) {
	var out models.Session
	if err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"email": email, "pin": pin}, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Announce is called by player agents on boot. It needs no session; the
// returned status is "registered", "unchanged" or "transferred".
func (c *HTTPClient) Announce(ctx context.Context, deviceID, email, friendlyName string) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	in := map[string]string{"deviceId": deviceID, "email": email, "friendlyName": friendlyName}
	if err := c.do(ctx, http.MethodPost, "/devices/announce", in, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (c *HTTPClient) Devices(ctx context.Context) ([]models.Device, error) {
	var out []models.Device
	if err := c.do(ctx, http.MethodGet, "/devices", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Claim(ctx context.Context, deviceID, friendlyName string) error {
	return c.do(ctx, http.MethodPost, "/devices/claim", map[string]string{"deviceId": deviceID, "friendlyName": friendlyName}, nil)
}

func (c *HTTPClient) Rename(ctx context.Context, deviceID, friendlyName string) (*models.Device, error) {
	var out models.Device
	if err := c.do(ctx, http.MethodPatch, devicePath(deviceID), map[string]string{"friendlyName": friendlyName}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Release(ctx context.Context, deviceID string) error {
	return c.do(ctx, http.MethodDelete, devicePath(deviceID), nil, nil)
}

func (c *HTTPClient) RegisterDispatch(ctx context.Context, deviceID, endpoint string) (*models.Device, error) {
	var out models.Device
	if err := c.do(ctx, http.MethodPut, devicePath(deviceID, "dispatch"), map[string]string{"endpoint": endpoint}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Members(ctx context.Context, deviceID string) ([]models.Member, error) {
	var out []models.Member
	if err := c.do(ctx, http.MethodGet, devicePath(deviceID, "share"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Share(ctx context.Context, deviceID, email string) error {
	return c.do(ctx, http.MethodPost, devicePath(deviceID, "share"), map[string]string{"email": email}, nil)
}

func (c *HTTPClient) Unshare(ctx context.Context, deviceID, email string) error {
	return c.do(ctx, http.MethodDelete, devicePath(deviceID, "share", url.PathEscape(email)), nil, nil)
}

func (c *HTTPClient) PostContent(ctx context.Context, deviceID, title, contentType string) (*models.Content, error) {
	var out models.Content
	if err := c.do(ctx, http.MethodPost, devicePath(deviceID, "content"), map[string]string{"title": title, "contentType": contentType}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListContent(ctx context.Context, deviceID string) ([]models.Content, error) {
	var out []models.Content
	if err := c.do(ctx, http.MethodGet, devicePath(deviceID, "content"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Command(ctx context.Context, deviceID, command string, payload map[string]any) (*models.CommandResult, error) {
	var in interface{}
	if len(payload) > 0 {
		in = payload
	}
	var out models.CommandResult
	if err := c.do(ctx, http.MethodPost, devicePath(deviceID, "commands", url.PathEscape(command)), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
