// Package netx holds small HTTP helpers shared by the command-line client.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// UploadToPresignedURL PUTs body to an object storage presigned URL. The
// content type must match the one the URL was signed for.
func UploadToPresignedURL(ctx context.Context, client *http.Client, url, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}
