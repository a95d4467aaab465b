package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/automatedlife/mobile-core/transport"
)

// Upload sends raw content to the given path and returns the server's
// reference for it (a URL or storage key).
func (c *Client) Upload(ctx context.Context, path, contentType string, content []byte) (string, error) {
	req := transport.NewRequest(http.MethodPost, path).Named("files.upload")
	req.Body = content
	req.Header.Set("Content-Type", contentType)

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return "", err
	}

	var ref string
	if err := unwrap(resp, "payload", &ref); err != nil {
		return "", err
	}
	return ref, nil
}

// Download streams the resource at path into w. The path may be relative to
// the routed base or a complete URL (file URLs from the server usually are).
func (c *Client) Download(ctx context.Context, path string, w io.Writer) error {
	req := transport.NewRequest(http.MethodGet, path).Named("files.download")
	req.Sink = w
	_, err := c.transport.Do(ctx, req)
	return err
}

// DownloadFile downloads the resource at path into the named local file.
// With deleteOnError, a failed or cancelled download removes the partial
// file instead of leaving it behind.
func (c *Client) DownloadFile(ctx context.Context, path, dest string, deleteOnError bool) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	if err := c.Download(ctx, path, f); err != nil {
		f.Close() //nolint:errcheck // already failing
		if deleteOnError {
			os.Remove(dest) //nolint:errcheck // best-effort cleanup
		}
		return err
	}
	return f.Close()
}
