// Package upload sends captured images to a remote gallery. Uploads are
// fire-and-forget: failures are logged and never reach the booth loop.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cjeanneret/PhotoBooth/internal/config"
	"github.com/cjeanneret/PhotoBooth/internal/debug"
)

// FileField is the multipart field carrying the image.
const FileField = "Filedata"

// TokenHeader carries the API token.
const TokenHeader = "X-API-TOKEN"

// ErrNoToken is returned when uploads are configured without a token.
var ErrNoToken = errors.New("upload URL set but no API token configured")

// Scheduler queues a file for upload without blocking.
type Scheduler interface {
	UploadAsync(path string)
	Close() error
}

// Uploader performs one upload synchronously.
type Uploader interface {
	Upload(ctx context.Context, path string) error
}

// HTTPUploader posts files as multipart/form-data.
type HTTPUploader struct {
	url    string
	token  string
	client *http.Client
}

// NewHTTPUploader creates an uploader for url. An empty token is refused.
func NewHTTPUploader(url, token string, timeout time.Duration) (*HTTPUploader, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	return &HTTPUploader{url: url, token: token, client: &http.Client{Timeout: timeout}}, nil
}

// Upload posts path; any non-2xx response is an error.
func (u *HTTPUploader) Upload(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(FileField, filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(TokenHeader, u.token)

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", u.url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post %s: unexpected status %s", u.url, resp.Status)
	}
	return nil
}

// New builds the scheduler described by cfg, or nil when uploads are
// disabled. With a Redis address, uploads go through an asynq queue;
// otherwise an in-process pool runs them.
func New(cfg *config.Config, log *debug.Logger) (Scheduler, error) {
	if !cfg.UploadEnabled() {
		return nil, nil
	}
	up, err := NewHTTPUploader(cfg.Upload.URL, cfg.APIToken(), cfg.UploadTimeout())
	if err != nil {
		return nil, err
	}
	log.Info("Uploading images to %s", cfg.Upload.URL)
	if cfg.Upload.RedisAddr != "" {
		return NewQueue(cfg.Upload.RedisAddr, cfg.Upload.Workers, up, log)
	}
	return NewPool(up, cfg.Upload.Workers, log), nil
}
