// Package publish uploads a finished video plus its metadata and cover
// image to the configured publish target. Publishing is optional; with it
// disabled a noop publisher is returned.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mixdown/internal/config"
	"mixdown/internal/services"
)

const defaultUploadTimeout = 15 * time.Minute

// Metadata is the structured record sent alongside the video bytes.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category"`
	Privacy     string   `json:"privacy"`
}

// Publisher uploads one finished artifact and returns its public id.
type Publisher interface {
	Publish(ctx context.Context, videoPath, thumbnailPath string, meta Metadata) (string, error)
	Enabled() bool
}

// NewService builds a publisher from configuration. When publishing is
// disabled a noop implementation is returned.
func NewService(cfg *config.Config, opts ...Option) Publisher {
	if !cfg.Publish.Enabled {
		return noopPublisher{}
	}
	p := &httpPublisher{
		endpoint:    strings.TrimSpace(cfg.Publish.Endpoint),
		accessToken: strings.TrimSpace(cfg.Publish.AccessToken),
		httpClient:  &http.Client{Timeout: defaultUploadTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Option customizes the publisher.
type Option func(*httpPublisher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *httpPublisher) {
		if client != nil {
			p.httpClient = client
		}
	}
}

type httpPublisher struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
}

func (p *httpPublisher) Enabled() bool { return true }

// Publish streams the video and thumbnail as one multipart request with the
// metadata as a JSON form field.
func (p *httpPublisher) Publish(ctx context.Context, videoPath, thumbnailPath string, meta Metadata) (string, error) {
	pipeReader, pipeWriter := io.Pipe()
	form := multipart.NewWriter(pipeWriter)

	go func() {
		pipeWriter.CloseWithError(writeForm(form, videoPath, thumbnailPath, meta))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, pipeReader)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "publishing", "upload", "new request", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.accessToken)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "publishing", "upload", "http error", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "publishing", "upload", "read response", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		marker := services.ErrPermanent
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			marker = services.ErrTransient
		}
		return "", services.Wrap(marker, "publishing", "upload",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var decoded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", services.Wrap(services.ErrTransient, "publishing", "upload", "decode response", err)
	}
	if decoded.ID == "" {
		return "", services.Wrap(services.ErrTransient, "publishing", "upload", "response missing id", nil)
	}
	return decoded.ID, nil
}

func writeForm(form *multipart.Writer, videoPath, thumbnailPath string, meta Metadata) error {
	encoded, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := form.WriteField("metadata", string(encoded)); err != nil {
		return fmt.Errorf("write metadata field: %w", err)
	}
	if err := attachFile(form, "video", videoPath); err != nil {
		return err
	}
	if thumbnailPath != "" {
		if err := attachFile(form, "thumbnail", thumbnailPath); err != nil {
			return err
		}
	}
	return form.Close()
}

func attachFile(form *multipart.Writer, field, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", field, err)
	}
	defer file.Close()

	part, err := form.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("create %s part: %w", field, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("stream %s: %w", field, err)
	}
	return nil
}

type noopPublisher struct{}

func (noopPublisher) Enabled() bool { return false }

func (noopPublisher) Publish(context.Context, string, string, Metadata) (string, error) {
	return "", nil
}
