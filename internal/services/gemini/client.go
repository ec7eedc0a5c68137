// Package gemini implements the enrichment client used for track title and
// thumbnail generation. Callers wrap it in a fallback tier, so failures
// here never fail a run on their own.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"mixdown/internal/services"
)

const (
	defaultHTTPTimeout   = 60 * time.Second
	defaultRetryAttempts = 3
	defaultRetryBase     = time.Second
)

// Config captures the runtime settings for the enrichment service.
type Config struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
	Timeout    time.Duration
}

// Client talks to the enrichment service.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryAttempts int
	retryBase     time.Duration
	sleeper       func(context.Context, time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// WithRetryAttempts overrides the bounded retry count for transient errors.
func WithRetryAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.retryAttempts = attempts
		}
	}
}

// NewClient constructs an enrichment client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	timeout := defaultHTTPTimeout
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	client := &Client{
		cfg:           cfg,
		httpClient:    &http.Client{Timeout: timeout},
		retryAttempts: defaultRetryAttempts,
		retryBase:     defaultRetryBase,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.sleeper == nil {
		client.sleeper = func(ctx context.Context, delay time.Duration) error {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		}
	}
	return client
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CompleteText sends one prompt to the text model and returns the raw text
// of the first candidate.
func (c *Client) CompleteText(ctx context.Context, prompt string) (string, error) {
	response, err := c.generate(ctx, c.cfg.TextModel, prompt)
	if err != nil {
		return "", err
	}
	for _, candidate := range response.Candidates {
		for _, p := range candidate.Content.Parts {
			if text := strings.TrimSpace(p.Text); text != "" {
				return text, nil
			}
		}
	}
	return "", services.Wrap(services.ErrTransient, "enriching", "text", "empty candidates", nil)
}

// GenerateImage sends one prompt to the image model and writes the first
// returned image to outputPath.
func (c *Client) GenerateImage(ctx context.Context, prompt, outputPath string) error {
	response, err := c.generate(ctx, c.cfg.ImageModel, prompt)
	if err != nil {
		return err
	}
	for _, candidate := range response.Candidates {
		for _, p := range candidate.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			decoded, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return services.Wrap(services.ErrTransient, "enriching", "image", "decode image data", err)
			}
			if err := os.WriteFile(outputPath, decoded, 0o644); err != nil {
				return services.Wrap(services.ErrPermanent, "enriching", "image", "write image", err)
			}
			return nil
		}
	}
	return services.Wrap(services.ErrTransient, "enriching", "image", "response contained no image", nil)
}

func (c *Client) generate(ctx context.Context, model, prompt string) (generateResponse, error) {
	var empty generateResponse
	if c.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrConfiguration, "enriching", "request", "api key required", nil)
	}
	if strings.TrimSpace(prompt) == "" {
		return empty, services.Wrap(services.ErrValidation, "enriching", "request", "prompt required", nil)
	}
	if strings.TrimSpace(model) == "" {
		return empty, services.Wrap(services.ErrConfiguration, "enriching", "request", "model required", nil)
	}

	payload := generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}}
	var lastErr error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		response, err := c.generateOnce(ctx, model, payload)
		if err == nil {
			return response, nil
		}
		lastErr = err
		if !services.IsTransient(err) || ctx.Err() != nil {
			return empty, err
		}
		if attempt < c.retryAttempts {
			if sleepErr := c.sleeper(ctx, c.retryBase*time.Duration(1<<(attempt-1))); sleepErr != nil {
				return empty, sleepErr
			}
		}
	}
	return empty, lastErr
}

func (c *Client) generateOnce(ctx context.Context, model string, payload generateRequest) (generateResponse, error) {
	var decoded generateResponse
	encoded, err := json.Marshal(payload)
	if err != nil {
		return decoded, services.Wrap(services.ErrValidation, "enriching", "request", "encode body", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return decoded, services.Wrap(services.ErrValidation, "enriching", "request", "new request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return decoded, err
		}
		return decoded, services.Wrap(services.ErrTransient, "enriching", "request", "http error", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return decoded, services.Wrap(services.ErrTransient, "enriching", "request", "read body", err)
	}
	if resp.StatusCode != http.StatusOK {
		marker := services.ErrPermanent
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			marker = services.ErrTransient
		}
		return decoded, services.Wrap(marker, "enriching", "request",
			fmt.Sprintf("http %d: %s", resp.StatusCode, summarize(body)), nil)
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return decoded, services.Wrap(services.ErrTransient, "enriching", "request", "decode response", err)
	}
	if decoded.Error != nil {
		return decoded, services.Wrap(services.ErrPermanent, "enriching", "request",
			fmt.Sprintf("api error %d: %s", decoded.Error.Code, decoded.Error.Message), nil)
	}
	return decoded, nil
}

// ParseTitleLines splits a model completion into one title per line,
// dropping numbering, bullets, and blank lines.
func ParseTitleLines(completion string, want int) []string {
	titles := make([]string, 0, want)
	for _, line := range strings.Split(completion, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.)- ")
		line = strings.Trim(line, `"'`)
		if line == "" {
			continue
		}
		titles = append(titles, line)
		if want > 0 && len(titles) == want {
			break
		}
	}
	return titles
}

func summarize(body []byte) string {
	text := strings.Join(strings.Fields(string(body)), " ")
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return text
}
