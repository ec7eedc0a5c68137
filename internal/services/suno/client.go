package suno

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mixdown/internal/services"
)

const (
	defaultHTTPTimeout  = 30 * time.Second
	defaultPollInterval = 30 * time.Second
	defaultJobTimeout   = 600 * time.Second
	// A poll that fails this many times in a row escalates to a terminal
	// failure for the job.
	defaultMaxPollFailures = 3
)

// Config captures the runtime settings required to talk to the generation
// service.
type Config struct {
	APIKey       string
	BaseURL      string
	CallbackURL  string
	Model        string
	Instrumental bool
	PollInterval time.Duration
	JobTimeout   time.Duration
	// ResubmitFailed resubmits a job that reaches the transient failed
	// state as a fresh job instead of surfacing the failure. Off by
	// default because resubmission bills a new job.
	ResubmitFailed bool
}

// GenerationRequest describes one track to generate. Values are fixed at
// submission time.
type GenerationRequest struct {
	Prompt       string
	Style        string
	Title        string
	NegativeTags string
}

// GenerationResult is the payload of a job that reached complete.
type GenerationResult struct {
	JobID    string
	Title    string
	AudioURL string
	ImageURL string
	Duration time.Duration
}

// JobStatus is one observed poll of a job.
type JobStatus struct {
	JobID     string
	Status    Status
	ErrorCode string
	Result    *GenerationResult
}

// PollObserver receives every observed status transition for a job.
type PollObserver func(jobID string, status Status)

// Client talks to the generation service.
type Client struct {
	cfg        Config
	httpClient *http.Client

	maxPollFailures int
	sleeper         func(context.Context, time.Duration) error
	now             func() time.Time
	observer        PollObserver
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

// WithSleeper overrides how poll waits are performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// WithClock overrides the time source used for timeout accounting.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithPollObserver registers a callback invoked on every status change.
func WithPollObserver(observer PollObserver) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// WithMaxPollFailures overrides how many consecutive poll failures are
// tolerated before the job is abandoned.
func WithMaxPollFailures(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPollFailures = n
		}
	}
}

// NewClient constructs a generation client from the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}
	client := &Client{
		cfg:             cfg,
		httpClient:      &http.Client{Timeout: defaultHTTPTimeout},
		maxPollFailures: defaultMaxPollFailures,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.sleeper == nil {
		client.sleeper = sleepContext
	}
	return client
}

type submitRequest struct {
	Prompt       string `json:"prompt"`
	Style        string `json:"style"`
	Title        string `json:"title"`
	CustomMode   bool   `json:"customMode"`
	Instrumental bool   `json:"instrumental"`
	Model        string `json:"model"`
	NegativeTags string `json:"negativeTags,omitempty"`
	CallbackURL  string `json:"callBackUrl,omitempty"`
}

type submitResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

type recordInfoResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID   string `json:"taskId"`
		Status   string `json:"status"`
		Response struct {
			Tracks []wireTrack `json:"sunoData"`
		} `json:"response"`
		ErrorCode    string `json:"errorCode"`
		ErrorMessage string `json:"errorMessage"`
	} `json:"data"`
}

type wireTrack struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	AudioURL string  `json:"audioUrl"`
	ImageURL string  `json:"imageUrl"`
	Duration float64 `json:"duration"`
}

// Submit issues one generation job and returns its opaque id. Transport
// failures and retryable service codes return transient errors.
func (c *Client) Submit(ctx context.Context, req GenerationRequest) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", services.Wrap(services.ErrConfiguration, "generating", "submit", "api key required", nil)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", services.Wrap(services.ErrValidation, "generating", "submit", "prompt required", nil)
	}

	payload := submitRequest{
		Prompt:       req.Prompt,
		Style:        req.Style,
		Title:        req.Title,
		CustomMode:   true,
		Instrumental: c.cfg.Instrumental,
		Model:        c.cfg.Model,
		NegativeTags: req.NegativeTags,
		CallbackURL:  c.cfg.CallbackURL,
	}

	var decoded submitResponse
	if err := c.postJSON(ctx, "/generate", payload, &decoded); err != nil {
		return "", err
	}
	if decoded.Code != 200 {
		return "", classifyServiceCode("submit", decoded.Code, decoded.Msg)
	}
	if decoded.Data.TaskID == "" {
		return "", services.Wrap(services.ErrTransient, "generating", "submit", "response missing job id", nil)
	}
	return decoded.Data.TaskID, nil
}

// GetStatus performs a single status poll.
func (c *Client) GetStatus(ctx context.Context, jobID string) (JobStatus, error) {
	var decoded recordInfoResponse
	path := "/generate/record-info?taskId=" + jobID
	if err := c.getJSON(ctx, path, &decoded); err != nil {
		return JobStatus{}, err
	}
	if decoded.Code != 200 {
		return JobStatus{}, classifyServiceCode("poll", decoded.Code, decoded.Msg)
	}

	status := JobStatus{
		JobID:     jobID,
		Status:    parseWireStatus(decoded.Data.Status),
		ErrorCode: decoded.Data.ErrorCode,
	}
	if status.Status == StatusComplete {
		result, err := selectResult(jobID, decoded.Data.Response.Tracks)
		if err != nil {
			return JobStatus{}, err
		}
		status.Result = result
	}
	return status, nil
}

// AwaitCompletion polls the job on the configured interval until it reaches
// a terminal status or the per-job timeout elapses. Poll failures are
// transient and retried up to a bounded count. The timeout abandons only
// this job; the error is tagged so callers can record it and move on.
func (c *Client) AwaitCompletion(ctx context.Context, jobID string) (GenerationResult, error) {
	deadline := c.now().Add(c.cfg.JobTimeout)
	pollFailures := 0
	lastStatus := Status("")

	for {
		if err := ctx.Err(); err != nil {
			return GenerationResult{}, err
		}

		observed, err := c.GetStatus(ctx, jobID)
		switch {
		case err != nil && services.IsPermanent(err):
			return GenerationResult{}, err
		case err != nil:
			pollFailures++
			if pollFailures >= c.maxPollFailures {
				return GenerationResult{}, services.Wrap(services.ErrTransient, "generating", "poll",
					fmt.Sprintf("job %s: %d consecutive poll failures", jobID, pollFailures), err)
			}
		default:
			pollFailures = 0
			if observed.Status != lastStatus {
				lastStatus = observed.Status
				if c.observer != nil {
					c.observer(jobID, observed.Status)
				}
			}
			switch observed.Status {
			case StatusComplete:
				return *observed.Result, nil
			case StatusRejected:
				return GenerationResult{}, services.Wrap(services.ErrPermanent, "generating", "poll",
					fmt.Sprintf("job %s rejected (%s)", jobID, observed.ErrorCode), nil)
			case StatusFailed:
				return GenerationResult{}, services.Wrap(services.ErrTransient, "generating", "poll",
					fmt.Sprintf("job %s failed (%s)", jobID, observed.ErrorCode), nil)
			}
		}

		if !c.now().Add(c.cfg.PollInterval).Before(deadline) {
			return GenerationResult{}, services.Wrap(services.ErrTimeout, "generating", "poll",
				fmt.Sprintf("job %s still %s after %s", jobID, nonEmptyStatus(lastStatus), c.cfg.JobTimeout), nil)
		}
		if err := c.sleeper(ctx, c.cfg.PollInterval); err != nil {
			return GenerationResult{}, err
		}
	}
}

// Generate submits one request and awaits its completion. When the job ends
// in the transient failed state and resubmission is enabled, one fresh job
// is submitted and awaited before the failure is surfaced.
func (c *Client) Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	jobID, err := c.Submit(ctx, req)
	if err != nil {
		return GenerationResult{}, err
	}
	result, err := c.AwaitCompletion(ctx, jobID)
	if err == nil || !c.cfg.ResubmitFailed {
		return result, err
	}
	if services.IsPermanent(err) || services.IsTimeout(err) || ctx.Err() != nil {
		return GenerationResult{}, err
	}

	jobID, submitErr := c.Submit(ctx, req)
	if submitErr != nil {
		return GenerationResult{}, errors.Join(err, submitErr)
	}
	return c.AwaitCompletion(ctx, jobID)
}

func selectResult(jobID string, tracks []wireTrack) (*GenerationResult, error) {
	for _, track := range tracks {
		if strings.TrimSpace(track.AudioURL) == "" {
			continue
		}
		return &GenerationResult{
			JobID:    jobID,
			Title:    track.Title,
			AudioURL: track.AudioURL,
			ImageURL: track.ImageURL,
			Duration: time.Duration(track.Duration * float64(time.Second)),
		}, nil
	}
	return nil, services.Wrap(services.ErrTransient, "generating", "poll",
		fmt.Sprintf("job %s complete but no playable asset", jobID), nil)
}

// classifyServiceCode maps the service's application-level codes onto the
// error taxonomy. Rate limits, maintenance, and server errors are transient;
// parameter, auth, policy, and quota errors are permanent.
func classifyServiceCode(operation string, code int, msg string) error {
	marker := services.ErrTransient
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, 455, 430:
		marker = services.ErrPermanent
	}
	return services.Wrap(marker, "generating", operation,
		fmt.Sprintf("service code %d: %s", code, strings.TrimSpace(msg)), nil)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, target any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return services.Wrap(services.ErrValidation, "generating", "request", "encode body", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return services.Wrap(services.ErrValidation, "generating", "request", "new request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, target)
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "generating", "request", "new request", err)
	}
	return c.do(req, target)
}

func (c *Client) do(req *http.Request, target any) error {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return services.Wrap(services.ErrTransient, "generating", "request", "http error", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return services.Wrap(services.ErrTransient, "generating", "request", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		marker := services.ErrTransient
		switch {
		case resp.StatusCode == http.StatusTooManyRequests,
			resp.StatusCode == http.StatusServiceUnavailable,
			resp.StatusCode >= http.StatusInternalServerError:
			marker = services.ErrTransient
		default:
			marker = services.ErrPermanent
		}
		return services.Wrap(marker, "generating", "request",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return services.Wrap(services.ErrTransient, "generating", "request", "decode response", err)
	}
	return nil
}

func nonEmptyStatus(status Status) Status {
	if status == "" {
		return StatusQueued
	}
	return status
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
