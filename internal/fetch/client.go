// Package fetch is the HTTP client for the remote fetch service, which
// retrieves and transcodes videos and streams them back to this client.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Quality is a requested transcode quality.
type Quality string

const (
	QualityMax  Quality = "max"
	Quality1080 Quality = "1080"
	Quality720  Quality = "720"
	Quality360  Quality = "360"
)

// ParseQuality validates a quality string.
func ParseQuality(s string) (Quality, error) {
	switch Quality(s) {
	case QualityMax, Quality1080, Quality720, Quality360:
		return Quality(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidQuality, s)
}

const apiTimeout = 10 * time.Second

// Client talks to the remote fetch service. It is stateless beyond its
// configuration and safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	quality Quality
	api     *http.Client // health/status/queue/active
	stream  *http.Client // download; no overall timeout, context governs
	log     *slog.Logger
}

// NewClient creates a fetch service client.
func NewClient(baseURL, apiKey string, quality Quality, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if quality == "" {
		quality = Quality1080
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		quality: quality,
		log:     log.With("component", "fetch"),
		api:     &http.Client{Timeout: apiTimeout},
		stream:  &http.Client{},
	}
}

// DefaultQuality returns the configured default quality.
func (c *Client) DefaultQuality() Quality {
	return c.quality
}

// Health probes the service liveness endpoint. No auth required.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.api.Do(req)
	if err != nil {
		c.log.Debug("health check failed", "error", err)
		return ErrServiceUnavailable
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug("health check unexpected status", "status", resp.StatusCode)
		return ErrServiceUnavailable
	}
	return nil
}

// Status queries the remote-side state of a video and normalizes the
// dynamic payload into a RemoteStatus.
func (c *Client) Status(ctx context.Context, videoID string) (*RemoteStatus, error) {
	params := url.Values{"video_id": {videoID}}
	body, err := c.get(ctx, "/status", params)
	if err != nil {
		return nil, err
	}
	return parseRemoteStatus(body)
}

// Stream is an open download response. The caller owns Body and must
// close it.
type Stream struct {
	Body          io.ReadCloser
	ContentLength int64
	Filename      string
}

// Download requests the video bytes at the given quality. The service
// fetches and transcodes server-side before the response headers arrive,
// so this call can block for a long time; poll Status meanwhile.
func (c *Client) Download(ctx context.Context, videoID string, quality Quality) (*Stream, error) {
	if quality == "" {
		quality = c.quality
	}
	if _, err := ParseQuality(string(quality)); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + "/download?" + url.Values{
		"video_id": {videoID},
		"quality":  {string(quality)},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	start := time.Now()
	resp, err := c.stream.Do(req)
	if err != nil {
		c.log.Debug("download request failed", "video_id", videoID, "error", err)
		return nil, ErrServiceUnavailable
	}

	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, c.errorFromResponse(resp)
	}

	c.log.Debug("download headers received",
		"video_id", videoID,
		"length", resp.ContentLength,
		"wait_ms", time.Since(start).Milliseconds(),
	)

	return &Stream{
		Body:          resp.Body,
		ContentLength: resp.ContentLength,
		Filename:      filenameFromDisposition(resp.Header.Get("Content-Disposition")),
	}, nil
}

// QueueItem is one entry in the server-side queue snapshot.
type QueueItem struct {
	VideoID  string `json:"video_id"`
	Position int    `json:"position"`
}

// QueueSnapshot is the service's queue/cache view.
type QueueSnapshot struct {
	Queued []QueueItem `json:"queue"`
	Cached []string    `json:"cached"`
}

// Queue fetches the queue/cache snapshot.
func (c *Client) Queue(ctx context.Context) (*QueueSnapshot, error) {
	body, err := c.get(ctx, "/queue", nil)
	if err != nil {
		return nil, err
	}
	var snap QueueSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("decode queue: %w", err)
	}
	return &snap, nil
}

// Active fetches the list of video ids the service is currently working on.
func (c *Client) Active(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "/active", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Active []string `json:"active_downloads"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode active: %w", err)
	}
	return resp.Active, nil
}

// get performs an authenticated GET against a JSON endpoint.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.api.Do(req)
	if err != nil {
		c.log.Debug("api request failed", "path", path, "error", err)
		return nil, ErrServiceUnavailable
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// errorBody is the service's structured error payload.
type errorBody struct {
	Error      string  `json:"error"`
	RetryAfter float64 `json:"retry_after"`
	FailCount  int     `json:"fail_count"`
}

// errorFromResponse maps a non-200 response to the fetch error taxonomy.
func (c *Client) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrInvalidAPIKey
	case http.StatusTooManyRequests:
		retryAfter := time.Duration(eb.RetryAfter * float64(time.Second))
		if retryAfter <= 0 {
			retryAfter = 30 * time.Second
		}
		return &RateLimitedError{RetryAfter: retryAfter, FailCount: eb.FailCount}
	case http.StatusServiceUnavailable:
		return ErrTemporarilyBlocked
	}
	if eb.Error != "" {
		return fmt.Errorf("fetch service: %s (status %d)", eb.Error, resp.StatusCode)
	}
	return fmt.Errorf("fetch service: unexpected status %d", resp.StatusCode)
}

// filenameFromDisposition extracts the filename from a Content-Disposition
// header, if present.
func filenameFromDisposition(header string) string {
	const marker = `filename="`
	i := strings.Index(header, marker)
	if i < 0 {
		return ""
	}
	rest := header[i+len(marker):]
	j := strings.Index(rest, `"`)
	if j < 0 {
		return ""
	}
	return rest[:j]
}
