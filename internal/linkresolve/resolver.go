// Package linkresolve turns a chat share link into a direct stream URL by
// asking an external resolver service.
package linkresolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	resolvePath  = "/api/resolve"
	maxBodyBytes = 1 << 20
)

// ErrUnresolved is returned when the service answers but cannot resolve
// the link.
var ErrUnresolved = errors.New("linkresolve: link could not be resolved")

// ErrNotConfigured is returned when no resolver URL is set.
var ErrNotConfigured = errors.New("linkresolve: no resolver configured")

type resolveResponse struct {
	OK         bool   `json:"ok"`
	StreamLink string `json:"stream_link"`
}

// Resolver queries GET <base>/api/resolve?url=<share>.
type Resolver struct {
	baseURL string
	http    *retryablehttp.Client
	logger  *slog.Logger
}

// New creates a Resolver. An empty baseURL yields a Resolver whose Resolve
// always returns ErrNotConfigured.
func New(baseURL string, httpClient *http.Client, retryMax int, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	rc := retryablehttp.NewClient()
	if httpClient != nil {
		rc.HTTPClient = httpClient
	}

	rc.RetryMax = retryMax
	rc.Logger = logger
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Resolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
		logger:  logger,
	}
}

// Resolve returns the direct stream URL for shareURL.
func (r *Resolver) Resolve(ctx context.Context, shareURL string) (string, error) {
	if r.baseURL == "" {
		return "", ErrNotConfigured
	}

	u := r.baseURL + resolvePath + "?" + url.Values{"url": {shareURL}}.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("linkresolve: building request: %w", err)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("linkresolve: requesting %s: %w", r.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("linkresolve: reading response: %w", err)
	}

	var parsed resolveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("linkresolve: HTTP %d: decoding response: %w", resp.StatusCode, err)
	}

	if !parsed.OK || parsed.StreamLink == "" {
		r.logger.Warn("resolver declined link", slog.Int("status", resp.StatusCode))

		return "", ErrUnresolved
	}

	r.logger.Debug("resolved share link")

	return parsed.StreamLink, nil
}
