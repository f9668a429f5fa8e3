package cloudreve

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
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Retry and body-size constants.
const (
	apiPrefix           = "/api/v4"
	defaultRetryMax     = 3
	defaultRetryWaitMin = 1 * time.Second
	defaultRetryWaitMax = 30 * time.Second
	maxResponseBytes    = 32 << 20
	maxErrorBodyBytes   = 2048
	defaultUserAgent    = "cloudreve-go/dev"
)

var errMissingCode = errors.New("envelope has no code field")

// BearerSource provides the access token attached to outgoing requests.
// Defined at the consumer; Credentials is the real implementation.
type BearerSource interface {
	Bearer() (string, bool)
}

// Envelope is the {code, msg, data} wrapper every backend response uses.
// Data is left raw so each endpoint binding decodes its own schema.
type Envelope struct {
	Code int
	Msg  string
	Data json.RawMessage
}

// envelopeWire mirrors the JSON envelope. Code is a pointer so a body
// without a code field is detected as a protocol violation.
type envelopeWire struct {
	Code *int            `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Client is an HTTP client for the Cloudreve V4 API.
// It builds URLs from a fixed base, injects the bearer credential,
// retries network-level failures, and decodes the common envelope.
// It never retries on an authentication failure nor refreshes inline.
type Client struct {
	baseURL   string
	http      *retryablehttp.Client
	bearer    BearerSource
	userAgent string
	logger    *slog.Logger
}

// BaseURL derives the API base ("<root>/api/v4") from the server root.
func BaseURL(apiRoot string) string {
	return strings.TrimRight(apiRoot, "/") + apiPrefix
}

// NewClient creates a Cloudreve API client.
// baseURL is typically the result of BaseURL. bearer may be nil, in which
// case requests are sent without an Authorization header.
func NewClient(baseURL string, httpClient *http.Client, bearer BearerSource, logger *slog.Logger, userAgent string) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	rc := retryablehttp.NewClient()
	if httpClient != nil {
		rc.HTTPClient = httpClient
	}

	rc.RetryMax = defaultRetryMax
	rc.RetryWaitMin = defaultRetryWaitMin
	rc.RetryWaitMax = defaultRetryWaitMax
	rc.Logger = logger
	// Hand the final response back instead of a synthetic "giving up"
	// error, so the envelope of a 5xx can still be decoded.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      rc,
		bearer:    bearer,
		userAgent: userAgent,
		logger:    logger,
	}
}

// SetRetry overrides the network retry policy. max = 0 disables retries.
func (c *Client) SetRetry(max int, waitMin, waitMax time.Duration) {
	c.http.RetryMax = max
	c.http.RetryWaitMin = waitMin
	c.http.RetryWaitMax = waitMax
}

// Do executes an authenticated request against the API and returns the
// decoded envelope. Non-nil bodies are JSON-encoded. A non-zero envelope
// code is returned as *APIError, an unparsable body as *ProtocolError
// (2xx) or *TransportError (non-2xx).
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (*Envelope, error) {
	return c.do(ctx, method, path, query, body, true)
}

// doAnonymous is Do without the Authorization header. Used for login.
func (c *Client) doAnonymous(ctx context.Context, method, path string, body any) (*Envelope, error) {
	return c.do(ctx, method, path, nil, body, false)
}

func (c *Client) do(
	ctx context.Context,
	method, path string,
	query url.Values,
	body any,
	authenticated bool,
) (*Envelope, error) {
	req, err := c.newRequest(ctx, method, path, query, body, authenticated)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("cloudreve: request canceled: %w", ctx.Err())
		}

		c.logger.Warn("request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response body: %w", err)}
	}

	return c.decodeResponse(method, path, resp.StatusCode, raw)
}

// newRequest builds the retryable request with URL, headers and body.
func (c *Client) newRequest(
	ctx context.Context,
	method, path string,
	query url.Values,
	body any,
	authenticated bool,
) (*retryablehttp.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var rawBody any
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("cloudreve: marshaling request body: %w", err)
		}

		rawBody = payload
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, rawBody)
	if err != nil {
		return nil, fmt.Errorf("cloudreve: creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authenticated && c.bearer != nil {
		if tok, ok := c.bearer.Bearer(); ok {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	return req, nil
}

// decodeResponse applies the envelope rules to a fully read body.
func (c *Client) decodeResponse(method, path string, status int, raw []byte) (*Envelope, error) {
	success := status >= http.StatusOK && status < http.StatusMultipleChoices

	env, decodeErr := decodeEnvelope(raw)
	if decodeErr != nil {
		if !success {
			return nil, &TransportError{StatusCode: status, Body: truncate(raw, maxErrorBodyBytes)}
		}

		return nil, &ProtocolError{Body: string(raw), Err: decodeErr}
	}

	if env.Code != codeSuccess {
		c.logger.Debug("API returned error code",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Int("code", env.Code),
			slog.String("msg", env.Msg),
		)

		return nil, &APIError{
			Code:       env.Code,
			Msg:        env.Msg,
			StatusCode: status,
			Err:        classifyCode(env.Code),
		}
	}

	if !success {
		return nil, &TransportError{StatusCode: status, Body: truncate(raw, maxErrorBodyBytes)}
	}

	c.logger.Debug("request succeeded",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
	)

	return env, nil
}

func decodeEnvelope(raw []byte) (*Envelope, error) {
	var w envelopeWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}

	if w.Code == nil {
		return nil, errMissingCode
	}

	return &Envelope{Code: *w.Code, Msg: w.Msg, Data: w.Data}, nil
}

// decodeData unmarshals the envelope payload into v. A payload that does not
// fit the schema is a *ProtocolError carrying the raw data.
func decodeData(env *Envelope, v any) error {
	if err := json.Unmarshal(env.Data, v); err != nil {
		return &ProtocolError{Body: string(env.Data), Err: err}
	}

	return nil
}

// hasData reports whether the envelope carries a non-null payload.
func hasData(env *Envelope) bool {
	trimmed := strings.TrimSpace(string(env.Data))

	return trimmed != "" && trimmed != "null"
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}

	return string(b[:n]) + "..."
}
