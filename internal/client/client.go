package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"talentmatch-client/internal/model"
	"talentmatch-client/pkg/apierror"
)

const (
	requestIDHeader      = "X-Request-ID"
	idempotencyKeyHeader = "Idempotency-Key"

	// maxRetries bounds the post-refresh retry of a single request.
	maxRetries      = 1
	maxResponseSize = 32 << 20
)

// Session supplies the access token and refreshes it after a 401.
type Session interface {
	AccessToken() string
	RefreshToken() string
	Refresh(ctx context.Context, rejected string) (string, error)
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Session    Session
	Policy     *Policy
	Limiter    *rate.Limiter
	Logger     *slog.Logger
}

// Client issues requests against the API, attaching the session's bearer token
// and recovering once from an expired access token.
type Client struct {
	baseURL string
	http    *http.Client
	session Session
	policy  *Policy
	limiter *rate.Limiter
	logger  *slog.Logger
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Timeout > 0 {
		copied := *httpClient
		copied.Timeout = opts.Timeout
		httpClient = &copied
	}

	policy := opts.Policy
	if policy == nil {
		policy = DefaultPolicy()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		session: opts.Session,
		policy:  policy,
		limiter: opts.Limiter,
		logger:  logger,
	}, nil
}

// NewLimiter paces outgoing requests at rpm per minute. Zero or negative rpm
// disables pacing.
func NewLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
}

type Request struct {
	Method string
	Path   string
	Query  url.Values
	// JSON is encoded as the request body when Body is nil.
	JSON           any
	Body           []byte
	ContentType    string
	IdempotencyKey string
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	State      State
	Attempts   int
}

// RequestError is returned for every failed request. It unwraps to the
// transport error, an *apierror.APIError, model.ErrSessionExpired, or
// model.ErrNotAuthenticated when a protected endpoint was called with neither
// token stored.
type RequestError struct {
	Method string
	Path   string
	State  State
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err came from the client-side deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

type attemptKey struct{}

func withAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptKey{}, attempt)
}

func attemptFrom(ctx context.Context) int {
	attempt, _ := ctx.Value(attemptKey{}).(int)
	return attempt
}

func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	req.Method = strings.ToUpper(strings.TrimSpace(req.Method))
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if !strings.HasPrefix(req.Path, "/") {
		req.Path = "/" + req.Path
	}

	if req.Body == nil && req.JSON != nil {
		encoded, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, &RequestError{Method: req.Method, Path: req.Path, State: StateInit, Err: fmt.Errorf("%w: encode body: %v", model.ErrInvalidInput, err)}
		}
		req.Body = encoded
		if req.ContentType == "" {
			req.ContentType = "application/json"
		}
	}

	resp, err := c.send(withAttempt(ctx, 0), req, c.policy.AccessFor(req.Method, req.Path))

	var reqErr *RequestError
	switch {
	case err == nil:
		c.logger.Debug("request finished", "method", req.Method, "path", req.Path, "state", resp.State, "attempts", resp.Attempts)
	case errors.As(err, &reqErr):
		c.logger.Debug("request finished", "method", req.Method, "path", req.Path, "state", reqErr.State)
	}

	return resp, err
}

// DoJSON issues req and decodes a successful body into out.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", req.Method, req.Path, err)
	}

	return nil
}

func (c *Client) send(ctx context.Context, req Request, access Access) (*Response, error) {
	attempt := attemptFrom(ctx)
	retried := attempt > 0

	token := ""
	if access == Bearer && c.session != nil {
		token = c.session.AccessToken()
	}

	resp, err := c.exchange(ctx, req, token, attempt)
	if err != nil {
		return nil, &RequestError{Method: req.Method, Path: req.Path, State: failedState(retried), Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		resp.State = StateSuccess
		if retried {
			resp.State = StateRetriedSuccess
		}
		return resp, nil
	}

	apiErr := apierror.FromResponse(resp.StatusCode, resp.Body, resp.Header.Get(requestIDHeader))

	if resp.StatusCode == http.StatusUnauthorized && access == Bearer && token == "" && (c.session == nil || c.session.RefreshToken() == "") {
		return nil, &RequestError{Method: req.Method, Path: req.Path, State: failedState(retried), Err: fmt.Errorf("%w: %w", model.ErrNotAuthenticated, apiErr)}
	}

	if resp.StatusCode == http.StatusUnauthorized && access == Bearer && c.session != nil && attempt < maxRetries {
		c.logger.Debug("access token rejected, refreshing", "method", req.Method, "path", req.Path, "state", StateFailedRefreshing)

		if _, refreshErr := c.session.Refresh(ctx, token); refreshErr != nil {
			return nil, &RequestError{Method: req.Method, Path: req.Path, State: StateRetriedFailed, Err: refreshErr}
		}

		return c.send(withAttempt(ctx, attempt+1), req, access)
	}

	return nil, &RequestError{Method: req.Method, Path: req.Path, State: failedState(retried), Err: apiErr}
}

func failedState(retried bool) State {
	if retried {
		return StateRetriedFailed
	}
	return StateFailedNoRetry
}

// exchange performs one HTTP round trip.
func (c *Client) exchange(ctx context.Context, req Request, token string, attempt int) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set(requestIDHeader, requestID)
	httpReq.Header.Set("Accept", "application/json")
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		httpReq.Header.Set(idempotencyKeyHeader, key)
	}

	started := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("request failed", "request_id", requestID, "method", req.Method, "path", req.Path, "attempt", attempt, "error", err)
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	attrs := []any{
		"request_id", requestID,
		"method", req.Method,
		"path", req.Path,
		"status", httpResp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
		"attempt", attempt,
	}

	switch {
	case httpResp.StatusCode >= 500:
		c.logger.Error("request", attrs...)
	case httpResp.StatusCode >= 400:
		c.logger.Warn("request", attrs...)
	default:
		c.logger.Debug("request", attrs...)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       payload,
		State:      StateSent,
		Attempts:   attempt + 1,
	}, nil
}
