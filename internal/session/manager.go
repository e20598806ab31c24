package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"talentmatch-client/internal/model"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

var ErrNoRefreshToken = errors.New("no refresh token stored")

// DefaultRefreshTimeout bounds one token exchange.
const DefaultRefreshTimeout = 30 * time.Second

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (model.RefreshResponse, error)
}

type Option func(*Manager)

// WithOnExpired registers the hook fired after an irrecoverable refresh
// failure has cleared the session.
func WithOnExpired(fn func(reason error)) Option {
	return func(m *Manager) {
		m.onExpired = fn
	}
}

// WithRefreshTimeout bounds the shared token exchange, which outlives the
// caller that started it.
func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.refreshTimeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Manager owns the credential pair for one user session. All reads and writes
// of the tokens go through it.
type Manager struct {
	store     Store
	refresher Refresher
	onExpired func(reason error)
	logger    *slog.Logger

	refreshTimeout time.Duration

	mu    sync.RWMutex
	creds Credentials

	refreshGroup singleflight.Group
}

func NewManager(store Store, refresher Refresher, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if refresher == nil {
		return nil, errors.New("token refresher is required")
	}

	creds, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	m := &Manager{
		store:     store,
		refresher: refresher,
		logger:    slog.Default(),
		creds:     creds,

		refreshTimeout: DefaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Start replaces the session with a freshly issued token pair.
func (m *Manager) Start(creds Credentials) error {
	if strings.TrimSpace(creds.AccessToken) == "" {
		return fmt.Errorf("%w: access token is required", model.ErrInvalidInput)
	}

	m.mu.Lock()
	m.creds = creds
	m.mu.Unlock()

	if err := m.store.Save(creds); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	return nil
}

func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds.AccessToken
}

func (m *Manager) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds.RefreshToken
}

// Refresh obtains a new access token after rejected was refused by the server.
// Concurrent callers share one exchange, and a caller whose rejected token has
// already been replaced gets the current token without a new exchange. The
// exchange is detached from any single caller and bounded by the refresh
// timeout, so a caller that gives up does not fail the others. When the server
// refuses the exchange the session is expired and the returned error wraps
// model.ErrSessionExpired.
func (m *Manager) Refresh(ctx context.Context, rejected string) (string, error) {
	if current := m.AccessToken(); current != "" && current != rejected {
		return current, nil
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("refresh access token: %w", err)
	}

	exchangeCtx := context.WithoutCancel(ctx)
	ch := m.refreshGroup.DoChan("refresh", func() (any, error) {
		return m.exchange(exchangeCtx, rejected)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("refresh access token: %w", ctx.Err())
	}
}

func (m *Manager) exchange(ctx context.Context, rejected string) (string, error) {
	if current := m.AccessToken(); current != "" && current != rejected {
		return current, nil
	}

	refreshToken := m.RefreshToken()
	if refreshToken == "" {
		m.Expire(ErrNoRefreshToken)
		return "", fmt.Errorf("%w: %w", model.ErrSessionExpired, ErrNoRefreshToken)
	}

	ctx, cancel := context.WithTimeout(ctx, m.refreshTimeout)
	defer cancel()

	resp, err := m.refresher.Refresh(ctx, refreshToken)
	if err == nil && strings.TrimSpace(resp.Access) == "" {
		err = errors.New("refresh response did not include an access token")
	}
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("refresh access token: %w", err)
		}
		m.Expire(err)
		return "", fmt.Errorf("%w: %w", model.ErrSessionExpired, err)
	}

	next := Credentials{AccessToken: resp.Access, RefreshToken: refreshToken}
	if resp.Refresh != "" {
		next.RefreshToken = resp.Refresh
	}

	m.mu.Lock()
	m.creds = next
	m.mu.Unlock()

	if err := m.store.Save(next); err != nil {
		m.logger.Warn("failed to persist refreshed session", "error", err)
	}
	m.logger.Debug("access token refreshed", "rotated_refresh", resp.Refresh != "")

	return next.AccessToken, nil
}

// isTimeout reports whether the exchange ran out of time rather than being
// refused, in which case the stored tokens are still usable.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Expire clears the session after an irrecoverable failure and fires the
// OnExpired hook.
func (m *Manager) Expire(reason error) {
	m.clear()
	m.logger.Warn("session expired", "reason", reason)

	if m.onExpired != nil {
		m.onExpired(reason)
	}
}

// Logout clears the session without firing the OnExpired hook.
func (m *Manager) Logout() error {
	return m.clear()
}

func (m *Manager) clear() error {
	m.mu.Lock()
	m.creds = Credentials{}
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.logger.Error("failed to clear stored session", "error", err)
		return err
	}

	return nil
}

type Status struct {
	Authenticated   bool      `json:"authenticated"`
	HasRefreshToken bool      `json:"has_refresh_token"`
	Subject         string    `json:"subject,omitempty"`
	Username        string    `json:"username,omitempty"`
	ExpiresAt       time.Time `json:"expires_at,omitempty"`
	Expired         bool      `json:"expired"`
}

// Status describes the stored session. Token claims are decoded without
// signature verification and are for display only; opaque tokens report no
// expiry.
func (m *Manager) Status() Status {
	m.mu.RLock()
	creds := m.creds
	m.mu.RUnlock()

	status := Status{
		Authenticated:   creds.AccessToken != "",
		HasRefreshToken: creds.RefreshToken != "",
	}
	if creds.AccessToken == "" {
		return status
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(creds.AccessToken, claims); err != nil {
		return status
	}

	status.Subject = claimString(claims, "sub")
	if status.Subject == "" {
		status.Subject = claimString(claims, "user_id")
	}
	status.Username = claimString(claims, "username")

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		status.ExpiresAt = exp.Time.UTC()
		status.Expired = !NowTimeFunc().Before(exp.Time)
	}

	return status
}

func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
