package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/teemow/taskpulse/internal/apierror"
	"github.com/teemow/taskpulse/internal/instrumentation"
	"github.com/teemow/taskpulse/internal/logging"
)

// DefaultRefreshTimeout bounds a refresh exchange when no timeout is configured.
const DefaultRefreshTimeout = 10 * time.Second

// Refresher exchanges a refresh token for a new token pair. An empty
// RefreshToken in the result keeps the stored one.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Session, error)
}

// Manager owns the stored session.
type Manager struct {
	store     Store
	refresher Refresher

	refreshTimeout time.Duration
	coalesce       bool
	group          singleflight.Group

	now       func() time.Time
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	onExpired func(error)

	mu         sync.Mutex
	refreshing int
	invalid    bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics records token_refresh_total.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRefreshTimeout bounds each refresh exchange. Non-positive values keep the default.
func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.refreshTimeout = d
		}
	}
}

// WithCoalescedRefresh controls whether concurrent refreshes share one
// exchange (default true). With false every caller runs its own exchange.
func WithCoalescedRefresh(enabled bool) Option {
	return func(m *Manager) { m.coalesce = enabled }
}

// WithOnSessionExpired registers a hook fired after a failed refresh has
// cleared the session. The CLI uses it to tell the user to login again.
func WithOnSessionExpired(fn func(error)) Option {
	return func(m *Manager) { m.onExpired = fn }
}

// NewManager creates a Manager over store. refresher may be nil, in which
// case every refresh fails and expires the session.
func NewManager(store Store, refresher Refresher, opts ...Option) *Manager {
	m := &Manager{
		store:          store,
		refresher:      refresher,
		refreshTimeout: DefaultRefreshTimeout,
		coalesce:       true,
		now:            time.Now,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.WithComponent(m.logger, "session")
	return m
}

// Current returns the stored session, or nil when there is none. A session
// whose access token is past exp is cleared and reported as nil; it is not
// refreshed here. A token that cannot be decoded is reported as nil and
// left in place.
func (m *Manager) Current(ctx context.Context) (*Session, error) {
	s, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	if s.AccessToken == "" {
		return nil, nil
	}

	claims, err := DecodeAccessToken(s.AccessToken)
	if err != nil {
		m.logger.WarnContext(ctx, "stored access token is not decodable",
			logging.Operation("session.current"),
			logging.Err(err))
		return nil, nil
	}

	if expired(claims, m.now()) {
		m.logger.InfoContext(ctx, "access token expired, clearing session",
			logging.Operation("session.current"),
			logging.UserHash(claims.Identity()))
		if err := m.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return &s, nil
}

// Set stores a fresh token pair, e.g. after login.
func (m *Manager) Set(ctx context.Context, s Session) error {
	if s.AccessToken == "" {
		return fmt.Errorf("cannot store a session without access token")
	}
	if err := m.store.Set(ctx, KeyAccessToken, s.AccessToken); err != nil {
		return err
	}
	if s.RefreshToken != "" {
		if err := m.store.Set(ctx, KeyRefreshToken, s.RefreshToken); err != nil {
			return err
		}
	} else if err := m.store.Delete(ctx, KeyRefreshToken); err != nil {
		return err
	}

	m.mu.Lock()
	m.invalid = false
	m.mu.Unlock()
	return nil
}

// Clear removes both tokens.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Delete(ctx, KeyAccessToken, KeyRefreshToken); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// State reports the lifecycle state of the stored session.
func (m *Manager) State(ctx context.Context) (State, error) {
	m.mu.Lock()
	refreshing, invalid := m.refreshing > 0, m.invalid
	m.mu.Unlock()

	if refreshing {
		return StateRefreshInFlight, nil
	}

	s, err := m.load(ctx)
	if err != nil {
		return StateNoSession, err
	}
	if s.AccessToken == "" {
		if invalid {
			return StateInvalid, nil
		}
		return StateNoSession, nil
	}

	claims, err := DecodeAccessToken(s.AccessToken)
	if err != nil || expired(claims, m.now()) {
		return StateExpired, nil
	}
	return StateValid, nil
}

// Token implements oauth2.TokenSource over the stored session. It never
// refreshes; use Refresh or Transport for that.
func (m *Manager) Token() (*oauth2.Token, error) {
	s, err := m.load(context.Background())
	if err != nil {
		return nil, err
	}
	if s.AccessToken == "" {
		return nil, ErrNoSession
	}

	token := &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: s.RefreshToken,
	}
	if claims, err := DecodeAccessToken(s.AccessToken); err == nil {
		token.Expiry = claims.Expiry()
	}
	return token, nil
}

// Refresh exchanges the stored refresh token for a new access token and
// stores it. On failure the session is cleared, the expiry hook fires and
// a *apierror.SessionExpiredError is returned.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	if !m.coalesce {
		return m.refresh(ctx)
	}

	// The shared exchange must not die with whichever caller started it.
	ch := m.group.DoChan("refresh", func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	logger := logging.WithOperation(m.logger, "session.refresh")

	refreshToken, err := m.store.Get(ctx, KeyRefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to read refresh token: %w", err)
	}
	if refreshToken == "" || m.refresher == nil {
		m.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultNoSession)
		return "", m.expire(ctx, ErrNoRefreshToken)
	}

	m.mu.Lock()
	m.refreshing++
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.refreshing--
		m.mu.Unlock()
	}()

	start := m.now()
	refreshCtx, cancel := context.WithTimeout(ctx, m.refreshTimeout)
	defer cancel()

	fresh, err := m.refresher.Refresh(refreshCtx, refreshToken)
	if err == nil && fresh.AccessToken == "" {
		err = errors.New("refresh response carried no access token")
	}
	if err != nil {
		m.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultFailure)
		logger.WarnContext(ctx, "token refresh failed",
			logging.Status(logging.StatusError),
			logging.Err(err))
		return "", m.expire(ctx, err)
	}

	if fresh.RefreshToken == "" {
		fresh.RefreshToken = refreshToken
	}
	if err := m.Set(ctx, fresh); err != nil {
		return "", fmt.Errorf("failed to store refreshed session: %w", err)
	}

	m.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultSuccess)
	logger.DebugContext(ctx, "token refreshed",
		logging.Status(logging.StatusSuccess),
		slog.Duration(logging.KeyDuration, m.now().Sub(start)),
		slog.String("access_token", logging.SanitizeToken(fresh.AccessToken)))
	return fresh.AccessToken, nil
}

// expire clears the session after an irrecoverable refresh failure.
func (m *Manager) expire(ctx context.Context, cause error) error {
	if err := m.Clear(ctx); err != nil {
		m.logger.ErrorContext(ctx, "failed to clear session after refresh failure",
			logging.Operation("session.refresh"),
			logging.Err(err))
	}

	m.mu.Lock()
	m.invalid = true
	m.mu.Unlock()

	expiredErr := &apierror.SessionExpiredError{Err: cause}
	if m.onExpired != nil {
		m.onExpired(expiredErr)
	}
	return expiredErr
}

// load reads both slots.
func (m *Manager) load(ctx context.Context) (Session, error) {
	access, err := m.store.Get(ctx, KeyAccessToken)
	if err != nil {
		return Session{}, fmt.Errorf("failed to read access token: %w", err)
	}
	refresh, err := m.store.Get(ctx, KeyRefreshToken)
	if err != nil {
		return Session{}, fmt.Errorf("failed to read refresh token: %w", err)
	}
	return Session{AccessToken: access, RefreshToken: refresh}, nil
}

// usable reports whether access may be sent as-is: it decodes and is not
// past exp. Undecodable tokens are sent and left for the server to judge.
func (m *Manager) usable(access string) bool {
	claims, err := DecodeAccessToken(access)
	if err != nil {
		return true
	}
	return !expired(claims, m.now())
}
