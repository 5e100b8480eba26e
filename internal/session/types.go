package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the stored token pair.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// State is the lifecycle state of the stored session.
type State int

const (
	// StateNoSession means no tokens are stored.
	StateNoSession State = iota
	// StateValid means the access token is present and not past exp.
	StateValid
	// StateExpired means the access token is past exp and not yet refreshed.
	StateExpired
	// StateRefreshInFlight means a refresh exchange is running.
	StateRefreshInFlight
	// StateInvalid means the last refresh failed and the tokens were cleared.
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateNoSession:
		return "no_session"
	case StateValid:
		return "valid"
	case StateExpired:
		return "expired"
	case StateRefreshInFlight:
		return "refresh_in_flight"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// ErrNoSession is returned when an operation needs a stored session and there is none.
var ErrNoSession = errors.New("no session")

// ErrNoRefreshToken is the refresh failure cause when only an access token is stored.
var ErrNoRefreshToken = errors.New("no refresh token stored")

// AccessClaims are the claims taskpulse reads from an access token.
type AccessClaims struct {
	Username string `json:"username,omitempty"`
	UserID   any    `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the best available user identity: username, then sub,
// then user_id.
func (c *AccessClaims) Identity() string {
	if c == nil {
		return ""
	}
	if c.Username != "" {
		return c.Username
	}
	if c.Subject != "" {
		return c.Subject
	}
	switch id := c.UserID.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	return ""
}

// Expiry returns the exp claim, or the zero time when the token has none.
func (c *AccessClaims) Expiry() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// DecodeAccessToken reads the claims of an access token without verifying
// its signature. The server verifies tokens; the client only needs exp and
// the identity.
func DecodeAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to decode access token: %w", err)
	}
	return claims, nil
}

// expired reports whether a decoded token is past exp at now. Tokens
// without exp never expire on the client side.
func expired(claims *AccessClaims, now time.Time) bool {
	exp := claims.Expiry()
	return !exp.IsZero() && exp.Before(now)
}
