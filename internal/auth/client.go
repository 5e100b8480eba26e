package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/teemow/taskpulse/internal/api"
	"github.com/teemow/taskpulse/internal/apierror"
	"github.com/teemow/taskpulse/internal/instrumentation"
	"github.com/teemow/taskpulse/internal/logging"
	"github.com/teemow/taskpulse/internal/session"
)

// API paths relative to the base URL
const (
	LoginPath    = "/token/"
	RegisterPath = "/user/register/"
)

// User-facing messages
const (
	MsgInvalidCredentials = "Invalid username or password"
	MsgRegistrationFailed = "Registration failed."
	MsgPasswordMismatch   = "Passwords do not match!"
)

// User is the signed-in user as far as the client knows it.
type User struct {
	Username string `json:"username"`
}

// Credentials are posted to the login endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is a signup request. ConfirmPassword is checked locally and
// never sent.
type Registration struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
}

// Validate checks required fields and the password confirmation.
func (r Registration) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return apierror.NewValidationError("username", "username is required")
	}
	if r.Password == "" {
		return apierror.NewValidationError("password", "password is required")
	}
	if r.Password != r.ConfirmPassword {
		return apierror.NewValidationError("confirm_password", MsgPasswordMismatch)
	}
	return nil
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Client performs login, signup and logout.
type Client struct {
	api      *api.Client
	sessions *session.Manager
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithMetrics records auth attempts.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates an auth client. apiClient must not use session.Transport.
func NewClient(apiClient *api.Client, sessions *session.Manager, opts ...Option) *Client {
	c := &Client{
		api:      apiClient,
		sessions: sessions,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithComponent(c.logger, "auth")
	return c
}

// Login exchanges credentials for a token pair and stores it.
func (c *Client) Login(ctx context.Context, creds Credentials) (*User, error) {
	ctx, span := instrumentation.StartSpan(ctx, "auth.login")
	defer span.End()

	user, err := c.login(ctx, creds)
	if err != nil {
		c.metrics.RecordAuthAttempt(ctx, instrumentation.AuthOperationLogin, instrumentation.StatusError)
		instrumentation.SetSpanError(span, err)
		c.logger.WarnContext(ctx, "login failed",
			logging.Operation("auth.login"),
			logging.UserHash(creds.Username),
			logging.Err(err))
		return nil, err
	}

	c.metrics.RecordAuthAttempt(ctx, instrumentation.AuthOperationLogin, instrumentation.StatusSuccess)
	instrumentation.SetSpanSuccess(span)
	c.logger.InfoContext(ctx, "logged in",
		logging.Operation("auth.login"),
		logging.UserHash(user.Username))
	return user, nil
}

func (c *Client) login(ctx context.Context, creds Credentials) (*User, error) {
	var pair tokenPair
	err := c.api.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   LoginPath,
		Body:   creds,
	}, &pair)
	if err != nil {
		return nil, &apierror.AuthenticationError{Message: MsgInvalidCredentials, Err: err}
	}
	if pair.Access == "" {
		return nil, &apierror.AuthenticationError{
			Message: MsgInvalidCredentials,
			Err:     errors.New("login response carried no access token"),
		}
	}

	claims, err := session.DecodeAccessToken(pair.Access)
	if err != nil {
		return nil, &apierror.AuthenticationError{Message: MsgInvalidCredentials, Err: err}
	}

	if err := c.sessions.Set(ctx, session.Session{AccessToken: pair.Access, RefreshToken: pair.Refresh}); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	username := claims.Identity()
	if username == "" {
		username = creds.Username
	}
	return &User{Username: username}, nil
}

// Signup registers a new account and logs it in.
func (c *Client) Signup(ctx context.Context, reg Registration) (*User, error) {
	if err := reg.Validate(); err != nil {
		c.metrics.RecordAuthAttempt(ctx, instrumentation.AuthOperationSignup, instrumentation.StatusError)
		return nil, err
	}

	ctx, span := instrumentation.StartSpan(ctx, "auth.signup")
	defer span.End()

	err := c.api.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   RegisterPath,
		Body:   Credentials{Username: reg.Username, Password: reg.Password},
	}, nil)
	if err != nil {
		c.metrics.RecordAuthAttempt(ctx, instrumentation.AuthOperationSignup, instrumentation.StatusError)
		instrumentation.SetSpanError(span, err)
		c.logger.WarnContext(ctx, "registration failed",
			logging.Operation("auth.signup"),
			logging.UserHash(reg.Username),
			logging.Err(err))
		return nil, registrationError(err)
	}

	c.metrics.RecordAuthAttempt(ctx, instrumentation.AuthOperationSignup, instrumentation.StatusSuccess)
	instrumentation.SetSpanSuccess(span)

	return c.Login(ctx, Credentials{Username: reg.Username, Password: reg.Password})
}

// registrationError surfaces the server's first username complaint, or a
// generic message for anything else.
func registrationError(err error) error {
	var verr *apierror.ValidationError
	if errors.As(err, &verr) {
		if msgs := verr.Fields["username"]; len(msgs) > 0 && msgs[0] != "" {
			return &apierror.ValidationError{Field: "username", Message: msgs[0], Fields: verr.Fields}
		}
		return &apierror.ValidationError{Message: MsgRegistrationFailed, Fields: verr.Fields}
	}
	return &apierror.ValidationError{Message: MsgRegistrationFailed}
}

// Logout clears the stored session.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.sessions.Clear(ctx); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "logged out", logging.Operation("auth.logout"))
	return nil
}

// CurrentUser returns the signed-in user, or nil when there is no valid
// session. An expired session is cleared.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	s, err := c.sessions.Current(ctx)
	if err != nil || s == nil {
		return nil, err
	}
	claims, err := session.DecodeAccessToken(s.AccessToken)
	if err != nil {
		return nil, nil
	}
	return &User{Username: claims.Identity()}, nil
}
