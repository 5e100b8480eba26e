package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/taskpulse/internal/apierror"
	"github.com/teemow/taskpulse/internal/instrumentation"
	"github.com/teemow/taskpulse/internal/logging"
)

// HeaderRequestID carries the per-call correlation id.
const HeaderRequestID = "X-Request-ID"

// maxErrorBody caps how much of an error response is read into memory.
const maxErrorBody = 64 << 10

// Request describes a single API call.
type Request struct {
	Method string
	Path   string // relative to the base URL, e.g. "/tasks/42/"
	Route  string // low-cardinality label for metrics and spans, defaults to Path
	Body   any    // JSON-encoded when non-nil

	// Resource and ID name the target for NotFoundError on 404.
	Resource string
	ID       string
}

func (r Request) route() string {
	if r.Route != "" {
		return r.Route
	}
	return r.Path
}

// Client sends JSON requests to the task API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithMetrics records api_requests_total and api_request_duration_seconds.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger used for per-request debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for baseURL. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     slog.Default(),
		userAgent:  "taskpulse",
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithComponent(c.logger, "api")
	return c
}

// Do sends r and decodes a 2xx JSON response into out (if non-nil).
func (c *Client) Do(ctx context.Context, r Request, out any) (err error) {
	route := r.route()
	requestID := uuid.NewString()
	start := time.Now()
	statusCode := 0

	ctx, span := instrumentation.StartAPISpan(ctx, r.Method, route,
		attribute.String(instrumentation.SpanAttrRequestID, requestID))
	defer func() {
		duration := time.Since(start)
		c.metrics.RecordAPIRequest(ctx, r.Method, route, statusCode, duration)
		if statusCode > 0 {
			span.SetAttributes(attribute.Int(instrumentation.SpanAttrStatusCode, statusCode))
		}
		if err != nil {
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		span.End()

		c.logger.DebugContext(ctx, "api request",
			slog.String("method", r.Method),
			logging.Endpoint(route),
			logging.RequestID(requestID),
			slog.Int("status_code", statusCode),
			slog.Duration(logging.KeyDuration, duration),
			logging.Err(err))
	}()

	var body io.Reader
	if r.Body != nil {
		payload, err := json.Marshal(r.Body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, c.baseURL+r.Path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderRequestID, requestID)
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(ctx, r.Method+" "+route, err)
	}
	defer resp.Body.Close()
	statusCode = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(r, resp.StatusCode, data)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apierror.NetworkError{Op: r.Method + " " + route, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", route, err)
	}
	return nil
}

// transportError keeps session expiry and caller cancellation visible and
// wraps everything else as a NetworkError.
func transportError(ctx context.Context, op string, err error) error {
	var sessionErr *apierror.SessionExpiredError
	if errors.As(err, &sessionErr) {
		return sessionErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return &apierror.NetworkError{Op: op, Err: err}
}

func statusError(r Request, code int, body []byte) error {
	switch code {
	case http.StatusNotFound:
		resource := r.Resource
		if resource == "" {
			resource = "resource"
		}
		return &apierror.NotFoundError{Resource: resource, ID: r.ID}
	case http.StatusBadRequest:
		return ParseValidationError(body)
	default:
		return &apierror.StatusError{StatusCode: code, Body: string(body)}
	}
}

// ParseValidationError converts a 400 body into a ValidationError. Both the
// field map form ({"username": ["taken"]}) and the detail form
// ({"detail": "..."}) are understood. Message is the first field message in
// key order, or "invalid request" when the body carries none.
func ParseValidationError(body []byte) *apierror.ValidationError {
	verr := &apierror.ValidationError{Message: "invalid request"}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return verr
	}

	fields := make(map[string][]string, len(raw))
	for key, value := range raw {
		var list []string
		if err := json.Unmarshal(value, &list); err == nil {
			fields[key] = list
			continue
		}
		var single string
		if err := json.Unmarshal(value, &single); err == nil {
			fields[key] = []string{single}
		}
	}
	if len(fields) == 0 {
		return verr
	}
	verr.Fields = fields

	if detail := fields["detail"]; len(detail) > 0 {
		verr.Message = detail[0]
		return verr
	}
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		if msgs := fields[key]; len(msgs) > 0 {
			verr.Field = key
			verr.Message = msgs[0]
			break
		}
	}
	return verr
}
