// Package api is the JSON-over-HTTP transport shared by the task and auth
// clients.
//
// Every call gets an X-Request-ID, a client span (api.<method>.<route>) and
// an api_requests_total sample. Non-2xx responses are mapped onto the typed
// errors in internal/apierror so callers can branch with errors.As:
//
//   - 400 becomes *apierror.ValidationError with the field errors parsed
//   - 404 becomes *apierror.NotFoundError
//   - any other non-2xx becomes *apierror.StatusError
//   - transport failures become *apierror.NetworkError, except a
//     *apierror.SessionExpiredError raised by the session transport, which
//     is passed through untouched
//
// The Client does not authenticate requests itself. Plug a session.Transport
// into the *http.Client for authenticated endpoints.
package api
