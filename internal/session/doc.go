// Package session owns the access/refresh token pair of the signed-in user.
//
// The Manager is the only component that reads or writes the token store.
// It exposes the current session (clearing it once the access token's exp
// has passed), performs token refreshes against POST /token/refresh/, and
// reports its state as one of NoSession, Valid, Expired, RefreshInFlight or
// Invalid.
//
// Transport is an http.RoundTripper that authorizes outgoing requests with
// the stored access token. When a request comes back 401 it refreshes the
// token once and replays the request. If the refresh fails, the session is
// cleared and the caller receives *apierror.SessionExpiredError instead of
// the 401.
//
// Tokens are kept in a Store:
//
//   - MemoryStore for tests and in-process use
//   - FileStore for the CLI (~/.cache/taskpulse/session.json, mode 0600)
//   - ValkeyStore for headless deployments sharing one session
//
// Stores provide no cross-process write protection. Two processes
// refreshing at the same time may each overwrite the other's access token.
package session
