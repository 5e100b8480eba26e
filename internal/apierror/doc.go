// Package apierror defines the error taxonomy shared by the taskpulse clients.
//
// Every error that crosses a package boundary is one of:
//   - ValidationError: bad input, local or reported by the API
//   - AuthenticationError: rejected credentials, with a user-facing message
//   - SessionExpiredError: refresh failed and the session was cleared
//   - NetworkError: transport failure
//   - NotFoundError: stale task id
//   - StatusError: any other non-2xx response
//
// Callers match them with errors.As; UserMessage maps them to text suitable
// for the CLI and MCP tool results.
package apierror
