// Package auth signs users in and out of the task API.
//
// Login posts credentials to /token/ and hands the returned token pair to
// the session Manager. Signup registers through /user/register/ and then
// logs in. Both talk to the API through a client that does not carry the
// refresh transport, so rejected credentials never trigger a token refresh.
//
// Failures are translated at this boundary into messages safe to show the
// user: *apierror.AuthenticationError for login and *apierror.ValidationError
// for registration.
package auth
