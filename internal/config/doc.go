// Package config loads taskpulse settings from a .env file and the
// environment.
//
// Values are resolved in order: built-in defaults, then a .env file in the
// working directory (missing file ignored, never overriding variables that
// are already set), then TASKPULSE_* environment variables. Commands apply
// their flag overrides on top of the returned Config and call Validate.
package config
