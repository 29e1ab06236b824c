// Package middleware provides the HTTP middleware chain: request
// identification, logging and metrics, panic recovery, and bearer-token
// authentication with first-login profile provisioning.
package middleware
