// Package common contains shared constants and sentinel errors used across
// gatekeeper components.
package common

const (
	// AuthorizationHeaderName is the request header carrying Basic or Bearer
	// credentials.
	AuthorizationHeaderName = "Authorization"

	// DefaultSessionName is the cookie name used when SESSION_NAME is unset.
	DefaultSessionName = "_my_session_id"
)
