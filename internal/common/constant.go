// Package common contains shared constants and sentinel errors used across
// server components.
package common

// AuthorizationHeaderName carries the bearer token on inbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix is the only accepted authorization scheme.
const BearerPrefix = "Bearer "
