// Package middleware provides the HTTP middleware chain for the
// Floodgate server.
//
// The chain, outermost first, is recovery, request ID, logging, and
// rate limiting. RateLimit is also usable on its own for embedding
// Floodgate's admission check in another service's handler stack.
package middleware
