// Package auth provides pluggable authentication for self-hosted
// interpreter deployments.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (identity found), No (credentials
// invalid), or Abstain (can't handle). A configurable default voter decides
// when all authenticators abstain.
//
// Auth is implemented as HTTP middleware, keeping it decoupled from the
// backend. The SDK client never validates API keys itself; it forwards them
// as bearer tokens for this middleware (or the hosted service) to check.
package auth
