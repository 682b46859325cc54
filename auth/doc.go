// Package auth obtains and refreshes the bearer tokens vendor APIs expect.
//
// Sources perform a single exchange (a static token, an Auth0 password grant,
// an IBM IAM API-key grant); Manager caches the result and refreshes it ahead
// of expiry.
package auth
