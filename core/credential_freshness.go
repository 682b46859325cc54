package core

import (
	"fmt"
	"strings"
	"time"
)

const DefaultTokenRefreshMargin = 60 * time.Second

// AuthToken is a bearer token plus the expiry hint decoded from it, if any.
type AuthToken struct {
	Value     string
	ExpiresAt *time.Time
	IssuedAt  time.Time
	Source    string
}

func (t AuthToken) Empty() bool {
	return strings.TrimSpace(t.Value) == ""
}

func (t AuthToken) String() string {
	expiry := "none"
	if t.ExpiresAt != nil {
		expiry = t.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("AuthToken{source=%s value=%s expires_at=%s}", t.Source, RedactedValue, expiry)
}

func (t AuthToken) GoString() string {
	return t.String()
}

// TokenState captures the lifecycle state derived from a token at a point in time.
type TokenState struct {
	ExpiresAt      *time.Time
	HasValue       bool
	IsExpired      bool
	IsExpiringSoon bool
}

// ResolveTokenState evaluates expiry flags for a token. Tokens without an
// expiry hint are never reported as expired or expiring.
func ResolveTokenState(now time.Time, token AuthToken, margin time.Duration) TokenState {
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	if margin < 0 {
		margin = 0
	}

	state := TokenState{HasValue: !token.Empty()}
	if token.ExpiresAt == nil {
		return state
	}
	expiresAt := token.ExpiresAt.UTC()
	state.ExpiresAt = &expiresAt
	if !expiresAt.After(now) {
		state.IsExpired = true
		return state
	}
	state.IsExpiringSoon = !expiresAt.After(now.Add(margin))
	return state
}

// ShouldRefreshToken reports whether a token must be replaced before it is
// attached to a new request.
func ShouldRefreshToken(state TokenState) bool {
	if !state.HasValue {
		return true
	}
	return state.IsExpired || state.IsExpiringSoon
}
