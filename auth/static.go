package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-qrmi/core"
)

const SourceStatic = "static"

// StaticTokenSource hands out a bearer token or API key as-is. A JWT that has
// expired cannot be renewed by this source.
type StaticTokenSource struct {
	token core.AuthToken
	now   func() time.Time
}

// NewStaticTokenSource wraps value; now defaults to the wall clock.
func NewStaticTokenSource(value string, now func() time.Time) (*StaticTokenSource, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, core.CredentialsMissingError("auth: static token is required", nil)
	}
	expiresAt, err := ExpiryFromJWT(value)
	if err != nil {
		return nil, core.WrapError(err, core.ErrorBadInput, err.Error())
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &StaticTokenSource{
		token: core.AuthToken{Value: value, ExpiresAt: expiresAt, Source: SourceStatic},
		now:   now,
	}, nil
}

// Initial is the wrapped token without any expiry check.
func (s *StaticTokenSource) Initial() core.AuthToken {
	return s.token
}

func (s *StaticTokenSource) Token(context.Context, bool) (core.AuthToken, error) {
	if s.token.ExpiresAt != nil && !s.token.ExpiresAt.After(s.now()) {
		return core.AuthToken{}, core.AuthExpiredError(nil, "auth: static token has expired and cannot be refreshed")
	}
	token := s.token
	token.IssuedAt = s.now()
	return token, nil
}
