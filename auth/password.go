package auth

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/goliatone/go-qrmi/core"
)

const (
	SourcePasswordGrant = "password_grant"

	DefaultPasswordGrantEndpoint = "authenticate.pasqal.cloud/oauth/token"
	passwordGrantType            = "http://auth0.com/oauth/grant-type/password-realm"
	passwordGrantRealm           = "pcs-users"
	passwordGrantClientID        = "PeZvo7Atx7IVv3iel59asJSb4Ig7vuSB"
	passwordGrantAudience        = "https://apis.pasqal.cloud/account/api/v1"
)

type PasswordGrantConfig struct {
	Endpoint string
	Username string
	Password string
	Timeout  time.Duration
	Client   *resty.Client
	Now      func() time.Time
}

// PasswordGrantSource exchanges a username and password for an access token
// with the Auth0 password-realm grant.
type PasswordGrantSource struct {
	endpoint string
	username string
	password string
	client   *resty.Client
	now      func() time.Time
}

func NewPasswordGrantSource(cfg PasswordGrantConfig) (*PasswordGrantSource, error) {
	if strings.TrimSpace(cfg.Username) == "" || cfg.Password == "" {
		return nil, core.CredentialsMissingError("auth: username and password are required", nil)
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &PasswordGrantSource{
		endpoint: normalizeEndpoint(cfg.Endpoint, DefaultPasswordGrantEndpoint),
		username: strings.TrimSpace(cfg.Username),
		password: cfg.Password,
		client:   newRestyClient(cfg.Client, cfg.Timeout),
		now:      now,
	}, nil
}

func (s *PasswordGrantSource) Endpoint() string {
	return s.endpoint
}

func (s *PasswordGrantSource) Token(ctx context.Context, _ bool) (core.AuthToken, error) {
	out, err := postForm(ctx, s.client, s.endpoint, map[string]string{
		"grant_type": passwordGrantType,
		"realm":      passwordGrantRealm,
		"client_id":  passwordGrantClientID,
		"audience":   passwordGrantAudience,
		"username":   s.username,
		"password":   s.password,
	})
	if err != nil {
		return core.AuthToken{}, err
	}
	issuedAt := s.now()
	token := core.AuthToken{Value: out.AccessToken, IssuedAt: issuedAt, Source: SourcePasswordGrant}
	expiresAt, err := ExpiryFromJWT(out.AccessToken)
	if err != nil {
		return core.AuthToken{}, core.TransportError(err, "auth: token endpoint returned a malformed token", nil)
	}
	if expiresAt == nil && out.ExpiresIn > 0 {
		computed := issuedAt.Add(time.Duration(out.ExpiresIn) * time.Second)
		expiresAt = &computed
	}
	token.ExpiresAt = expiresAt
	return token, nil
}
