package auth

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/goliatone/go-qrmi/core"
)

const (
	SourceIAM = "ibm_iam"

	DefaultIAMEndpoint = "https://iam.cloud.ibm.com/identity/token"
	iamGrantType       = "urn:ibm:params:oauth:grant-type:apikey"
	// IAMExpiryFraction of expires_in is treated as the token lifetime.
	IAMExpiryFraction = 0.9
)

type IAMConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	Client   *resty.Client
	Now      func() time.Time
}

// IAMSource exchanges an IBM Cloud API key for an IAM bearer token.
type IAMSource struct {
	endpoint string
	apiKey   string
	client   *resty.Client
	now      func() time.Time
}

func NewIAMSource(cfg IAMConfig) (*IAMSource, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, core.CredentialsMissingError("auth: api key is required", nil)
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &IAMSource{
		endpoint: normalizeEndpoint(cfg.Endpoint, DefaultIAMEndpoint),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		client:   newRestyClient(cfg.Client, cfg.Timeout),
		now:      now,
	}, nil
}

func (s *IAMSource) Token(ctx context.Context, _ bool) (core.AuthToken, error) {
	out, err := postForm(ctx, s.client, s.endpoint, map[string]string{
		"grant_type": iamGrantType,
		"apikey":     s.apiKey,
	})
	if err != nil {
		return core.AuthToken{}, err
	}
	issuedAt := s.now()
	token := core.AuthToken{Value: out.AccessToken, IssuedAt: issuedAt, Source: SourceIAM}
	if out.ExpiresIn > 0 {
		lifetime := time.Duration(float64(out.ExpiresIn) * IAMExpiryFraction * float64(time.Second))
		expiresAt := issuedAt.Add(lifetime)
		token.ExpiresAt = &expiresAt
	}
	return token, nil
}
