package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/goliatone/go-qrmi/core"
)

const DefaultTokenRequestTimeout = 30 * time.Second

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func newRestyClient(client *resty.Client, timeout time.Duration) *resty.Client {
	if client != nil {
		return client
	}
	if timeout <= 0 {
		timeout = DefaultTokenRequestTimeout
	}
	return resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
}

// postForm sends a token request and classifies the outcome: 400/401/403
// are rejections of the credential, other failures are transport errors.
func postForm(ctx context.Context, client *resty.Client, endpoint string, form map[string]string) (tokenResponse, error) {
	var out tokenResponse
	resp, err := client.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&out).
		Post(endpoint)
	if err != nil {
		return tokenResponse{}, core.TransportError(err, "auth: token request failed", map[string]any{"endpoint": endpoint})
	}
	status := resp.StatusCode()
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnauthorized, status == http.StatusForbidden:
		return tokenResponse{}, rejected(status, endpoint)
	case status < 200 || status > 299:
		return tokenResponse{}, core.TransportError(
			fmt.Errorf("auth: token endpoint returned %d", status),
			"auth: token request failed",
			map[string]any{"endpoint": endpoint, "status_code": status},
		)
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return tokenResponse{}, core.TransportError(nil, "auth: token response has no access_token", map[string]any{"endpoint": endpoint})
	}
	return out, nil
}

// rejectionError marks a refusal from a token endpoint so the manager can
// tell an expired credential from one that never worked.
type rejectionError struct {
	StatusCode int
	Endpoint   string
}

func (e *rejectionError) Error() string {
	return fmt.Sprintf("auth: token endpoint %s rejected the credential (%d)", e.Endpoint, e.StatusCode)
}

func rejected(status int, endpoint string) error {
	return &rejectionError{StatusCode: status, Endpoint: endpoint}
}

func normalizeEndpoint(endpoint string, fallback string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = fallback
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	return endpoint
}
