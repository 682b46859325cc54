package transport

import (
	"context"
	"net/http"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-qrmi/core"
	"github.com/goliatone/go-qrmi/ratelimit"
)

const (
	SchemeBearer = "Bearer"
	SchemeAPIKey = "apiKey"
)

type authBuilder struct {
	scheme string
	header string
	policy *ratelimit.Policy
	bucket string
	logger core.Logger
}

type AuthOption func(*authBuilder)

// WithScheme sets the Authorization scheme, Bearer by default.
func WithScheme(scheme string) AuthOption {
	return func(b *authBuilder) {
		b.scheme = strings.TrimSpace(scheme)
	}
}

func WithHeader(header string) AuthOption {
	return func(b *authBuilder) {
		b.header = strings.TrimSpace(header)
	}
}

// WithRateLimit paces calls through policy under bucket.
func WithRateLimit(policy *ratelimit.Policy, bucket string) AuthOption {
	return func(b *authBuilder) {
		b.policy = policy
		b.bucket = bucket
	}
}

func WithAuthLogger(logger core.Logger) AuthOption {
	return func(b *authBuilder) {
		b.logger = logger
	}
}

// AuthenticatedTransport attaches a fresh token to every request. A 401 leads
// to one forced refresh and one retry; the second response is returned as is.
type AuthenticatedTransport struct {
	next   core.TransportAdapter
	tokens core.TokenProvider
	scheme string
	header string
	policy *ratelimit.Policy
	bucket string
	logger core.Logger
}

func NewAuthenticatedTransport(next core.TransportAdapter, tokens core.TokenProvider, opts ...AuthOption) *AuthenticatedTransport {
	builder := authBuilder{scheme: SchemeBearer, header: "Authorization"}
	for _, opt := range opts {
		if opt != nil {
			opt(&builder)
		}
	}
	if builder.header == "" {
		builder.header = "Authorization"
	}
	return &AuthenticatedTransport{
		next:   next,
		tokens: tokens,
		scheme: builder.scheme,
		header: builder.header,
		policy: builder.policy,
		bucket: builder.bucket,
		logger: glog.Ensure(builder.logger),
	}
}

func (t *AuthenticatedTransport) Kind() string {
	if t == nil || t.next == nil {
		return ""
	}
	return t.next.Kind()
}

func (t *AuthenticatedTransport) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if t == nil || t.next == nil || t.tokens == nil {
		return core.TransportResponse{}, transportError(core.ErrorInternal, "transport: authenticated transport is not configured", nil)
	}
	token, err := t.tokens.Current(ctx)
	if err != nil {
		return core.TransportResponse{}, err
	}
	res, err := t.send(ctx, req, token)
	if err != nil || res.StatusCode != http.StatusUnauthorized {
		return res, err
	}

	t.logger.Debug("request unauthorized, refreshing token",
		"method", req.Method,
		"url", req.URL,
	)
	token, err = t.tokens.ForceRefresh(ctx)
	if err != nil {
		return core.TransportResponse{}, err
	}
	return t.send(ctx, req, token)
}

func (t *AuthenticatedTransport) send(ctx context.Context, req core.TransportRequest, token core.AuthToken) (core.TransportResponse, error) {
	if t.policy != nil {
		if err := t.policy.Wait(ctx, t.bucket); err != nil {
			return core.TransportResponse{}, err
		}
	}
	attempt := req
	attempt.Headers = make(map[string]string, len(req.Headers)+1)
	for key, value := range req.Headers {
		attempt.Headers[key] = value
	}
	value := token.Value
	if t.scheme != "" {
		value = t.scheme + " " + token.Value
	}
	attempt.Headers[t.header] = value

	res, err := t.next.Do(ctx, attempt)
	if err == nil && t.policy != nil {
		t.policy.Observe(t.bucket, res.StatusCode, res.Headers)
	}
	return res, err
}

var _ core.TransportAdapter = (*AuthenticatedTransport)(nil)
