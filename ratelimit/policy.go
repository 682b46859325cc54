package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-qrmi/core"
)

const defaultRetryHint = 5 * time.Second

type ThrottledError struct {
	BucketKey  string
	RetryAfter time.Duration
}

func (e ThrottledError) Error() string {
	return fmt.Sprintf("ratelimit: bucket %q throttled for %s", strings.TrimSpace(e.BucketKey), e.RetryAfter)
}

func (e ThrottledError) ToServiceError() *goerrors.Error {
	metadata := map[string]any{"bucket_key": strings.TrimSpace(e.BucketKey)}
	if e.RetryAfter > 0 {
		metadata["retry_after_ms"] = e.RetryAfter.Milliseconds()
	}
	return core.WrapError(e, core.ErrorTransport, e.Error()).WithMetadata(metadata)
}

// Policy paces outgoing calls per bucket with a token bucket and honors a
// vendor's 429 Retry-After by failing fast until it passes. It never retries.
type Policy struct {
	QPS   float64
	Burst int
	Now   func() time.Time

	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	throttled map[string]time.Time
}

func NewPolicy(cfg core.RateLimitConfig) *Policy {
	return &Policy{
		QPS:       cfg.QPS,
		Burst:     cfg.Burst,
		Now:       func() time.Time { return time.Now().UTC() },
		limiters:  map[string]*rate.Limiter{},
		throttled: map[string]time.Time{},
	}
}

// Wait blocks until the bucket has a token or ctx ends.
func (p *Policy) Wait(ctx context.Context, key string) error {
	if p == nil {
		return nil
	}
	key = normalizeKey(key)
	limiter, until := p.state(key)
	if now := p.now(); until.After(now) {
		return ThrottledError{BucketKey: key, RetryAfter: until.Sub(now)}.ToServiceError()
	}
	if err := limiter.Wait(ctx); err != nil {
		return core.TransportError(err, "ratelimit: wait for call budget", map[string]any{"bucket_key": key})
	}
	return nil
}

// Observe records the outcome of a call. A 429 throttles the bucket for the
// advertised Retry-After, or a default hint when none is given.
func (p *Policy) Observe(key string, statusCode int, headers map[string]string) {
	if p == nil {
		return
	}
	key = normalizeKey(key)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.throttled == nil {
		p.throttled = map[string]time.Time{}
	}
	if statusCode != 429 {
		delete(p.throttled, key)
		return
	}
	now := p.now()
	delay, ok := parseRetryAfter(headers, now)
	if !ok {
		delay = defaultRetryHint
	}
	p.throttled[key] = now.Add(delay)
}

func (p *Policy) state(key string) (*rate.Limiter, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.limiters == nil {
		p.limiters = map[string]*rate.Limiter{}
	}
	limiter, ok := p.limiters[key]
	if !ok {
		limiter = newLimiter(p.QPS, p.Burst)
		p.limiters[key] = limiter
	}
	return limiter, p.throttled[key]
}

func newLimiter(qps float64, burst int) *rate.Limiter {
	if qps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(qps), burst)
}

func (p *Policy) now() time.Time {
	if p != nil && p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func parseRetryAfter(headers map[string]string, now time.Time) (time.Duration, bool) {
	raw := headerValue(headers, "retry-after")
	if raw == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if retryAt, err := httpDate(raw); err == nil && retryAt.After(now) {
		return retryAt.Sub(now), true
	}
	return 0, false
}

func httpDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("ratelimit: empty date")
	}
	if parsed, err := time.Parse(time.RFC1123, value); err == nil {
		return parsed.UTC(), nil
	}
	if parsed, err := time.Parse(time.RFC1123Z, value); err == nil {
		return parsed.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("ratelimit: invalid http date")
}

func headerValue(headers map[string]string, key string) string {
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), key) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func normalizeKey(key string) string {
	return strings.TrimSpace(strings.ToLower(key))
}
