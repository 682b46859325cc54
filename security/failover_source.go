package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-qrmi/core"
	"github.com/goliatone/go-qrmi/credentials"
)

type FailurePolicy string

const (
	FailurePolicyStrict   FailurePolicy = "strict_fail"
	FailurePolicyFallback FailurePolicy = "fallback_allowed"
)

// Diagnostic describes one failed lookup against the primary or fallback.
type Diagnostic struct {
	OccurredAt time.Time
	Backend    string
	Policy     FailurePolicy
	Outcome    string
	Primary    string
	Fallback   string
	Error      string
}

type DiagnosticHook func(event Diagnostic)

type FailoverOption func(*FailoverSource)

// FailoverSource consults a fallback source when the primary errors and the
// policy allows it. An empty primary result is not a failure.
type FailoverSource struct {
	primary        credentials.SecretSource
	fallback       credentials.SecretSource
	policy         FailurePolicy
	diagnosticHook DiagnosticHook
	now            func() time.Time
}

func NewFailoverSource(primary credentials.SecretSource, opts ...FailoverOption) (*FailoverSource, error) {
	if primary == nil {
		return nil, fmt.Errorf("security: primary secret source is required")
	}
	source := &FailoverSource{
		primary: primary,
		policy:  FailurePolicyStrict,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(source)
	}
	source.policy = normalizeFailurePolicy(source.policy)
	if source.policy == FailurePolicyFallback && source.fallback == nil {
		return nil, fmt.Errorf("security: fallback policy requires a configured fallback secret source")
	}
	if source.now == nil {
		source.now = func() time.Time { return time.Now().UTC() }
	}
	return source, nil
}

func WithFallbackSource(fallback credentials.SecretSource) FailoverOption {
	return func(f *FailoverSource) {
		f.fallback = fallback
	}
}

func WithFailurePolicy(policy FailurePolicy) FailoverOption {
	return func(f *FailoverSource) {
		f.policy = normalizeFailurePolicy(policy)
	}
}

func WithDiagnostics(hook DiagnosticHook) FailoverOption {
	return func(f *FailoverSource) {
		f.diagnosticHook = hook
	}
}

func WithFailoverClock(now func() time.Time) FailoverOption {
	return func(f *FailoverSource) {
		f.now = now
	}
}

func (f *FailoverSource) Name() string {
	if f == nil {
		return ""
	}
	if f.fallback == nil {
		return f.primary.Name()
	}
	return f.primary.Name() + "|" + f.fallback.Name()
}

func (f *FailoverSource) Lookup(ctx context.Context, backend string, resourceType core.ResourceType) (map[string]string, error) {
	if f == nil || f.primary == nil {
		return nil, fmt.Errorf("security: failover source is nil")
	}
	values, err := f.primary.Lookup(ctx, backend, resourceType)
	if err == nil {
		return values, nil
	}
	f.emit(backend, "primary_failed", err)
	if f.policy == FailurePolicyStrict || f.fallback == nil {
		return nil, fmt.Errorf("security: primary lookup failed with %s policy: %w", f.policy, err)
	}
	fallbackValues, fallbackErr := f.fallback.Lookup(ctx, backend, resourceType)
	if fallbackErr != nil {
		f.emit(backend, "fallback_failed", fallbackErr)
		return nil, fmt.Errorf("security: primary lookup failed: %v; fallback lookup failed: %w", err, fallbackErr)
	}
	f.emit(backend, "fallback_succeeded", err)
	return fallbackValues, nil
}

func (f *FailoverSource) emit(backend string, outcome string, err error) {
	if f.diagnosticHook == nil {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	fallback := ""
	if f.fallback != nil {
		fallback = f.fallback.Name()
	}
	f.diagnosticHook(Diagnostic{
		OccurredAt: f.now().UTC(),
		Backend:    strings.TrimSpace(backend),
		Policy:     f.policy,
		Outcome:    outcome,
		Primary:    f.primary.Name(),
		Fallback:   fallback,
		Error:      msg,
	})
}

func normalizeFailurePolicy(policy FailurePolicy) FailurePolicy {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(string(policy)))) {
	case FailurePolicyFallback:
		return FailurePolicyFallback
	default:
		return FailurePolicyStrict
	}
}

var _ credentials.SecretSource = (*FailoverSource)(nil)
