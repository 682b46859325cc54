package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-qrmi/core"
)

type managerBuilder struct {
	name    string
	margin  time.Duration
	initial *core.AuthToken
	clock   core.Clock
	logger  core.Logger
}

type ManagerOption func(*managerBuilder)

// WithName labels log lines, typically with the resource name.
func WithName(name string) ManagerOption {
	return func(b *managerBuilder) {
		b.name = strings.TrimSpace(name)
	}
}

func WithRefreshMargin(margin time.Duration) ManagerOption {
	return func(b *managerBuilder) {
		b.margin = margin
	}
}

// WithInitialToken seeds the manager, e.g. with a configured access token
// that is used until it expires and the source takes over.
func WithInitialToken(token core.AuthToken) ManagerOption {
	return func(b *managerBuilder) {
		if token.Empty() {
			return
		}
		copied := token
		b.initial = &copied
	}
}

func WithClock(clock core.Clock) ManagerOption {
	return func(b *managerBuilder) {
		b.clock = clock
	}
}

func WithLogger(logger core.Logger) ManagerOption {
	return func(b *managerBuilder) {
		b.logger = logger
	}
}

// Manager keeps one bearer token per resource fresh. Refreshes are serialized
// so concurrent callers observe a single exchange.
type Manager struct {
	source core.TokenSource
	name   string
	margin time.Duration
	clock  core.Clock
	logger core.Logger

	mu            sync.Mutex
	current       core.AuthToken
	authenticated bool
	refreshes     int64
}

func NewManager(source core.TokenSource, opts ...ManagerOption) (*Manager, error) {
	if source == nil {
		return nil, core.NewError(core.ErrorInternal, "auth: token source is required")
	}
	builder := managerBuilder{
		margin: core.DefaultTokenRefreshMargin,
		clock:  core.SystemClock{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&builder)
		}
	}
	if builder.clock == nil {
		builder.clock = core.SystemClock{}
	}
	if builder.margin < 0 {
		builder.margin = 0
	}
	_, logger := glog.Resolve("qrmi.auth", nil, builder.logger)

	manager := &Manager{
		source: source,
		name:   builder.name,
		margin: builder.margin,
		clock:  builder.clock,
		logger: glog.Ensure(logger),
	}
	if builder.initial != nil {
		manager.current = *builder.initial
	}
	return manager, nil
}

// EnsureValid returns the cached token when it is outside the refresh margin
// and performs a refresh otherwise.
func (m *Manager) EnsureValid(ctx context.Context) (core.AuthToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := core.ResolveTokenState(m.clock.Now(), m.current, m.margin)
	if !core.ShouldRefreshToken(state) {
		return m.current, nil
	}
	return m.refreshLocked(ctx, false, refreshReason(state))
}

func (m *Manager) Current(ctx context.Context) (core.AuthToken, error) {
	return m.EnsureValid(ctx)
}

// ForceRefresh discards the cached token, used after a 401 from an API.
func (m *Manager) ForceRefresh(ctx context.Context) (core.AuthToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx, true, "rejected")
}

// Refreshes counts token exchanges performed so far.
func (m *Manager) Refreshes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes
}

func (m *Manager) refreshLocked(ctx context.Context, force bool, reason string) (core.AuthToken, error) {
	token, err := m.source.Token(ctx, force)
	if err != nil {
		err = m.classify(err)
		m.logger.Warn("token refresh failed",
			"resource", m.name,
			"reason", reason,
			"error_kind", core.ErrorKind(err),
		)
		return core.AuthToken{}, err
	}
	if token.Empty() {
		return core.AuthToken{}, core.NewError(core.ErrorInternal, "auth: token source returned an empty token")
	}
	if token.IssuedAt.IsZero() {
		token.IssuedAt = m.clock.Now()
	}
	state := core.ResolveTokenState(m.clock.Now(), token, 0)
	if state.IsExpired {
		return core.AuthToken{}, core.AuthExpiredError(nil, "auth: token source returned an expired token")
	}

	m.current = token
	m.authenticated = true
	m.refreshes++

	fields := []any{
		"resource", m.name,
		"reason", reason,
		"source", token.Source,
		"fingerprint", Fingerprint(token.Value),
	}
	if token.ExpiresAt != nil {
		fields = append(fields, "expires_at", token.ExpiresAt.UTC().Format(time.RFC3339))
	}
	m.logger.Info("token refreshed", fields...)
	return token, nil
}

// classify turns endpoint rejections into AuthRejected on first use and
// AuthExpired once a credential has worked before.
func (m *Manager) classify(err error) error {
	var rejection *rejectionError
	if !errors.As(err, &rejection) {
		return err
	}
	metadata := map[string]any{"status_code": rejection.StatusCode, "endpoint": rejection.Endpoint}
	if m.authenticated {
		return core.WrapError(err, core.ErrorAuthExpired, "auth: credential no longer accepted").WithMetadata(metadata)
	}
	return core.WrapError(err, core.ErrorAuthRejected, "auth: credential rejected").WithMetadata(metadata)
}

func refreshReason(state core.TokenState) string {
	switch {
	case !state.HasValue:
		return "missing"
	case state.IsExpired:
		return "expired"
	default:
		return "expiring"
	}
}

var _ core.TokenProvider = (*Manager)(nil)
