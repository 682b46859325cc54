package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	opts "github.com/goliatone/go-options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/goliatone/go-qrmi"

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type resourceBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	lockLedger      LockLedger
	taskLedger      TaskLedger
	targetCache     TargetCache
	clock           Clock
	tracer          trace.Tracer
	lookupEnv       func(string) (string, bool)
}

type Option func(*resourceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *resourceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *resourceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *resourceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *resourceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *resourceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *resourceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithLockLedger(ledger LockLedger) Option {
	return func(b *resourceBuilder) {
		b.lockLedger = ledger
	}
}

func WithTaskLedger(ledger TaskLedger) Option {
	return func(b *resourceBuilder) {
		b.taskLedger = ledger
	}
}

func WithTargetCache(cache TargetCache) Option {
	return func(b *resourceBuilder) {
		b.targetCache = cache
	}
}

func WithClock(clock Clock) Option {
	return func(b *resourceBuilder) {
		b.clock = clock
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(b *resourceBuilder) {
		b.tracer = tracer
	}
}

// WithEnvironment replaces os.LookupEnv for the acquisition token hand-off.
func WithEnvironment(lookup func(string) (string, bool)) Option {
	return func(b *resourceBuilder) {
		b.lookupEnv = lookup
	}
}

func defaultResourceBuilder(runtime Config) resourceBuilder {
	return resourceBuilder{
		runtimeConfig:   runtime,
		metricsRecorder: NopMetricsRecorder{},
		errorMapper:     MapError,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		lockLedger:      NewMemoryLockLedger(),
		clock:           SystemClock{},
		tracer:          otel.Tracer(tracerName),
	}
}

// ResolveConfig layers defaults, loaded and runtime configuration the same way
// NewResource does. Callers that build vendor clients use it to share one view.
func ResolveConfig(ctx context.Context, runtime Config, provider ConfigProvider, resolver OptionsResolver) (Config, error) {
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	defaults := DefaultConfig()
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return resolver.Resolve(defaults, loaded, runtime)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// StaticConfigLoader serves a fixed raw map, mostly for tests and bindings.
func StaticConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	if includeZero || cfg.Auth.RefreshMargin > 0 {
		layer["auth"] = map[string]any{
			"refresh_margin": cfg.Auth.RefreshMargin,
		}
	}

	transport := map[string]any{}
	if includeZero || cfg.Transport.Timeout > 0 {
		transport["timeout"] = cfg.Transport.Timeout
	}
	if includeZero || cfg.Transport.MaxResponseBytes > 0 {
		transport["max_response_bytes"] = cfg.Transport.MaxResponseBytes
	}
	rateLimit := map[string]any{}
	if includeZero || cfg.Transport.RateLimit.QPS > 0 {
		rateLimit["qps"] = cfg.Transport.RateLimit.QPS
	}
	if includeZero || cfg.Transport.RateLimit.Burst > 0 {
		rateLimit["burst"] = cfg.Transport.RateLimit.Burst
	}
	if len(rateLimit) > 0 {
		transport["rate_limit"] = rateLimit
	}
	if len(transport) > 0 {
		layer["transport"] = transport
	}

	if includeZero || cfg.Polling.Interval > 0 {
		layer["polling"] = map[string]any{
			"interval": cfg.Polling.Interval,
		}
	}

	credentials := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Credentials.ConfigDir) != "" {
		credentials["config_dir"] = cfg.Credentials.ConfigDir
	}
	if includeZero || strings.TrimSpace(cfg.Credentials.ResourceConfigPath) != "" {
		credentials["resource_config_path"] = cfg.Credentials.ResourceConfigPath
	}
	if len(credentials) > 0 {
		layer["credentials"] = credentials
	}
	return layer
}
