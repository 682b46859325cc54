package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultResourceConfigPath = "/etc/slurm/qrmi_config.json"
	DefaultTransportTimeout   = 30 * time.Second
	DefaultPollInterval       = 2 * time.Second
	DefaultMaxResponseBytes   = int64(10 << 20)
)

type AuthConfig struct {
	RefreshMargin time.Duration `koanf:"refresh_margin" mapstructure:"refresh_margin"`
}

type RateLimitConfig struct {
	QPS   float64 `koanf:"qps" mapstructure:"qps"`
	Burst int     `koanf:"burst" mapstructure:"burst"`
}

type TransportConfig struct {
	Timeout          time.Duration   `koanf:"timeout" mapstructure:"timeout"`
	MaxResponseBytes int64           `koanf:"max_response_bytes" mapstructure:"max_response_bytes"`
	RateLimit        RateLimitConfig `koanf:"rate_limit" mapstructure:"rate_limit"`
}

type PollingConfig struct {
	Interval time.Duration `koanf:"interval" mapstructure:"interval"`
}

type CredentialsConfig struct {
	// ConfigDir overrides the home directory holding ~/.<vendor>/config files.
	ConfigDir          string `koanf:"config_dir" mapstructure:"config_dir"`
	ResourceConfigPath string `koanf:"resource_config_path" mapstructure:"resource_config_path"`
}

type Config struct {
	ServiceName string            `koanf:"service_name" mapstructure:"service_name"`
	Auth        AuthConfig        `koanf:"auth" mapstructure:"auth"`
	Transport   TransportConfig   `koanf:"transport" mapstructure:"transport"`
	Polling     PollingConfig     `koanf:"polling" mapstructure:"polling"`
	Credentials CredentialsConfig `koanf:"credentials" mapstructure:"credentials"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "qrmi",
		Auth: AuthConfig{
			RefreshMargin: DefaultTokenRefreshMargin,
		},
		Transport: TransportConfig{
			Timeout:          DefaultTransportTimeout,
			MaxResponseBytes: DefaultMaxResponseBytes,
			RateLimit: RateLimitConfig{
				QPS:   5,
				Burst: 10,
			},
		},
		Polling: PollingConfig{
			Interval: DefaultPollInterval,
		},
		Credentials: CredentialsConfig{
			ResourceConfigPath: DefaultResourceConfigPath,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Auth.RefreshMargin < 0 {
		return fmt.Errorf("core: auth.refresh_margin must not be negative")
	}
	if c.Transport.Timeout < 0 {
		return fmt.Errorf("core: transport.timeout must not be negative")
	}
	if c.Transport.MaxResponseBytes < 0 {
		return fmt.Errorf("core: transport.max_response_bytes must not be negative")
	}
	if c.Transport.RateLimit.QPS < 0 || c.Transport.RateLimit.Burst < 0 {
		return fmt.Errorf("core: transport.rate_limit values must not be negative")
	}
	if c.Polling.Interval < 0 {
		return fmt.Errorf("core: polling.interval must not be negative")
	}
	return nil
}
