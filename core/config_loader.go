package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigEnvPrefix scopes environment overrides of file configuration,
// e.g. QRMI_TRANSPORT_TIMEOUT.
const ConfigEnvPrefix = "QRMI"

var durationConfigKeys = [][]string{
	{"auth", "refresh_margin"},
	{"transport", "timeout"},
	{"polling", "interval"},
}

// FileConfigLoader reads a YAML, JSON or TOML file with viper and hands the
// raw settings to CfgxConfigProvider.
type FileConfigLoader struct {
	Path      string
	EnvPrefix string
}

func NewFileConfigLoader(path string) *FileConfigLoader {
	return &FileConfigLoader{Path: path, EnvPrefix: ConfigEnvPrefix}
}

func (l *FileConfigLoader) LoadRaw(ctx context.Context) (map[string]any, error) {
	if l == nil || strings.TrimSpace(l.Path) == "" {
		return map[string]any{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(l.Path)
	if prefix := strings.TrimSpace(l.EnvPrefix); prefix != "" {
		v.SetEnvPrefix(prefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("core: read config %s: %w", l.Path, err)
	}
	raw := v.AllSettings()
	if err := normalizeDurations(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// normalizeDurations turns "30s"-style values into time.Duration so the
// typed build does not depend on decoder hooks.
func normalizeDurations(raw map[string]any) error {
	for _, path := range durationConfigKeys {
		section, ok := raw[path[0]].(map[string]any)
		if !ok {
			continue
		}
		value, ok := section[path[1]]
		if !ok {
			continue
		}
		switch typed := value.(type) {
		case string:
			parsed, err := time.ParseDuration(strings.TrimSpace(typed))
			if err != nil {
				return fmt.Errorf("core: %s.%s is invalid: %w", path[0], path[1], err)
			}
			section[path[1]] = parsed
		case int:
			section[path[1]] = time.Duration(typed) * time.Second
		case int64:
			section[path[1]] = time.Duration(typed) * time.Second
		case float64:
			section[path[1]] = time.Duration(typed * float64(time.Second))
		}
	}
	return nil
}
