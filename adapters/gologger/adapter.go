// Package gologger resolves glog loggers for resources and maps the
// QRMI_LOG / RUST_LOG verbosity directives onto glog level names.
package gologger

import (
	"os"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-qrmi/core"
)

// DefaultLevel applies when neither QRMI_LOG nor RUST_LOG names a level.
const DefaultLevel = "warn"

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// ResolveForResource names the logger qrmi.<resource_type>.
func ResolveForResource(resourceType core.ResourceType, provider glog.LoggerProvider, logger glog.Logger) glog.Logger {
	_, resolved := Resolve("qrmi."+string(resourceType), provider, logger)
	return glog.Ensure(resolved)
}

// ParseLevel reads a QRMI_LOG or RUST_LOG style value and returns the glog
// level name. Directives are comma separated; a bare level or a
// qrmi=<level> directive wins, and unrelated module directives are ignored.
func ParseLevel(value string) (string, bool) {
	level := ""
	for _, directive := range strings.Split(value, ",") {
		directive = strings.TrimSpace(directive)
		if directive == "" {
			continue
		}
		target, raw, hasTarget := strings.Cut(directive, "=")
		if !hasTarget {
			raw = target
		} else if !strings.HasPrefix(strings.TrimSpace(target), "qrmi") {
			continue
		}
		if parsed, ok := levelName(raw); ok {
			level = parsed
		}
	}
	return level, level != ""
}

// off maps to fatal, which nothing in the library logs at.
func levelName(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return "trace", true
	case "debug":
		return "debug", true
	case "info":
		return "info", true
	case "warn", "warning":
		return "warn", true
	case "error":
		return "error", true
	case "off":
		return "fatal", true
	default:
		return "", false
	}
}

// LevelFromEnv prefers QRMI_LOG over RUST_LOG and falls back to DefaultLevel.
func LevelFromEnv(lookup func(string) (string, bool)) string {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, key := range []string{"QRMI_LOG", "RUST_LOG"} {
		if value, ok := lookup(key); ok {
			if level, parsed := ParseLevel(value); parsed {
				return level
			}
		}
	}
	return DefaultLevel
}
