package gologger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-qrmi/core"
)

func TestResolveDeterministicFallback(t *testing.T) {
	loggerOnly := &capturingLogger{id: "logger"}
	providerLogger := &capturingLogger{id: "provider"}
	provider := &capturingProvider{logger: providerLogger}

	var resolvedProvider glog.LoggerProvider
	_, resolved := Resolve("qrmi", provider, loggerOnly)
	got := resolved.(*capturingLogger)
	if got.id != "provider" {
		t.Fatalf("expected provider logger precedence, got %q", got.id)
	}

	resolvedProvider, resolved = Resolve("qrmi", nil, loggerOnly)
	got = resolved.(*capturingLogger)
	if got.id != "logger" {
		t.Fatalf("expected direct logger when provider is nil, got %q", got.id)
	}
	if resolvedProvider == nil {
		t.Fatalf("expected provider wrapper from logger")
	}

	_, resolved = Resolve("qrmi", nil, nil)
	if resolved == nil {
		t.Fatalf("expected nop logger fallback")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]struct {
		level string
		ok    bool
	}{
		"debug":                    {"debug", true},
		"TRACE":                    {"trace", true},
		"hyper=warn,qrmi=info":     {"info", true},
		"qrmi::pasqal=debug":       {"debug", true},
		"off":                      {"fatal", true},
		"reqwest=trace":            {"", false},
		"":                         {"", false},
		"loud":                     {"", false},
		"warning, qrmi_ionq=error": {"error", true},
	}
	for input, want := range cases {
		level, ok := ParseLevel(input)
		if ok != want.ok || level != want.level {
			t.Fatalf("ParseLevel(%q) = %q %v, want %q %v", input, level, ok, want.level, want.ok)
		}
	}
}

func TestLevelFromEnv_PrefersQRMILog(t *testing.T) {
	env := map[string]string{"QRMI_LOG": "debug", "RUST_LOG": "error"}
	lookup := func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}
	if got := LevelFromEnv(lookup); got != "debug" {
		t.Fatalf("expected debug, got %q", got)
	}
	delete(env, "QRMI_LOG")
	if got := LevelFromEnv(lookup); got != "error" {
		t.Fatalf("expected RUST_LOG fallback, got %q", got)
	}
	delete(env, "RUST_LOG")
	if got := LevelFromEnv(lookup); got != DefaultLevel {
		t.Fatalf("expected warn default, got %q", got)
	}
}

func TestResolveForResource_NamesVendorLogger(t *testing.T) {
	var buf bytes.Buffer
	root := glog.NewLogger(
		glog.WithWriter(&buf),
		glog.WithLevel(LevelFromEnv(func(key string) (string, bool) {
			if key == "QRMI_LOG" {
				return "qrmi=info", true
			}
			return "", false
		})),
		glog.WithLoggerTypeConsole(),
	)

	logger := ResolveForResource(core.ResourceTypeMock, root, nil)
	logger.Debug("hidden")
	logger.Info("token refreshed", "fingerprint", "abc")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected debug line to be filtered, got %q", out)
	}
	for _, want := range []string{"level=info", `msg="token refreshed"`, "logger=qrmi.mock", "fingerprint=abc"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestResolveForResource_FallsBackToLogger(t *testing.T) {
	direct := &capturingLogger{id: "direct"}
	resolved := ResolveForResource(core.ResourceTypeIonQCloud, nil, direct)
	resolved.Info("ready")
	if direct.lastInfo.msg != "ready" {
		t.Fatalf("expected direct logger to receive the line, got %+v", direct.lastInfo)
	}
}

var (
	_ glog.Logger         = (*capturingLogger)(nil)
	_ glog.LoggerProvider = (*capturingProvider)(nil)
)

type capturingProvider struct {
	logger *capturingLogger
}

func (p *capturingProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type infoCall struct {
	msg  string
	args []any
}

type capturingLogger struct {
	id       string
	lastInfo infoCall
}

func (l *capturingLogger) Trace(string, ...any) {}
func (l *capturingLogger) Debug(string, ...any) {}
func (l *capturingLogger) Warn(string, ...any)  {}
func (l *capturingLogger) Error(string, ...any) {}
func (l *capturingLogger) Fatal(string, ...any) {}

func (l *capturingLogger) Info(msg string, args ...any) {
	l.lastInfo = infoCall{
		msg:  msg,
		args: append([]any(nil), args...),
	}
}

func (l *capturingLogger) WithContext(context.Context) glog.Logger {
	return l
}
