package core

import "testing"

func TestRedactSensitiveMapPreservesTraceabilityMetadata(t *testing.T) {
	redacted := RedactSensitiveMap(map[string]any{
		"trace_id":          "trace_1",
		"job_id":            "J1",
		"token_fingerprint": "b3:1a2b",
		"access_token":      "secret-token",
		"authorization":     "Bearer secret-token",
		"nested":            map[string]any{"password": "hunter2", "resource": "qpu-1"},
		"events":            []any{map[string]any{"api_key": "key_1"}, map[string]any{"backend": "simulator"}},
		"headers":           map[string]string{"Authorization": "apiKey k", "Accept": "application/json"},
	})

	if redacted["trace_id"] != "trace_1" || redacted["job_id"] != "J1" {
		t.Fatalf("expected traceability keys to remain visible, got %#v", redacted)
	}
	if redacted["token_fingerprint"] != "b3:1a2b" {
		t.Fatalf("expected token_fingerprint to remain visible, got %#v", redacted["token_fingerprint"])
	}
	if redacted["access_token"] != RedactedValue || redacted["authorization"] != RedactedValue {
		t.Fatalf("expected secrets to be redacted, got %#v", redacted)
	}
	nested, ok := redacted["nested"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested redacted map")
	}
	if nested["password"] != RedactedValue || nested["resource"] != "qpu-1" {
		t.Fatalf("unexpected nested redaction %#v", nested)
	}
	events, ok := redacted["events"].([]any)
	if !ok || len(events) != 2 {
		t.Fatalf("expected events slice, got %#v", redacted["events"])
	}
	if first := events[0].(map[string]any); first["api_key"] != RedactedValue {
		t.Fatalf("expected api_key in slice to be redacted, got %#v", first)
	}
	headers, ok := redacted["headers"].(map[string]string)
	if !ok {
		t.Fatalf("expected headers map, got %#v", redacted["headers"])
	}
	if headers["Authorization"] != RedactedValue || headers["Accept"] != "application/json" {
		t.Fatalf("unexpected header redaction %#v", headers)
	}
}

func TestShouldRedactKey(t *testing.T) {
	for _, key := range []string{"Authorization", "X-Api-Key", "apikey", "PASSWORD", "refresh_token", "client_secret"} {
		if !ShouldRedactKey(key) {
			t.Fatalf("expected %q to be redacted", key)
		}
	}
	for _, key := range []string{"", "Service-CRN", "job_id", "backend", "token_source"} {
		if ShouldRedactKey(key) {
			t.Fatalf("expected %q to stay visible", key)
		}
	}
}
