package devkit

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-qrmi/core"
)

func TestFakeTransportAdapter_ScriptsAndCapturesRequests(t *testing.T) {
	adapter := NewFakeTransportAdapter("rest",
		Status(429),
		JSON(200, map[string]any{"status": "ok"}),
	)

	first, err := adapter.Do(context.Background(), core.TransportRequest{
		Method:  "GET",
		URL:     "https://api.example.test/jobs/1",
		Headers: map[string]string{"Authorization": "Bearer abc"},
	})
	if err != nil {
		t.Fatalf("first fake call: %v", err)
	}
	if first.StatusCode != 429 {
		t.Fatalf("expected first scripted status 429, got %d", first.StatusCode)
	}

	second, err := adapter.Do(context.Background(), core.TransportRequest{Method: "GET", URL: "https://api.example.test/jobs/1"})
	if err != nil {
		t.Fatalf("second fake call: %v", err)
	}
	if second.StatusCode != 200 || string(second.Body) != `{"status":"ok"}` {
		t.Fatalf("unexpected second response: %d %s", second.StatusCode, second.Body)
	}

	third, _ := adapter.Do(context.Background(), core.TransportRequest{Method: "GET"})
	if third.StatusCode != 200 {
		t.Fatalf("expected last script to repeat, got %d", third.StatusCode)
	}

	requests := adapter.Requests()
	if len(requests) != 3 {
		t.Fatalf("expected 3 captured requests, got %d", len(requests))
	}
	if requests[0].Headers["Authorization"] != "Bearer abc" {
		t.Fatalf("expected captured headers")
	}
	if got := RequestPath(requests[0], "https://api.example.test/"); got != "/jobs/1" {
		t.Fatalf("unexpected request path %q", got)
	}
}

func TestFakeTransportAdapter_ScriptedFailure(t *testing.T) {
	boom := errors.New("connection reset")
	adapter := NewFakeTransportAdapter("rest", Failure(boom))
	if _, err := adapter.Do(context.Background(), core.TransportRequest{}); !errors.Is(err, boom) {
		t.Fatalf("expected scripted error, got %v", err)
	}
	if err := ValidateTransportAdapterConformance(context.Background(), adapter, core.TransportRequest{}); !errors.Is(err, boom) {
		t.Fatalf("expected conformance to surface adapter error, got %v", err)
	}
}

func TestValidateStatusMapConformance(t *testing.T) {
	expected := map[string]core.TaskStatus{
		"QUEUED": core.TaskStatusQueued,
		"DONE":   core.TaskStatusCompleted,
	}
	statusMap := core.NewStatusMap("fixture", expected)
	if err := ValidateStatusMapConformance(statusMap, expected); err != nil {
		t.Fatalf("expected conformance, got %v", err)
	}

	wrong := map[string]core.TaskStatus{
		"QUEUED": core.TaskStatusRunning,
		"DONE":   core.TaskStatusCompleted,
	}
	if err := ValidateStatusMapConformance(statusMap, wrong); err == nil {
		t.Fatalf("expected mismatch to be reported")
	}
}

func TestLedgerConformance_MemoryLedgers(t *testing.T) {
	ctx := context.Background()
	if err := ValidateLockLedgerConformance(ctx, core.NewMemoryLockLedger()); err != nil {
		t.Fatalf("memory lock ledger: %v", err)
	}
	if err := ValidateTaskLedgerConformance(ctx, core.NewMemoryTaskLedger()); err != nil {
		t.Fatalf("memory task ledger: %v", err)
	}
}

func TestFakeTransportAdapter_RoutesBySuffix(t *testing.T) {
	adapter := NewFakeTransportAdapter("rest", Status(404)).
		Route("GET", "/jobs/J1", JSON(200, `{"status":"QUEUED"}`), JSON(200, `{"status":"DONE"}`)).
		Route("", "/jobs/J1/results", JSON(200, `{"counts":{"00":8}}`))

	ctx := context.Background()
	poll := func() string {
		res, err := adapter.Do(ctx, core.TransportRequest{Method: "GET", URL: "https://api.example.test/jobs/J1?fields=status"})
		if err != nil {
			t.Fatalf("poll: %v", err)
		}
		return string(res.Body)
	}
	if got := poll(); got != `{"status":"QUEUED"}` {
		t.Fatalf("unexpected first poll %s", got)
	}
	results, _ := adapter.Do(ctx, core.TransportRequest{Method: "GET", URL: "https://api.example.test/jobs/J1/results"})
	if string(results.Body) != `{"counts":{"00":8}}` {
		t.Fatalf("unexpected results %s", results.Body)
	}
	if got := poll(); got != `{"status":"DONE"}` {
		t.Fatalf("unexpected second poll %s", got)
	}
	if got := poll(); got != `{"status":"DONE"}` {
		t.Fatalf("expected last route script to repeat, got %s", got)
	}

	other, _ := adapter.Do(ctx, core.TransportRequest{Method: "POST", URL: "https://api.example.test/jobs/J1"})
	if other.StatusCode != 404 {
		t.Fatalf("expected unmatched method to use the default queue, got %d", other.StatusCode)
	}
	if polls := adapter.RequestsTo("/jobs/J1"); len(polls) != 4 {
		t.Fatalf("expected 4 requests to /jobs/J1, got %d", len(polls))
	}
	if all := adapter.Requests(); len(all) != 5 {
		t.Fatalf("expected 5 captured requests, got %d", len(all))
	}
}
