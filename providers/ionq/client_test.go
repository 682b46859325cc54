package ionq

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/goliatone/go-qrmi/core"
	"github.com/goliatone/go-qrmi/providers"
	"github.com/goliatone/go-qrmi/providers/devkit"
)

func newTestClient(t *testing.T, scripts ...devkit.TransportScript) (*Client, *devkit.FakeTransportAdapter) {
	t.Helper()
	fake := devkit.NewFakeTransportAdapter("rest", scripts...)
	client, err := New(Config{
		ResourceName:  "qpu.aria-1",
		BaseURL:       "https://api.ionq.test/v0.4",
		SessionLimits: &SessionLimits{JobCountLimit: 5},
		Transport:     fake,
	})
	if err != nil {
		t.Fatalf("new ionq client: %v", err)
	}
	return client, fake
}

func decodeBody(t *testing.T, req core.TransportRequest) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestStatusMapCoversVocabulary(t *testing.T) {
	err := devkit.ValidateStatusMapConformance(StatusMap(), map[string]core.TaskStatus{
		"submitted": core.TaskStatusQueued,
		"ready":     core.TaskStatusQueued,
		"running":   core.TaskStatusRunning,
		"completed": core.TaskStatusCompleted,
		"failed":    core.TaskStatusFailed,
		"canceled":  core.TaskStatusCancelled,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestParseBackend(t *testing.T) {
	if backend, err := ParseBackend("QPU.Forte-1"); err != nil || backend != "qpu.forte-1" {
		t.Fatalf("expected qpu.forte-1, got %q %v", backend, err)
	}
	if _, err := ParseBackend("qpu.unknown"); !core.IsKind(err, core.ErrorBadInput) {
		t.Fatalf("expected bad input, got %v", err)
	}
}

func TestAccessible(t *testing.T) {
	client, fake := newTestClient(t,
		devkit.JSON(200, `{"backend":"qpu.aria-1","status":"available","qubits":25}`),
		devkit.JSON(200, `{"backend":"qpu.aria-1","status":"unavailable"}`),
	)
	if ok, err := client.Accessible(context.Background()); err != nil || !ok {
		t.Fatalf("expected accessible, got %v %v", ok, err)
	}
	if ok, err := client.Accessible(context.Background()); err != nil || ok {
		t.Fatalf("expected inaccessible, got %v %v", ok, err)
	}
	if got := fake.Requests()[0].URL; got != "https://api.ionq.test/v0.4/backends/qpu.aria-1" {
		t.Fatalf("unexpected url %s", got)
	}
}

func TestSessionLockFlowsIntoSubmit(t *testing.T) {
	client, fake := newTestClient(t,
		devkit.JSON(200, `{"id":"session-1","status":"created","active":true}`),
		devkit.JSON(200, `{"id":"job-1","status":"submitted"}`),
		devkit.Status(200),
	)
	lock, err := client.Reserve(context.Background())
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if lock.Token != "session-1" || lock.Metadata[providers.MetadataLockKind] != providers.LockKindSession {
		t.Fatalf("unexpected lock %+v", lock)
	}
	reserveBody := decodeBody(t, fake.Requests()[0])
	if reserveBody["backend"] != "qpu.aria-1" {
		t.Fatalf("unexpected reserve body %v", reserveBody)
	}

	ctx := core.ContextWithLock(context.Background(), lock)
	jobID, err := client.Submit(ctx, core.IonQCircuit{Input: `{"qubits":1,"circuit":[{"gate":"h","target":0}]}`, Shots: 100})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if jobID != "job-1" {
		t.Fatalf("expected job-1, got %q", jobID)
	}
	body := decodeBody(t, fake.Requests()[1])
	if body["session_id"] != "session-1" || body["type"] != "ionq.circuit.v1" || body["shots"].(float64) != 100 {
		t.Fatalf("unexpected submit body %v", body)
	}
	if _, ok := body["input"].(map[string]any); !ok {
		t.Fatalf("expected json input to be embedded, got %T", body["input"])
	}

	if err := client.Unreserve(context.Background(), lock); err != nil {
		t.Fatalf("unreserve: %v", err)
	}
	if got := fake.Requests()[2].URL; got != "https://api.ionq.test/v0.4/sessions/session-1/end" {
		t.Fatalf("unexpected unreserve url %s", got)
	}
}

func TestSubmitWithoutSessionOmitsSessionID(t *testing.T) {
	client, fake := newTestClient(t, devkit.JSON(200, `{"id":"job-2","status":"submitted"}`))
	if _, err := client.Submit(context.Background(), core.IonQCircuit{Input: "not-json", Target: "simulator", Shots: 10}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	body := decodeBody(t, fake.Requests()[0])
	if _, ok := body["session_id"]; ok {
		t.Fatalf("expected no session id, got %v", body)
	}
	if body["backend"] != "simulator" || body["input"] != "not-json" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestReserveRejectedBackendIsUnavailable(t *testing.T) {
	client, _ := newTestClient(t, devkit.JSON(409, `{"error":"session limit reached"}`))
	_, err := client.Reserve(context.Background())
	if !core.IsKind(err, core.ErrorResourceUnavailable) {
		t.Fatalf("expected resource unavailable, got %v", err)
	}
}

func TestPollFailureReason(t *testing.T) {
	client, _ := newTestClient(t, devkit.JSON(200, `{"id":"j","status":"failed","failure":{"code":"CompilationError","error":"bad gate"}}`))
	status, err := client.Poll(context.Background(), "j")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if client.StatusMap().Map(status.Native) != core.TaskStatusFailed || status.Reason != "bad gate" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestCancelAndResults(t *testing.T) {
	client, fake := newTestClient(t,
		devkit.Status(200),
		devkit.JSON(200, `{"0":0.5,"1":0.5}`),
	)
	if err := client.Cancel(context.Background(), "j"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if req := fake.Requests()[0]; req.Method != "PUT" || req.URL != "https://api.ionq.test/v0.4/jobs/j/status/cancel" {
		t.Fatalf("unexpected cancel request %s %s", req.Method, req.URL)
	}
	result, err := client.FetchResult(context.Background(), "j")
	if err != nil {
		t.Fatalf("fetch result: %v", err)
	}
	if result.Value != `{"0":0.5,"1":0.5}` {
		t.Fatalf("unexpected result %q", result.Value)
	}
}

func TestFetchResultBeforeCompletionIsTransportError(t *testing.T) {
	client, _ := newTestClient(t, devkit.JSON(404, `{"error":"not found"}`))
	if _, err := client.FetchResult(context.Background(), "missing"); !core.IsKind(err, core.ErrorResourceNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
