package qiskitruntime

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
		ResourceName: "ibm_torino",
		Endpoint:     "https://qrs.test/api/v1",
		ServiceCRN:   "crn:v1:qrs",
		SessionMode:  "Batch",
		Transport:    fake,
	})
	if err != nil {
		t.Fatalf("new qiskit runtime client: %v", err)
	}
	return client, fake
}

func TestStatusMapCoversVocabulary(t *testing.T) {
	err := devkit.ValidateStatusMapConformance(StatusMap(), map[string]core.TaskStatus{
		"QUEUED":     core.TaskStatusQueued,
		"RUNNING":    core.TaskStatusRunning,
		"CANCELLING": core.TaskStatusRunning,
		"COMPLETED":  core.TaskStatusCompleted,
		"DONE":       core.TaskStatusCompleted,
		"FAILED":     core.TaskStatusFailed,
		"ERROR":      core.TaskStatusFailed,
		"CANCELLED":  core.TaskStatusCancelled,
		"CANCELED":   core.TaskStatusCancelled,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestNewRejectsUnknownSessionMode(t *testing.T) {
	_, err := New(Config{ResourceName: "ibm_torino", SessionMode: "shared", Transport: devkit.NewFakeTransportAdapter("rest")})
	if !core.IsKind(err, core.ErrorBadInput) {
		t.Fatalf("expected bad input, got %v", err)
	}
}

func TestAccessibleRequiresActiveState(t *testing.T) {
	client, fake := newTestClient(t,
		devkit.JSON(200, `{"state":true,"status":"active"}`),
		devkit.JSON(200, `{"state":false,"status":"maintenance"}`),
	)
	if ok, err := client.Accessible(context.Background()); err != nil || !ok {
		t.Fatalf("expected accessible, got %v %v", ok, err)
	}
	if ok, err := client.Accessible(context.Background()); err != nil || ok {
		t.Fatalf("expected inaccessible, got %v %v", ok, err)
	}
	req := fake.Requests()[0]
	if req.Headers["IBM-API-Version"] != DefaultAPIVersion || req.Headers["Service-CRN"] != "crn:v1:qrs" {
		t.Fatalf("expected api version and crn headers, got %v", req.Headers)
	}
}

func TestSessionLifecycle(t *testing.T) {
	client, fake := newTestClient(t,
		devkit.JSON(200, `{"id":"session-9"}`),
		devkit.JSON(200, `{"id":"job-9"}`),
		devkit.Status(204),
	)
	lock, err := client.Reserve(context.Background())
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if lock.Token != "session-9" || lock.Metadata[providers.MetadataLockKind] != providers.LockKindSession {
		t.Fatalf("unexpected lock %+v", lock)
	}
	var session map[string]any
	if err := json.Unmarshal(fake.Requests()[0].Body, &session); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if session["mode"] != "batch" || session["max_ttl"].(float64) != DefaultMaxTTL {
		t.Fatalf("unexpected session body %v", session)
	}

	ctx := core.ContextWithLock(context.Background(), lock)
	jobID, err := client.Submit(ctx, core.QiskitPrimitive{Input: `{"pubs":[["qc"]]}`, ProgramID: "sampler"})
	if err != nil || jobID != "job-9" {
		t.Fatalf("submit: %q %v", jobID, err)
	}
	var job map[string]any
	if err := json.Unmarshal(fake.Requests()[1].Body, &job); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job["session_id"] != "session-9" || job["program_id"] != "sampler" || job["backend"] != "ibm_torino" {
		t.Fatalf("unexpected job body %v", job)
	}

	if err := client.Unreserve(context.Background(), lock); err != nil {
		t.Fatalf("unreserve: %v", err)
	}
	if req := fake.Requests()[2]; req.Method != "PATCH" || req.URL != "https://qrs.test/api/v1/sessions/session-9/close" {
		t.Fatalf("unexpected close request %s %s", req.Method, req.URL)
	}
}

func TestPollPrefersStateStatus(t *testing.T) {
	client, _ := newTestClient(t,
		devkit.JSON(200, `{"id":"j","status":"Running","state":{"status":"Failed","reason":"Job timed out"}}`),
		devkit.JSON(200, `{"id":"j","status":"Queued"}`),
	)
	status, err := client.Poll(context.Background(), "j")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if client.StatusMap().Map(status.Native) != core.TaskStatusFailed || status.Reason != "Job timed out" {
		t.Fatalf("unexpected status %+v", status)
	}
	status, err = client.Poll(context.Background(), "j")
	if err != nil || client.StatusMap().Map(status.Native) != core.TaskStatusQueued {
		t.Fatalf("expected fallback to top-level status, got %+v %v", status, err)
	}
}

func TestExpiredCredentialsSurfaceAsAuthRejected(t *testing.T) {
	client, _ := newTestClient(t, devkit.JSON(401, `{"errors":[{"message":"unauthorized"}]}`))
	if _, err := client.Target(context.Background()); !core.IsKind(err, core.ErrorAuthRejected) {
		t.Fatalf("expected auth rejected, got %v", err)
	}
}
