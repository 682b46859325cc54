package command

import (
	"context"
	"fmt"
	"testing"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-qrmi/core"
)

func TestAcquireCommand_StoresLock(t *testing.T) {
	expected := core.AcquisitionLock{Token: "tok-1", ResourceName: "sim", ResourceType: core.ResourceTypeMock}
	resource := stubMutatingResource{
		acquireFn: func(context.Context) (core.AcquisitionLock, error) { return expected, nil },
	}

	collector := gocmd.NewResult[core.AcquisitionLock]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := NewAcquireCommand(resource).Execute(ctx, AcquireMessage{}); err != nil {
		t.Fatalf("execute acquire: %v", err)
	}
	lock, ok := collector.Load()
	if !ok {
		t.Fatalf("expected lock to be stored")
	}
	if lock.Token != expected.Token {
		t.Fatalf("unexpected lock: %#v", lock)
	}
}

func TestTaskStartCommand_ValidatesAndStoresJobID(t *testing.T) {
	called := false
	resource := stubMutatingResource{
		taskStartFn: func(_ context.Context, payload core.Payload) (string, error) {
			called = true
			if payload.Kind() != core.PayloadKindCircuit {
				t.Fatalf("unexpected payload kind %s", payload.Kind())
			}
			return "J1", nil
		},
	}
	cmd := NewTaskStartCommand(resource)

	if err := cmd.Execute(context.Background(), TaskStartMessage{}); !core.IsKind(err, core.ErrorBadInput) {
		t.Fatalf("expected bad input for missing payload, got %v", err)
	}
	if err := cmd.Execute(context.Background(), TaskStartMessage{Payload: core.Circuit{}}); !core.IsKind(err, core.ErrorBadInput) {
		t.Fatalf("expected bad input for empty circuit, got %v", err)
	}
	if called {
		t.Fatalf("resource must not be called for invalid messages")
	}

	collector := gocmd.NewResult[string]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := cmd.Execute(ctx, TaskStartMessage{Payload: core.Circuit{Circuit: "h 0"}}); err != nil {
		t.Fatalf("execute task start: %v", err)
	}
	if jobID, ok := collector.Load(); !ok || jobID != "J1" {
		t.Fatalf("expected stored job id J1, got %q %v", jobID, ok)
	}
}

func TestReleaseAndStopCommands_Delegate(t *testing.T) {
	var released, stopped string
	resource := stubMutatingResource{
		releaseFn: func(_ context.Context, lock core.AcquisitionLock) error {
			released = lock.Token
			return nil
		},
		taskStopFn: func(_ context.Context, jobID string) error {
			stopped = jobID
			return nil
		},
	}
	if err := NewReleaseCommand(resource).Execute(context.Background(), ReleaseMessage{Lock: core.AcquisitionLock{Token: "tok"}}); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := NewTaskStopCommand(resource).Execute(context.Background(), TaskStopMessage{JobID: "J7"}); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if released != "tok" || stopped != "J7" {
		t.Fatalf("unexpected delegation: %q %q", released, stopped)
	}
	if err := NewTaskStopCommand(resource).Execute(context.Background(), TaskStopMessage{JobID: "  "}); !core.IsKind(err, core.ErrorBadInput) {
		t.Fatalf("expected bad input, got %v", err)
	}
}

func TestCommands_PropagateResourceErrors(t *testing.T) {
	unavailable := core.ResourceUnavailableError("held", nil)
	resource := stubMutatingResource{
		acquireFn: func(context.Context) (core.AcquisitionLock, error) { return core.AcquisitionLock{}, unavailable },
	}
	err := NewAcquireCommand(resource).Execute(context.Background(), AcquireMessage{})
	if !core.IsKind(err, core.ErrorResourceUnavailable) {
		t.Fatalf("expected resource unavailable, got %v", err)
	}
}

func TestCommands_MissingDependency(t *testing.T) {
	var cmd *TaskStopCommand
	if err := cmd.Execute(context.Background(), TaskStopMessage{JobID: "J1"}); !core.IsKind(err, core.ErrorInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

type stubMutatingResource struct {
	acquireFn   func(ctx context.Context) (core.AcquisitionLock, error)
	releaseFn   func(ctx context.Context, lock core.AcquisitionLock) error
	taskStartFn func(ctx context.Context, payload core.Payload) (string, error)
	taskStopFn  func(ctx context.Context, jobID string) error
}

func (s stubMutatingResource) Acquire(ctx context.Context) (core.AcquisitionLock, error) {
	if s.acquireFn == nil {
		return core.AcquisitionLock{}, fmt.Errorf("acquire not configured")
	}
	return s.acquireFn(ctx)
}

func (s stubMutatingResource) Release(ctx context.Context, lock core.AcquisitionLock) error {
	if s.releaseFn == nil {
		return fmt.Errorf("release not configured")
	}
	return s.releaseFn(ctx, lock)
}

func (s stubMutatingResource) TaskStart(ctx context.Context, payload core.Payload) (string, error) {
	if s.taskStartFn == nil {
		return "", fmt.Errorf("task start not configured")
	}
	return s.taskStartFn(ctx, payload)
}

func (s stubMutatingResource) TaskStop(ctx context.Context, jobID string) error {
	if s.taskStopFn == nil {
		return fmt.Errorf("task stop not configured")
	}
	return s.taskStopFn(ctx, jobID)
}
