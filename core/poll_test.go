package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResource_PollYieldsUntilTerminal(t *testing.T) {
	client := newStubVendorClient("simulator")
	client.pollFn = scriptedStatuses("QUEUED", "RUNNING", "DONE")
	clock := newFakeClock()
	resource, err := newTestResource(client, WithClock(clock))
	if err != nil {
		t.Fatalf("new resource: %v", err)
	}

	var seen []TaskStatus
	for status, err := range resource.Poll(context.Background(), "J1", 500*time.Millisecond) {
		if err != nil {
			t.Fatalf("poll: %v", err)
		}
		seen = append(seen, status)
	}
	want := []TaskStatus{TaskStatusQueued, TaskStatusRunning, TaskStatusCompleted}
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, seen)
		}
	}
	if clock.sleepCount() != 2 {
		t.Fatalf("expected two sleeps between three observations, got %d", clock.sleepCount())
	}
	if clock.sleeps[0] != 500*time.Millisecond {
		t.Fatalf("expected sleep of 500ms, got %s", clock.sleeps[0])
	}
}

func TestResource_PollStopsOnBreak(t *testing.T) {
	client := newStubVendorClient("simulator")
	client.pollFn = scriptedStatuses("QUEUED")
	clock := newFakeClock()
	resource, err := newTestResource(client, WithClock(clock))
	if err != nil {
		t.Fatalf("new resource: %v", err)
	}
	count := 0
	for range resource.Poll(context.Background(), "J1", time.Second) {
		count++
		if count == 3 {
			break
		}
	}
	if client.callCount("poll") != 3 {
		t.Fatalf("expected three polls, got %d", client.callCount("poll"))
	}
}

func TestResource_PollSurfacesErrors(t *testing.T) {
	client := newStubVendorClient("simulator")
	client.pollFn = func(context.Context, string) (VendorStatus, error) {
		return VendorStatus{}, TransportError(errors.New("dial tcp: refused"), "poll job", nil)
	}
	resource, err := newTestResource(client)
	if err != nil {
		t.Fatalf("new resource: %v", err)
	}
	status, err := resource.WaitTerminal(context.Background(), "J1", time.Second)
	if !IsKind(err, ErrorTransport) {
		t.Fatalf("expected %s, got %v", ErrorTransport, err)
	}
	if status != "" {
		t.Fatalf("expected no status, got %s", status)
	}
}

func TestResource_PollHonorsCancelledContext(t *testing.T) {
	client := newStubVendorClient("simulator")
	client.pollFn = scriptedStatuses("RUNNING")
	resource, err := newTestResource(client)
	if err != nil {
		t.Fatalf("new resource: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = resource.WaitTerminal(ctx, "J1", time.Second)
	if !IsKind(err, ErrorTransport) {
		t.Fatalf("expected cancellation as %s, got %v", ErrorTransport, err)
	}
}
