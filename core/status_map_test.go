package core

import "testing"

func TestStatusMap_TotalOverArbitraryInput(t *testing.T) {
	statusMap := NewStatusMap("example", map[string]TaskStatus{
		"PENDING":   TaskStatusQueued,
		"running":   TaskStatusRunning,
		"DONE":      TaskStatusCompleted,
		"TIMED-OUT": TaskStatusFailed,
		"CANCELED":  TaskStatusCancelled,
	})

	cases := map[string]TaskStatus{
		"PENDING":   TaskStatusQueued,
		" pending ": TaskStatusQueued,
		"RUNNING":   TaskStatusRunning,
		"done":      TaskStatusCompleted,
		"timed_out": TaskStatusFailed,
		"timed out": TaskStatusFailed,
		"Canceled":  TaskStatusCancelled,
		"":          TaskStatusRunning,
		"SOMETHING": TaskStatusRunning,
		"\x00":      TaskStatusRunning,
	}
	for native, want := range cases {
		if got := statusMap.Map(native); got != want {
			t.Fatalf("map(%q): expected %s, got %s", native, want, got)
		}
	}
}

func TestStatusMap_UnknownNeverTerminal(t *testing.T) {
	statusMap := NewStatusMap("example", map[string]TaskStatus{"DONE": TaskStatusCompleted})
	for _, native := range []string{"FINISHED", "COMPLETE", "ERRORED", "cancelled"} {
		if statusMap.Map(native).Terminal() {
			t.Fatalf("unknown status %q must not map to a terminal status", native)
		}
		if statusMap.Known(native) {
			t.Fatalf("expected %q to be unknown", native)
		}
	}
}

func TestStatusMap_DropsInvalidEntries(t *testing.T) {
	statusMap := NewStatusMap("example", map[string]TaskStatus{
		"":      TaskStatusQueued,
		"WEIRD": TaskStatus("paused"),
		"OK":    TaskStatusCompleted,
	})
	natives := statusMap.NativeStatuses()
	if len(natives) != 1 || natives[0] != "OK" {
		t.Fatalf("expected only OK, got %v", natives)
	}
	if statusMap.Vendor() != "example" {
		t.Fatalf("unexpected vendor %q", statusMap.Vendor())
	}
}
