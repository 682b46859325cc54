package core

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryLockLedger_ClaimIsExclusive(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLockLedger()
	lock := AcquisitionLock{Token: "t1", ResourceName: "qpu-1", ResourceType: ResourceTypeIonQCloud}

	if err := ledger.Claim(ctx, lock); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := ledger.Claim(ctx, lock); err != nil {
		t.Fatalf("expected repeated claim with the same token to succeed: %v", err)
	}
	other := lock
	other.Token = "t2"
	if err := ledger.Claim(ctx, other); !IsKind(err, ErrorResourceUnavailable) {
		t.Fatalf("expected %s, got %v", ErrorResourceUnavailable, err)
	}
	if err := ledger.Release(ctx, other); !errors.Is(err, ErrLockNotFound) {
		t.Fatalf("expected mismatched release to fail, got %v", err)
	}
	if err := ledger.Release(ctx, lock); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := ledger.Active(ctx, lock.ResourceType, lock.ResourceName); !errors.Is(err, ErrLockNotFound) {
		t.Fatalf("expected no active lock, got %v", err)
	}
}

func TestMemoryLockLedger_ScopesByType(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLockLedger()
	if err := ledger.Claim(ctx, AcquisitionLock{Token: "a", ResourceName: "fresnel", ResourceType: ResourceTypePasqalCloud}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := ledger.Claim(ctx, AcquisitionLock{Token: "b", ResourceName: "fresnel", ResourceType: ResourceTypeMock}); err != nil {
		t.Fatalf("expected a different type with the same name to be independent: %v", err)
	}
}

func TestMemoryTaskLedger_Lifecycle(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryTaskLedger()
	if err := ledger.RecordTask(ctx, TaskRecord{}); err == nil {
		t.Fatalf("expected job id to be required")
	}
	if err := ledger.RecordTask(ctx, TaskRecord{JobID: "J1", ResourceName: "simulator"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	record, err := ledger.GetTask(ctx, "J1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Status != TaskStatusQueued || record.SubmittedAt.IsZero() {
		t.Fatalf("expected defaults to be filled, got %+v", record)
	}
	if err := ledger.UpdateTaskStatus(ctx, "J1", TaskStatusRunning); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := ledger.UpdateTaskStatus(ctx, "J2", TaskStatusRunning); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected not found for unknown job, got %v", err)
	}
	if err := ledger.ForgetTask(ctx, "J1"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if _, err := ledger.GetTask(ctx, "J1"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected forgotten task, got %v", err)
	}
}
