package devkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-qrmi/core"
)

func coreResponse(status int, body []byte) core.TransportResponse {
	return core.TransportResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
		Metadata:   map[string]any{},
	}
}

func ValidateTransportAdapterConformance(
	ctx context.Context,
	adapter core.TransportAdapter,
	request core.TransportRequest,
) error {
	if adapter == nil {
		return fmt.Errorf("devkit: transport adapter is required")
	}
	if strings.TrimSpace(adapter.Kind()) == "" {
		return fmt.Errorf("devkit: transport adapter kind is required")
	}
	_, err := adapter.Do(ctx, request)
	return err
}

// ValidateStatusMapConformance checks that every native status maps to the
// expected TaskStatus and that an unknown status maps to Running.
func ValidateStatusMapConformance(statusMap core.StatusMap, expected map[string]core.TaskStatus) error {
	for native, want := range expected {
		if got := statusMap.Map(native); got != want {
			return fmt.Errorf("devkit: %s status %q maps to %s, want %s", statusMap.Vendor(), native, got, want)
		}
		if !statusMap.Known(native) {
			return fmt.Errorf("devkit: %s status %q is not known", statusMap.Vendor(), native)
		}
	}
	if got := statusMap.Map("__unrecognized__"); got != core.TaskStatusRunning {
		return fmt.Errorf("devkit: %s maps unknown statuses to %s, want running", statusMap.Vendor(), got)
	}
	if len(statusMap.NativeStatuses()) != len(expected) {
		return fmt.Errorf("devkit: %s vocabulary has %d entries, want %d", statusMap.Vendor(), len(statusMap.NativeStatuses()), len(expected))
	}
	return nil
}

// ValidateLockLedgerConformance runs the claim/active/release cycle every
// ledger implementation must support.
func ValidateLockLedgerConformance(ctx context.Context, ledger core.LockLedger) error {
	if ledger == nil {
		return fmt.Errorf("devkit: lock ledger is required")
	}
	lock := core.AcquisitionLock{
		Token:        "conformance-token",
		ResourceName: "conformance",
		ResourceType: core.ResourceTypeMock,
		AcquiredAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Metadata:     map[string]string{"lock_kind": "synthetic"},
	}
	if _, err := ledger.Active(ctx, lock.ResourceType, lock.ResourceName); !errors.Is(err, core.ErrLockNotFound) {
		return fmt.Errorf("devkit: expected ErrLockNotFound before claim, got %v", err)
	}
	if err := ledger.Claim(ctx, lock); err != nil {
		return fmt.Errorf("devkit: claim: %w", err)
	}
	other := lock
	other.Token = "other-token"
	if err := ledger.Claim(ctx, other); !core.IsKind(err, core.ErrorResourceUnavailable) {
		return fmt.Errorf("devkit: second claim should be unavailable, got %v", err)
	}
	active, err := ledger.Active(ctx, lock.ResourceType, lock.ResourceName)
	if err != nil {
		return fmt.Errorf("devkit: active: %w", err)
	}
	if active.Token != lock.Token || active.Metadata["lock_kind"] != "synthetic" {
		return fmt.Errorf("devkit: active lock mismatch: %+v", active)
	}
	if err := ledger.Release(ctx, other); !errors.Is(err, core.ErrLockNotFound) {
		return fmt.Errorf("devkit: releasing a foreign token should report ErrLockNotFound, got %v", err)
	}
	if err := ledger.Release(ctx, lock); err != nil {
		return fmt.Errorf("devkit: release: %w", err)
	}
	if _, err := ledger.Active(ctx, lock.ResourceType, lock.ResourceName); !errors.Is(err, core.ErrLockNotFound) {
		return fmt.Errorf("devkit: expected ErrLockNotFound after release, got %v", err)
	}
	return nil
}

// ValidateTaskLedgerConformance runs record/update/forget on ledger.
func ValidateTaskLedgerConformance(ctx context.Context, ledger core.TaskLedger) error {
	if ledger == nil {
		return fmt.Errorf("devkit: task ledger is required")
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	record := core.TaskRecord{
		JobID:        "conformance-job",
		ResourceName: "conformance",
		ResourceType: core.ResourceTypeMock,
		LockToken:    "token",
		PayloadKind:  core.PayloadKindCircuit,
		Status:       core.TaskStatusQueued,
		SubmittedAt:  now,
	}
	if err := ledger.RecordTask(ctx, record); err != nil {
		return fmt.Errorf("devkit: record: %w", err)
	}
	if err := ledger.UpdateTaskStatus(ctx, record.JobID, core.TaskStatusRunning); err != nil {
		return fmt.Errorf("devkit: update: %w", err)
	}
	loaded, err := ledger.GetTask(ctx, record.JobID)
	if err != nil {
		return fmt.Errorf("devkit: get: %w", err)
	}
	if loaded.Status != core.TaskStatusRunning || loaded.LockToken != "token" || loaded.PayloadKind != core.PayloadKindCircuit {
		return fmt.Errorf("devkit: loaded task mismatch: %+v", loaded)
	}
	if err := ledger.ForgetTask(ctx, record.JobID); err != nil {
		return fmt.Errorf("devkit: forget: %w", err)
	}
	if _, err := ledger.GetTask(ctx, record.JobID); !errors.Is(err, core.ErrTaskNotFound) {
		return fmt.Errorf("devkit: expected ErrTaskNotFound after forget, got %v", err)
	}
	if err := ledger.UpdateTaskStatus(ctx, record.JobID, core.TaskStatusCompleted); !errors.Is(err, core.ErrTaskNotFound) {
		return fmt.Errorf("devkit: expected ErrTaskNotFound updating a forgotten task, got %v", err)
	}
	return nil
}

// RequestPath returns the path of a captured request URL relative to base.
func RequestPath(req core.TransportRequest, base string) string {
	return strings.TrimPrefix(req.URL, strings.TrimRight(base, "/"))
}
