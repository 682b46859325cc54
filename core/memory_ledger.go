package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryLockLedger is the in-process default LockLedger.
type MemoryLockLedger struct {
	mu    sync.Mutex
	locks map[string]AcquisitionLock
}

func NewMemoryLockLedger() *MemoryLockLedger {
	return &MemoryLockLedger{locks: map[string]AcquisitionLock{}}
}

func (l *MemoryLockLedger) Claim(_ context.Context, lock AcquisitionLock) error {
	if l == nil {
		return fmt.Errorf("core: lock ledger is nil")
	}
	if strings.TrimSpace(lock.Token) == "" {
		return fmt.Errorf("core: lock token is required")
	}
	key := LockKey(lock.ResourceType, lock.ResourceName)
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.locks[key]; ok {
		if existing.Token == lock.Token {
			return nil
		}
		return ResourceUnavailableError(
			fmt.Sprintf("core: resource %q is held by another acquisition", lock.ResourceName),
			map[string]any{"resource": lock.ResourceName, "resource_type": string(lock.ResourceType)},
		)
	}
	lock.Metadata = copyStringMap(lock.Metadata)
	l.locks[key] = lock
	return nil
}

func (l *MemoryLockLedger) Active(_ context.Context, resourceType ResourceType, resourceName string) (AcquisitionLock, error) {
	if l == nil {
		return AcquisitionLock{}, fmt.Errorf("core: lock ledger is nil")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[LockKey(resourceType, resourceName)]
	if !ok {
		return AcquisitionLock{}, ErrLockNotFound
	}
	lock.Metadata = copyStringMap(lock.Metadata)
	return lock, nil
}

func (l *MemoryLockLedger) Release(_ context.Context, lock AcquisitionLock) error {
	if l == nil {
		return fmt.Errorf("core: lock ledger is nil")
	}
	key := LockKey(lock.ResourceType, lock.ResourceName)
	l.mu.Lock()
	defer l.mu.Unlock()
	existing, ok := l.locks[key]
	if !ok || existing.Token != lock.Token {
		return ErrLockNotFound
	}
	delete(l.locks, key)
	return nil
}

// MemoryTaskLedger is the in-process default TaskLedger.
type MemoryTaskLedger struct {
	mu    sync.Mutex
	tasks map[string]TaskRecord
	now   func() time.Time
}

func NewMemoryTaskLedger() *MemoryTaskLedger {
	return &MemoryTaskLedger{
		tasks: map[string]TaskRecord{},
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryTaskLedger) RecordTask(_ context.Context, record TaskRecord) error {
	if l == nil {
		return fmt.Errorf("core: task ledger is nil")
	}
	record.JobID = strings.TrimSpace(record.JobID)
	if record.JobID == "" {
		return fmt.Errorf("core: job id is required")
	}
	now := l.now()
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = now
	}
	if record.Status == "" {
		record.Status = TaskStatusQueued
	}
	record.UpdatedAt = now
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tasks[record.JobID] = record
	return nil
}

func (l *MemoryTaskLedger) GetTask(_ context.Context, jobID string) (TaskRecord, error) {
	if l == nil {
		return TaskRecord{}, fmt.Errorf("core: task ledger is nil")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.tasks[strings.TrimSpace(jobID)]
	if !ok {
		return TaskRecord{}, fmt.Errorf("%w: job %q", ErrTaskNotFound, jobID)
	}
	return record, nil
}

func (l *MemoryTaskLedger) UpdateTaskStatus(_ context.Context, jobID string, status TaskStatus) error {
	if l == nil {
		return fmt.Errorf("core: task ledger is nil")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.tasks[strings.TrimSpace(jobID)]
	if !ok {
		return fmt.Errorf("%w: job %q", ErrTaskNotFound, jobID)
	}
	record.Status = status
	record.UpdatedAt = l.now()
	l.tasks[record.JobID] = record
	return nil
}

func (l *MemoryTaskLedger) ForgetTask(_ context.Context, jobID string) error {
	if l == nil {
		return fmt.Errorf("core: task ledger is nil")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.tasks, strings.TrimSpace(jobID))
	return nil
}

// LockKey is the ledger key of a resource: <type>::<name>.
func LockKey(resourceType ResourceType, resourceName string) string {
	return string(resourceType) + "::" + strings.TrimSpace(resourceName)
}
