package sqlstore

import (
	"time"

	"github.com/goliatone/go-qrmi/core"
	"github.com/uptrace/bun"
)

type lockRecord struct {
	bun.BaseModel `bun:"table:qrmi_locks,alias:ql"`

	ID           string            `bun:"id,pk"`
	LockKey      string            `bun:"lock_key,notnull"`
	ResourceType string            `bun:"resource_type,notnull"`
	ResourceName string            `bun:"resource_name,notnull"`
	Token        string            `bun:"token,notnull"`
	Metadata     map[string]string `bun:"metadata,type:jsonb,notnull"`
	AcquiredAt   time.Time         `bun:"acquired_at,notnull"`
	CreatedAt    time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time         `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type taskRecord struct {
	bun.BaseModel `bun:"table:qrmi_tasks,alias:qt"`

	ID           string    `bun:"id,pk"`
	JobID        string    `bun:"job_id,notnull"`
	ResourceType string    `bun:"resource_type,notnull"`
	ResourceName string    `bun:"resource_name,notnull"`
	LockToken    string    `bun:"lock_token,notnull"`
	PayloadKind  string    `bun:"payload_kind,notnull"`
	Status       string    `bun:"status,notnull"`
	SubmittedAt  time.Time `bun:"submitted_at,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newLockRecord(id string, lock core.AcquisitionLock, now time.Time) *lockRecord {
	acquiredAt := lock.AcquiredAt.UTC()
	if lock.AcquiredAt.IsZero() {
		acquiredAt = now
	}
	return &lockRecord{
		ID:           id,
		LockKey:      core.LockKey(lock.ResourceType, lock.ResourceName),
		ResourceType: string(lock.ResourceType),
		ResourceName: lock.ResourceName,
		Token:        lock.Token,
		Metadata:     copyStringMap(lock.Metadata),
		AcquiredAt:   acquiredAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (r *lockRecord) toDomain() core.AcquisitionLock {
	if r == nil {
		return core.AcquisitionLock{}
	}
	return core.AcquisitionLock{
		Token:        r.Token,
		ResourceName: r.ResourceName,
		ResourceType: core.ResourceType(r.ResourceType),
		AcquiredAt:   r.AcquiredAt.UTC(),
		Metadata:     copyStringMap(r.Metadata),
	}
}

func (r *taskRecord) toDomain() core.TaskRecord {
	if r == nil {
		return core.TaskRecord{}
	}
	return core.TaskRecord{
		JobID:        r.JobID,
		ResourceName: r.ResourceName,
		ResourceType: core.ResourceType(r.ResourceType),
		LockToken:    r.LockToken,
		PayloadKind:  core.PayloadKind(r.PayloadKind),
		Status:       core.TaskStatus(r.Status),
		SubmittedAt:  r.SubmittedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func copyStringMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
