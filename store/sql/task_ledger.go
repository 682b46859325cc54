package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-qrmi/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TaskLedger persists in-flight task records keyed by vendor job id.
type TaskLedger struct {
	db   *bun.DB
	repo repository.Repository[*taskRecord]
	now  func() time.Time
}

func NewTaskLedger(db *bun.DB) (*TaskLedger, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*taskRecord](db, taskHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid task repository wiring: %w", err)
		}
	}
	return &TaskLedger{
		db:   db,
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (l *TaskLedger) RecordTask(ctx context.Context, in core.TaskRecord) error {
	if l == nil || l.db == nil {
		return fmt.Errorf("sqlstore: task ledger is not configured")
	}
	in.JobID = strings.TrimSpace(in.JobID)
	if in.JobID == "" {
		return fmt.Errorf("sqlstore: job id is required")
	}
	now := l.now()
	if in.SubmittedAt.IsZero() {
		in.SubmittedAt = now
	}
	if in.Status == "" {
		in.Status = core.TaskStatusQueued
	}

	return l.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findTaskTx(ctx, tx, in.JobID)
		if err != nil {
			return err
		}
		created := record == nil
		if created {
			record = &taskRecord{ID: uuid.NewString(), JobID: in.JobID, CreatedAt: now}
		}
		record.ResourceType = string(in.ResourceType)
		record.ResourceName = strings.TrimSpace(in.ResourceName)
		record.LockToken = in.LockToken
		record.PayloadKind = string(in.PayloadKind)
		record.Status = string(in.Status)
		record.SubmittedAt = in.SubmittedAt.UTC()
		record.UpdatedAt = now

		if created {
			_, err = tx.NewInsert().Model(record).Exec(ctx)
			return err
		}
		_, err = tx.NewUpdate().Model(record).Where("id = ?", record.ID).Exec(ctx)
		return err
	})
}

func (l *TaskLedger) GetTask(ctx context.Context, jobID string) (core.TaskRecord, error) {
	if l == nil || l.repo == nil {
		return core.TaskRecord{}, fmt.Errorf("sqlstore: task ledger is not configured")
	}
	records, _, err := l.repo.List(ctx, repository.SelectBy("job_id", "=", strings.TrimSpace(jobID)))
	if err != nil {
		return core.TaskRecord{}, err
	}
	if len(records) == 0 {
		return core.TaskRecord{}, fmt.Errorf("%w: job %q", core.ErrTaskNotFound, jobID)
	}
	return records[0].toDomain(), nil
}

func (l *TaskLedger) UpdateTaskStatus(ctx context.Context, jobID string, status core.TaskStatus) error {
	if l == nil || l.db == nil {
		return fmt.Errorf("sqlstore: task ledger is not configured")
	}
	res, err := l.db.NewUpdate().
		Model((*taskRecord)(nil)).
		Set("status = ?", string(status)).
		Set("updated_at = ?", l.now()).
		Where("job_id = ?", strings.TrimSpace(jobID)).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: job %q", core.ErrTaskNotFound, jobID)
	}
	return nil
}

func (l *TaskLedger) ForgetTask(ctx context.Context, jobID string) error {
	if l == nil || l.db == nil {
		return fmt.Errorf("sqlstore: task ledger is not configured")
	}
	_, err := l.db.NewDelete().
		Model((*taskRecord)(nil)).
		Where("job_id = ?", strings.TrimSpace(jobID)).
		Exec(ctx)
	return err
}

// InFlight lists the recorded tasks of one resource, oldest submission first.
func (l *TaskLedger) InFlight(ctx context.Context, resourceType core.ResourceType, resourceName string) ([]core.TaskRecord, error) {
	if l == nil || l.repo == nil {
		return nil, fmt.Errorf("sqlstore: task ledger is not configured")
	}
	records, _, err := l.repo.List(ctx,
		repository.SelectBy("resource_type", "=", string(resourceType)),
		repository.SelectBy("resource_name", "=", strings.TrimSpace(resourceName)),
		repository.OrderBy("submitted_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.TaskRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func findTaskTx(ctx context.Context, tx bun.Tx, jobID string) (*taskRecord, error) {
	record := &taskRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.job_id = ?", jobID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
