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
	"github.com/uptrace/bun/dialect"
)

// LockLedger persists acquisition locks so that separate processes sharing
// a database see each other's holds. The unique lock_key index arbitrates
// concurrent claims.
type LockLedger struct {
	db   *bun.DB
	repo repository.Repository[*lockRecord]
	now  func() time.Time
}

func NewLockLedger(db *bun.DB) (*LockLedger, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*lockRecord](db, lockHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid lock repository wiring: %w", err)
		}
	}
	return &LockLedger{
		db:   db,
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (l *LockLedger) Claim(ctx context.Context, lock core.AcquisitionLock) error {
	if l == nil || l.db == nil {
		return fmt.Errorf("sqlstore: lock ledger is not configured")
	}
	if strings.TrimSpace(lock.Token) == "" {
		return fmt.Errorf("sqlstore: lock token is required")
	}
	if strings.TrimSpace(lock.ResourceName) == "" {
		return fmt.Errorf("sqlstore: lock resource name is required")
	}
	lock.ResourceName = strings.TrimSpace(lock.ResourceName)
	key := core.LockKey(lock.ResourceType, lock.ResourceName)

	return l.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := findLockTx(ctx, tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Token == lock.Token {
				return nil
			}
			return heldElsewhere(lock)
		}
		record := newLockRecord(uuid.NewString(), lock, l.now())
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			return claimInsertError(err, driverName(l.db), lock)
		}
		return nil
	})
}

func (l *LockLedger) Active(ctx context.Context, resourceType core.ResourceType, resourceName string) (core.AcquisitionLock, error) {
	if l == nil || l.repo == nil {
		return core.AcquisitionLock{}, fmt.Errorf("sqlstore: lock ledger is not configured")
	}
	records, _, err := l.repo.List(ctx,
		repository.SelectBy("lock_key", "=", core.LockKey(resourceType, resourceName)),
	)
	if err != nil {
		return core.AcquisitionLock{}, err
	}
	if len(records) == 0 {
		return core.AcquisitionLock{}, core.ErrLockNotFound
	}
	return records[0].toDomain(), nil
}

func (l *LockLedger) Release(ctx context.Context, lock core.AcquisitionLock) error {
	if l == nil || l.db == nil {
		return fmt.Errorf("sqlstore: lock ledger is not configured")
	}
	res, err := l.db.NewDelete().
		Model((*lockRecord)(nil)).
		Where("lock_key = ?", core.LockKey(lock.ResourceType, lock.ResourceName)).
		Where("token = ?", lock.Token).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.ErrLockNotFound
	}
	return nil
}

// Held lists every lock currently recorded, oldest first.
func (l *LockLedger) Held(ctx context.Context) ([]core.AcquisitionLock, error) {
	if l == nil || l.repo == nil {
		return nil, fmt.Errorf("sqlstore: lock ledger is not configured")
	}
	records, _, err := l.repo.List(ctx, repository.OrderBy("acquired_at ASC"))
	if err != nil {
		return nil, err
	}
	out := make([]core.AcquisitionLock, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func findLockTx(ctx context.Context, tx bun.Tx, key string) (*lockRecord, error) {
	record := &lockRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.lock_key = ?", key).
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

// claimInsertError reports a unique lock_key violation, i.e. a claim lost to
// another process, as ResourceUnavailable. Other insert failures stay
// storage errors.
func claimInsertError(err error, driver string, lock core.AcquisitionLock) error {
	if repository.IsDuplicatedKey(repository.MapDatabaseError(err, driver)) {
		return core.WrapError(err, core.ErrorResourceUnavailable,
			fmt.Sprintf("sqlstore: resource %q is held by another acquisition", lock.ResourceName))
	}
	return fmt.Errorf("sqlstore: record lock for %q: %w", lock.ResourceName, err)
}

func driverName(db *bun.DB) string {
	if db != nil && db.Dialect().Name() == dialect.PG {
		return DriverPostgres
	}
	return DriverSQLite
}

func heldElsewhere(lock core.AcquisitionLock) error {
	return core.ResourceUnavailableError(
		fmt.Sprintf("sqlstore: resource %q is held by another acquisition", lock.ResourceName),
		map[string]any{"resource": lock.ResourceName, "resource_type": string(lock.ResourceType)},
	)
}
