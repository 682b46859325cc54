package capi

import (
	"context"
	"fmt"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"

	qrmi "github.com/goliatone/go-qrmi"
	"github.com/goliatone/go-qrmi/core"
)

// Handle identifies a resource owned by a Table. Zero is never issued.
type Handle uint64

// Factory builds the facade behind a new handle.
type Factory func(ctx context.Context, name string, resourceType core.ResourceType) (*qrmi.Facade, error)

type entry struct {
	name         string
	resourceType core.ResourceType
	facade       *qrmi.Facade

	mu      sync.Mutex
	lastErr string
	locks   map[string]core.AcquisitionLock
}

// Table owns the facades handed out to C callers. Calls on different handles
// run concurrently; the table lock only guards the handle map.
type Table struct {
	mu      sync.Mutex
	next    Handle
	entries map[Handle]*entry
	lastErr string

	factory Factory
	logger  glog.Logger
}

type Option func(*Table)

func WithFactory(factory Factory) Option {
	return func(t *Table) {
		if factory != nil {
			t.factory = factory
		}
	}
}

func WithLogger(logger glog.Logger) Option {
	return func(t *Table) {
		t.logger = logger
	}
}

// WithFacadeOptions keeps the default factory and forwards opts to qrmi.New.
func WithFacadeOptions(opts ...qrmi.FacadeOption) Option {
	return func(t *Table) {
		t.factory = defaultFactory(opts...)
	}
}

func NewTable(opts ...Option) *Table {
	table := &Table{
		entries: map[Handle]*entry{},
		factory: defaultFactory(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(table)
		}
	}
	_, logger := glog.Resolve("qrmi.capi", nil, table.logger)
	table.logger = glog.Ensure(logger)
	return table
}

func defaultFactory(opts ...qrmi.FacadeOption) Factory {
	return func(ctx context.Context, name string, resourceType core.ResourceType) (*qrmi.Facade, error) {
		return qrmi.New(ctx, name, resourceType, opts...)
	}
}

// New resolves rawType, builds a facade for name and returns its handle.
func (t *Table) New(ctx context.Context, name string, rawType string) (Handle, ResultCode) {
	resourceType, err := core.ParseResourceType(rawType)
	if err != nil {
		return 0, t.fail(nil, core.WrapError(err, core.ErrorBadInput, "capi: invalid resource type"))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, t.fail(nil, core.BadInputError("capi: resource name is required"))
	}
	facade, err := t.factory(ctx, name, resourceType)
	if err != nil {
		return 0, t.fail(nil, err)
	}
	if facade == nil {
		return 0, t.fail(nil, core.NewError(core.ErrorInternal, "capi: factory returned no facade"))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	handle := t.next
	t.entries[handle] = &entry{
		name:         name,
		resourceType: resourceType,
		facade:       facade,
		locks:        map[string]core.AcquisitionLock{},
	}
	t.logger.Debug("resource handle created", "handle", uint64(handle), "resource", name, "resource_type", string(resourceType))
	return handle, CodeSuccess
}

// Free releases any lock the handle still holds and forgets it. Freeing an
// unknown handle is a no-op.
func (t *Table) Free(ctx context.Context, handle Handle) ResultCode {
	t.mu.Lock()
	item, ok := t.entries[handle]
	delete(t.entries, handle)
	t.mu.Unlock()
	if !ok {
		return CodeSuccess
	}
	if err := item.facade.Close(ctx); err != nil {
		t.logger.Warn("closing resource handle failed", "handle", uint64(handle), "error", err)
		return t.fail(nil, err)
	}
	return CodeSuccess
}

// Len reports how many handles are live.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Table) IsAccessible(ctx context.Context, handle Handle) (bool, ResultCode) {
	item, code := t.lookup(handle)
	if code != CodeSuccess {
		return false, code
	}
	accessible, err := item.facade.IsAccessible(ctx)
	if err != nil {
		return false, t.fail(item, err)
	}
	return accessible, CodeSuccess
}

// Acquire returns the lock token; the full lock is remembered so Release
// only needs the token back.
func (t *Table) Acquire(ctx context.Context, handle Handle) (string, ResultCode) {
	item, code := t.lookup(handle)
	if code != CodeSuccess {
		return "", code
	}
	lock, err := item.facade.Acquire(ctx)
	if err != nil {
		return "", t.fail(item, err)
	}
	item.mu.Lock()
	item.locks[lock.Token] = lock
	item.mu.Unlock()
	return lock.Token, CodeSuccess
}

func (t *Table) Release(ctx context.Context, handle Handle, token string) ResultCode {
	item, code := t.lookup(handle)
	if code != CodeSuccess {
		return code
	}
	token = strings.TrimSpace(token)
	item.mu.Lock()
	lock, ok := item.locks[token]
	item.mu.Unlock()
	if !ok {
		lock = core.AcquisitionLock{Token: token, ResourceName: item.name, ResourceType: item.resourceType}
	}
	if err := item.facade.Release(ctx, lock); err != nil {
		return t.fail(item, err)
	}
	item.mu.Lock()
	delete(item.locks, token)
	item.mu.Unlock()
	return CodeSuccess
}

func (t *Table) Target(ctx context.Context, handle Handle) (string, ResultCode) {
	item, code := t.lookup(handle)
	if code != CodeSuccess {
		return "", code
	}
	target, err := item.facade.Target(ctx)
	if err != nil {
		return "", t.fail(item, err)
	}
	return target.Value, CodeSuccess
}

func (t *Table) TaskStart(ctx context.Context, handle Handle, payload Payload) (string, ResultCode) {
	item, code := t.lookup(handle)
	if code != CodeSuccess {
		return "", code
	}
	decoded, err := payload.Decode()
	if err != nil {
		return "", t.fail(item, err)
	}
	jobID, err := item.facade.TaskStart(ctx, decoded)
	if err != nil {
		return "", t.fail(item, err)
	}
	return jobID, CodeSuccess
}

func (t *Table) TaskStatus(ctx context.Context, handle Handle, jobID string) (string, ResultCode) {
	item, code := t.lookup(handle)
	if code != CodeSuccess {
		return "", code
	}
	status, err := item.facade.TaskStatus(ctx, jobID)
	if err != nil {
		return "", t.fail(item, err)
	}
	return string(status), CodeSuccess
}

func (t *Table) TaskStop(ctx context.Context, handle Handle, jobID string) ResultCode {
	item, code := t.lookup(handle)
	if code != CodeSuccess {
		return code
	}
	if err := item.facade.TaskStop(ctx, jobID); err != nil {
		return t.fail(item, err)
	}
	return CodeSuccess
}

func (t *Table) TaskResult(ctx context.Context, handle Handle, jobID string) (string, ResultCode) {
	item, code := t.lookup(handle)
	if code != CodeSuccess {
		return "", code
	}
	result, err := item.facade.TaskResult(ctx, jobID)
	if err != nil {
		return "", t.fail(item, err)
	}
	return result.Value, CodeSuccess
}

func (t *Table) TaskLogs(ctx context.Context, handle Handle, jobID string) (string, ResultCode) {
	item, code := t.lookup(handle)
	if code != CodeSuccess {
		return "", code
	}
	logs, err := item.facade.TaskLogs(ctx, jobID)
	if err != nil {
		return "", t.fail(item, err)
	}
	return logs, CodeSuccess
}

// LastError returns the message of the most recent failure on handle. Handle
// zero, or one that no longer exists, reports the table-wide last error.
func (t *Table) LastError(handle Handle) string {
	t.mu.Lock()
	item, ok := t.entries[handle]
	global := t.lastErr
	t.mu.Unlock()
	if !ok {
		return global
	}
	item.mu.Lock()
	defer item.mu.Unlock()
	return item.lastErr
}

func (t *Table) lookup(handle Handle) (*entry, ResultCode) {
	t.mu.Lock()
	item, ok := t.entries[handle]
	t.mu.Unlock()
	if !ok {
		return nil, t.fail(nil, core.BadInputError(fmt.Sprintf("capi: handle %d is not live", uint64(handle))))
	}
	return item, CodeSuccess
}

func (t *Table) fail(item *entry, err error) ResultCode {
	code := CodeFor(err)
	message := fmt.Sprintf("%s: %v", code, err)
	if item != nil {
		item.mu.Lock()
		item.lastErr = message
		item.mu.Unlock()
	}
	t.mu.Lock()
	t.lastErr = message
	t.mu.Unlock()
	t.logger.Debug("qrmi call failed", "code", code.String(), "error", err)
	return code
}
