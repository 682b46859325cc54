package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
	"go.opentelemetry.io/otel/trace"
)

// AcquisitionTokenEnvSuffix names the variable through which a lock acquired
// by one process of a job is handed to the others: <BACKEND>_QRMI_JOB_ACQUISITION_TOKEN.
const AcquisitionTokenEnvSuffix = "_QRMI_JOB_ACQUISITION_TOKEN"

// Resource is the vendor-neutral handle over one named quantum resource.
// A Resource is meant to be driven by a single owner; the mutex only guards
// its lock and result bookkeeping.
type Resource struct {
	name         string
	resourceType ResourceType
	client       VendorClient
	config       Config

	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	lockLedger      LockLedger
	taskLedger      TaskLedger
	targetCache     TargetCache
	clock           Clock
	tracer          trace.Tracer
	lookupEnv       func(string) (string, bool)

	mu       sync.Mutex
	lock     *AcquisitionLock
	terminal map[string]TaskStatus
	reasons  map[string]string
	results  map[string]TaskResult
}

func NewResource(cfg Config, client VendorClient, opts ...Option) (*Resource, error) {
	if client == nil {
		return nil, fmt.Errorf("core: vendor client is required")
	}
	name := strings.TrimSpace(client.ResourceName())
	if name == "" {
		return nil, fmt.Errorf("core: resource name is required")
	}
	if !client.ResourceType().Valid() {
		return nil, fmt.Errorf("core: resource type %q is invalid", client.ResourceType())
	}

	builder := defaultResourceBuilder(cfg)
	for _, opt := range opts {
		if opt != nil {
			opt(&builder)
		}
	}

	resolved, err := ResolveConfig(context.Background(), builder.runtimeConfig, builder.configProvider, builder.optionsResolver)
	if err != nil {
		return nil, err
	}

	loggerProvider, logger := glog.Resolve("qrmi.resource", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = MapError
	}
	if builder.lockLedger == nil {
		builder.lockLedger = NewMemoryLockLedger()
	}
	if builder.clock == nil {
		builder.clock = SystemClock{}
	}
	if builder.lookupEnv == nil {
		builder.lookupEnv = os.LookupEnv
	}

	return &Resource{
		name:            name,
		resourceType:    client.ResourceType(),
		client:          client,
		config:          resolved,
		logger:          logger,
		loggerProvider:  loggerProvider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		lockLedger:      builder.lockLedger,
		taskLedger:      builder.taskLedger,
		targetCache:     builder.targetCache,
		clock:           builder.clock,
		tracer:          builder.tracer,
		lookupEnv:       builder.lookupEnv,
		terminal:        map[string]TaskStatus{},
		reasons:         map[string]string{},
		results:         map[string]TaskResult{},
	}, nil
}

func (r *Resource) Name() string {
	return r.name
}

func (r *Resource) Type() ResourceType {
	return r.resourceType
}

func (r *Resource) Config() Config {
	return r.config
}

// HeldLock returns the lock currently held by this resource, if any.
func (r *Resource) HeldLock() (AcquisitionLock, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lock == nil {
		return AcquisitionLock{}, false
	}
	lock := *r.lock
	lock.Metadata = copyStringMap(lock.Metadata)
	return lock, true
}

func (r *Resource) IsAccessible(ctx context.Context) (accessible bool, err error) {
	startedAt := r.clock.Now()
	ctx, span := r.startSpan(ctx, "is_accessible", nil)
	defer func() {
		err = r.mapError(err)
		endSpan(span, err)
		r.observeOperation(ctx, startedAt, "is_accessible", err, map[string]any{"accessible": accessible})
	}()
	return r.client.Accessible(ctx)
}

// Acquire obtains exclusive use of the resource. It never waits: a resource
// held by this handle or by anyone else fails with QRMI_RESOURCE_UNAVAILABLE.
func (r *Resource) Acquire(ctx context.Context) (lock AcquisitionLock, err error) {
	startedAt := r.clock.Now()
	ctx, span := r.startSpan(ctx, "acquire", nil)
	defer func() {
		err = r.mapError(err)
		endSpan(span, err)
		r.observeOperation(ctx, startedAt, "acquire", err, nil)
	}()

	r.mu.Lock()
	held := r.lock != nil
	r.mu.Unlock()
	if held {
		return AcquisitionLock{}, r.unavailable("resource is already acquired by this handle")
	}

	if token, ok := r.handedOffToken(); ok {
		if adopted, adoptErr := r.adopt(ctx, token); adoptErr == nil {
			return adopted, nil
		}
	}

	if _, activeErr := r.lockLedger.Active(ctx, r.resourceType, r.name); activeErr == nil {
		return AcquisitionLock{}, r.unavailable("resource is held by another acquisition")
	} else if !errors.Is(activeErr, ErrLockNotFound) {
		return AcquisitionLock{}, activeErr
	}

	vendorLock, err := r.client.Reserve(ctx)
	if err != nil {
		return AcquisitionLock{}, err
	}
	if strings.TrimSpace(vendorLock.Token) == "" {
		emptyErr := NewError(ErrorInternal, "core: vendor returned an empty lock token")
		if unreserveErr := r.client.Unreserve(ctx, vendorLock); unreserveErr != nil {
			return AcquisitionLock{}, errors.Join(emptyErr, unreserveErr)
		}
		return AcquisitionLock{}, emptyErr
	}

	lock = AcquisitionLock{
		Token:        vendorLock.Token,
		ResourceName: r.name,
		ResourceType: r.resourceType,
		AcquiredAt:   r.clock.Now(),
		Metadata:     copyStringMap(vendorLock.Metadata),
	}
	if claimErr := r.lockLedger.Claim(ctx, lock); claimErr != nil {
		if unreserveErr := r.client.Unreserve(ctx, vendorLock); unreserveErr != nil {
			return AcquisitionLock{}, errors.Join(claimErr, unreserveErr)
		}
		return AcquisitionLock{}, claimErr
	}

	r.mu.Lock()
	stored := lock
	r.lock = &stored
	r.mu.Unlock()
	return lock, nil
}

// AdoptLock takes over a lock acquired by another process of the same job.
// The token must match the lock active in the ledger.
func (r *Resource) AdoptLock(ctx context.Context, token string) (lock AcquisitionLock, err error) {
	startedAt := r.clock.Now()
	ctx, span := r.startSpan(ctx, "adopt_lock", nil)
	defer func() {
		err = r.mapError(err)
		endSpan(span, err)
		r.observeOperation(ctx, startedAt, "adopt_lock", err, nil)
	}()
	return r.adopt(ctx, token)
}

func (r *Resource) adopt(ctx context.Context, token string) (AcquisitionLock, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return AcquisitionLock{}, InvalidLockError("core: lock token is required")
	}
	active, err := r.lockLedger.Active(ctx, r.resourceType, r.name)
	if err != nil {
		if errors.Is(err, ErrLockNotFound) {
			return AcquisitionLock{}, InvalidLockError("core: no active lock to adopt")
		}
		return AcquisitionLock{}, err
	}
	if active.Token != token {
		return AcquisitionLock{}, InvalidLockError("core: lock token does not match the active lock")
	}
	r.mu.Lock()
	stored := active
	r.lock = &stored
	r.mu.Unlock()
	r.logDebug(ctx, "adopted acquisition lock", lockFields(active))
	return active, nil
}

func (r *Resource) handedOffToken() (string, bool) {
	if r.lookupEnv == nil {
		return "", false
	}
	for _, key := range acquisitionTokenKeys(r.name) {
		if value, ok := r.lookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

func acquisitionTokenKeys(name string) []string {
	keys := []string{name + AcquisitionTokenEnvSuffix}
	if normalized := EnvPrefix(name); normalized != name {
		keys = append(keys, normalized+AcquisitionTokenEnvSuffix)
	}
	return keys
}

// EnvPrefix upper-cases a backend name and replaces every character that is
// not a letter or digit with '_'.
func EnvPrefix(name string) string {
	var b strings.Builder
	for _, ch := range strings.TrimSpace(name) {
		switch {
		case ch >= 'a' && ch <= 'z':
			b.WriteRune(ch - 'a' + 'A')
		case ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			b.WriteRune(ch)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Release gives the resource back. The lock must have been issued for this
// resource and still be the active one.
func (r *Resource) Release(ctx context.Context, lock AcquisitionLock) (err error) {
	startedAt := r.clock.Now()
	ctx, span := r.startSpan(ctx, "release", nil)
	defer func() {
		err = r.mapError(err)
		endSpan(span, err)
		r.observeOperation(ctx, startedAt, "release", err, nil)
	}()

	if strings.TrimSpace(lock.Token) == "" {
		return InvalidLockError("core: lock token is required")
	}
	if lock.ResourceName == "" && lock.ResourceType == "" {
		lock.ResourceName = r.name
		lock.ResourceType = r.resourceType
	}
	if !lock.IssuedBy(r.name, r.resourceType) {
		return InvalidLockError(fmt.Sprintf("core: lock was issued for %s %q", lock.ResourceType, lock.ResourceName))
	}

	r.mu.Lock()
	local := r.lock
	r.mu.Unlock()

	owned := local != nil && local.Token == lock.Token
	if !owned {
		active, activeErr := r.lockLedger.Active(ctx, r.resourceType, r.name)
		if activeErr != nil && !errors.Is(activeErr, ErrLockNotFound) {
			return activeErr
		}
		if activeErr != nil || active.Token != lock.Token {
			return InvalidLockError("core: lock is not held")
		}
		lock = active
	} else {
		lock = *local
	}

	if err := r.client.Unreserve(ctx, lock.VendorLock()); err != nil {
		return err
	}

	var errs []error
	if releaseErr := r.lockLedger.Release(ctx, lock); releaseErr != nil && !errors.Is(releaseErr, ErrLockNotFound) {
		errs = append(errs, releaseErr)
	}
	r.mu.Lock()
	if r.lock != nil && r.lock.Token == lock.Token {
		r.lock = nil
	}
	r.mu.Unlock()
	return errors.Join(errs...)
}

func (r *Resource) Target(ctx context.Context) (target Target, err error) {
	startedAt := r.clock.Now()
	ctx, span := r.startSpan(ctx, "target", nil)
	defer func() {
		err = r.mapError(err)
		endSpan(span, err)
		r.observeOperation(ctx, startedAt, "target", err, nil)
	}()
	if r.targetCache == nil {
		return r.client.Target(ctx)
	}
	return r.targetCache.GetOrFetch(ctx, r.resourceType, r.name, r.client.Target)
}

// TaskStart submits payload and returns the vendor job id without waiting.
func (r *Resource) TaskStart(ctx context.Context, payload Payload) (jobID string, err error) {
	startedAt := r.clock.Now()
	ctx, span := r.startSpan(ctx, "task_start", nil)
	defer func() {
		err = r.mapError(err)
		endSpan(span, err)
		fields := jobFields(jobID)
		if payload != nil {
			fields["payload_kind"] = string(payload.Kind())
		}
		r.observeOperation(ctx, startedAt, "task_start", err, fields)
	}()

	if payload == nil {
		return "", BadInputError("core: payload is required")
	}
	if err := payload.Validate(); err != nil {
		return "", WrapError(err, ErrorBadInput, err.Error())
	}
	held, holding := r.HeldLock()
	submitCtx := ctx
	if holding {
		submitCtx = ContextWithLock(ctx, held.VendorLock())
	}
	jobID, err = r.client.Submit(submitCtx, payload)
	if err != nil {
		return "", err
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return "", NewError(ErrorInternal, "core: vendor returned an empty job id")
	}

	if r.taskLedger != nil {
		record := TaskRecord{
			JobID:        jobID,
			ResourceName: r.name,
			ResourceType: r.resourceType,
			PayloadKind:  payload.Kind(),
			Status:       TaskStatusQueued,
			SubmittedAt:  r.clock.Now(),
		}
		if holding {
			record.LockToken = held.Token
		}
		if recordErr := r.taskLedger.RecordTask(ctx, record); recordErr != nil {
			r.logError(ctx, "task ledger record failed", map[string]any{"job_id": jobID, "error": recordErr.Error()})
		}
	}
	return jobID, nil
}

// TaskStatus reports the current status of a job. Once a job has been seen
// in a terminal status the answer never changes.
func (r *Resource) TaskStatus(ctx context.Context, jobID string) (status TaskStatus, err error) {
	startedAt := r.clock.Now()
	ctx, span := r.startSpan(ctx, "task_status", jobFields(jobID))
	defer func() {
		err = r.mapError(err)
		endSpan(span, err)
		fields := jobFields(jobID)
		fields["task_status"] = string(status)
		r.observeOperation(ctx, startedAt, "task_status", err, fields)
	}()
	status, _, err = r.status(ctx, jobID)
	return status, err
}

func (r *Resource) status(ctx context.Context, jobID string) (TaskStatus, string, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return "", "", BadInputError("core: job id is required")
	}
	if status, reason, ok := r.knownTerminal(jobID); ok {
		return status, reason, nil
	}

	observed, err := r.client.Poll(ctx, jobID)
	if err != nil {
		return "", "", err
	}
	statusMap := r.client.StatusMap()
	status := statusMap.Map(observed.Native)
	if !statusMap.Known(observed.Native) {
		r.logWarn(ctx, "unknown vendor status treated as running", map[string]any{"job_id": jobID, "native_status": observed.Native})
	}
	if !status.Terminal() {
		if r.taskLedger != nil {
			if updateErr := r.taskLedger.UpdateTaskStatus(ctx, jobID, status); updateErr != nil && !errors.Is(updateErr, ErrTaskNotFound) {
				r.logError(ctx, "task ledger update failed", map[string]any{"job_id": jobID, "error": updateErr.Error()})
			}
		}
		return status, observed.Reason, nil
	}

	r.mu.Lock()
	if previous, ok := r.terminal[jobID]; ok {
		r.mu.Unlock()
		return previous, r.reasons[jobID], nil
	}
	r.terminal[jobID] = status
	reason := strings.TrimSpace(observed.Reason)
	if reason != "" {
		r.reasons[jobID] = reason
	}
	r.mu.Unlock()

	if r.taskLedger != nil {
		if forgetErr := r.taskLedger.ForgetTask(ctx, jobID); forgetErr != nil {
			r.logError(ctx, "task ledger forget failed", map[string]any{"job_id": jobID, "error": forgetErr.Error()})
		}
	}
	return status, reason, nil
}

func (r *Resource) knownTerminal(jobID string) (TaskStatus, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status, ok := r.terminal[jobID]
	if !ok {
		return "", "", false
	}
	return status, r.reasons[jobID], true
}

// TaskStop requests cancellation. Stopping a job already known to be
// terminal is a no-op.
func (r *Resource) TaskStop(ctx context.Context, jobID string) (err error) {
	startedAt := r.clock.Now()
	ctx, span := r.startSpan(ctx, "task_stop", jobFields(jobID))
	defer func() {
		err = r.mapError(err)
		endSpan(span, err)
		r.observeOperation(ctx, startedAt, "task_stop", err, jobFields(jobID))
	}()

	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return BadInputError("core: job id is required")
	}
	if _, _, ok := r.knownTerminal(jobID); ok {
		return nil
	}

	cancelErr := r.client.Cancel(ctx, jobID)
	if cancelErr == nil {
		return nil
	}
	if IsKind(cancelErr, ErrorAuthRejected) || IsKind(cancelErr, ErrorAuthExpired) || IsKind(cancelErr, ErrorTransport) {
		return cancelErr
	}
	// Vendors refuse to cancel finished jobs with assorted statuses; a job
	// that turns out terminal makes the refusal a no-op.
	status, _, statusErr := r.status(ctx, jobID)
	if statusErr == nil && status.Terminal() {
		return nil
	}
	return cancelErr
}

// TaskResult returns the output of a completed job. It never waits: a job
// that has not finished fails with QRMI_RESULT_NOT_READY.
func (r *Resource) TaskResult(ctx context.Context, jobID string) (result TaskResult, err error) {
	startedAt := r.clock.Now()
	ctx, span := r.startSpan(ctx, "task_result", jobFields(jobID))
	defer func() {
		err = r.mapError(err)
		endSpan(span, err)
		r.observeOperation(ctx, startedAt, "task_result", err, jobFields(jobID))
	}()

	jobID = strings.TrimSpace(jobID)
	r.mu.Lock()
	cached, ok := r.results[jobID]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	status, reason, err := r.status(ctx, jobID)
	if err != nil {
		return TaskResult{}, err
	}
	switch status {
	case TaskStatusCompleted:
	case TaskStatusFailed:
		return TaskResult{}, JobFailedError(jobID, reason)
	case TaskStatusCancelled:
		return TaskResult{}, JobFailedError(jobID, "cancelled")
	default:
		return TaskResult{}, ResultNotReadyError(jobID, status)
	}

	result, err = r.client.FetchResult(ctx, jobID)
	if err != nil {
		return TaskResult{}, err
	}
	r.mu.Lock()
	r.results[jobID] = result
	r.mu.Unlock()
	return result, nil
}

func (r *Resource) TaskLogs(ctx context.Context, jobID string) (logs string, err error) {
	startedAt := r.clock.Now()
	ctx, span := r.startSpan(ctx, "task_logs", jobFields(jobID))
	defer func() {
		err = r.mapError(err)
		endSpan(span, err)
		r.observeOperation(ctx, startedAt, "task_logs", err, jobFields(jobID))
	}()
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return "", BadInputError("core: job id is required")
	}
	return r.client.Logs(ctx, jobID)
}

// Metadata describes the resource. Vendor keys come first; resource_name
// and resource_type are always present.
func (r *Resource) Metadata() map[string]string {
	out := copyStringMap(r.client.Metadata())
	if out == nil {
		out = map[string]string{}
	}
	out["resource_name"] = r.name
	out["resource_type"] = string(r.resourceType)
	return out
}

// Close releases a lock still held by this handle.
func (r *Resource) Close(ctx context.Context) error {
	lock, ok := r.HeldLock()
	if !ok {
		return nil
	}
	return r.Release(ctx, lock)
}

func (r *Resource) unavailable(message string) error {
	return ResourceUnavailableError("core: "+message, map[string]any{
		"resource":      r.name,
		"resource_type": string(r.resourceType),
	})
}

func (r *Resource) mapError(err error) error {
	if err == nil {
		return nil
	}
	if r.errorMapper == nil {
		return err
	}
	mapped := r.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
