package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// VendorClient is the single capability interface every vendor implements.
// Resource drives it; callers never use it directly.
type VendorClient interface {
	ResourceType() ResourceType
	ResourceName() string
	Accessible(ctx context.Context) (bool, error)
	Reserve(ctx context.Context) (VendorLock, error)
	Unreserve(ctx context.Context, lock VendorLock) error
	Submit(ctx context.Context, payload Payload) (string, error)
	Poll(ctx context.Context, jobID string) (VendorStatus, error)
	Cancel(ctx context.Context, jobID string) error
	FetchResult(ctx context.Context, jobID string) (TaskResult, error)
	Logs(ctx context.Context, jobID string) (string, error)
	Target(ctx context.Context) (Target, error)
	Metadata() map[string]string
	StatusMap() StatusMap
}

// TokenSource produces bearer tokens. force bypasses any cached token.
type TokenSource interface {
	Token(ctx context.Context, force bool) (AuthToken, error)
}

// TokenProvider is what authenticated transports consume: a currently valid
// token, and a forced refresh for the single 401 retry.
type TokenProvider interface {
	Current(ctx context.Context) (AuthToken, error)
	ForceRefresh(ctx context.Context) (AuthToken, error)
}

// LockLedger records which acquisition lock is active for a resource so a
// lock can be validated, and handed between processes of the same job.
type LockLedger interface {
	Claim(ctx context.Context, lock AcquisitionLock) error
	Active(ctx context.Context, resourceType ResourceType, resourceName string) (AcquisitionLock, error)
	Release(ctx context.Context, lock AcquisitionLock) error
}

// TaskLedger tracks in-flight tasks only; records are dropped once a task is
// observed in a terminal state.
type TaskLedger interface {
	RecordTask(ctx context.Context, record TaskRecord) error
	GetTask(ctx context.Context, jobID string) (TaskRecord, error)
	UpdateTaskStatus(ctx context.Context, jobID string, status TaskStatus) error
	ForgetTask(ctx context.Context, jobID string) error
}

// TargetCache memoizes near-static target descriptions.
type TargetCache interface {
	GetOrFetch(ctx context.Context, resourceType ResourceType, resourceName string, fetch func(context.Context) (Target, error)) (Target, error)
	Invalidate(ctx context.Context, resourceType ResourceType, resourceName string) error
}

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
