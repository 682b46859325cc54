package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type stubVendorClient struct {
	name         string
	resourceType ResourceType
	statusMap    StatusMap

	accessibleFn  func(context.Context) (bool, error)
	reserveFn     func(context.Context) (VendorLock, error)
	unreserveFn   func(context.Context, VendorLock) error
	submitFn      func(context.Context, Payload) (string, error)
	pollFn        func(context.Context, string) (VendorStatus, error)
	cancelFn      func(context.Context, string) error
	fetchResultFn func(context.Context, string) (TaskResult, error)
	logsFn        func(context.Context, string) (string, error)
	targetFn      func(context.Context) (Target, error)

	mu    sync.Mutex
	calls map[string]int
}

func newStubVendorClient(name string) *stubVendorClient {
	return &stubVendorClient{
		name:         name,
		resourceType: ResourceTypeMock,
		statusMap: NewStatusMap("stub", map[string]TaskStatus{
			"QUEUED":    TaskStatusQueued,
			"RUNNING":   TaskStatusRunning,
			"DONE":      TaskStatusCompleted,
			"ERROR":     TaskStatusFailed,
			"CANCELLED": TaskStatusCancelled,
		}),
		calls: map[string]int{},
	}
}

func (c *stubVendorClient) count(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[name]++
}

func (c *stubVendorClient) callCount(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func (c *stubVendorClient) ResourceType() ResourceType { return c.resourceType }
func (c *stubVendorClient) ResourceName() string       { return c.name }
func (c *stubVendorClient) StatusMap() StatusMap       { return c.statusMap }

func (c *stubVendorClient) Metadata() map[string]string {
	return map[string]string{"vendor": "stub"}
}

func (c *stubVendorClient) Accessible(ctx context.Context) (bool, error) {
	c.count("accessible")
	if c.accessibleFn != nil {
		return c.accessibleFn(ctx)
	}
	return true, nil
}

func (c *stubVendorClient) Reserve(ctx context.Context) (VendorLock, error) {
	c.count("reserve")
	if c.reserveFn != nil {
		return c.reserveFn(ctx)
	}
	return VendorLock{Token: fmt.Sprintf("lock-%d", c.callCount("reserve"))}, nil
}

func (c *stubVendorClient) Unreserve(ctx context.Context, lock VendorLock) error {
	c.count("unreserve")
	if c.unreserveFn != nil {
		return c.unreserveFn(ctx, lock)
	}
	return nil
}

func (c *stubVendorClient) Submit(ctx context.Context, payload Payload) (string, error) {
	c.count("submit")
	if c.submitFn != nil {
		return c.submitFn(ctx, payload)
	}
	return "J1", nil
}

func (c *stubVendorClient) Poll(ctx context.Context, jobID string) (VendorStatus, error) {
	c.count("poll")
	if c.pollFn != nil {
		return c.pollFn(ctx, jobID)
	}
	return VendorStatus{Native: "QUEUED"}, nil
}

func (c *stubVendorClient) Cancel(ctx context.Context, jobID string) error {
	c.count("cancel")
	if c.cancelFn != nil {
		return c.cancelFn(ctx, jobID)
	}
	return nil
}

func (c *stubVendorClient) FetchResult(ctx context.Context, jobID string) (TaskResult, error) {
	c.count("fetch_result")
	if c.fetchResultFn != nil {
		return c.fetchResultFn(ctx, jobID)
	}
	return TaskResult{Value: `{"0":1}`}, nil
}

func (c *stubVendorClient) Logs(ctx context.Context, jobID string) (string, error) {
	c.count("logs")
	if c.logsFn != nil {
		return c.logsFn(ctx, jobID)
	}
	return "", nil
}

func (c *stubVendorClient) Target(ctx context.Context) (Target, error) {
	c.count("target")
	if c.targetFn != nil {
		return c.targetFn(ctx)
	}
	return Target{Value: `{"name":"stub"}`}, nil
}

// scriptedStatuses returns a poll func that walks natives and then repeats the last one.
func scriptedStatuses(natives ...string) func(context.Context, string) (VendorStatus, error) {
	var mu sync.Mutex
	index := 0
	return func(context.Context, string) (VendorStatus, error) {
		mu.Lock()
		defer mu.Unlock()
		native := natives[index]
		if index < len(natives)-1 {
			index++
		}
		return VendorStatus{Native: native}, nil
	}
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) sleepCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sleeps)
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

func newTestResource(client VendorClient, opts ...Option) (*Resource, error) {
	base := []Option{
		WithClock(newFakeClock()),
		WithEnvironment(func(string) (string, bool) { return "", false }),
	}
	return NewResource(Config{}, client, append(base, opts...)...)
}

func ptrTime(value time.Time) *time.Time {
	utc := value.UTC()
	return &utc
}
