package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-qrmi/core"
)

// MutatingResource is the part of core.Resource that changes vendor state.
type MutatingResource interface {
	Acquire(ctx context.Context) (core.AcquisitionLock, error)
	Release(ctx context.Context, lock core.AcquisitionLock) error
	TaskStart(ctx context.Context, payload core.Payload) (string, error)
	TaskStop(ctx context.Context, jobID string) error
}

type AcquireCommand struct {
	resource MutatingResource
}

func NewAcquireCommand(resource MutatingResource) *AcquireCommand {
	return &AcquireCommand{resource: resource}
}

func (c *AcquireCommand) Execute(ctx context.Context, _ AcquireMessage) error {
	if c == nil || c.resource == nil {
		return commandDependencyError("command: acquire resource is required")
	}
	lock, err := c.resource.Acquire(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, lock)
	return nil
}

type ReleaseCommand struct {
	resource MutatingResource
}

func NewReleaseCommand(resource MutatingResource) *ReleaseCommand {
	return &ReleaseCommand{resource: resource}
}

func (c *ReleaseCommand) Execute(ctx context.Context, msg ReleaseMessage) error {
	if c == nil || c.resource == nil {
		return commandDependencyError("command: release resource is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.resource.Release(ctx, msg.Lock)
}

type TaskStartCommand struct {
	resource MutatingResource
}

func NewTaskStartCommand(resource MutatingResource) *TaskStartCommand {
	return &TaskStartCommand{resource: resource}
}

// Execute stores the job id in the result collector of ctx, when present.
func (c *TaskStartCommand) Execute(ctx context.Context, msg TaskStartMessage) error {
	if c == nil || c.resource == nil {
		return commandDependencyError("command: task start resource is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	jobID, err := c.resource.TaskStart(ctx, msg.Payload)
	if err != nil {
		return err
	}
	storeResult(ctx, jobID)
	return nil
}

type TaskStopCommand struct {
	resource MutatingResource
}

func NewTaskStopCommand(resource MutatingResource) *TaskStopCommand {
	return &TaskStopCommand{resource: resource}
}

func (c *TaskStopCommand) Execute(ctx context.Context, msg TaskStopMessage) error {
	if c == nil || c.resource == nil {
		return commandDependencyError("command: task stop resource is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.resource.TaskStop(ctx, msg.JobID)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
