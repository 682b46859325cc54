package command

import (
	"strings"

	"github.com/goliatone/go-qrmi/core"
)

const (
	TypeAcquire   = "qrmi.command.resource.acquire"
	TypeRelease   = "qrmi.command.resource.release"
	TypeTaskStart = "qrmi.command.task.start"
	TypeTaskStop  = "qrmi.command.task.stop"
)

type AcquireMessage struct{}

func (AcquireMessage) Type() string { return TypeAcquire }

func (AcquireMessage) Validate() error { return nil }

type ReleaseMessage struct {
	Lock core.AcquisitionLock
}

func (ReleaseMessage) Type() string { return TypeRelease }

func (m ReleaseMessage) Validate() error {
	if strings.TrimSpace(m.Lock.Token) == "" {
		return commandValidationError("lock.token", "lock token is required")
	}
	return nil
}

type TaskStartMessage struct {
	Payload core.Payload
}

func (TaskStartMessage) Type() string { return TypeTaskStart }

func (m TaskStartMessage) Validate() error {
	if m.Payload == nil {
		return commandValidationError("payload", "payload is required")
	}
	return commandWrapValidation(m.Payload.Validate(), "command: invalid payload")
}

type TaskStopMessage struct {
	JobID string
}

func (TaskStopMessage) Type() string { return TypeTaskStop }

func (m TaskStopMessage) Validate() error {
	if strings.TrimSpace(m.JobID) == "" {
		return commandValidationError("job_id", "job id is required")
	}
	return nil
}
