package query

import "strings"

const (
	TypeIsAccessible = "qrmi.query.resource.accessible"
	TypeTarget       = "qrmi.query.resource.target"
	TypeMetadata     = "qrmi.query.resource.metadata"
	TypeTaskStatus   = "qrmi.query.task.status"
	TypeTaskResult   = "qrmi.query.task.result"
	TypeTaskLogs     = "qrmi.query.task.logs"
)

type IsAccessibleMessage struct{}

func (IsAccessibleMessage) Type() string { return TypeIsAccessible }

func (IsAccessibleMessage) Validate() error { return nil }

type TargetMessage struct{}

func (TargetMessage) Type() string { return TypeTarget }

func (TargetMessage) Validate() error { return nil }

type MetadataMessage struct{}

func (MetadataMessage) Type() string { return TypeMetadata }

func (MetadataMessage) Validate() error { return nil }

// JobMessage is shared by the per-job queries.
type JobMessage struct {
	JobID string
}

func (m JobMessage) Validate() error {
	if strings.TrimSpace(m.JobID) == "" {
		return queryValidationError("job_id", "job id is required")
	}
	return nil
}

type TaskStatusMessage struct{ JobMessage }

func (TaskStatusMessage) Type() string { return TypeTaskStatus }

type TaskResultMessage struct{ JobMessage }

func (TaskResultMessage) Type() string { return TypeTaskResult }

type TaskLogsMessage struct{ JobMessage }

func (TaskLogsMessage) Type() string { return TypeTaskLogs }
