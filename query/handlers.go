package query

import (
	"context"

	"github.com/goliatone/go-qrmi/core"
)

// ResourceReader is the read-only part of core.Resource.
type ResourceReader interface {
	IsAccessible(ctx context.Context) (bool, error)
	Target(ctx context.Context) (core.Target, error)
	Metadata() map[string]string
	TaskStatus(ctx context.Context, jobID string) (core.TaskStatus, error)
	TaskResult(ctx context.Context, jobID string) (core.TaskResult, error)
	TaskLogs(ctx context.Context, jobID string) (string, error)
}

type IsAccessibleQuery struct {
	reader ResourceReader
}

func NewIsAccessibleQuery(reader ResourceReader) *IsAccessibleQuery {
	return &IsAccessibleQuery{reader: reader}
}

func (q *IsAccessibleQuery) Query(ctx context.Context, _ IsAccessibleMessage) (bool, error) {
	if q == nil || q.reader == nil {
		return false, queryDependencyError("query: resource reader is required")
	}
	return q.reader.IsAccessible(ctx)
}

type TargetQuery struct {
	reader ResourceReader
}

func NewTargetQuery(reader ResourceReader) *TargetQuery {
	return &TargetQuery{reader: reader}
}

func (q *TargetQuery) Query(ctx context.Context, _ TargetMessage) (core.Target, error) {
	if q == nil || q.reader == nil {
		return core.Target{}, queryDependencyError("query: resource reader is required")
	}
	return q.reader.Target(ctx)
}

type MetadataQuery struct {
	reader ResourceReader
}

func NewMetadataQuery(reader ResourceReader) *MetadataQuery {
	return &MetadataQuery{reader: reader}
}

func (q *MetadataQuery) Query(_ context.Context, _ MetadataMessage) (map[string]string, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: resource reader is required")
	}
	return q.reader.Metadata(), nil
}

type TaskStatusQuery struct {
	reader ResourceReader
}

func NewTaskStatusQuery(reader ResourceReader) *TaskStatusQuery {
	return &TaskStatusQuery{reader: reader}
}

func (q *TaskStatusQuery) Query(ctx context.Context, msg TaskStatusMessage) (core.TaskStatus, error) {
	if q == nil || q.reader == nil {
		return "", queryDependencyError("query: resource reader is required")
	}
	if err := msg.Validate(); err != nil {
		return "", err
	}
	return q.reader.TaskStatus(ctx, msg.JobID)
}

type TaskResultQuery struct {
	reader ResourceReader
}

func NewTaskResultQuery(reader ResourceReader) *TaskResultQuery {
	return &TaskResultQuery{reader: reader}
}

func (q *TaskResultQuery) Query(ctx context.Context, msg TaskResultMessage) (core.TaskResult, error) {
	if q == nil || q.reader == nil {
		return core.TaskResult{}, queryDependencyError("query: resource reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.TaskResult{}, err
	}
	return q.reader.TaskResult(ctx, msg.JobID)
}

type TaskLogsQuery struct {
	reader ResourceReader
}

func NewTaskLogsQuery(reader ResourceReader) *TaskLogsQuery {
	return &TaskLogsQuery{reader: reader}
}

func (q *TaskLogsQuery) Query(ctx context.Context, msg TaskLogsMessage) (string, error) {
	if q == nil || q.reader == nil {
		return "", queryDependencyError("query: resource reader is required")
	}
	if err := msg.Validate(); err != nil {
		return "", err
	}
	return q.reader.TaskLogs(ctx, msg.JobID)
}
