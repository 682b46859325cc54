package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-qrmi/core"
)

var (
	_ gocmd.Querier[IsAccessibleMessage, bool]          = (*IsAccessibleQuery)(nil)
	_ gocmd.Querier[TargetMessage, core.Target]         = (*TargetQuery)(nil)
	_ gocmd.Querier[MetadataMessage, map[string]string] = (*MetadataQuery)(nil)
	_ gocmd.Querier[TaskStatusMessage, core.TaskStatus] = (*TaskStatusQuery)(nil)
	_ gocmd.Querier[TaskResultMessage, core.TaskResult] = (*TaskResultQuery)(nil)
	_ gocmd.Querier[TaskLogsMessage, string]            = (*TaskLogsQuery)(nil)

	_ ResourceReader = (*core.Resource)(nil)
)
