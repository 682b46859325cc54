package command

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-qrmi/core"
)

var (
	_ gocmd.Commander[AcquireMessage]   = (*AcquireCommand)(nil)
	_ gocmd.Commander[ReleaseMessage]   = (*ReleaseCommand)(nil)
	_ gocmd.Commander[TaskStartMessage] = (*TaskStartCommand)(nil)
	_ gocmd.Commander[TaskStopMessage]  = (*TaskStopCommand)(nil)

	_ MutatingResource = (*core.Resource)(nil)
)
