package sqlstore

import "github.com/goliatone/go-qrmi/core"

var (
	_ core.LockLedger = (*LockLedger)(nil)
	_ core.TaskLedger = (*TaskLedger)(nil)
)
