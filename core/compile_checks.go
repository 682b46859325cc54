package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ LockLedger      = (*MemoryLockLedger)(nil)
	_ TaskLedger      = (*MemoryTaskLedger)(nil)
	_ ConfigProvider  = (*CfgxConfigProvider)(nil)
	_ RawConfigLoader = (*FileConfigLoader)(nil)
	_ OptionsResolver = GoOptionsResolver{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
