package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ CredentialStore = (*MemoryCredentialStore)(nil)
	_ TokenAcquirer   = (*RefreshCoordinator)(nil)
	_ Teardowner      = (*SessionTeardown)(nil)
	_ Refresher       = RefresherFunc(nil)
	_ HTTPDoer        = DoerFunc(nil)
	_ HTTPDoer        = (*Client)(nil)
	_ MetricsRecorder = NopMetricsRecorder{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
