package interfaces_test

import (
	"github.com/giygas/druginteractions-api/data"
	"github.com/giygas/druginteractions-api/health"
	"github.com/giygas/druginteractions-api/interfaces"
	"github.com/giygas/druginteractions-api/scheduler"
	"github.com/giygas/druginteractions-api/store"
	"github.com/giygas/druginteractions-api/validation"
)

// Compile-time checks that the concrete types satisfy their contracts
var (
	_ interfaces.Store          = (*store.Store)(nil)
	_ interfaces.StatsProvider  = (*data.StatsContainer)(nil)
	_ interfaces.HealthChecker  = (*health.HealthCheckerImpl)(nil)
	_ interfaces.InputValidator = (*validation.DataValidatorImpl)(nil)
	_ interfaces.Scheduler      = (*scheduler.Scheduler)(nil)
)
