package integration

import (
	"time"

	"sessionmgr/internal/config"
	"sessionmgr/internal/constants"
	"sessionmgr/internal/logger"
	"sessionmgr/internal/management"
	"sessionmgr/internal/rules"
	"sessionmgr/pkg/models"
)

const (
	timestampDelay = 10 * time.Millisecond
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createTestResolverConfig() config.ResolverConfig {
	return config.ResolverConfig{
		CoordinatorVersion: "0.282",
		RuleSource:         constants.RuleSourcePostgres,
		Reload: config.ReloadConfig{
			IntervalSeconds: 60,
		},
	}
}

func createTestSessionRule(name string, spec rules.Spec, priority int, enabled bool) *management.SessionRule {
	return &management.SessionRule{
		Name:     name,
		Spec:     spec,
		Priority: priority,
		Enabled:  enabled,
	}
}

func createTestSessionContext(user string, tags ...string) models.SessionContext {
	return models.SessionContext{
		User:       user,
		ClientTags: tags,
	}
}
