package management

import (
	"context"
)

type Service interface {
	CreateSessionRule(ctx context.Context, req CreateSessionRuleRequest) (*SessionRule, error)
	ListSessionRules(ctx context.Context) ([]SessionRule, error)
	GetSessionRule(ctx context.Context, id string) (*SessionRule, error)
	UpdateSessionRule(ctx context.Context, id string, req UpdateSessionRuleRequest) (*SessionRule, error)
	DeleteSessionRule(ctx context.Context, id string) error
	GetRuleVersions(ctx context.Context, ruleID string) ([]RuleVersion, error)
	GetAuditLogs(ctx context.Context, ruleID *string, limit int) ([]AuditLog, error)
}
