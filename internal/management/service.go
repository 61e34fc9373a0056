package management

import (
	"context"
	"encoding/json"
	"strings"

	"sessionmgr/internal/constants"
	pkgerrors "sessionmgr/pkg/errors"
	"sessionmgr/pkg/models"
)

type service struct {
	repo                Repository
	versioningRepo      VersioningRepository
	configEventProducer *ConfigEventProducer
	auditEnabled        bool
}

type ServiceOption func(*service)

func WithVersioning(versioningRepo VersioningRepository) ServiceOption {
	return func(s *service) {
		s.versioningRepo = versioningRepo
		s.auditEnabled = true
	}
}

func WithConfigEvents(configEventProducer *ConfigEventProducer) ServiceOption {
	return func(s *service) {
		s.configEventProducer = configEventProducer
	}
}

func NewService(repo Repository, opts ...ServiceOption) Service {
	s := &service{
		repo: repo,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *service) CreateSessionRule(ctx context.Context, req CreateSessionRuleRequest) (*SessionRule, error) {
	if err := ValidateSessionRule(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	rule := &SessionRule{
		Name:        req.Name,
		Description: req.Description,
		Spec:        req.Spec,
		Priority:    req.Priority,
		Enabled:     getEnabledValue(req.Enabled),
		CreatedBy:   getChangedBy(ctx),
		UpdatedBy:   getChangedBy(ctx),
	}

	if err := s.repo.CreateSessionRule(ctx, rule); err != nil {
		if pkgerrors.IsConflict(err) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.createVersionAndAudit(ctx, rule, "create", nil)
	s.publishConfigEvent(ctx, models.ActionCreate, rule.ID)

	return copySessionRule(rule), nil
}

func (s *service) ListSessionRules(ctx context.Context) ([]SessionRule, error) {
	sessionRules, err := s.repo.ListSessionRules(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return sessionRules, nil
}

func (s *service) GetSessionRule(ctx context.Context, id string) (*SessionRule, error) {
	rule, err := s.repo.GetSessionRule(ctx, id)
	if err != nil {
		return nil, s.handleNotFoundError(err, id)
	}
	if rule == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return copySessionRule(rule), nil
}

func (s *service) UpdateSessionRule(ctx context.Context, id string, req UpdateSessionRuleRequest) (*SessionRule, error) {
	if err := ValidateUpdateSessionRule(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	rule, err := s.repo.GetSessionRule(ctx, id)
	if err != nil {
		return nil, s.handleNotFoundError(err, id)
	}
	if rule == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	oldValue, _ := ruleToMap(rule)
	updateSessionRuleFields(rule, req)
	rule.UpdatedBy = getChangedBy(ctx)

	if err := s.repo.UpdateSessionRule(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.createVersionAndAudit(ctx, rule, "update", oldValue)
	s.publishConfigEvent(ctx, models.ActionUpdate, rule.ID)

	return copySessionRule(rule), nil
}

func (s *service) DeleteSessionRule(ctx context.Context, id string) error {
	rule, err := s.repo.GetSessionRule(ctx, id)
	if err != nil {
		return s.handleNotFoundError(err, id)
	}
	if rule == nil {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	oldValue, _ := ruleToMap(rule)

	if err := s.repo.DeleteSessionRule(ctx, id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	if s.auditEnabled && s.versioningRepo != nil {
		_ = s.versioningRepo.CreateAuditLog(ctx, &AuditLog{
			RuleID:  id,
			Action:  "delete",
			Actor:   getChangedBy(ctx),
			Details: map[string]interface{}{"old_value": oldValue},
		})
	}

	s.publishConfigEvent(ctx, models.ActionDelete, id)
	return nil
}

func (s *service) GetRuleVersions(ctx context.Context, ruleID string) ([]RuleVersion, error) {
	if s.versioningRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "versioning not enabled")
	}
	versions, err := s.versioningRepo.GetVersions(ctx, ruleID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return versions, nil
}

func (s *service) GetAuditLogs(ctx context.Context, ruleID *string, limit int) ([]AuditLog, error) {
	if s.versioningRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "audit logging not enabled")
	}
	if limit <= 0 || limit > constants.MaxLimit {
		limit = constants.DefaultLimit
	}
	logs, err := s.versioningRepo.GetAuditLogs(ctx, ruleID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return logs, nil
}

func (s *service) handleNotFoundError(err error, id string) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "not found") {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
}

func (s *service) createVersionAndAudit(ctx context.Context, rule *SessionRule, action string, oldValue map[string]interface{}) {
	if !s.auditEnabled || s.versioningRepo == nil {
		return
	}

	version := 1
	if nextVersion, err := s.versioningRepo.GetNextVersion(ctx, rule.ID); err == nil {
		version = nextVersion
	}

	_ = s.versioningRepo.CreateVersion(ctx, &RuleVersion{
		RuleID:    rule.ID,
		Version:   version,
		Name:      rule.Name,
		Spec:      rule.Spec,
		Priority:  rule.Priority,
		Enabled:   rule.Enabled,
		ChangedBy: getChangedBy(ctx),
	})

	newValue, err := ruleToMap(rule)
	if err != nil {
		return
	}

	details := map[string]interface{}{"new_value": newValue}
	if oldValue != nil {
		details["old_value"] = oldValue
	}

	_ = s.versioningRepo.CreateAuditLog(ctx, &AuditLog{
		RuleID:  rule.ID,
		Action:  action,
		Actor:   getChangedBy(ctx),
		Details: details,
	})
}

func (s *service) publishConfigEvent(ctx context.Context, action, ruleID string) {
	if s.configEventProducer != nil {
		_ = s.configEventProducer.PublishSessionRuleEvent(ctx, action, ruleID, getChangedBy(ctx))
	}
}

func updateSessionRuleFields(rule *SessionRule, req UpdateSessionRuleRequest) {
	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.Spec != nil {
		rule.Spec = *req.Spec
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
}

func copySessionRule(rule *SessionRule) *SessionRule {
	copied := *rule
	return &copied
}

func ruleToMap(rule *SessionRule) (map[string]interface{}, error) {
	ruleData, err := json.Marshal(rule)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := json.Unmarshal(ruleData, &result); err != nil {
		return nil, err
	}
	return result, nil
}

type changedByKey struct{}

// WithChangedBy records the acting user for audit and event attribution.
func WithChangedBy(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, changedByKey{}, user)
}

func getChangedBy(ctx context.Context) string {
	if user, ok := ctx.Value(changedByKey{}).(string); ok && user != "" {
		return user
	}
	return "system"
}

func getEnabledValue(reqEnabled *bool) bool {
	if reqEnabled == nil {
		return true
	}
	return *reqEnabled
}
