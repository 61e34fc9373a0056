package resolver

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"sessionmgr/internal/config"
	"sessionmgr/internal/constants"
	"sessionmgr/internal/logger"
	"sessionmgr/internal/rules"
	"sessionmgr/pkg/metrics"
	"sessionmgr/pkg/models"
	"sessionmgr/pkg/tracing"
	"sessionmgr/pkg/version"
)

type compiledRule struct {
	id   string
	name string
	rule *rules.Rule
}

// Service answers session property lookups against the current rule set.
// Rules apply in order; a later match overrides properties set by an earlier
// one. The set is swapped atomically on reload, so in-flight resolutions keep
// the snapshot they started with.
type Service struct {
	repo               Repository
	rules              []compiledRule
	fingerprint        string
	rulesMu            sync.RWMutex
	resolverConfig     config.ResolverConfig
	coordinatorVersion version.Version
	cache              *Cache
	logger             logger.Logger
}

func NewService(repo Repository, cfg config.ResolverConfig, log logger.Logger) (*Service, error) {
	coordinatorVersion, err := version.Parse(cfg.CoordinatorVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid coordinator version %q: %w", cfg.CoordinatorVersion, err)
	}

	return &Service{
		repo:               repo,
		rules:              make([]compiledRule, 0),
		resolverConfig:     cfg,
		coordinatorVersion: coordinatorVersion,
		logger:             log,
	}, nil
}

// SetCache attaches an optional resolve result cache.
func (s *Service) SetCache(cache *Cache) {
	s.cache = cache
}

func (s *Service) CoordinatorVersion() version.Version {
	return s.coordinatorVersion
}

// Resolve evaluates every active rule against the session context and merges
// the properties of the matching ones, in rule order.
func (s *Service) Resolve(ctx context.Context, sessionCtx models.SessionContext, coordinatorVersion version.Version) (*ResolveResponse, error) {
	ctx, span := tracing.GetTracer("resolver-service").Start(ctx, "resolver.resolve")
	defer span.End()

	start := time.Now()
	ruleSet, fingerprint := s.getActiveRules()

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, fingerprint, sessionCtx, coordinatorVersion); ok {
			s.recordMetrics(time.Since(start), len(cached.AppliedRules) > 0)
			return cached, nil
		}
	}

	properties := make(map[string]string)
	appliedRules := make([]string, 0, len(ruleSet))

	for _, cr := range ruleSet {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		matched := cr.rule.Evaluate(sessionCtx, coordinatorVersion)
		if len(matched) == 0 {
			metrics.IncRuleMatch(cr.id, "miss")
			continue
		}

		metrics.IncRuleMatch(cr.id, "match")
		for k, v := range matched {
			properties[k] = v
		}
		appliedRules = append(appliedRules, cr.id)

		s.logger.DebugwCtx(ctx, "Rule matched session",
			"rule_id", cr.id,
			"rule_name", cr.name,
			"properties", len(matched),
		)
	}

	resp := &ResolveResponse{
		SessionProperties: properties,
		AppliedRules:      appliedRules,
	}

	if s.cache != nil {
		s.cache.Set(ctx, fingerprint, sessionCtx, coordinatorVersion, resp)
	}

	s.recordMetrics(time.Since(start), len(appliedRules) > 0)
	return resp, nil
}

func (s *Service) getActiveRules() ([]compiledRule, string) {
	s.rulesMu.RLock()
	defer s.rulesMu.RUnlock()

	ruleSet := make([]compiledRule, len(s.rules))
	copy(ruleSet, s.rules)
	return ruleSet, s.fingerprint
}

func (s *Service) recordMetrics(duration time.Duration, matched bool) {
	status := "matched"
	if !matched {
		status = "unmatched"
	}
	metrics.ResolutionsTotal.WithLabelValues(status).Inc()
	metrics.ObserveResolutionDuration(duration, status)
}

// ReloadRules replaces the active rule set from the repository. Periodic
// reloads are jittered so a fleet of resolvers does not hit the store in
// lockstep; pass skipJitter for event-driven reloads.
func (s *Service) ReloadRules(ctx context.Context, skipJitter ...bool) error {
	shouldSkipJitter := len(skipJitter) > 0 && skipJitter[0]

	if err := s.applyJitter(ctx, shouldSkipJitter); err != nil {
		return err
	}

	compiled, fingerprint, err := s.loadRules(ctx)
	if err != nil {
		metrics.ResolverReloadsTotal.WithLabelValues("error").Inc()
		return err
	}

	s.updateRules(ctx, compiled, fingerprint)
	metrics.ResolverReloadsTotal.WithLabelValues("success").Inc()
	return nil
}

func (s *Service) applyJitter(ctx context.Context, skipJitter bool) error {
	if skipJitter || s.resolverConfig.Reload.JitterMaxMilliseconds == 0 {
		return nil
	}

	jitter := time.Duration(rand.Intn(s.resolverConfig.Reload.JitterMaxMilliseconds)) * time.Millisecond
	s.logger.DebugwCtx(ctx, "Reload scheduled with jitter",
		"jitter_ms", jitter.Milliseconds(),
	)

	select {
	case <-time.After(jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) loadRules(ctx context.Context) ([]compiledRule, string, error) {
	s.logger.DebugwCtx(ctx, "Loading session rules")

	stored, err := s.repo.GetActiveRules(ctx)
	if err != nil {
		return nil, "", err
	}

	compiled := make([]compiledRule, 0, len(stored))
	for _, sr := range stored {
		rule, err := rules.ParseSpec(sr.Spec)
		if err != nil {
			// A broken rule must not take down the whole set; the write path
			// validates, so this only happens on hand-edited sources.
			s.logger.ErrorwCtx(ctx, "Skipping rule that failed to compile",
				"rule_id", sr.ID,
				"rule_name", sr.Name,
				"error", err,
			)
			continue
		}
		compiled = append(compiled, compiledRule{
			id:   sr.ID,
			name: sr.Name,
			rule: rule,
		})
	}

	return compiled, rulesetFingerprint(stored), nil
}

func (s *Service) updateRules(ctx context.Context, compiled []compiledRule, fingerprint string) {
	s.rulesMu.Lock()
	s.rules = compiled
	s.fingerprint = fingerprint
	s.rulesMu.Unlock()

	metrics.SetResolverActiveRules(len(compiled))
	s.logger.InfowCtx(ctx, "Successfully reloaded session rules",
		"rules_count", len(compiled),
	)
}

func (s *Service) StartReloader(ctx context.Context) error {
	intervalSeconds := s.resolverConfig.Reload.IntervalSeconds
	if intervalSeconds <= 0 {
		intervalSeconds = constants.DefaultReloadIntervalSeconds
	}
	ticker := time.NewTicker(time.Duration(intervalSeconds) * time.Second)
	defer ticker.Stop()

	if err := s.ReloadRules(ctx, true); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to reload session rules",
			"error", err,
		)
	}

	for {
		select {
		case <-ticker.C:
			if err := s.ReloadRules(ctx); err != nil {
				s.logger.ErrorwCtx(ctx, "Failed to reload session rules",
					"error", err,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
