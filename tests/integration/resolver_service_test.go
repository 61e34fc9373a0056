package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionmgr/internal/management"
	"sessionmgr/internal/resolver"
	"sessionmgr/internal/rules"
	"sessionmgr/pkg/models"
)

func TestResolverService_Resolve_Match(t *testing.T) {
	infra := SetupTestInfra(t)

	ctx := context.Background()
	log := createTestLogger()

	mgmtRepo := management.NewRepository(infra.PostgresDB)
	rule := createTestSessionRule("etl_overrides", rules.Spec{
		User:              models.StringPtr("etl-.*"),
		SessionProperties: map[string]string{"query_max_memory": "20GB"},
	}, 10, true)
	err := mgmtRepo.CreateSessionRule(ctx, rule)
	require.NoError(t, err)

	resolverRepo := resolver.NewRepository(infra.PostgresDB)
	svc, err := resolver.NewService(resolverRepo, createTestResolverConfig(), log)
	require.NoError(t, err)

	err = svc.ReloadRules(ctx, true)
	require.NoError(t, err)

	resp, err := svc.Resolve(ctx, createTestSessionContext("etl-nightly"), svc.CoordinatorVersion())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"query_max_memory": "20GB"}, resp.SessionProperties)
	assert.Equal(t, []string{rule.ID}, resp.AppliedRules)
}

func TestResolverService_Resolve_NoMatch(t *testing.T) {
	infra := SetupTestInfra(t)

	ctx := context.Background()
	log := createTestLogger()

	mgmtRepo := management.NewRepository(infra.PostgresDB)
	rule := createTestSessionRule("etl_overrides", rules.Spec{
		User:              models.StringPtr("etl-.*"),
		SessionProperties: map[string]string{"query_max_memory": "20GB"},
	}, 10, true)
	err := mgmtRepo.CreateSessionRule(ctx, rule)
	require.NoError(t, err)

	resolverRepo := resolver.NewRepository(infra.PostgresDB)
	svc, err := resolver.NewService(resolverRepo, createTestResolverConfig(), log)
	require.NoError(t, err)

	err = svc.ReloadRules(ctx, true)
	require.NoError(t, err)

	resp, err := svc.Resolve(ctx, createTestSessionContext("alice"), svc.CoordinatorVersion())
	require.NoError(t, err)
	assert.Empty(t, resp.SessionProperties)
	assert.NotNil(t, resp.SessionProperties)
	assert.Empty(t, resp.AppliedRules)
}

func TestResolverService_Resolve_DisabledRuleIgnored(t *testing.T) {
	infra := SetupTestInfra(t)

	ctx := context.Background()
	log := createTestLogger()

	mgmtRepo := management.NewRepository(infra.PostgresDB)
	rule := createTestSessionRule("disabled_rule", rules.Spec{
		SessionProperties: map[string]string{"query_max_memory": "20GB"},
	}, 10, false)
	err := mgmtRepo.CreateSessionRule(ctx, rule)
	require.NoError(t, err)

	resolverRepo := resolver.NewRepository(infra.PostgresDB)
	svc, err := resolver.NewService(resolverRepo, createTestResolverConfig(), log)
	require.NoError(t, err)

	err = svc.ReloadRules(ctx, true)
	require.NoError(t, err)

	resp, err := svc.Resolve(ctx, createTestSessionContext("alice"), svc.CoordinatorVersion())
	require.NoError(t, err)
	assert.Empty(t, resp.SessionProperties)
	assert.Empty(t, resp.AppliedRules)
}

func TestResolverService_Resolve_MergeOrder(t *testing.T) {
	infra := SetupTestInfra(t)

	ctx := context.Background()
	log := createTestLogger()

	mgmtRepo := management.NewRepository(infra.PostgresDB)
	sessionRules := []*management.SessionRule{
		createTestSessionRule("defaults", rules.Spec{
			SessionProperties: map[string]string{"query_max_memory": "5GB", "execution_policy": "phased"},
		}, 10, true),
		createTestSessionRule("etl_overrides", rules.Spec{
			User:              models.StringPtr("etl-.*"),
			SessionProperties: map[string]string{"query_max_memory": "20GB"},
		}, 20, true),
	}

	for _, rule := range sessionRules {
		err := mgmtRepo.CreateSessionRule(ctx, rule)
		require.NoError(t, err)
		time.Sleep(timestampDelay)
	}

	resolverRepo := resolver.NewRepository(infra.PostgresDB)
	svc, err := resolver.NewService(resolverRepo, createTestResolverConfig(), log)
	require.NoError(t, err)

	err = svc.ReloadRules(ctx, true)
	require.NoError(t, err)

	resp, err := svc.Resolve(ctx, createTestSessionContext("etl-nightly"), svc.CoordinatorVersion())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"query_max_memory": "20GB",
		"execution_policy": "phased",
	}, resp.SessionProperties)
	assert.Equal(t, []string{sessionRules[0].ID, sessionRules[1].ID}, resp.AppliedRules)
}

func TestResolverService_ReloadRules(t *testing.T) {
	infra := SetupTestInfra(t)

	ctx := context.Background()
	log := createTestLogger()

	resolverRepo := resolver.NewRepository(infra.PostgresDB)
	svc, err := resolver.NewService(resolverRepo, createTestResolverConfig(), log)
	require.NoError(t, err)

	err = svc.ReloadRules(ctx, true)
	require.NoError(t, err)

	mgmtRepo := management.NewRepository(infra.PostgresDB)
	rule := createTestSessionRule("late_arrival", rules.Spec{
		SessionProperties: map[string]string{"query_priority": "1"},
	}, 10, true)
	err = mgmtRepo.CreateSessionRule(ctx, rule)
	require.NoError(t, err)

	err = svc.ReloadRules(ctx, true)
	require.NoError(t, err)

	resp, err := svc.Resolve(ctx, createTestSessionContext("anyone"), svc.CoordinatorVersion())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"query_priority": "1"}, resp.SessionProperties)
	assert.Equal(t, []string{rule.ID}, resp.AppliedRules)
}

func TestResolverService_ResolveCache(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, true)

	ctx := context.Background()
	log := createTestLogger()

	mgmtRepo := management.NewRepository(infra.PostgresDB)
	rule := createTestSessionRule("cached_rule", rules.Spec{
		User:              models.StringPtr("etl-.*"),
		SessionProperties: map[string]string{"query_max_memory": "20GB"},
	}, 10, true)
	err := mgmtRepo.CreateSessionRule(ctx, rule)
	require.NoError(t, err)

	resolverRepo := resolver.NewRepository(infra.PostgresDB)
	svc, err := resolver.NewService(resolverRepo, createTestResolverConfig(), log)
	require.NoError(t, err)
	svc.SetCache(resolver.NewCache(infra.RedisClient, 30*time.Second, log))

	err = svc.ReloadRules(ctx, true)
	require.NoError(t, err)

	first, err := svc.Resolve(ctx, createTestSessionContext("etl-nightly"), svc.CoordinatorVersion())
	require.NoError(t, err)

	keys, err := infra.RedisClient.Keys(ctx, "resolve:*").Result()
	require.NoError(t, err)
	assert.NotEmpty(t, keys)

	second, err := svc.Resolve(ctx, createTestSessionContext("etl-nightly"), svc.CoordinatorVersion())
	require.NoError(t, err)
	assert.Equal(t, first.SessionProperties, second.SessionProperties)
	assert.Equal(t, first.AppliedRules, second.AppliedRules)
}
