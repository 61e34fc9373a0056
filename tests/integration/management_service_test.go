package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionmgr/internal/management"
	"sessionmgr/internal/rules"
	"sessionmgr/pkg/errors"
	"sessionmgr/pkg/models"
)

func TestManagementService_VersioningAndAudit(t *testing.T) {
	infra := SetupTestInfra(t)

	repo := management.NewRepository(infra.PostgresDB)
	versioningRepo := management.NewVersioningRepository(infra.PostgresDB)
	svc := management.NewService(repo, management.WithVersioning(versioningRepo))

	ctx := management.WithChangedBy(context.Background(), "admin")

	created, err := svc.CreateSessionRule(ctx, management.CreateSessionRuleRequest{
		Name: "tracked",
		Spec: rules.Spec{
			User:              models.StringPtr("etl-.*"),
			SessionProperties: map[string]string{"query_max_memory": "20GB"},
		},
		Priority: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "admin", created.CreatedBy)

	_, err = svc.UpdateSessionRule(ctx, created.ID, management.UpdateSessionRuleRequest{
		Priority: intPtr(20),
	})
	require.NoError(t, err)

	// Versions and audit logs come back newest first.
	versions, err := svc.GetRuleVersions(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Version)
	assert.Equal(t, 1, versions[1].Version)
	assert.Equal(t, 20, versions[0].Priority)
	assert.Equal(t, "admin", versions[0].ChangedBy)

	logs, err := svc.GetAuditLogs(ctx, &created.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "update", logs[0].Action)
	assert.Equal(t, "create", logs[1].Action)
}

func TestManagementService_DeleteKeepsAuditTrail(t *testing.T) {
	infra := SetupTestInfra(t)

	repo := management.NewRepository(infra.PostgresDB)
	versioningRepo := management.NewVersioningRepository(infra.PostgresDB)
	svc := management.NewService(repo, management.WithVersioning(versioningRepo))

	ctx := context.Background()

	created, err := svc.CreateSessionRule(ctx, management.CreateSessionRuleRequest{Name: "doomed"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteSessionRule(ctx, created.ID))

	_, err = svc.GetSessionRule(ctx, created.ID)
	assert.True(t, errors.IsNotFound(err))

	logs, err := svc.GetAuditLogs(ctx, &created.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "delete", logs[0].Action)
}

func TestManagementService_DuplicateNameConflict(t *testing.T) {
	infra := SetupTestInfra(t)

	repo := management.NewRepository(infra.PostgresDB)
	svc := management.NewService(repo)

	ctx := context.Background()

	_, err := svc.CreateSessionRule(ctx, management.CreateSessionRuleRequest{Name: "dupe"})
	require.NoError(t, err)

	_, err = svc.CreateSessionRule(ctx, management.CreateSessionRuleRequest{Name: "dupe"})
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func intPtr(i int) *int {
	return &i
}
