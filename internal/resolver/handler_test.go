package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionmgr/internal/logger"
	"sessionmgr/internal/rules"
	"sessionmgr/pkg/models"
)

func setupHandlerTest(t *testing.T, stored ...StoredRule) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := newTestService(t, &fakeRepository{rules: stored})
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	router := gin.New()
	NewHandler(svc, logger.NopLogger()).RegisterRoutes(router)
	return router
}

func doResolve(router *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session-properties/resolve", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestResolveEndpoint(t *testing.T) {
	router := setupHandlerTest(t,
		storedRule(t, "rule-1", 0, rules.Spec{
			User:              strPtr("alice"),
			SessionProperties: map[string]string{"query_max_memory": "10GB"},
		}),
	)

	w := doResolve(router, `{"user": "alice"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"session_properties": {"query_max_memory": "10GB"},
		"applied_rules": ["rule-1"]
	}`, w.Body.String())
}

func TestResolveEndpointNoMatch(t *testing.T) {
	router := setupHandlerTest(t,
		storedRule(t, "rule-1", 0, rules.Spec{
			User:              strPtr("bob"),
			SessionProperties: map[string]string{"query_max_memory": "10GB"},
		}),
	)

	w := doResolve(router, `{"user": "alice"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"session_properties": {}, "applied_rules": []}`, w.Body.String())
}

func TestResolveEndpointRequiresUser(t *testing.T) {
	router := setupHandlerTest(t)

	w := doResolve(router, `{"source": "cli"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestResolveEndpointRejectsBadVersion(t *testing.T) {
	router := setupHandlerTest(t)

	w := doResolve(router, `{"user": "alice", "coordinator_version": "   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolveEndpointFullContext(t *testing.T) {
	router := setupHandlerTest(t,
		storedRule(t, "tagged-rule", 0, rules.Spec{
			ClientTags:        []string{"etl", "prod"},
			QueryType:         strPtr("INSERT"),
			SessionProperties: map[string]string{"writer_count": "8"},
		}),
	)

	w := doResolve(router, `{
		"user": "alice",
		"source": "airflow",
		"client_tags": ["prod", "etl", "nightly"],
		"query_type": "insert",
		"resource_group": ["global", "etl"]
	}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"session_properties": {"writer_count": "8"},
		"applied_rules": ["tagged-rule"]
	}`, w.Body.String())
}

func TestResolveEndpointVersionOverride(t *testing.T) {
	router := setupHandlerTest(t,
		storedRule(t, "legacy-rule", 0, rules.Spec{
			MaxVersion:        strPtr("0.200"),
			SessionProperties: map[string]string{"legacy_mode": "true"},
		}),
	)

	w := doResolve(router, `{"user": "alice", "coordinator_version": "0.150"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "legacy-rule")

	w = doResolve(router, `{"user": "alice"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "legacy-rule")
}

func TestConfigHandlerTriggersReload(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo)
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	repo.rules = []StoredRule{
		storedRule(t, "rule-1", 0, rules.Spec{
			SessionProperties: map[string]string{"spill_enabled": "true"},
		}),
	}

	handler := NewConfigHandler(svc, logger.NopLogger())
	err := handler.HandleConfigUpdateEvent(context.Background(), models.ConfigUpdateEvent{
		EventType:   models.EventTypeSessionRuleUpdated,
		ServiceType: models.ServiceTypeSession,
		Action:      models.ActionCreate,
		RuleID:      "rule-1",
	})
	require.NoError(t, err)

	resp, err := svc.Resolve(context.Background(),
		models.SessionContext{User: "anyone"}, svc.CoordinatorVersion())
	require.NoError(t, err)
	assert.Equal(t, []string{"rule-1"}, resp.AppliedRules)
}

func TestConfigHandlerIgnoresOtherServiceTypes(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo)
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	repo.rules = []StoredRule{
		storedRule(t, "rule-1", 0, rules.Spec{
			SessionProperties: map[string]string{"spill_enabled": "true"},
		}),
	}

	handler := NewConfigHandler(svc, logger.NopLogger())
	err := handler.HandleConfigUpdateEvent(context.Background(), models.ConfigUpdateEvent{
		EventType:   models.EventTypeSessionRuleUpdated,
		ServiceType: "unrelated",
		Action:      models.ActionCreate,
	})
	require.NoError(t, err)

	// No reload happened, so the new rule is not visible yet.
	resp, err := svc.Resolve(context.Background(),
		models.SessionContext{User: "anyone"}, svc.CoordinatorVersion())
	require.NoError(t, err)
	assert.Empty(t, resp.AppliedRules)
}
