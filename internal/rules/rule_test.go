package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionmgr/pkg/models"
	"sessionmgr/pkg/version"
)

func compileSpec(t *testing.T, spec Spec) *Rule {
	t.Helper()
	rule, err := spec.Compile()
	require.NoError(t, err)
	return rule
}

func anyVersion() version.Version {
	return version.MustParse("0.282")
}

func TestEmptySpecMatchesEverything(t *testing.T) {
	rule := compileSpec(t, Spec{
		SessionProperties: map[string]string{"query_max_memory": "1GB"},
	})

	contexts := []models.SessionContext{
		{User: "alice"},
		{User: "bob", Source: models.StringPtr("jdbc#etl"), ClientTags: []string{"hipri"}},
		{},
	}

	for _, ctx := range contexts {
		result := rule.Evaluate(ctx, anyVersion())
		assert.Equal(t, map[string]string{"query_max_memory": "1GB"}, result)
	}
}

func TestUserPattern(t *testing.T) {
	rule := compileSpec(t, Spec{
		User:              models.StringPtr("^alice$"),
		SessionProperties: map[string]string{"query_max_memory": "1GB"},
	})

	matched := rule.Evaluate(models.SessionContext{User: "alice"}, anyVersion())
	assert.Equal(t, map[string]string{"query_max_memory": "1GB"}, matched)

	missed := rule.Evaluate(models.SessionContext{User: "bob"}, anyVersion())
	assert.Empty(t, missed)
	assert.NotNil(t, missed)
}

func TestPatternsRequireFullStringMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		user    string
		want    bool
	}{
		{name: "unanchored literal must consume whole string", pattern: "ali", user: "alice", want: false},
		{name: "unanchored prefix wildcard", pattern: "ali.*", user: "alice", want: true},
		{name: "explicit anchors still work", pattern: "^alice$", user: "alice", want: true},
		{name: "alternation is grouped before anchoring", pattern: "alice|bob", user: "bob", want: true},
		{name: "alternation does not leak anchors", pattern: "alice|bob", user: "bobby", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := compileSpec(t, Spec{
				User:              &tt.pattern,
				SessionProperties: map[string]string{"k": "v"},
			})
			result := rule.Evaluate(models.SessionContext{User: tt.user}, anyVersion())
			if tt.want {
				assert.Equal(t, map[string]string{"k": "v"}, result)
			} else {
				assert.Empty(t, result)
			}
		})
	}
}

func TestAbsentSourceMatchesAgainstEmptyString(t *testing.T) {
	webOnly := compileSpec(t, Spec{
		Source:            models.StringPtr("^web.*$"),
		SessionProperties: map[string]string{"k": "v"},
	})
	assert.Empty(t, webOnly.Evaluate(models.SessionContext{User: "alice"}, anyVersion()))

	emptyOK := compileSpec(t, Spec{
		Source:            models.StringPtr(".*"),
		SessionProperties: map[string]string{"k": "v"},
	})
	assert.Equal(t, map[string]string{"k": "v"},
		emptyOK.Evaluate(models.SessionContext{User: "alice"}, anyVersion()))
}

func TestClientTagsSuperset(t *testing.T) {
	rule := compileSpec(t, Spec{
		ClientTags:        []string{"a", "b"},
		SessionProperties: map[string]string{"k": "v"},
	})

	superset := models.SessionContext{User: "u", ClientTags: []string{"a", "b", "c"}}
	assert.Equal(t, map[string]string{"k": "v"}, rule.Evaluate(superset, anyVersion()))

	exact := models.SessionContext{User: "u", ClientTags: []string{"b", "a"}}
	assert.Equal(t, map[string]string{"k": "v"}, rule.Evaluate(exact, anyVersion()))

	subset := models.SessionContext{User: "u", ClientTags: []string{"a"}}
	assert.Empty(t, rule.Evaluate(subset, anyVersion()))

	none := models.SessionContext{User: "u"}
	assert.Empty(t, rule.Evaluate(none, anyVersion()))
}

func TestQueryTypeCaseInsensitive(t *testing.T) {
	rule := compileSpec(t, Spec{
		QueryType:         models.StringPtr("SELECT"),
		SessionProperties: map[string]string{"k": "v"},
	})

	lower := models.SessionContext{User: "u", QueryType: models.StringPtr("select")}
	assert.Equal(t, map[string]string{"k": "v"}, rule.Evaluate(lower, anyVersion()))

	other := models.SessionContext{User: "u", QueryType: models.StringPtr("INSERT")}
	assert.Empty(t, rule.Evaluate(other, anyVersion()))

	absent := models.SessionContext{User: "u"}
	assert.Empty(t, rule.Evaluate(absent, anyVersion()))
}

func TestClientInfoPattern(t *testing.T) {
	rule := compileSpec(t, Spec{
		ClientInfo:        models.StringPtr("airflow-.*"),
		SessionProperties: map[string]string{"k": "v"},
	})

	matched := models.SessionContext{User: "u", ClientInfo: models.StringPtr("airflow-dag-42")}
	assert.Equal(t, map[string]string{"k": "v"}, rule.Evaluate(matched, anyVersion()))

	assert.Empty(t, rule.Evaluate(models.SessionContext{User: "u"}, anyVersion()))
}

func TestResourceGroupPattern(t *testing.T) {
	rule := compileSpec(t, Spec{
		ResourceGroup:     models.StringPtr("global\\.adhoc\\..*"),
		SessionProperties: map[string]string{"k": "v"},
	})

	rg, err := models.NewResourceGroupID("global", "adhoc", "alice")
	require.NoError(t, err)
	matched := models.SessionContext{User: "u", ResourceGroup: rg}
	assert.Equal(t, map[string]string{"k": "v"}, rule.Evaluate(matched, anyVersion()))

	etl, err := models.NewResourceGroupID("global", "etl")
	require.NoError(t, err)
	assert.Empty(t, rule.Evaluate(models.SessionContext{User: "u", ResourceGroup: etl}, anyVersion()))

	assert.Empty(t, rule.Evaluate(models.SessionContext{User: "u"}, anyVersion()))
}

func TestVersionBounds(t *testing.T) {
	tests := []struct {
		name        string
		minVersion  *string
		maxVersion  *string
		coordinator string
		want        bool
	}{
		{name: "inside both bounds", minVersion: models.StringPtr("0.200"), maxVersion: models.StringPtr("0.250"), coordinator: "0.210", want: true},
		{name: "below min", minVersion: models.StringPtr("0.200"), maxVersion: models.StringPtr("0.250"), coordinator: "0.100", want: false},
		{name: "above max", minVersion: models.StringPtr("0.200"), maxVersion: models.StringPtr("0.250"), coordinator: "0.300", want: false},
		{name: "equal to min", minVersion: models.StringPtr("0.200"), coordinator: "0.200", want: true},
		{name: "equal to max", maxVersion: models.StringPtr("0.250"), coordinator: "0.250", want: true},
		{name: "only min, above", minVersion: models.StringPtr("0.200"), coordinator: "9.999", want: true},
		{name: "only max, below", maxVersion: models.StringPtr("0.250"), coordinator: "0.001", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := compileSpec(t, Spec{
				MinVersion:        tt.minVersion,
				MaxVersion:        tt.maxVersion,
				SessionProperties: map[string]string{"k": "v"},
			})
			result := rule.Evaluate(models.SessionContext{User: "u"}, version.MustParse(tt.coordinator))
			if tt.want {
				assert.Equal(t, map[string]string{"k": "v"}, result)
			} else {
				assert.Empty(t, result)
			}
		})
	}
}

func TestConcreteScenario(t *testing.T) {
	rule := compileSpec(t, Spec{
		User:              models.StringPtr("^alice$"),
		SessionProperties: map[string]string{"query_max_memory": "1GB"},
	})

	alice := models.SessionContext{User: "alice"}
	assert.Equal(t, map[string]string{"query_max_memory": "1GB"}, rule.Evaluate(alice, anyVersion()))

	bob := models.SessionContext{User: "bob"}
	assert.Equal(t, map[string]string{}, rule.Evaluate(bob, anyVersion()))
}

func TestEvaluateIsIdempotent(t *testing.T) {
	rule := compileSpec(t, Spec{
		User:              models.StringPtr("alice"),
		ClientTags:        []string{"hipri"},
		SessionProperties: map[string]string{"k": "v"},
	})
	ctx := models.SessionContext{User: "alice", ClientTags: []string{"hipri", "etl"}}

	first := rule.Evaluate(ctx, anyVersion())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, rule.Evaluate(ctx, anyVersion()))
	}
}

func TestMatchWithZeroPropertiesLooksLikeAMiss(t *testing.T) {
	rule := compileSpec(t, Spec{User: models.StringPtr("alice")})

	matched := rule.Evaluate(models.SessionContext{User: "alice"}, anyVersion())
	missed := rule.Evaluate(models.SessionContext{User: "bob"}, anyVersion())
	assert.Equal(t, matched, missed)
	assert.Empty(t, matched)
}

func TestReturnedPropertiesAreACopy(t *testing.T) {
	rule := compileSpec(t, Spec{
		SessionProperties: map[string]string{"k": "v"},
	})

	result := rule.Evaluate(models.SessionContext{User: "u"}, anyVersion())
	result["k"] = "mutated"
	result["extra"] = "x"

	again := rule.Evaluate(models.SessionContext{User: "u"}, anyVersion())
	assert.Equal(t, map[string]string{"k": "v"}, again)
}

func TestOverrideSessionPropertiesPassThrough(t *testing.T) {
	without := compileSpec(t, Spec{})
	_, present := without.OverrideSessionProperties()
	assert.False(t, present)

	override := true
	with := compileSpec(t, Spec{OverrideSessionProperties: &override})
	value, present := with.OverrideSessionProperties()
	assert.True(t, present)
	assert.True(t, value)
}
