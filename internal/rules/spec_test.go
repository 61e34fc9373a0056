package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionmgr/pkg/models"
	"sessionmgr/pkg/version"
)

func TestCompileRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{
			name: "bad user regex",
			spec: Spec{User: models.StringPtr("([")},
		},
		{
			name: "bad source regex",
			spec: Spec{Source: models.StringPtr("*web")},
		},
		{
			name: "bad client info regex",
			spec: Spec{ClientInfo: models.StringPtr("(?P<")},
		},
		{
			name: "bad resource group regex",
			spec: Spec{ResourceGroup: models.StringPtr("[z-a]")},
		},
		{
			name: "empty min version",
			spec: Spec{MinVersion: models.StringPtr("")},
		},
		{
			name: "empty max version",
			spec: Spec{MaxVersion: models.StringPtr("  ")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.spec.Compile()
			assert.Error(t, err)
		})
	}
}

func TestParseSpec(t *testing.T) {
	data := []byte(`{
		"user": "etl-.*",
		"clientTags": ["hipri", "etl"],
		"queryType": "SELECT",
		"group": "global\\..*",
		"minVersion": "0.200",
		"maxVersion": "0.250",
		"overrideSessionProperties": true,
		"sessionProperties": {"query_max_execution_time": "2h"}
	}`)

	rule, err := ParseSpec(data)
	require.NoError(t, err)

	ctx := models.SessionContext{
		User:       "etl-loader",
		ClientTags: []string{"etl", "hipri", "batch"},
		QueryType:  models.StringPtr("select"),
	}
	rg, err := models.NewResourceGroupID("global", "etl")
	require.NoError(t, err)
	ctx.ResourceGroup = rg

	result := rule.Evaluate(ctx, version.MustParse("0.210"))
	assert.Equal(t, map[string]string{"query_max_execution_time": "2h"}, result)

	value, present := rule.OverrideSessionProperties()
	assert.True(t, present)
	assert.True(t, value)
}

func TestParseSpecErrors(t *testing.T) {
	_, err := ParseSpec([]byte(`{"user": 42}`))
	assert.Error(t, err)

	_, err = ParseSpec([]byte(`{"user": "(("}`))
	assert.Error(t, err)

	_, err = ParseSpec([]byte(`not json`))
	assert.Error(t, err)
}

func TestCompiledRuleIsDetachedFromSpec(t *testing.T) {
	props := map[string]string{"k": "v"}
	tags := []string{"a"}
	spec := Spec{ClientTags: tags, SessionProperties: props}

	rule, err := spec.Compile()
	require.NoError(t, err)

	props["k"] = "mutated"
	tags[0] = "b"

	ctx := models.SessionContext{User: "u", ClientTags: []string{"a"}}
	assert.Equal(t, map[string]string{"k": "v"}, rule.Evaluate(ctx, anyVersion()))
}
