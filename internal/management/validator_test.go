package management

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sessionmgr/internal/rules"
)

func strPtr(s string) *string {
	return &s
}

func TestValidateSessionRule(t *testing.T) {
	tests := []struct {
		name      string
		req       CreateSessionRuleRequest
		wantError bool
	}{
		{
			name: "valid rule with empty spec",
			req: CreateSessionRuleRequest{
				Name: "catch-all",
			},
			wantError: false,
		},
		{
			name: "valid rule with full spec",
			req: CreateSessionRuleRequest{
				Name: "etl-overrides",
				Spec: rules.Spec{
					User:              strPtr("etl-.*"),
					ClientTags:        []string{"prod"},
					MinVersion:        strPtr("0.200"),
					SessionProperties: map[string]string{"query_max_memory": "20GB"},
				},
			},
			wantError: false,
		},
		{
			name:      "missing name",
			req:       CreateSessionRuleRequest{},
			wantError: true,
		},
		{
			name: "malformed user regex",
			req: CreateSessionRuleRequest{
				Name: "broken",
				Spec: rules.Spec{User: strPtr("[unclosed")},
			},
			wantError: true,
		},
		{
			name: "malformed group regex",
			req: CreateSessionRuleRequest{
				Name: "broken",
				Spec: rules.Spec{ResourceGroup: strPtr("global\\.(")},
			},
			wantError: true,
		},
		{
			name: "unparsable min version",
			req: CreateSessionRuleRequest{
				Name: "broken",
				Spec: rules.Spec{MinVersion: strPtr("   ")},
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionRule(tt.req)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUpdateSessionRule(t *testing.T) {
	tests := []struct {
		name      string
		req       UpdateSessionRuleRequest
		wantError bool
	}{
		{
			name:      "empty update",
			req:       UpdateSessionRuleRequest{},
			wantError: false,
		},
		{
			name: "valid spec replacement",
			req: UpdateSessionRuleRequest{
				Spec: &rules.Spec{Source: strPtr("dashboard")},
			},
			wantError: false,
		},
		{
			name: "empty name",
			req: UpdateSessionRuleRequest{
				Name: strPtr(""),
			},
			wantError: true,
		},
		{
			name: "malformed spec",
			req: UpdateSessionRuleRequest{
				Spec: &rules.Spec{ClientInfo: strPtr("(")},
			},
			wantError: true,
		},
		{
			name: "unparsable max version",
			req: UpdateSessionRuleRequest{
				Spec: &rules.Spec{MaxVersion: strPtr("")},
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpdateSessionRule(tt.req)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
