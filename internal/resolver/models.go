package resolver

import (
	"encoding/json"
	"time"
)

// StoredRule is a session property rule as persisted: the match spec document
// plus placement metadata. Rules apply in ascending priority order, so a rule
// with a higher priority value wins conflicting properties.
type StoredRule struct {
	ID        string
	Name      string
	Spec      json.RawMessage
	Priority  int
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ResolveRequest struct {
	User               string   `json:"user" binding:"required"`
	Source             *string  `json:"source"`
	ClientTags         []string `json:"client_tags"`
	QueryType          *string  `json:"query_type"`
	ClientInfo         *string  `json:"client_info"`
	ResourceGroup      []string `json:"resource_group"`
	CoordinatorVersion string   `json:"coordinator_version"`
}

type ResolveResponse struct {
	SessionProperties map[string]string `json:"session_properties"`
	AppliedRules      []string          `json:"applied_rules"`
}
