package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SessionContext carries the read-only facts about an incoming query session
// that rules are matched against. Optional fields are nil when the client did
// not supply them.
type SessionContext struct {
	User          string           `json:"user"`
	Source        *string          `json:"source,omitempty"`
	ClientTags    []string         `json:"client_tags,omitempty"`
	QueryType     *string          `json:"query_type,omitempty"`
	ClientInfo    *string          `json:"client_info,omitempty"`
	ResourceGroup *ResourceGroupID `json:"resource_group,omitempty"`
}

// SourceOrEmpty returns the source, or "" when absent.
func (c SessionContext) SourceOrEmpty() string {
	if c.Source == nil {
		return ""
	}
	return *c.Source
}

// QueryTypeOrEmpty returns the query type, or "" when absent.
func (c SessionContext) QueryTypeOrEmpty() string {
	if c.QueryType == nil {
		return ""
	}
	return *c.QueryType
}

// ClientInfoOrEmpty returns the client info, or "" when absent.
func (c SessionContext) ClientInfoOrEmpty() string {
	if c.ClientInfo == nil {
		return ""
	}
	return *c.ClientInfo
}

// ResourceGroupOrEmpty returns the string form of the resource group
// identifier, or "" when absent.
func (c SessionContext) ResourceGroupOrEmpty() string {
	if c.ResourceGroup == nil {
		return ""
	}
	return c.ResourceGroup.String()
}

// ResourceGroupID identifies a resource group as an ordered path of segments,
// root first. Its string form joins segments with ".".
type ResourceGroupID struct {
	segments []string
}

func NewResourceGroupID(segments ...string) (*ResourceGroupID, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("resource group id requires at least one segment")
	}
	for i, s := range segments {
		if s == "" {
			return nil, fmt.Errorf("resource group segment %d is empty", i)
		}
	}
	copied := make([]string, len(segments))
	copy(copied, segments)
	return &ResourceGroupID{segments: copied}, nil
}

func (id *ResourceGroupID) Segments() []string {
	copied := make([]string, len(id.segments))
	copy(copied, id.segments)
	return copied
}

func (id *ResourceGroupID) String() string {
	return strings.Join(id.segments, ".")
}

func (id *ResourceGroupID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.segments)
}

func (id *ResourceGroupID) UnmarshalJSON(data []byte) error {
	var segments []string
	if err := json.Unmarshal(data, &segments); err != nil {
		return err
	}
	parsed, err := NewResourceGroupID(segments...)
	if err != nil {
		return err
	}
	*id = *parsed
	return nil
}

// StringPtr is a convenience for building contexts with optional fields.
func StringPtr(s string) *string {
	return &s
}
