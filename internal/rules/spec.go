package rules

import (
	"encoding/json"
	"fmt"
	"regexp"

	"sessionmgr/pkg/version"
)

// Spec is the serialized form of a match rule. Every predicate field is
// optional; an absent field leaves that predicate unconstrained, so the zero
// Spec matches every session.
type Spec struct {
	User                      *string           `json:"user,omitempty"`
	Source                    *string           `json:"source,omitempty"`
	ClientTags                []string          `json:"clientTags,omitempty"`
	QueryType                 *string           `json:"queryType,omitempty"`
	ResourceGroup             *string           `json:"group,omitempty"`
	ClientInfo                *string           `json:"clientInfo,omitempty"`
	OverrideSessionProperties *bool             `json:"overrideSessionProperties,omitempty"`
	SessionProperties         map[string]string `json:"sessionProperties,omitempty"`
	MinVersion                *string           `json:"minVersion,omitempty"`
	MaxVersion                *string           `json:"maxVersion,omitempty"`
}

// Compile validates the spec and builds an immutable Rule. All regex and
// version parsing happens here; Evaluate never fails at runtime.
func (s Spec) Compile() (*Rule, error) {
	r := &Rule{
		clientTags:        make(map[string]struct{}, len(s.ClientTags)),
		sessionProperties: make(map[string]string, len(s.SessionProperties)),
	}

	var err error
	if r.userRegex, err = compileFullMatch(s.User); err != nil {
		return nil, fmt.Errorf("user: %w", err)
	}
	if r.sourceRegex, err = compileFullMatch(s.Source); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if r.clientInfoRegex, err = compileFullMatch(s.ClientInfo); err != nil {
		return nil, fmt.Errorf("clientInfo: %w", err)
	}
	if r.resourceGroupRegex, err = compileFullMatch(s.ResourceGroup); err != nil {
		return nil, fmt.Errorf("group: %w", err)
	}

	for _, tag := range s.ClientTags {
		r.clientTags[tag] = struct{}{}
	}

	if s.QueryType != nil {
		queryType := *s.QueryType
		r.queryType = &queryType
	}

	if s.MinVersion != nil {
		v, err := version.Parse(*s.MinVersion)
		if err != nil {
			return nil, fmt.Errorf("minVersion: %w", err)
		}
		r.minVersion = &v
	}
	if s.MaxVersion != nil {
		v, err := version.Parse(*s.MaxVersion)
		if err != nil {
			return nil, fmt.Errorf("maxVersion: %w", err)
		}
		r.maxVersion = &v
	}

	if s.OverrideSessionProperties != nil {
		override := *s.OverrideSessionProperties
		r.overrideSessionProperties = &override
	}

	for name, value := range s.SessionProperties {
		r.sessionProperties[name] = value
	}

	return r, nil
}

// ParseSpec decodes and compiles a single JSON rule spec.
func ParseSpec(data []byte) (*Rule, error) {
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode rule spec: %w", err)
	}
	return spec.Compile()
}

// compileFullMatch anchors the pattern so the whole subject must match,
// regardless of whether the source carries its own anchors.
func compileFullMatch(pattern *string) (*regexp.Regexp, error) {
	if pattern == nil {
		return nil, nil
	}
	re, err := regexp.Compile(`\A(?:` + *pattern + `)\z`)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", *pattern, err)
	}
	return re, nil
}
