package management

import (
	"fmt"
)

// ValidateSessionRule checks a create request. The spec must compile — regex
// sources and version bounds are rejected here so a broken rule can never
// reach the resolver. An empty spec is legal; it matches every session.
func ValidateSessionRule(req CreateSessionRuleRequest) error {
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}

	if _, err := req.Spec.Compile(); err != nil {
		return fmt.Errorf("invalid match spec: %w", err)
	}

	return nil
}

func ValidateUpdateSessionRule(req UpdateSessionRuleRequest) error {
	if req.Name != nil && *req.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	if req.Spec != nil {
		if _, err := req.Spec.Compile(); err != nil {
			return fmt.Errorf("invalid match spec: %w", err)
		}
	}

	return nil
}
