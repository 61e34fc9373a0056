// Package rules implements the per-rule session matcher: a compiled set of
// optional predicates plus the session property overrides applied when all of
// them hold.
package rules

import (
	"regexp"
	"strings"

	"sessionmgr/pkg/models"
	"sessionmgr/pkg/version"
)

// Rule is an immutable compiled match rule. It holds no mutable state, so a
// single Rule may be evaluated concurrently without synchronization.
type Rule struct {
	userRegex          *regexp.Regexp
	sourceRegex        *regexp.Regexp
	clientTags         map[string]struct{}
	queryType          *string
	clientInfoRegex    *regexp.Regexp
	resourceGroupRegex *regexp.Regexp

	overrideSessionProperties *bool
	sessionProperties         map[string]string

	minVersion *version.Version
	maxVersion *version.Version
}

// Evaluate checks every present predicate in fixed order, short-circuiting on
// the first failure. On a match it returns the rule's session properties; on
// no match it returns an empty map. The result is never nil, and a match with
// zero properties is indistinguishable from a miss.
func (r *Rule) Evaluate(ctx models.SessionContext, coordinatorVersion version.Version) map[string]string {
	if r.userRegex != nil && !r.userRegex.MatchString(ctx.User) {
		return map[string]string{}
	}

	if r.sourceRegex != nil && !r.sourceRegex.MatchString(ctx.SourceOrEmpty()) {
		return map[string]string{}
	}

	if len(r.clientTags) > 0 && !containsAllTags(ctx.ClientTags, r.clientTags) {
		return map[string]string{}
	}

	if r.queryType != nil && !strings.EqualFold(*r.queryType, ctx.QueryTypeOrEmpty()) {
		return map[string]string{}
	}

	if r.clientInfoRegex != nil && !r.clientInfoRegex.MatchString(ctx.ClientInfoOrEmpty()) {
		return map[string]string{}
	}

	if r.resourceGroupRegex != nil && !r.resourceGroupRegex.MatchString(ctx.ResourceGroupOrEmpty()) {
		return map[string]string{}
	}

	if r.minVersion != nil || r.maxVersion != nil {
		valid := true
		if r.maxVersion != nil {
			valid = coordinatorVersion.LessThanOrEqualTo(*r.maxVersion)
		}
		if r.minVersion != nil {
			valid = valid && coordinatorVersion.GreaterThanOrEqualTo(*r.minVersion)
		}
		if !valid {
			return map[string]string{}
		}
	}

	return r.SessionProperties()
}

// SessionProperties returns a copy of the rule's property overrides.
func (r *Rule) SessionProperties() map[string]string {
	properties := make(map[string]string, len(r.sessionProperties))
	for name, value := range r.sessionProperties {
		properties[name] = value
	}
	return properties
}

// OverrideSessionProperties reports the rule's pass-through override flag.
// The flag is informational for the caller; Evaluate does not consult it.
func (r *Rule) OverrideSessionProperties() (value bool, present bool) {
	if r.overrideSessionProperties == nil {
		return false, false
	}
	return *r.overrideSessionProperties, true
}

func containsAllTags(contextTags []string, required map[string]struct{}) bool {
	if len(required) > len(contextTags) {
		return false
	}
	present := make(map[string]struct{}, len(contextTags))
	for _, tag := range contextTags {
		present[tag] = struct{}{}
	}
	for tag := range required {
		if _, ok := present[tag]; !ok {
			return false
		}
	}
	return true
}
