package ranker

import "github.com/CoReason-AI/coreason-archive/pkg/thought"

// ScopeDefaults maps a scope to the ttl_seconds new thoughts at that
// scope receive when the caller does not specify one explicitly.
type ScopeDefaults map[thought.Scope]int64

// DefaultScopeDefaults returns the archive's out-of-the-box per-scope
// ttl defaults: short-lived scratchpad scopes decay fast, GLOBAL facts
// decay slowly.
func DefaultScopeDefaults() ScopeDefaults {
	return ScopeDefaults{
		thought.ScopeUser:       30 * 60,         // 30 minutes
		thought.ScopeProject:    7 * 24 * 60 * 60,  // 7 days
		thought.ScopeDepartment: 30 * 24 * 60 * 60, // 30 days
		thought.ScopeClient:     30 * 24 * 60 * 60, // 30 days
		thought.ScopeGlobal:     365 * 24 * 60 * 60, // 1 year
	}
}

// TTLFor returns the configured default for scope, or a one-hour
// fallback if scope is unrecognized.
func (d ScopeDefaults) TTLFor(scope thought.Scope) int64 {
	if ttl, ok := d[scope]; ok {
		return ttl
	}
	return 60 * 60
}
