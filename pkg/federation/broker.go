// Package federation compiles a caller's identity into the scope
// predicate that gates every read from the archive, and authorizes the
// scope a caller is allowed to write into. It is the only package that
// constructs these filters, and the Matchmaker's lookup path applies them
// to every candidate. The Thought Store's own Get and Scan (used by
// ingest, relocation and Engine.Load, and reachable through the exported
// Engine.Thoughts field) read without this filter.
package federation

import (
	"github.com/CoReason-AI/coreason-archive/pkg/thought"
)

// CanRead reports whether ctx is permitted to read t, per the five-clause
// scope predicate:
//
//	(t.scope = USER       ∧ t.owner_id = ctx.user_id)
//	∨ (t.scope = PROJECT    ∧ t.scope_id ∈ ctx.project_ids)
//	∨ (t.scope = DEPARTMENT ∧ t.scope_id ∈ ctx.dept_ids)
//	∨ (t.scope = CLIENT     ∧ t.scope_id ∈ ctx.client_ids)
//	∨ (t.scope = GLOBAL)
//	∧ (t.access_roles ⊆ ctx.roles)
//
// The access_roles clause gates the whole disjunction, not just GLOBAL:
// a thought scoped to a project the caller belongs to can still require
// roles the caller lacks.
func CanRead(ctx thought.UserContext, t *thought.CachedThought) bool {
	if !ctx.HasAllRoles(t.AccessRoles) {
		return false
	}

	switch t.Scope {
	case thought.ScopeUser:
		return t.OwnerID == ctx.UserID
	case thought.ScopeProject:
		return ctx.InProject(t.ScopeID)
	case thought.ScopeDepartment:
		return ctx.InDept(t.ScopeID)
	case thought.ScopeClient:
		return ctx.InClient(t.ScopeID)
	case thought.ScopeGlobal:
		return true
	default:
		return false
	}
}

// ScopeFilter is a compiled read predicate closed over one UserContext.
type ScopeFilter func(*thought.CachedThought) bool

// Compile returns a ScopeFilter closed over ctx, so callers that filter
// many candidates (the Matchmaker, Thought Store scans) do not re-derive
// ctx's scope memberships on every call.
func Compile(ctx thought.UserContext) ScopeFilter {
	return func(t *thought.CachedThought) bool {
		return CanRead(ctx, t)
	}
}

// WriteGlobalRole is the role a caller must hold to write a GLOBAL-scoped
// thought, since GLOBAL writes are visible to every caller in the
// archive regardless of their own scope memberships.
const WriteGlobalRole = "archive:write_global"

// AuthorizeWrite reports whether ctx may create a thought at the given
// scope and scope id. Every write path (Ingestion Pipeline step 1)
// consults the broker for this, even though only reads route through
// CanRead's filter predicate.
func AuthorizeWrite(ctx thought.UserContext, scope thought.Scope, scopeID string) error {
	if !scope.Valid() {
		return thought.WrapErr("AuthorizeWrite", thought.ErrInvalidThought)
	}

	var allowed bool
	switch scope {
	case thought.ScopeUser:
		allowed = scopeID == ctx.UserID
	case thought.ScopeProject:
		allowed = ctx.InProject(scopeID)
	case thought.ScopeDepartment:
		allowed = ctx.InDept(scopeID)
	case thought.ScopeClient:
		allowed = ctx.InClient(scopeID)
	case thought.ScopeGlobal:
		allowed = ctx.HasRole(WriteGlobalRole)
	}

	if !allowed {
		return thought.WrapErr("AuthorizeWrite", thought.ErrAccessDenied)
	}
	return nil
}
