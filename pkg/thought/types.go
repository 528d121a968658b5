// Package thought defines the domain entities shared across the archive's
// components: the cached cognitive state itself, the caller's identity
// context, and the capability contracts (Embedder, EntityExtractor) that
// the rest of the system is built against. It has no dependencies on the
// other archive packages so every component can import it without risk of
// an import cycle.
package thought

import (
	"fmt"
	"time"
)

// Scope is the hierarchical visibility domain of a CachedThought.
type Scope string

const (
	ScopeUser       Scope = "USER"
	ScopeProject    Scope = "PROJECT"
	ScopeDepartment Scope = "DEPARTMENT"
	ScopeClient     Scope = "CLIENT"
	ScopeGlobal     Scope = "GLOBAL"
)

// GlobalScopeID is the sentinel scope_id used for GLOBAL-scoped thoughts.
const GlobalScopeID = "*"

// Valid reports whether s is one of the five recognized scopes.
func (s Scope) Valid() bool {
	switch s {
	case ScopeUser, ScopeProject, ScopeDepartment, ScopeClient, ScopeGlobal:
		return true
	default:
		return false
	}
}

// CachedThought is the cached cognitive state asset: a prior agent
// computation's prompt, reasoning trace and final response, plus the
// metadata needed to retrieve, filter and decay it.
type CachedThought struct {
	ID             string    `json:"id"`
	Vector         []float32 `json:"vector"`
	Entities       []string  `json:"entities,omitempty"` // typed labels, e.g. "Project:Apollo"
	Scope          Scope     `json:"scope"`
	ScopeID        string    `json:"scope_id"`
	OwnerID        string    `json:"owner_id"`
	PromptText     string    `json:"prompt_text"`
	ReasoningTrace string    `json:"reasoning_trace"`
	FinalResponse  string    `json:"final_response"`
	SourceURNs     []string  `json:"source_urns,omitempty"`
	IsStale        bool      `json:"is_stale"`
	CreatedAt      time.Time `json:"created_at"`
	TTLSeconds     int64     `json:"ttl_seconds"`
	AccessRoles    []string  `json:"access_roles,omitempty"` // conjunctive: caller must hold all
}

// HasEntity reports whether the thought has been linked to the given
// "<Type>:<Name>" entity label.
func (t *CachedThought) HasEntity(label string) bool {
	for _, e := range t.Entities {
		if e == label {
			return true
		}
	}
	return false
}

// ThoughtNodeLabel returns this thought's node label in the Graph Index.
func ThoughtNodeLabel(id string) string {
	return fmt.Sprintf("Thought:%s", id)
}

// UserNodeLabel returns a user's node label in the Graph Index.
func UserNodeLabel(userID string) string {
	return fmt.Sprintf("User:%s", userID)
}

// ScopeNodeLabel returns a scope instance's node label in the Graph Index.
func ScopeNodeLabel(scope Scope, scopeID string) string {
	return fmt.Sprintf("%s:%s", scope, scopeID)
}

// UserContext is the ephemeral per-query caller identity used to compile
// the Federation Broker's scope filter and to authorize writes.
type UserContext struct {
	UserID          string
	Roles           []string
	DeptIDs         []string
	ProjectIDs      []string
	ClientIDs       []string
	ActiveProjectID string // empty means "no active project"
}

// HasRole reports whether ctx's role set contains role.
func (ctx UserContext) HasRole(role string) bool {
	for _, r := range ctx.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAllRoles reports whether ctx's role set is a superset of required.
func (ctx UserContext) HasAllRoles(required []string) bool {
	for _, r := range required {
		if !ctx.HasRole(r) {
			return false
		}
	}
	return true
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// InProject reports whether projectID is one of ctx's project memberships.
func (ctx UserContext) InProject(projectID string) bool { return contains(ctx.ProjectIDs, projectID) }

// InDept reports whether deptID is one of ctx's department memberships.
func (ctx UserContext) InDept(deptID string) bool { return contains(ctx.DeptIDs, deptID) }

// InClient reports whether clientID is one of ctx's client memberships.
func (ctx UserContext) InClient(clientID string) bool { return contains(ctx.ClientIDs, clientID) }
