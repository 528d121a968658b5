package thought

// RoleUpdate is an identity-provider event consumed by the Relocation
// Manager when a user's roles or department/project memberships change.
type RoleUpdate struct {
	UserID         string
	AddedRoles     []string
	RemovedRoles   []string
	NewDeptIDs     []string
	OldDeptIDs     []string
	NewProjectIDs  []string
	OldProjectIDs  []string
}

// SourceUpdated is a source-registry event consumed by the Relocation
// Manager's staleness listener.
type SourceUpdated struct {
	SourceURN string
}

// CacheHit is emitted to the cost accountant on EXACT_HIT, SEMANTIC_HINT,
// and ENTITY_HOP classifications; never on MISS.
type CacheHit struct {
	ThoughtID         string
	Strategy          Strategy
	EstimatedSavedUnits float64
}

// RelocationSummary reports the outcome of processing one RoleUpdate.
type RelocationSummary struct {
	UserID    string
	Retained  int
	Deleted   int
	ReTagged  int
}
