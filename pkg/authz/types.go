package authz

import (
	"context"
	"errors"
	"strings"
)

// Tuple is the atomic unit of the relationship-based authorization store:
// a (user, relation, object) triple with set semantics.
type Tuple struct {
	User     string `json:"user"`
	Relation string `json:"relation"`
	Object   string `json:"object"`
}

// Managed roles are the mutually-exclusive organizational relations this
// service synchronizes. At most one of them may exist per (user,
// organization) pair at a settled state; the Synchronizer is the sole
// mechanism upholding that.
const (
	RoleAdmin      = "admin"
	RoleMember     = "member"
	RoleLockedUser = "locked_user"
	RoleBannedUser = "banned_user"
)

// ManagedRoles enumerates the managed role relations
var ManagedRoles = []string{RoleAdmin, RoleMember, RoleLockedUser, RoleBannedUser}

// IsManagedRole reports whether relation is one of the managed roles
func IsManagedRole(relation string) bool {
	for _, role := range ManagedRoles {
		if relation == role {
			return true
		}
	}
	return false
}

// UserRef returns the typed user identifier for an ID, passing through
// identifiers that are already typed.
func UserRef(id string) string {
	if strings.Contains(id, ":") {
		return id
	}
	return "user:" + id
}

// OrganizationRef returns the typed organization identifier for an ID,
// passing through identifiers that are already typed.
func OrganizationRef(id string) string {
	if strings.Contains(id, ":") {
		return id
	}
	return "organization:" + id
}

// ErrEmptyWrite indicates a write batch with neither writes nor deletes
var ErrEmptyWrite = errors.New("write request must contain writes or deletes")

// WriteOutcome distinguishes a write that changed the store from one the
// upstream rejected as redundant because the target state already held.
type WriteOutcome int

const (
	// WriteApplied means the batch was accepted and applied
	WriteApplied WriteOutcome = iota
	// WriteAlreadySatisfied means the upstream reported invalid input
	// (tuple to write exists, or tuple to delete is absent), which this
	// service treats as success: the target state is already achieved.
	WriteAlreadySatisfied
)

func (o WriteOutcome) String() string {
	if o == WriteAlreadySatisfied {
		return "already_satisfied"
	}
	return "applied"
}

// Service is the authorization-store surface consumed by the synchronizer
// and the HTTP handlers.
type Service interface {
	Check(ctx context.Context, user, relation, object string) (bool, error)
	ReadRelations(ctx context.Context, user, object string) ([]Tuple, error)
	Write(ctx context.Context, writes, deletes []Tuple) (WriteOutcome, error)
}
