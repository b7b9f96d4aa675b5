package authz

import (
	"context"

	"github.com/loginlab/loginlab/pkg/observability"
)

// SyncOutcome describes what a synchronizer invocation did
type SyncOutcome string

const (
	// SyncApplied means a batched write converged the store on the role
	SyncApplied SyncOutcome = "applied"
	// SyncAlreadyConverged means the store already held exactly the
	// asserted role; no write was issued.
	SyncAlreadyConverged SyncOutcome = "already_converged"
	// SyncPreservedExisting means no role was asserted and an existing
	// managed role was left untouched.
	SyncPreservedExisting SyncOutcome = "preserved_existing"
)

// SyncResult reports the outcome and the role now in effect
type SyncResult struct {
	Outcome SyncOutcome `json:"outcome"`
	Role    string      `json:"role"`
}

// Synchronizer converges the tuple store to exactly one managed-role tuple
// per (user, organization) pair. It is designed to be re-invoked on every
// login: idempotent, and always re-deriving its delete set from a fresh
// read rather than from memory.
//
// The read-modify-write sequence is intentionally not guarded by a
// distributed lock. Concurrent logins for the same user can both observe
// the same stale read and both issue writes; every racer targets the same
// resulting tuple, and the store's invalid-input rejection of the loser is
// absorbed as WriteAlreadySatisfied. Accepted race, not a bug.
type Synchronizer struct {
	store   Service
	metrics *observability.Metrics
}

// NewSynchronizer creates a Synchronizer over an authorization store
func NewSynchronizer(store Service, metrics *observability.Metrics) *Synchronizer {
	return &Synchronizer{store: store, metrics: metrics}
}

// SyncRole converges the managed-role tuples for (userID, orgID) on
// assertedRole. An empty assertedRole means no claim was presented: an
// existing managed role is preserved, and only a missing one is defaulted
// to member. IDs may be bare or already typed ("user:<id>").
func (s *Synchronizer) SyncRole(ctx context.Context, userID, orgID, assertedRole string) (SyncResult, error) {
	user := UserRef(userID)
	object := OrganizationRef(orgID)
	logger := observability.FromContext(ctx).WithFields(map[string]interface{}{
		"user":   user,
		"object": object,
		"role":   assertedRole,
	})

	existing, err := s.store.ReadRelations(ctx, user, object)
	if err != nil {
		return SyncResult{}, err
	}

	held := managedSubset(existing)

	if assertedRole == "" {
		if len(held) > 0 {
			// Never downgrade or clear a role when no claim is asserted.
			logger.WithField("held", held[0].Relation).Debug("no role asserted, preserving existing role")
			return s.done(SyncResult{Outcome: SyncPreservedExisting, Role: held[0].Relation}), nil
		}

		outcome, err := s.store.Write(ctx, []Tuple{{User: user, Relation: RoleMember, Object: object}}, nil)
		if err != nil {
			return SyncResult{}, err
		}
		logger.WithField("write_outcome", outcome.String()).Info("defaulted user to member role")
		return s.done(SyncResult{Outcome: SyncApplied, Role: RoleMember}), nil
	}

	// Short-circuit when the state already matches: exactly one managed
	// tuple, equal to the asserted role. Avoids write churn under
	// frequent login events.
	if len(held) == 1 && held[0].Relation == assertedRole {
		logger.Debug("role already converged")
		return s.done(SyncResult{Outcome: SyncAlreadyConverged, Role: assertedRole}), nil
	}

	// One batch: delete every held managed role (all of them, even if the
	// at-most-one invariant was violated, which self-heals bad states)
	// and write the asserted role.
	writes := []Tuple{{User: user, Relation: assertedRole, Object: object}}
	outcome, err := s.store.Write(ctx, writes, held)
	if err != nil {
		return SyncResult{}, err
	}

	logger.WithFields(map[string]interface{}{
		"deleted":       len(held),
		"write_outcome": outcome.String(),
	}).Info("role synchronized")
	return s.done(SyncResult{Outcome: SyncApplied, Role: assertedRole}), nil
}

func (s *Synchronizer) done(result SyncResult) SyncResult {
	if s.metrics != nil {
		s.metrics.RoleSyncTotal.WithLabelValues(string(result.Outcome)).Inc()
	}
	return result
}

// managedSubset filters tuples down to managed-role relations
func managedSubset(tuples []Tuple) []Tuple {
	var held []Tuple
	for _, t := range tuples {
		if IsManagedRole(t.Relation) {
			held = append(held, t)
		}
	}
	return held
}
