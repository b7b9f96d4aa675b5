// Package identity wraps the identity provider's management API:
// organization lookup and creation, connection enablement, user lookup and
// creation, membership, role assignment and invitations.
package identity
