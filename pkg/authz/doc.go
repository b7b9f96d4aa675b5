// Package authz is the client and synchronizer for the external
// relationship-based authorization store: tuple checks, reads, batched
// transactional writes, and the role synchronizer that keeps each (user,
// organization) pair at exactly one managed role.
package authz
