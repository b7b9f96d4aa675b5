package identity

import (
	"context"
	"errors"
)

// ErrConfig indicates a required configuration value is absent. Surfaces as
// a 500 at the HTTP boundary.
var ErrConfig = errors.New("required configuration value is not set")

// Organization is a tenant boundary in the identity provider
type Organization struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// ConnectionInfo describes the login method behind an enabled connection
type ConnectionInfo struct {
	Name     string `json:"name,omitempty"`
	Strategy string `json:"strategy,omitempty"`
}

// ConnectionRef is a connection enabled on an organization
type ConnectionRef struct {
	ConnectionID string         `json:"connection_id"`
	ShowAsButton bool           `json:"show_as_button"`
	Connection   ConnectionInfo `json:"connection,omitempty"`
}

// Identity is one login identity attached to a user
type Identity struct {
	Connection string `json:"connection"`
	Provider   string `json:"provider,omitempty"`
	UserID     string `json:"user_id,omitempty"`
}

// User is an identity-provider user
type User struct {
	UserID     string     `json:"user_id"`
	Email      string     `json:"email"`
	Identities []Identity `json:"identities,omitempty"`
}

// Invitation is a pending organization invitation
type Invitation struct {
	ID            string `json:"id"`
	InvitationURL string `json:"invitation_url"`
}

// Service is the identity-management surface the rest of the service
// consumes. Lookups return nil (not an error) when nothing matches.
type Service interface {
	OrganizationByName(ctx context.Context, name string) (*Organization, error)
	OrganizationConnections(ctx context.Context, orgID string) ([]ConnectionRef, error)
	InternalAdminConnection(ctx context.Context, orgID string) (*ConnectionRef, error)
	CreateOrganization(ctx context.Context, code, displayName string) (*Organization, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, email, password string) (*User, error)
	AddConnectionToOrganization(ctx context.Context, orgID, connectionID string, showAsButton bool) error
	AddMemberToOrganization(ctx context.Context, orgID, userID string) error
	AssignRolesToMember(ctx context.Context, orgID, userID string, roles []string) error
	CreateOrganizationInvitation(ctx context.Context, orgID, email string) (*Invitation, error)
}
