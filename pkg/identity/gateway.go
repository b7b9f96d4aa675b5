package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/loginlab/loginlab/pkg/config"
	"github.com/loginlab/loginlab/pkg/observability"
	"github.com/loginlab/loginlab/pkg/upstream"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Slugify turns an organization code into a provider-safe slug:
// lowercased, runs of whitespace collapsed to single hyphens.
func Slugify(code string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(code)), "-")
}

// Gateway wraps the identity provider's management REST API
type Gateway struct {
	client *upstream.Client
	cfg    config.Auth0Config
}

// NewGateway creates a Gateway over an authenticated upstream client rooted
// at the management API base path (https://<domain>/api/v2).
func NewGateway(client *upstream.Client, cfg config.Auth0Config) *Gateway {
	return &Gateway{client: client, cfg: cfg}
}

var _ Service = (*Gateway)(nil)

// OrganizationByName looks up an organization by its slug. Returns nil
// when no organization matches.
func (g *Gateway) OrganizationByName(ctx context.Context, name string) (*Organization, error) {
	var org Organization
	found, err := g.client.DoJSON(ctx, "get_organization_by_name", http.MethodGet,
		"/organizations/name/"+url.PathEscape(name), nil, &org)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &org, nil
}

// OrganizationConnections lists the connections enabled on an organization
func (g *Gateway) OrganizationConnections(ctx context.Context, orgID string) ([]ConnectionRef, error) {
	var connections []ConnectionRef
	found, err := g.client.DoJSON(ctx, "get_organization_connections", http.MethodGet,
		"/organizations/"+url.PathEscape(orgID)+"/enabled_connections", nil, &connections)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return connections, nil
}

// InternalAdminConnection returns the organization's enabled connection
// matching the configured internal-admin connection ID, or nil when that
// connection is not enabled on the organization.
func (g *Gateway) InternalAdminConnection(ctx context.Context, orgID string) (*ConnectionRef, error) {
	if g.cfg.InternalAdminConnectionID == "" {
		return nil, fmt.Errorf("%w: AUTH0_INTERNAL_ADMIN_CONNECTION_ID", ErrConfig)
	}

	connections, err := g.OrganizationConnections(ctx, orgID)
	if err != nil {
		return nil, err
	}
	for i := range connections {
		if connections[i].ConnectionID == g.cfg.InternalAdminConnectionID {
			return &connections[i], nil
		}
	}
	return nil, nil
}

// CreateOrganization creates an organization with a slugified name
func (g *Gateway) CreateOrganization(ctx context.Context, code, displayName string) (*Organization, error) {
	payload := map[string]string{
		"name":         Slugify(code),
		"display_name": displayName,
	}
	var org Organization
	if _, err := g.client.DoJSON(ctx, "create_organization", http.MethodPost,
		"/organizations", payload, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// FindUserByEmail looks up a user by email, scoped to the configured
// default connection: a user whose identities all live on other
// connections counts as not found.
func (g *Gateway) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	if g.cfg.DefaultConnectionName == "" {
		return nil, fmt.Errorf("%w: AUTH0_DEFAULT_CONNECTION_NAME", ErrConfig)
	}

	var users []User
	found, err := g.client.DoJSON(ctx, "find_user_by_email", http.MethodGet,
		"/users-by-email?email="+url.QueryEscape(email), nil, &users)
	if err != nil {
		return nil, err
	}
	if !found || len(users) == 0 {
		return nil, nil
	}

	for i := range users {
		for _, identity := range users[i].Identities {
			if identity.Connection == g.cfg.DefaultConnectionName {
				return &users[i], nil
			}
		}
	}
	return nil, nil
}

// CreateUser creates a user under the configured default connection
func (g *Gateway) CreateUser(ctx context.Context, email, password string) (*User, error) {
	if g.cfg.DefaultConnectionName == "" {
		return nil, fmt.Errorf("%w: AUTH0_DEFAULT_CONNECTION_NAME", ErrConfig)
	}

	payload := map[string]string{
		"email":      email,
		"password":   password,
		"connection": g.cfg.DefaultConnectionName,
	}
	var user User
	if _, err := g.client.DoJSON(ctx, "create_user", http.MethodPost, "/users", payload, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// AddConnectionToOrganization enables a connection on an organization.
// Membership is never assigned on login; the role synchronizer owns roles.
// A connection that is already enabled (409) counts as success, so the
// operation is safe to replay.
func (g *Gateway) AddConnectionToOrganization(ctx context.Context, orgID, connectionID string, showAsButton bool) error {
	payload := map[string]interface{}{
		"connection_id":              connectionID,
		"assign_membership_on_login": false,
		"show_as_button":             showAsButton,
	}
	resp, err := g.client.Do(ctx, "add_connection_to_organization", http.MethodPost,
		"/organizations/"+url.PathEscape(orgID)+"/enabled_connections", payload)
	if err != nil {
		return err
	}
	if resp.Status == http.StatusConflict {
		observability.FromContext(ctx).WithFields(map[string]interface{}{
			"org_id":        orgID,
			"connection_id": connectionID,
		}).Debug("connection already enabled on organization")
		return nil
	}
	if !resp.OK() {
		return g.client.ErrorFromResponse(resp)
	}
	return nil
}

// AddMemberToOrganization adds a user as an organization member
func (g *Gateway) AddMemberToOrganization(ctx context.Context, orgID, userID string) error {
	payload := map[string][]string{"members": {userID}}
	_, err := g.client.DoJSON(ctx, "add_members_to_organization", http.MethodPost,
		"/organizations/"+url.PathEscape(orgID)+"/members", payload, nil)
	return err
}

// AssignRolesToMember assigns identity-provider roles to an organization member
func (g *Gateway) AssignRolesToMember(ctx context.Context, orgID, userID string, roles []string) error {
	payload := map[string][]string{"roles": roles}
	_, err := g.client.DoJSON(ctx, "assign_roles_to_member", http.MethodPost,
		"/organizations/"+url.PathEscape(orgID)+"/members/"+url.PathEscape(userID)+"/roles", payload, nil)
	return err
}

// CreateOrganizationInvitation invites an email address into an
// organization, carrying the configured default admin roles.
func (g *Gateway) CreateOrganizationInvitation(ctx context.Context, orgID, email string) (*Invitation, error) {
	if g.cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: AUTH0_CLIENT_ID", ErrConfig)
	}

	roles := g.cfg.DefaultAdminRoles
	if roles == nil {
		roles = []string{}
	}
	payload := map[string]interface{}{
		"inviter":   map[string]string{"name": g.cfg.MgmtClientID},
		"invitee":   map[string]string{"email": email},
		"client_id": g.cfg.ClientID,
		"roles":     roles,
	}
	var invitation Invitation
	if _, err := g.client.DoJSON(ctx, "create_organization_invitation", http.MethodPost,
		"/organizations/"+url.PathEscape(orgID)+"/invitations", payload, &invitation); err != nil {
		return nil, err
	}
	return &invitation, nil
}
