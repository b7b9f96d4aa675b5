package signup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loginlab/loginlab/pkg/config"
	"github.com/loginlab/loginlab/pkg/identity"
)

// mockIdentity is a func-field mock of identity.Service recording the
// calls the orchestrator makes.
type mockIdentity struct {
	orgByNameFunc      func(name string) (*identity.Organization, error)
	findUserFunc       func(email string) (*identity.User, error)
	createOrgFunc      func(code, displayName string) (*identity.Organization, error)
	createUserFunc     func(email, password string) (*identity.User, error)
	addConnectionCalls []addConnectionCall
	addMemberCalls     []string
	assignRolesCalls   [][]string
	createOrgCalls     int
}

type addConnectionCall struct {
	OrgID        string
	ConnectionID string
	ShowAsButton bool
}

func (m *mockIdentity) OrganizationByName(ctx context.Context, name string) (*identity.Organization, error) {
	if m.orgByNameFunc != nil {
		return m.orgByNameFunc(name)
	}
	return nil, nil
}

func (m *mockIdentity) OrganizationConnections(ctx context.Context, orgID string) ([]identity.ConnectionRef, error) {
	return nil, nil
}

func (m *mockIdentity) InternalAdminConnection(ctx context.Context, orgID string) (*identity.ConnectionRef, error) {
	return nil, nil
}

func (m *mockIdentity) CreateOrganization(ctx context.Context, code, displayName string) (*identity.Organization, error) {
	m.createOrgCalls++
	if m.createOrgFunc != nil {
		return m.createOrgFunc(code, displayName)
	}
	return &identity.Organization{ID: "org_new", Name: identity.Slugify(code), DisplayName: displayName}, nil
}

func (m *mockIdentity) FindUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	if m.findUserFunc != nil {
		return m.findUserFunc(email)
	}
	return nil, nil
}

func (m *mockIdentity) CreateUser(ctx context.Context, email, password string) (*identity.User, error) {
	if m.createUserFunc != nil {
		return m.createUserFunc(email, password)
	}
	return &identity.User{UserID: "auth0|new", Email: email}, nil
}

func (m *mockIdentity) AddConnectionToOrganization(ctx context.Context, orgID, connectionID string, showAsButton bool) error {
	m.addConnectionCalls = append(m.addConnectionCalls, addConnectionCall{orgID, connectionID, showAsButton})
	return nil
}

func (m *mockIdentity) AddMemberToOrganization(ctx context.Context, orgID, userID string) error {
	m.addMemberCalls = append(m.addMemberCalls, userID)
	return nil
}

func (m *mockIdentity) AssignRolesToMember(ctx context.Context, orgID, userID string, roles []string) error {
	m.assignRolesCalls = append(m.assignRolesCalls, roles)
	return nil
}

func (m *mockIdentity) CreateOrganizationInvitation(ctx context.Context, orgID, email string) (*identity.Invitation, error) {
	return &identity.Invitation{ID: "inv_1", InvitationURL: "https://x/invite"}, nil
}

func testCfg() config.Auth0Config {
	return config.Auth0Config{
		DefaultConnectionID:       "con_default",
		InternalAdminConnectionID: "con_internal",
		DefaultAdminRoles:         []string{"rol_admin"},
	}
}

func validRequest() Request {
	return Request{Email: "a@b.com", OrgName: "Acme", OrgCode: "acme", Password: "x"}
}

func TestSignUpProvisionsEverything(t *testing.T) {
	mock := &mockIdentity{}
	svc := NewService(mock, testCfg(), nil)

	result, err := svc.SignUp(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "org_new", result.OrganizationID)

	// Internal admin connection first (hidden), then the default one
	// (shown as a login button).
	require.Len(t, mock.addConnectionCalls, 2)
	assert.Equal(t, addConnectionCall{"org_new", "con_internal", false}, mock.addConnectionCalls[0])
	assert.Equal(t, addConnectionCall{"org_new", "con_default", true}, mock.addConnectionCalls[1])

	assert.Equal(t, []string{"auth0|new"}, mock.addMemberCalls)
	require.Len(t, mock.assignRolesCalls, 1)
	assert.Equal(t, []string{"rol_admin"}, mock.assignRolesCalls[0])
}

func TestSignUpRejectsMissingFields(t *testing.T) {
	svc := NewService(&mockIdentity{}, testCfg(), nil)

	for _, req := range []Request{
		{OrgName: "Acme", OrgCode: "acme", Password: "x"},
		{Email: "a@b.com", OrgCode: "acme", Password: "x"},
		{Email: "a@b.com", OrgName: "Acme", Password: "x"},
		{Email: "a@b.com", OrgName: "Acme", OrgCode: "acme"},
	} {
		_, err := svc.SignUp(context.Background(), req)
		assert.ErrorIs(t, err, ErrMissingField)
	}
}

func TestSignUpRejectsExistingOrgWithoutCreating(t *testing.T) {
	mock := &mockIdentity{
		orgByNameFunc: func(name string) (*identity.Organization, error) {
			return &identity.Organization{ID: "org_existing", Name: name}, nil
		},
	}
	svc := NewService(mock, testCfg(), nil)

	_, err := svc.SignUp(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrOrgExists)
	assert.Equal(t, 0, mock.createOrgCalls, "conflict must short-circuit before any provisioning")
}

func TestSignUpRejectsExistingUser(t *testing.T) {
	mock := &mockIdentity{
		findUserFunc: func(email string) (*identity.User, error) {
			return &identity.User{UserID: "auth0|existing", Email: email}, nil
		},
	}
	svc := NewService(mock, testCfg(), nil)

	_, err := svc.SignUp(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrUserExists)
	assert.Equal(t, 0, mock.createOrgCalls)
}

func TestSignUpSkipsUnconfiguredConnections(t *testing.T) {
	cfg := config.Auth0Config{DefaultAdminRoles: []string{"rol_admin"}}
	mock := &mockIdentity{}
	svc := NewService(mock, cfg, nil)

	_, err := svc.SignUp(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Empty(t, mock.addConnectionCalls)
}

func TestSignUpSkipsRoleAssignmentWithoutConfiguredRoles(t *testing.T) {
	cfg := config.Auth0Config{DefaultConnectionID: "con_default"}
	mock := &mockIdentity{}
	svc := NewService(mock, cfg, nil)

	_, err := svc.SignUp(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Empty(t, mock.assignRolesCalls)
}

func TestSignUpSurfacesMidSequenceFailureWithoutRollback(t *testing.T) {
	boom := errors.New("user creation failed")
	mock := &mockIdentity{
		createUserFunc: func(email, password string) (*identity.User, error) {
			return nil, boom
		},
	}
	svc := NewService(mock, testCfg(), nil)

	_, err := svc.SignUp(context.Background(), validRequest())
	assert.ErrorIs(t, err, boom)

	// The organization and its connections were already provisioned and
	// stay that way: no compensation in this workflow.
	assert.Equal(t, 1, mock.createOrgCalls)
	assert.Len(t, mock.addConnectionCalls, 2)
	assert.Empty(t, mock.addMemberCalls)
}
