package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/loginlab/loginlab/pkg/config"
	"github.com/loginlab/loginlab/pkg/tokencache"
	"github.com/loginlab/loginlab/pkg/upstream"
)

type staticSource struct{}

func (staticSource) Token(ctx context.Context) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "mgmt-token", Expiry: time.Now().Add(time.Hour)}, nil
}

func testGateway(t *testing.T, cfg config.Auth0Config, handler http.Handler) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tokens := tokencache.New("auth0-mgmt", staticSource{})
	client := upstream.NewClient("auth0-mgmt", srv.URL, tokens, srv.Client(), nil)
	return NewGateway(client, cfg)
}

func defaultCfg() config.Auth0Config {
	return config.Auth0Config{
		Domain:                    "tenant.example.auth0.com",
		ClientID:                  "spa-client",
		MgmtClientID:              "mgmt-client",
		MgmtClientSecret:          "mgmt-secret",
		DefaultConnectionID:       "con_default",
		DefaultConnectionName:     "Username-Password-Authentication",
		InternalAdminConnectionID: "con_internal",
		DefaultAdminRoles:         []string{"rol_admin"},
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "acme", Slugify("Acme"))
	assert.Equal(t, "acme-corp", Slugify("Acme Corp"))
	assert.Equal(t, "acme-corp", Slugify("  ACME   Corp  "))
	assert.Equal(t, "already-slugged", Slugify("already-slugged"))
}

func TestOrganizationByName(t *testing.T) {
	gw := testGateway(t, defaultCfg(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/organizations/name/acme", r.URL.Path)
		assert.Equal(t, "Bearer mgmt-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(Organization{ID: "org_1", Name: "acme", DisplayName: "Acme"})
	}))

	org, err := gw.OrganizationByName(context.Background(), "acme")
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, "org_1", org.ID)
	assert.Equal(t, "acme", org.Name)
}

func TestOrganizationByNameNotFound(t *testing.T) {
	gw := testGateway(t, defaultCfg(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	}))

	org, err := gw.OrganizationByName(context.Background(), "ghost")
	require.NoError(t, err, "a 404 lookup is a valid negative result")
	assert.Nil(t, org)
}

func TestCreateOrganizationSlugifiesCode(t *testing.T) {
	var created map[string]string
	gw := testGateway(t, defaultCfg(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		json.NewEncoder(w).Encode(Organization{ID: "org_new", Name: created["name"], DisplayName: created["display_name"]})
	}))

	org, err := gw.CreateOrganization(context.Background(), "Acme Corp", "Acme Corporation")
	require.NoError(t, err)
	assert.Equal(t, "acme-corp", created["name"])
	assert.Equal(t, "Acme Corporation", created["display_name"])
	assert.Equal(t, "org_new", org.ID)
}

func TestInternalAdminConnection(t *testing.T) {
	gw := testGateway(t, defaultCfg(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]ConnectionRef{
			{ConnectionID: "con_default", ShowAsButton: true, Connection: ConnectionInfo{Name: "Username-Password-Authentication", Strategy: "auth0"}},
			{ConnectionID: "con_internal", ShowAsButton: false, Connection: ConnectionInfo{Name: "internal-admins", Strategy: "auth0"}},
		})
	}))

	conn, err := gw.InternalAdminConnection(context.Background(), "org_1")
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, "con_internal", conn.ConnectionID)
	assert.False(t, conn.ShowAsButton)
}

func TestInternalAdminConnectionNotEnabled(t *testing.T) {
	gw := testGateway(t, defaultCfg(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]ConnectionRef{{ConnectionID: "con_default"}})
	}))

	conn, err := gw.InternalAdminConnection(context.Background(), "org_1")
	require.NoError(t, err)
	assert.Nil(t, conn)
}

func TestInternalAdminConnectionUnconfigured(t *testing.T) {
	cfg := defaultCfg()
	cfg.InternalAdminConnectionID = ""
	gw := testGateway(t, cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected when the connection ID is unconfigured")
	}))

	_, err := gw.InternalAdminConnection(context.Background(), "org_1")
	assert.ErrorIs(t, err, ErrConfig)
}

func TestFindUserByEmailFiltersByConnection(t *testing.T) {
	gw := testGateway(t, defaultCfg(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a@b.com", r.URL.Query().Get("email"))
		json.NewEncoder(w).Encode([]User{
			{UserID: "auth0|social", Email: "a@b.com", Identities: []Identity{{Connection: "google-oauth2"}}},
			{UserID: "auth0|db", Email: "a@b.com", Identities: []Identity{{Connection: "Username-Password-Authentication"}}},
		})
	}))

	user, err := gw.FindUserByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "auth0|db", user.UserID)
}

func TestFindUserByEmailOtherConnectionIsNotFound(t *testing.T) {
	gw := testGateway(t, defaultCfg(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]User{
			{UserID: "auth0|social", Email: "a@b.com", Identities: []Identity{{Connection: "google-oauth2"}}},
		})
	}))

	user, err := gw.FindUserByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Nil(t, user, "a user on a different connection must count as not found")
}

func TestAddConnectionToOrganizationNeverAssignsMembershipOnLogin(t *testing.T) {
	var payload map[string]interface{}
	gw := testGateway(t, defaultCfg(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusNoContent)
	}))

	err := gw.AddConnectionToOrganization(context.Background(), "org_1", "con_internal", false)
	require.NoError(t, err)
	assert.Equal(t, "con_internal", payload["connection_id"])
	assert.Equal(t, false, payload["assign_membership_on_login"])
	assert.Equal(t, false, payload["show_as_button"])
}

func TestAddConnectionToOrganizationAlreadyEnabledIsSuccess(t *testing.T) {
	gw := testGateway(t, defaultCfg(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"Connection con_internal is already enabled for organization org_1"}`))
	}))

	err := gw.AddConnectionToOrganization(context.Background(), "org_1", "con_internal", false)
	assert.NoError(t, err, "enabling an already-enabled connection must be replay-safe")
}

func TestAddConnectionToOrganizationSurfacesOtherFailures(t *testing.T) {
	gw := testGateway(t, defaultCfg(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"connection not found"}`))
	}))

	err := gw.AddConnectionToOrganization(context.Background(), "org_1", "con_missing", false)
	require.Error(t, err)
	ue, ok := upstream.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, ue.Status)
}

func TestCreateOrganizationInvitation(t *testing.T) {
	var payload map[string]interface{}
	gw := testGateway(t, defaultCfg(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/organizations/org_1/invitations", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		json.NewEncoder(w).Encode(Invitation{ID: "inv_1", InvitationURL: "https://tenant/invite?x=y"})
	}))

	inv, err := gw.CreateOrganizationInvitation(context.Background(), "org_1", "new@b.com")
	require.NoError(t, err)
	assert.Equal(t, "https://tenant/invite?x=y", inv.InvitationURL)
	assert.Equal(t, "spa-client", payload["client_id"])
	assert.Equal(t, []interface{}{"rol_admin"}, payload["roles"])
}

func TestUpstreamErrorIsSurfaced(t *testing.T) {
	gw := testGateway(t, defaultCfg(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"rate limited"}`))
	}))

	_, err := gw.CreateUser(context.Background(), "a@b.com", "hunter2!")
	require.Error(t, err)
	ue, ok := upstream.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, ue.Status)
}
