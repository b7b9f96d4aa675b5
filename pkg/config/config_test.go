package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "3001"},
		Auth0: Auth0Config{
			Domain:           "tenant.auth0.com",
			MgmtClientID:     "mgmt_id",
			MgmtClientSecret: "mgmt_secret",
		},
		FGA: FGAConfig{
			APIHost:      "api.fga.example",
			Issuer:       "auth.fga.example",
			StoreID:      "store_1",
			ClientID:     "fga_id",
			ClientSecret: "fga_secret",
		},
	}
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRequiresAuth0Credentials(t *testing.T) {
	cfg := validConfig()
	cfg.Auth0.MgmtClientSecret = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresFGAStore(t *testing.T) {
	cfg := validConfig()
	cfg.FGA.StoreID = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateBoardBackends(t *testing.T) {
	cfg := validConfig()
	cfg.Board = BoardConfig{Enabled: true, Backend: "firebase"}
	assert.Error(t, cfg.Validate(), "firebase backend needs a database URL")

	cfg.Board.FirebaseDatabaseURL = "https://demo.firebaseio.com"
	assert.NoError(t, cfg.Validate())

	cfg.Board = BoardConfig{Enabled: true, Backend: "redis", RedisURL: "redis://localhost:6379"}
	assert.NoError(t, cfg.Validate())

	cfg.Board.Backend = "dynamo"
	assert.Error(t, cfg.Validate())
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	t.Setenv("AUTH0_DOMAIN", "tenant.auth0.com")
	t.Setenv("AUTH0_MGMT_CLIENT_ID", "mgmt_id")
	t.Setenv("AUTH0_MGMT_CLIENT_SECRET", "mgmt_secret")
	t.Setenv("FGA_API_HOST", "api.fga.example")
	t.Setenv("FGA_ISSUER", "auth.fga.example")
	t.Setenv("FGA_STORE_ID", "store_1")
	t.Setenv("FGA_CLIENT_ID", "fga_id")
	t.Setenv("FGA_CLIENT_SECRET", "fga_secret")
	t.Setenv("LOGINLAB_PORT", "4000")
	t.Setenv("LOGINLAB_UPSTREAM_TIMEOUT", "5s")
	t.Setenv("AUTH0_DEFAULT_ADMIN_ROLES", "rol_a, rol_b,")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.UpstreamTimeout)
	assert.Equal(t, []string{"rol_a", "rol_b"}, cfg.Auth0.DefaultAdminRoles)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a , b ,, "))
	assert.Nil(t, splitAndTrim(""))
	assert.Nil(t, splitAndTrim(" , "))
}
