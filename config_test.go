package sessionx

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultCookieName, cfg.CookieName)
	assert.Equal(t, 7*24*time.Hour, cfg.CookieTTL)
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, DefaultExpiringSoonThreshold, cfg.ExpiringSoonThreshold)
	assert.Equal(t, DefaultStorageKeys, cfg.StorageKeys)
	assert.Equal(t, DefaultQueryParams, cfg.QueryParams)
	require.NoError(t, cfg.Validate())

	opts := cfg.CookieOptions()
	assert.Equal(t, "/", opts.Path)
	assert.Equal(t, http.SameSiteLaxMode, opts.SameSite)
}

func TestConfig_Validate(t *testing.T) {
	cases := map[string]Config{
		"cookie name with space": {CookieName: "auth token"},
		"cookie name separator":  {CookieName: "auth;token"},
		"relative path":          {CookiePath: "app"},
		"unknown same site":      {CookieSameSite: "sometimes"},
		"empty storage key":      {StorageKeys: []string{"token", ""}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_CookieOptions(t *testing.T) {
	cfg := Config{CookieSameSite: "Strict", CookieSecure: true, CookieDomain: "example.com"}
	cfg.normalize()
	opts := cfg.CookieOptions()
	assert.Equal(t, http.SameSiteStrictMode, opts.SameSite)
	assert.True(t, opts.Secure)
	assert.Equal(t, "example.com", opts.Domain)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cookie_name: app_session
cookie_ttl: 48h
cookie_same_site: none
cookie_secure: true
storage_keys: [app_session, token]
refresh_interval: 30s
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "app_session", cfg.CookieName)
	assert.Equal(t, 48*time.Hour, cfg.CookieTTL)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, []string{"app_session", "token"}, cfg.StorageKeys)
	assert.Equal(t, DefaultQueryParams, cfg.QueryParams)
	assert.Equal(t, http.SameSiteNoneMode, cfg.CookieOptions().SameSite)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cookie_name: \"bad name\"\n"), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}
