package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	require.Equal(t, ":8000", c.Server.Addr)
	require.Equal(t, "http://localhost:8000", c.Server.BaseURL)
	require.Equal(t, "info", c.Log.Level)
	require.Equal(t, "memory", c.Cache.Kind)
	require.Equal(t, "api", c.Email.Provider)
	require.Equal(t, "publish", c.Newsletter.Realm)
	require.Equal(t, 10*time.Second, c.EmailAPITimeout())
	require.Equal(t, 30*time.Second, c.EditorCacheTTLDuration())
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
app:
  app_env: dev
server:
  addr: ":9000"
  base_url: "https://news.example.com"
storage:
  dsn: "postgres://localhost/newsletter"
email:
  provider: smtp
  from: "boletin@example.com"
newsletter:
  editor_cache_ttl: "1m"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("SERVER_ADDR", ":7777")
	t.Setenv("EMAIL_PROVIDER", "api")
	t.Setenv("EMAIL_API_BASE_URL", "https://mail-api.example.com")
	t.Setenv("FLAGS_MIGRATE", "true")

	c, err := Load(path)
	require.NoError(t, err)

	// env pisa YAML
	require.Equal(t, ":7777", c.Server.Addr)
	require.Equal(t, "api", c.Email.Provider)
	require.Equal(t, "https://mail-api.example.com", c.Email.API.BaseURL)
	require.True(t, c.Flags.Migrate)

	// YAML sin override queda intacto
	require.Equal(t, "https://news.example.com", c.Server.BaseURL)
	require.Equal(t, "postgres://localhost/newsletter", c.Storage.DSN)
	require.Equal(t, "boletin@example.com", c.Email.From)
	require.Equal(t, time.Minute, c.EditorCacheTTLDuration())
}

func TestLoadRejectsBadDurationAndProvider(t *testing.T) {
	t.Setenv("EMAIL_API_TIMEOUT", "not-a-duration")
	_, err := Load("")
	require.Error(t, err)

	t.Setenv("EMAIL_API_TIMEOUT", "5s")
	t.Setenv("EMAIL_PROVIDER", "pigeon")
	_, err = Load("")
	require.Error(t, err)
}
