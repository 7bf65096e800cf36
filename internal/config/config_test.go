package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
jwt:
  secret: s3cret
access_token:
  default_ttl_minutes: 15
wearable:
  source: simulated
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 15, cfg.AccessToken.DefaultTTLMinutes)
	assert.Equal(t, 24*60, cfg.AccessToken.MaxTTLMinutes)
	assert.Equal(t, "simulated", cfg.Wearable.Source)
	assert.Equal(t, 5*time.Second, cfg.Outbox.PollInterval)
	assert.Equal(t, "medsafe", cfg.Database.Name)
}

func TestLoadFileEnvOverride(t *testing.T) {
	path := writeConfig(t, "jwt:\n  secret: from-file\n")
	t.Setenv("MEDSAFE_JWT_SECRET", "from-env")
	t.Setenv("MEDSAFE_DATABASE_HOST", "db.internal")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "db.internal", cfg.Database.Host)
}

func TestLoadFileValidation(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "server:\n  port: 1\n"))
	assert.ErrorContains(t, err, "jwt.secret")

	_, err = LoadFile(writeConfig(t, "jwt:\n  secret: x\nwearable:\n  source: bluetooth\n"))
	assert.ErrorContains(t, err, "wearable.source")

	_, err = LoadFile(writeConfig(t, "jwt:\n  secret: x\naccess_token:\n  default_ttl_minutes: 60\n  max_ttl_minutes: 10\n"))
	assert.ErrorContains(t, err, "max_ttl_minutes")
}

func TestDSN(t *testing.T) {
	dsn := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}.DSN()
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=n sslmode=disable", dsn)
}
