package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const sampleConfig = `
api:
  port: "9000"
  environment: test
  jwt_signing_key: a-test-signing-key-of-some-length
  allowed_cors_domains:
    - https://pcprep.example
gin:
  mode: test
rate_limit:
  attempts: 3
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	conf, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "9000", conf.API.Port)
	assert.Equal(t, []string{"https://pcprep.example"}, conf.API.AllowedCORSDomains)
	assert.Equal(t, 24*time.Hour, conf.API.TokenTTL)
	assert.Equal(t, 3, conf.RateLimit.Attempts)
	assert.Equal(t, time.Minute, conf.RateLimit.Window)
	assert.Equal(t, 5*time.Minute, conf.RateLimit.Block)
	assert.Equal(t, 72*time.Hour, conf.Public.ShareTTL)
	assert.Equal(t, "admin", conf.Admin.Username)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://pc:pc@db:5432/pcprep")
	t.Setenv("SECRET_KEY", "another-secret-key-for-tests")
	t.Setenv("ADMIN_PASSWORD", "Secret123")
	t.Setenv("LOGIN_RATE_LIMIT_ATTEMPTS", "7")
	t.Setenv("LOGIN_RATE_LIMIT_BLOCK", "10m")

	conf, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "postgres://pc:pc@db:5432/pcprep", conf.Postgres.URL)
	assert.Equal(t, "another-secret-key-for-tests", conf.API.JWTSigningKey)
	assert.Equal(t, "Secret123", conf.Admin.Password)
	assert.Equal(t, 7, conf.RateLimit.Attempts)
	assert.Equal(t, 10*time.Minute, conf.RateLimit.Block)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, `
api:
  environment: test
  jwt_signing_key: short
gin:
  mode: test
`))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestPostgresConfig_DSN(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: "5432", User: "pc", Password: "pw", DB: "pcprep", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=pc password=pw dbname=pcprep sslmode=disable", c.DSN())
}

func TestWatch(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)

	path := writeConfig(t, sampleConfig)
	changes := make(chan *AppConfig, 16)

	conf, err := Watch(path, func(updated *AppConfig) {
		select {
		case changes <- updated:
		default:
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 3, conf.RateLimit.Attempts)

	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(sampleConfig, "attempts: 3", "attempts: 9", 1)), 0o600))

	timeout := time.After(5 * time.Second)
	for seen := false; !seen; {
		select {
		case updated := <-changes:
			seen = updated.RateLimit.Attempts == 9
		case <-timeout:
			t.Fatal("no configuration change received")
		}
	}

	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(sampleConfig, "attempts: 3", "attempts: -1", 1)), 0o600))
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("ignoring invalid configuration change").Len() > 0
	}, 5*time.Second, 20*time.Millisecond)
}
