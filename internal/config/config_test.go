package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_DefaultsWithEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SQUID_AUTH_JWT_SECRET", testSecret)
	t.Setenv("SQUID_SERVER_PORT", "8088")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "token", cfg.Auth.CookieName)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, 2048, cfg.Auth.RSAKeyBits)
	assert.True(t, cfg.API.UsersEnabled)
	assert.True(t, cfg.API.FilesEnabled)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "squid.yaml")
	body := []byte(`
server:
  port: 7000
api:
  files_enabled: false
auth:
  jwt_secret: "` + testSecret + `"
settlement:
  pending_ttl: 2h
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.False(t, cfg.API.FilesEnabled)
	assert.Equal(t, 2*time.Hour, cfg.Settlement.PendingTTL)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SQUID_AUTH_JWT_SECRET="+testSecret+"\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SQUID_AUTH_JWT_SECRET") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SQUID_AUTH_JWT_SECRET", "short")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt_secret")
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: 5000},
		API:      APIConfig{UsersEnabled: true},
		Database: DatabaseConfig{Driver: "sqlite", Path: "x.db"},
		Auth: AuthConfig{
			JWTSecret:  testSecret,
			TokenTTL:   time.Minute,
			CookieName: "token",
			BcryptCost: 10,
			RSAKeyBits: 2048,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, errMsg: "server.port"},
		{name: "no surface", mutate: func(c *Config) { c.API.UsersEnabled = false }, errMsg: "api."},
		{name: "bad driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, errMsg: "database.driver"},
		{name: "postgres host", mutate: func(c *Config) { c.Database.Driver = "postgres" }, errMsg: "database.host"},
		{name: "bcrypt cost", mutate: func(c *Config) { c.Auth.BcryptCost = 40 }, errMsg: "auth.bcrypt_cost"},
		{name: "rsa bits", mutate: func(c *Config) { c.Auth.RSAKeyBits = 512 }, errMsg: "auth.rsa_key_bits"},
		{name: "s3 bucket", mutate: func(c *Config) { c.Storage.S3.Enabled = true }, errMsg: "storage.s3.bucket"},
		{name: "log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, errMsg: "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
