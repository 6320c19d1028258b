package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:            "5000",
		Env:             "development",
		DBDriver:        "postgres",
		DBPassword:      "password",
		SessionSecret:   "dev-secret",
		SessionTTLHours: 24,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"Development Defaults", func(*Config) {}, ""},
		{"Missing Port", func(c *Config) { c.Port = "" }, "PORT is required"},
		{"Missing Secret", func(c *Config) { c.SessionSecret = "" }, "SESSION_SECRET is required"},
		{"Unknown Driver", func(c *Config) { c.DBDriver = "mysql" }, "unsupported DB_DRIVER"},
		{"Zero Session TTL", func(c *Config) { c.SessionTTLHours = 0 }, "SESSION_TTL_HOURS"},
		{"Production Default Secret", func(c *Config) {
			c.Env = "production"
			c.SessionSecret = defaultSessionSecret
		}, "changed from the default"},
		{"Production Short Secret", func(c *Config) {
			c.Env = "production"
			c.SessionSecret = "short"
		}, "at least 32 characters"},
		{"Production SQLite", func(c *Config) {
			c.Env = "production"
			c.SessionSecret = strings.Repeat("s", 40)
			c.DBDriver = "sqlite"
		}, "sqlite is not supported"},
		{"Production Weak DB Password", func(c *Config) {
			c.Env = "prod"
			c.SessionSecret = strings.Repeat("s", 40)
		}, "strong DB_PASSWORD"},
		{"Production Valid", func(c *Config) {
			c.Env = "production"
			c.SessionSecret = strings.Repeat("s", 40)
			c.DBPassword = "a-strong-password"
			c.DBSSLMode = "require"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("PORT", "6000")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SESSION_TTL_HOURS", "12")
	t.Setenv("BCRYPT_COST", "4")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "6000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 12, cfg.SessionTTLHours)
	assert.Equal(t, 4, cfg.BcryptCost)
	assert.Equal(t, "hybrid", cfg.DBSchemaMode)
	assert.False(t, cfg.IsProduction())
}
