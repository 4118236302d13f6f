package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "a-very-long-test-secret")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, "@every 1m", cfg.CloseDrawsSchedule)
	assert.Equal(t, 10, cfg.AuthRateBurst)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "memory")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{StoreDriver: DriverMemory, JWTSecret: "0123456789abcdef", TokenTTL: time.Hour}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"memory ok", func(c *Config) {}, false},
		{"mongo without uri", func(c *Config) { c.StoreDriver = DriverMongo }, true},
		{"mongo with uri", func(c *Config) { c.StoreDriver = DriverMongo; c.MongoURI = "mongodb://localhost" }, false},
		{"postgres without dsn", func(c *Config) { c.StoreDriver = DriverPostgres }, true},
		{"unknown driver", func(c *Config) { c.StoreDriver = "sqlite" }, true},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, true},
		{"zero ttl", func(c *Config) { c.TokenTTL = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
