package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:                     "8080",
		Env:                      "development",
		JWTSecret:                "secure-secret-at-least-32-chars-long",
		DBPassword:               "secure-password",
		DBSSLMode:                "disable",
		DBConnMaxLifetimeMinutes: 1,
		DBSchemaMode:             "hybrid",
		ArtworkFeeCents:          500,
		ArtworkCurrency:          "USD",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development", func(*Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"zero fee", func(c *Config) { c.ArtworkFeeCents = 0 }, true},
		{"bad currency", func(c *Config) { c.ArtworkCurrency = "DOLLARS" }, true},
		{"unknown schema mode", func(c *Config) { c.DBSchemaMode = "yolo" }, true},
		{"production without TLS", func(c *Config) {
			c.Env = "production"
			c.PaymentWebhookSecret = "whsec"
		}, true},
		{"production default secret", func(c *Config) {
			c.Env = "production"
			c.DBSSLMode = "require"
			c.PaymentWebhookSecret = "whsec"
			c.JWTSecret = defaultJWTSecret
		}, true},
		{"production without webhook secret", func(c *Config) {
			c.Env = "prod"
			c.DBSSLMode = "verify-full"
		}, true},
		{"production complete", func(c *Config) {
			c.Env = "production"
			c.DBSSLMode = "require"
			c.PaymentWebhookSecret = "whsec"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("ARTWORK_CURRENCY", "eur")
	t.Setenv("ARTWORK_FEE_CENTS", "750")
	t.Setenv("RISING_WINDOW_HOURS", "12")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "EUR", c.ArtworkCurrency)
	assert.Equal(t, int64(750), c.ArtworkFeeCents)
	assert.Equal(t, 12*time.Hour, c.RisingWindow())
	assert.Equal(t, "atelier-api", c.JWTIssuer)
}

func TestConfig_DurationHelpers(t *testing.T) {
	c := &Config{}
	assert.Equal(t, 48*time.Hour, c.RisingWindow())
	assert.Equal(t, 10*time.Second, c.PaymentConfirmTimeout())

	c.DBConnMaxLifetimeMinutes = 15
	c.PaymentConfirmTimeoutSeconds = 3
	assert.Equal(t, 15*time.Minute, c.ConnMaxLifetime())
	assert.Equal(t, 3*time.Second, c.PaymentConfirmTimeout())
}
