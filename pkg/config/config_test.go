package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresCoreVariables(t *testing.T) {
	t.Setenv("AGRIAPP_APP_ENV", "")
	t.Setenv("AGRIAPP_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadBuildsDSNFromParts(t *testing.T) {
	t.Setenv("AGRIAPP_APP_ENV", "development")
	t.Setenv("AGRIAPP_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AGRIAPP_JWT_SECRET", "secret")
	t.Setenv("AGRIAPP_JWT_ISSUER", "agriapp")
	t.Setenv("AGRIAPP_DB_HOST", "localhost")
	t.Setenv("AGRIAPP_DB_USER", "agri")
	t.Setenv("AGRIAPP_DB_PASSWORD", "pw")
	t.Setenv("AGRIAPP_DB_NAME", "agriapp")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, strings.Contains(cfg.DB.DSN, "host=localhost"))
	assert.True(t, strings.Contains(cfg.DB.DSN, "dbname=agriapp"))
	assert.True(t, cfg.App.IsDev())
	assert.False(t, cfg.Razorpay.Configured())
	assert.False(t, cfg.Shiprocket.Configured())
}

func TestShiprocketDefaults(t *testing.T) {
	t.Setenv("AGRIAPP_APP_ENV", "development")
	t.Setenv("AGRIAPP_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AGRIAPP_JWT_SECRET", "secret")
	t.Setenv("AGRIAPP_JWT_ISSUER", "agriapp")
	t.Setenv("AGRIAPP_DB_DSN", "host=localhost user=agri dbname=agriapp")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://apiv2.shiprocket.in/v1/external", cfg.Shiprocket.BaseURL)
	assert.Equal(t, "Primary", cfg.Shiprocket.PickupLocation)
}
