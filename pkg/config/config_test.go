package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bridgecore/coordinator/pkg/config"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("PG_USER", "bridge")
	t.Setenv("PG_DATABASE", "bridge")

	cfg, err := config.Load("")
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8080", cfg.Gateway.Addr)
	require.Equal(t, 30*time.Second, cfg.Gateway.ShutdownTimeout)
	require.Equal(t, "localhost", cfg.Database.Host)
	require.Equal(t, uint16(5432), cfg.Database.Port)
	require.Equal(t, "disable", cfg.Database.SSLMode)
	require.Equal(t, 10*time.Second, cfg.Bridge.TxPendingTime)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("PG_HOST", "db.internal")
	t.Setenv("PG_PORT", "5433")
	t.Setenv("PG_USER", "bridge")
	t.Setenv("PG_DATABASE", "bridge")
	t.Setenv("BRIDGE_TX_PENDING_TIME", "5m")
	t.Setenv("BRIDGE_LOG_LEVEL", "debug")

	cfg, err := config.Load("")
	require.NoError(t, err)

	require.Equal(t, "db.internal", cfg.Database.Host)
	require.Equal(t, uint16(5433), cfg.Database.Port)
	require.Equal(t, 5*time.Minute, cfg.Bridge.TxPendingTime)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadValidatesRequiredFields(t *testing.T) {
	for _, key := range []string{"PG_USER", "PG_DATABASE"} {
		require.NoError(t, os.Unsetenv(key))
	}

	_, err := config.Load("")
	require.Error(t, err)
}
