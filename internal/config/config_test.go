package config_test

import (
	"testing"

	"github.com/curveforge/poolsim/internal/config"
	"github.com/curveforge/poolsim/internal/cryptoswap"
	"github.com/curveforge/poolsim/internal/metapool"
	"github.com/curveforge/poolsim/internal/stableswap"
	"github.com/stretchr/testify/require"
)

// The defaults must always construct valid pools; they are the entry point
// for every sweep that does not override parameters.

func TestDefaultCryptoParamsConstruct(t *testing.T) {
	p, err := cryptoswap.New(config.DefaultCryptoParams())
	require.NoError(t, err)
	require.True(t, p.D().IsPositive())
}

func TestDefaultStableParamsConstruct(t *testing.T) {
	p, err := stableswap.New(config.DefaultStableParams())
	require.NoError(t, err)
	vp, err := p.VirtualPrice()
	require.NoError(t, err)
	require.True(t, vp.IsPositive())
}

func TestDefaultMetaParamsConstruct(t *testing.T) {
	p, err := metapool.New(config.DefaultMetaParams())
	require.NoError(t, err)
	require.Equal(t, 4, p.NCoins())
}

func TestLoadConfigWithoutDatabase(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DB_HOST", "")

	require.NoError(t, config.LoadConfig())
	require.Equal(t, "debug", config.LogLevel)
	require.False(t, config.PersistenceEnabled)
}

func TestLoadConfigRequiresFullDatabaseSettings(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "poolsim")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "poolsim")

	require.NoError(t, config.LoadConfig())
	require.True(t, config.PersistenceEnabled)
	require.Equal(t, 5432, config.DBPort)
	require.Equal(t, "disable", config.DBSSLMode)
}

func TestLoadConfigRejectsBadPort(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "not-a-port")

	require.Error(t, config.LoadConfig())
}
