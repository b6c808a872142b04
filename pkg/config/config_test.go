package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-api/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Sales.RateLimitQuota)
	assert.Equal(t, 60*time.Second, cfg.Sales.RateLimitWindow)
	assert.Equal(t, 18, cfg.Sales.DefaultTaxRate)
	assert.Equal(t, 3, cfg.Sales.CommitMaxAttempts)
	assert.Equal(t, config.BackendPostgres, cfg.Sales.StorageBackend)
	assert.Equal(t, config.BackendRedis, cfg.Sales.RateLimitBackend)
}

func TestLoad_VariablesDeEntorno(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "MEMORY")
	t.Setenv("RATE_LIMIT_BACKEND", "memory")
	t.Setenv("RATE_LIMIT_QUOTA", "25")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "30")
	t.Setenv("REDIS_DB", "2")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.BackendMemory, cfg.Sales.StorageBackend)
	assert.Equal(t, 25, cfg.Sales.RateLimitQuota)
	assert.Equal(t, 30*time.Second, cfg.Sales.RateLimitWindow)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoad_BackendInvalido(t *testing.T) {
	t.Setenv("RATE_LIMIT_BACKEND", "memcached")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_LimitadorPostgresSinPostgres(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("RATE_LIMIT_BACKEND", "postgres")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapaContrasena(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:w/rd", DBName: "fact", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aw%2Frd@db:5432/fact?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
