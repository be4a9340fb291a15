package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/config"
	"storefront/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSetupInfraMemory(t *testing.T) {
	infra, err := setupInfra(context.Background(), config.Config{StorageBackend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryKV{}, infra.KV)
	assert.NoError(t, infra.Close())
}

func TestSetupInfraRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	infra, err := setupInfra(context.Background(), config.Config{
		StorageBackend: "redis",
		RedisAddr:      mr.Addr(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = infra.Close() })

	require.NoError(t, infra.KV.Set(context.Background(), "s:token", "t", 0))
	mr.CheckGet(t, "storefront:s:token", "t")
}

func TestSetupInfraRejectsBadConfig(t *testing.T) {
	_, err := setupInfra(context.Background(), config.Config{StorageBackend: "etcd"})
	assert.Error(t, err)

	_, err = setupInfra(context.Background(), config.Config{StorageBackend: "postgres"})
	assert.ErrorContains(t, err, "DATABASE_DSN")
}

func TestSetupHTTPRegistersRoutes(t *testing.T) {
	router, cleanup, err := setupHTTP(context.Background(), config.Config{
		StorageBackend: "memory",
		BackendBaseURL: "http://127.0.0.1:1/api",
		LoginPath:      "/login",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })

	routes := map[string]bool{}
	for _, r := range router.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /auth/login",
		"GET /cart",
		"POST /checkout",
		"GET /books/slug/:slug",
		"GET /admin/orders",
		"PATCH /admin/discounts/:id/status",
		"DELETE /admin/permissions/:id",
	} {
		assert.True(t, routes[want], want)
	}
}
