package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *CatalogCache {
	t.Helper()
	url := os.Getenv("CARCRM_TEST_REDIS_URL")
	if url == "" {
		t.Skip("CARCRM_TEST_REDIS_URL not set")
	}
	c, err := New(context.Background(), url, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Invalidate(context.Background())
		_ = c.Close()
	})
	require.NoError(t, c.Invalidate(context.Background()))
	return c
}

func TestCatalogCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	_, ok, err := c.Brands(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.StoreBrands(ctx, []string{"Audi", "Ford"}))
	brands, ok, err := c.Brands(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"Audi", "Ford"}, brands)

	require.NoError(t, c.Invalidate(ctx))
	_, ok, err = c.Brands(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalogCacheStoresEmptyList(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.StoreBrands(ctx, nil))
	brands, ok, err := c.Brands(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, brands)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(context.Background(), "not-a-url", time.Minute)
	assert.Error(t, err)
}
