package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"catalog_system/internal/domain"
	"catalog_system/internal/metrics"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// listingKeys returns the cached catalog keys currently stored
func listingKeys(mr *miniredis.Miniredis) []string {
	var keys []string
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, CachePrefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

// cacheListings fills the cache with the full and one filtered listing
func cacheListings(t *testing.T, svc *Service, mr *miniredis.Miniredis) {
	t.Helper()
	_, err := svc.Find(context.Background(), Filter{})
	require.NoError(t, err)
	_, err = svc.Find(context.Background(), ParseFilter("item", "", ""))
	require.NoError(t, err)
	require.Len(t, listingKeys(mr), 2)
}

func TestFindServesRepeatedListingFromCache(t *testing.T) {
	database := newTestDB(t)
	seedProducts(t, database)
	mr, rdb := newTestRedis(t)
	svc := NewService(database, rdb, time.Minute)

	hits := testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("miss"))

	products, err := svc.Find(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, products, 3)
	assert.True(t, mr.Exists(CachePrefix+"all"))
	assert.Equal(t, misses+1, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("miss")))

	// A row written behind the service's back stays invisible until invalidation
	require.NoError(t, database.Create(&domain.Product{Name: "P4", Price: decimal.NewFromInt(40), SKU: "SKU-004"}).Error)
	products, err = svc.Find(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"P3", "P2", "P1"}, names(products))
	assert.Equal(t, hits+1, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("hit")))

	svc.InvalidateCache(context.Background())
	products, err = svc.Find(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"P4", "P3", "P2", "P1"}, names(products))
}

func TestWritesInvalidateCachedListings(t *testing.T) {
	database := newTestDB(t)
	seedProducts(t, database)
	mr, rdb := newTestRedis(t)
	require.NoError(t, mr.Set("admin:users:page=1:size=20", "{}"))
	svc := NewService(database, rdb, time.Minute)

	cacheListings(t, svc, mr)
	created, err := svc.Create(context.Background(), ProductInput{Name: "P4", Price: "40", Description: "fourth item", SKU: "SKU-004"})
	require.NoError(t, err)
	assert.Empty(t, listingKeys(mr), "create keeps stale listings")
	products, err := svc.Find(context.Background(), ParseFilter("item", "", ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"P4", "P2", "P1"}, names(products))

	cacheListings(t, svc, mr)
	name := "Renamed"
	_, err = svc.Update(context.Background(), created.ID, ProductPatch{Name: &name})
	require.NoError(t, err)
	assert.Empty(t, listingKeys(mr), "update keeps stale listings")
	products, err = svc.Find(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", products[0].Name)

	cacheListings(t, svc, mr)
	require.NoError(t, svc.Delete(context.Background(), created.ID))
	assert.Empty(t, listingKeys(mr), "delete keeps stale listings")
	products, err = svc.Find(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"P3", "P2", "P1"}, names(products))

	// Other cached data is left alone
	assert.True(t, mr.Exists("admin:users:page=1:size=20"))
}

func TestFailedWriteKeepsCache(t *testing.T) {
	database := newTestDB(t)
	seedProducts(t, database)
	mr, rdb := newTestRedis(t)
	svc := NewService(database, rdb, time.Minute)

	cacheListings(t, svc, mr)
	_, err := svc.Create(context.Background(), ProductInput{Name: "Dup", SKU: "SKU-001"})
	require.ErrorIs(t, err, ErrDuplicateSKU)
	assert.Len(t, listingKeys(mr), 2)
}

func TestCachedListingExpires(t *testing.T) {
	database := newTestDB(t)
	seedProducts(t, database)
	mr, rdb := newTestRedis(t)
	svc := NewService(database, rdb, time.Minute)

	_, err := svc.Find(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(CachePrefix+"all"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists(CachePrefix+"all"))
}
