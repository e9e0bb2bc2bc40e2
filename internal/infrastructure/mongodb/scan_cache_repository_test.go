//go:build integration

package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/pick-terminal/internal/domain"
	pkgmongo "github.com/wms-platform/pick-terminal/pkg/mongodb"
	"github.com/wms-platform/pick-terminal/pkg/testutil"
)

func newTestRepository(t *testing.T) *ScanCacheRepository {
	t.Helper()
	ctx := testutil.CreateTestContext(t, 2*time.Minute)

	container, err := testutil.NewMongoDBContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	config := pkgmongo.DefaultConfig()
	config.URI = container.URI
	config.Database = "pick_terminal_test"
	client, err := pkgmongo.NewClient(ctx, config, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	repo := NewScanCacheRepository(client.Database(), DefaultCacheRetention, nil, nil)
	require.NoError(t, repo.EnsureIndexes(ctx))
	return repo
}

func TestScanCacheRepository(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		_, err := repo.Get(ctx, "0000000000000")
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
	})

	t.Run("round trip", func(t *testing.T) {
		captured := repo.Now()
		record := &domain.CachedEntityRecord{
			ProductInventorySnapshot: domain.ProductInventorySnapshot{
				ProductID:      "P-001",
				Name:           "Widget",
				Barcode:        "4006381333931",
				BestLocations:  []domain.LocationStock{{Code: "A-01-01", AvailableQty: 12}},
				FEFOLots:       []domain.Lot{{Batch: "B-7", Expiry: time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC), AvailableQty: 12}},
				TotalAvailable: 12,
			},
			Timestamp: captured,
		}
		require.NoError(t, repo.Set(ctx, "4006381333931", record))

		got, err := repo.Get(ctx, "4006381333931")
		require.NoError(t, err)
		assert.Equal(t, "P-001", got.ProductID)
		assert.Equal(t, record.BestLocations, got.BestLocations)
		require.Len(t, got.FEFOLots, 1)
		assert.True(t, record.FEFOLots[0].Expiry.Equal(got.FEFOLots[0].Expiry))
		assert.True(t, captured.Equal(got.Timestamp))
		assert.True(t, got.IsFresh(repo.Now(), domain.DefaultScanCacheTTL))
	})

	t.Run("last writer wins", func(t *testing.T) {
		first := &domain.CachedEntityRecord{
			ProductInventorySnapshot: domain.ProductInventorySnapshot{ProductID: "P-002", Name: "Gadget", TotalAvailable: 3},
			Timestamp:                repo.Now(),
		}
		second := &domain.CachedEntityRecord{
			ProductInventorySnapshot: domain.ProductInventorySnapshot{ProductID: "P-002", Name: "Gadget", TotalAvailable: 1},
			Timestamp:                repo.Now().Add(time.Second),
		}
		require.NoError(t, repo.Set(ctx, "5012345678900", first))
		require.NoError(t, repo.Set(ctx, "5012345678900", second))

		got, err := repo.Get(ctx, "5012345678900")
		require.NoError(t, err)
		assert.Equal(t, 1, got.TotalAvailable)
		assert.True(t, second.Timestamp.Equal(got.Timestamp))
	})
}
