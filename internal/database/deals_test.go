package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealradar/deal-aggregator/internal/models"
)

func TestNewDealFromScrape(t *testing.T) {
	scraped := &models.ScrapedProduct{
		Platform:  models.PlatformAmazon,
		ProductID: "B0CHX1W1XY",
		Title:     "Apple iPhone 15 (128GB) - Blue",
		Price:     79900,
		Rating:    4.5,
		Reviews:   4864,
		Image:     "https://m.media-amazon.com/images/I/71d7rfSl0wL.jpg",
		URL:       "https://www.amazon.in/dp/B0CHX1W1XY",
	}

	before := time.Now()
	deal := NewDealFromScrape(scraped)

	assert.Equal(t, "B0CHX1W1XY", deal.ProductID)
	assert.Equal(t, models.PlatformAmazon, deal.Platform)
	assert.Equal(t, scraped.Title, deal.Title)
	assert.Equal(t, "apple iphone 15", deal.NormalizedTitle)
	assert.Equal(t, []string{"apple", "iphone"}, deal.Keywords)
	assert.Equal(t, "apple", deal.Brand)
	assert.Equal(t, "electronics", deal.Category)
	assert.True(t, deal.IsActive)

	assert.False(t, deal.LastScraped.Before(before))
	assert.Equal(t, DealTTL, deal.ExpiresAt.Sub(deal.LastScraped))
}

// The remaining store tests need a live Postgres. They follow the upsert
// contract: same (product_id, platform) twice yields one row with refreshed
// fields, and expired rows vanish from queries before the sweep deletes them.
func TestDealStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}

	ctx := context.Background()
	db, err := New(ctx, Config{
		Host: "localhost", Port: 5432,
		User: "postgres", Password: "postgres", Database: "deals_test",
	})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.EnsureSchema(ctx))

	t.Run("upsert is idempotent per product and platform", func(t *testing.T) {
		scraped := &models.ScrapedProduct{
			Platform:  models.PlatformFlipkart,
			ProductID: "itmtest123",
			Title:     "Samsung Galaxy S24 Ultra",
			Price:     129999,
			URL:       "https://www.flipkart.com/samsung-galaxy-s24/p/itmtest123",
		}

		first := NewDealFromScrape(scraped)
		require.NoError(t, db.UpsertDeal(ctx, first))

		scraped.Price = 119999
		second := NewDealFromScrape(scraped)
		require.NoError(t, db.UpsertDeal(ctx, second))
		assert.Equal(t, first.ID, second.ID)

		deals, err := db.QueryDeals(ctx, DealFilter{Search: "samsung galaxy s24"})
		require.NoError(t, err)
		require.Len(t, deals, 1)
		assert.Equal(t, 119999.0, deals[0].Price)
	})

	t.Run("upsert rejects invalid candidates", func(t *testing.T) {
		deal := NewDealFromScrape(&models.ScrapedProduct{
			Platform:  models.PlatformAmazon,
			ProductID: "B000000000",
			Title:     models.TitleBlocked,
			Price:     100,
			URL:       "https://www.amazon.in/dp/B000000000",
		})

		err := db.UpsertDeal(ctx, deal)
		verr, ok := AsValidationError(err)
		require.True(t, ok)
		assert.Equal(t, ReasonBlocked, verr.Reason)
	})

	t.Run("expired deals never surface in queries", func(t *testing.T) {
		deal := NewDealFromScrape(&models.ScrapedProduct{
			Platform:  models.PlatformMeesho,
			ProductID: "expired-item",
			Title:     "Cotton Kurta Set Festive",
			Price:     499,
			URL:       "https://www.meesho.com/kurta/p/expired-item",
		})
		deal.ExpiresAt = time.Now().Add(-time.Minute)
		require.NoError(t, db.UpsertDeal(ctx, deal))

		deals, err := db.QueryDeals(ctx, DealFilter{Search: "cotton kurta festive"})
		require.NoError(t, err)
		assert.Empty(t, deals)

		swept, err := db.SweepExpired(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, swept, int64(1))
	})

	t.Run("delete invalid purges rows behind the validation gate", func(t *testing.T) {
		// Rows like these predate the gate; they can only be seeded directly.
		_, err := db.Exec(ctx, `
			INSERT INTO deals (id, product_id, platform, title, normalized_title, price, url,
				is_active, last_scraped, expires_at, created_at, updated_at)
			VALUES ('00000000-0000-0000-0000-00000000d15c', 'legacy-1', 'ajio', 'Blocked', 'blocked',
				999, 'https://www.ajio.com/p/legacy-1',
				true, now(), now() + interval '1 day', now(), now())
			ON CONFLICT (product_id, platform) DO NOTHING`)
		require.NoError(t, err)

		purged, err := db.DeleteInvalid(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, purged, int64(1))

		_, err = db.GetDealByProductID(ctx, "legacy-1")
		assert.Error(t, err)
	})
}
