package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealradar/deal-aggregator/internal/models"
)

func scored(platform models.Platform, title string, price, rating float64) models.ScoredDeal {
	return models.ScoredDeal{
		Deal: models.Deal{
			ProductID:       title,
			Platform:        platform,
			Title:           title,
			NormalizedTitle: NormalizeTitle(title),
			Price:           price,
			Rating:          rating,
		},
	}
}

func TestGroupSimilarClustersAcrossPlatforms(t *testing.T) {
	deals := []models.ScoredDeal{
		scored(models.PlatformAmazon, "Apple iPhone 15 128GB Blue", 79900, 4.5),
		scored(models.PlatformFlipkart, "iPhone 15 (128 GB)", 77900, 4.6),
		scored(models.PlatformMeesho, "Levis Skinny Fit Jeans", 1999, 4.0),
	}

	groups := GroupSimilar(deals)
	require.Len(t, groups, 2)

	phones := groups[0]
	assert.Len(t, phones.Variants, 2)
	assert.Equal(t, "Apple iPhone 15 128GB Blue", phones.ProductName)
	assert.Equal(t, 77900.0, phones.LowestPrice)
	assert.Equal(t, models.PlatformFlipkart, phones.BestDeal.Platform)
	assert.Equal(t, 4.6, phones.HighestRating)

	jeans := groups[1]
	assert.Len(t, jeans.Variants, 1)
	assert.Equal(t, 1999.0, jeans.LowestPrice)
}

func TestGroupSimilarNeverMergesSamePlatform(t *testing.T) {
	// Two near-identical listings on the same platform must stay apart.
	deals := []models.ScoredDeal{
		scored(models.PlatformAmazon, "Apple iPhone 15 128GB Blue", 79900, 4.5),
		scored(models.PlatformAmazon, "Apple iPhone 15 128GB", 78900, 4.4),
		scored(models.PlatformFlipkart, "Apple iPhone 15 128GB", 77900, 4.6),
	}

	groups := GroupSimilar(deals)
	require.Len(t, groups, 2)

	for _, g := range groups {
		seen := make(map[models.Platform]int)
		for _, v := range g.Variants {
			seen[v.Platform]++
		}
		for platform, count := range seen {
			assert.Equal(t, 1, count, "platform %s appears more than once in a group", platform)
		}
	}
}

func TestGroupSimilarAssignsEveryDealExactlyOnce(t *testing.T) {
	deals := []models.ScoredDeal{
		scored(models.PlatformAmazon, "Sony WH-1000XM5 Headphones", 26990, 4.6),
		scored(models.PlatformFlipkart, "Sony WH-1000XM5 Wireless Headphones", 25990, 4.5),
		scored(models.PlatformMyntra, "Roadster Men Printed T-Shirt", 499, 4.1),
		scored(models.PlatformAjio, "Levis Skinny Fit Jeans", 1899, 4.2),
	}

	groups := GroupSimilar(deals)

	total := 0
	for _, g := range groups {
		total += len(g.Variants)
	}
	assert.Equal(t, len(deals), total)
}

func TestGroupSimilarEmptyInput(t *testing.T) {
	assert.Empty(t, GroupSimilar(nil))
}

func TestGroupSimilarSeedKeepsFirstEncounterOrder(t *testing.T) {
	deals := []models.ScoredDeal{
		scored(models.PlatformFlipkart, "iPhone 15 (128 GB)", 77900, 4.6),
		scored(models.PlatformAmazon, "Apple iPhone 15 128GB Blue", 79900, 4.5),
	}

	groups := GroupSimilar(deals)
	require.Len(t, groups, 1)
	assert.Equal(t, "iPhone 15 (128 GB)", groups[0].ProductName)
	assert.Equal(t, models.PlatformFlipkart, groups[0].BestDeal.Platform)
}
