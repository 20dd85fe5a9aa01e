package matcher

import "github.com/dealradar/deal-aggregator/internal/models"

// GroupThreshold is the minimum similarity for two deals from different
// platforms to land in the same product group.
const GroupThreshold = 0.6

// GroupSimilar clusters deals into cross-platform product groups with a
// greedy single pass over the caller-supplied order: each not-yet-assigned
// deal seeds a group, then absorbs every later unassigned deal from a
// different platform whose title similarity exceeds GroupThreshold.
// Assignments are final; later candidates never displace an assigned deal.
//
// O(n²) in len(deals); callers cap the candidate set before grouping.
func GroupSimilar(deals []models.ScoredDeal) []models.ProductGroup {
	var groups []models.ProductGroup
	assigned := make([]bool, len(deals))

	for i, seed := range deals {
		if assigned[i] {
			continue
		}
		assigned[i] = true

		group := models.ProductGroup{
			ProductName:     seed.Title,
			NormalizedTitle: seed.NormalizedTitle,
			Category:        seed.Category,
			Brand:           seed.Brand,
			Variants:        []models.ScoredDeal{seed},
			LowestPrice:     seed.Price,
			HighestRating:   seed.Rating,
			BestDeal:        seed,
		}

		for j := i + 1; j < len(deals); j++ {
			other := deals[j]
			if assigned[j] || other.Platform == seed.Platform {
				continue
			}

			if CalculateSimilarity(seed.Title, other.Title) <= GroupThreshold {
				continue
			}

			group.Variants = append(group.Variants, other)
			assigned[j] = true

			if other.Price < group.LowestPrice {
				group.LowestPrice = other.Price
				group.BestDeal = other
			}
			if other.Rating > group.HighestRating {
				group.HighestRating = other.Rating
			}
		}

		groups = append(groups, group)
	}

	return groups
}
