package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dealradar/deal-aggregator/internal/cache"
	"github.com/dealradar/deal-aggregator/internal/database"
	"github.com/dealradar/deal-aggregator/internal/extractor"
	"github.com/dealradar/deal-aggregator/internal/matcher"
	"github.com/dealradar/deal-aggregator/internal/models"
)

// ErrNotFound is returned when a product ID has no active deal.
var ErrNotFound = errors.New("product not found")

// RelevanceThreshold is the minimum query similarity for a deal found by
// the fuzzy fallback to count as a result.
const RelevanceThreshold = 0.3

// fuzzyScanLimit caps how many deals the fallback scores when the text
// match comes back empty.
const fuzzyScanLimit = 200

const (
	SortRelevance = "relevance"
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
	SortRating    = "rating"
)

// Store is the slice of the deal store the search service reads and
// writes.
type Store interface {
	QueryDeals(ctx context.Context, filter database.DealFilter) ([]models.Deal, error)
	GetDealByProductID(ctx context.Context, productID string) (*models.Deal, error)
	VariantsByNormalizedTitle(ctx context.Context, normalizedTitle string) ([]models.Deal, error)
	PriceHistoryFor(ctx context.Context, productID string, limit int) ([]models.PricePoint, error)
	UpsertDeal(ctx context.Context, deal *models.Deal) error
	AppendPriceHistory(ctx context.Context, deal *models.Deal) error
}

// Cache holds grouped search results keyed by the full query shape.
type Cache interface {
	Get(ctx context.Context, key string) ([]models.ProductGroup, bool)
	Set(ctx context.Context, key string, groups []models.ProductGroup)
	InvalidateSearch(ctx context.Context)
}

// Extractors resolves which site extractor handles a URL.
type Extractors interface {
	ForURLOrDefault(url string) extractor.Extractor
}

// Trigger requests an out-of-schedule ingestion run.
type Trigger interface {
	Trigger() bool
}

// Query is one search request.
type Query struct {
	Text      string
	Platforms []models.Platform
	MinPrice  float64
	MaxPrice  float64
	SortBy    string
	Limit     int
}

// Result is a search response: deals grouped into cross-platform product
// clusters. ScrapingSuggested flags an empty result the caller can remedy
// by triggering ingestion.
type Result struct {
	Groups            []models.ProductGroup `json:"groups"`
	Total             int                   `json:"total"`
	FromCache         bool                  `json:"from_cache"`
	ScrapingSuggested bool                  `json:"scraping_suggested,omitempty"`
}

// ProductView is everything known about one product: the deal, its
// cross-platform variants, the price series, and a buy recommendation.
type ProductView struct {
	Deal           *models.Deal        `json:"deal"`
	Variants       []models.ScoredDeal `json:"variants"`
	PriceHistory   []models.PricePoint `json:"price_history"`
	Recommendation string              `json:"recommendation"`
}

// Service orchestrates the deal read path and the on-demand scrape path.
type Service struct {
	store      Store
	cache      Cache
	extractors Extractors
	trigger    Trigger
	logger     *slog.Logger
}

func New(store Store, c Cache, extractors Extractors, trigger Trigger, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		cache:      c,
		extractors: extractors,
		trigger:    trigger,
		logger:     logger.With("component", "search"),
	}
}

// Search finds deals for a query, clusters them into product groups, and
// caches the grouped result. A text match over normalized titles and
// keywords runs first; when it finds nothing, a bounded fuzzy scan scores
// recent deals against the query instead.
func (s *Service) Search(ctx context.Context, q Query) (*Result, error) {
	key := cache.SearchKey(q.Text, q.Platforms, q.MinPrice, q.MaxPrice, q.SortBy)

	if groups, found := s.cache.Get(ctx, key); found {
		return &Result{Groups: groups, Total: len(groups), FromCache: true}, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	deals, err := s.store.QueryDeals(ctx, database.DealFilter{
		Search:    q.Text,
		Platforms: q.Platforms,
		MinPrice:  q.MinPrice,
		MaxPrice:  q.MaxPrice,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}

	normalizedQuery := matcher.NormalizeTitle(q.Text)
	var scored []models.ScoredDeal

	if len(deals) > 0 {
		scored = scoreDeals(deals, normalizedQuery)
	} else {
		scored, err = s.fuzzyFallback(ctx, q, normalizedQuery)
		if err != nil {
			return nil, err
		}
	}

	sortScored(scored, q.SortBy)
	groups := matcher.GroupSimilar(scored)

	s.cache.Set(ctx, key, groups)

	return &Result{
		Groups:            groups,
		Total:             len(groups),
		ScrapingSuggested: len(groups) == 0,
	}, nil
}

// fuzzyFallback scores a bounded slice of recent deals against the query
// and keeps those above the relevance threshold.
func (s *Service) fuzzyFallback(ctx context.Context, q Query, normalizedQuery string) ([]models.ScoredDeal, error) {
	if normalizedQuery == "" {
		return nil, nil
	}

	deals, err := s.store.QueryDeals(ctx, database.DealFilter{
		Platforms: q.Platforms,
		MinPrice:  q.MinPrice,
		MaxPrice:  q.MaxPrice,
		Limit:     fuzzyScanLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("fuzzy fallback failed: %w", err)
	}

	var scored []models.ScoredDeal
	for _, deal := range deals {
		sim := matcher.CalculateSimilarity(normalizedQuery, deal.NormalizedTitle)
		if sim > RelevanceThreshold {
			scored = append(scored, models.ScoredDeal{Deal: deal, Similarity: sim})
		}
	}

	if len(scored) > 0 {
		s.logger.Debug("fuzzy fallback matched", "query", q.Text, "matches", len(scored))
	}
	return scored, nil
}

// LiveDeals returns the current best discounts, newest first within a
// discount level.
func (s *Service) LiveDeals(ctx context.Context, platforms []models.Platform, category string, limit int) ([]models.Deal, error) {
	deals, err := s.store.QueryDeals(ctx, database.DealFilter{
		Platforms: platforms,
		Category:  category,
		Order:     database.OrderDiscountRecent,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("live deals query failed: %w", err)
	}
	return deals, nil
}

// StoreScrapedDeal scrapes one URL now, persists the result, and flushes
// the search cache. Validation failures come back as
// database.ValidationError.
func (s *Service) StoreScrapedDeal(ctx context.Context, url string) (*models.Deal, error) {
	ext := s.extractors.ForURLOrDefault(url)

	scraped, err := ext.Extract(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("scrape failed: %w", err)
	}

	deal := database.NewDealFromScrape(scraped)
	if err := s.store.UpsertDeal(ctx, deal); err != nil {
		return nil, err
	}
	if err := s.store.AppendPriceHistory(ctx, deal); err != nil {
		s.logger.Warn("price history append failed", "product_id", deal.ProductID, "error", err)
	}

	s.cache.InvalidateSearch(ctx)

	s.logger.Info("deal stored from scrape",
		"platform", deal.Platform,
		"product_id", deal.ProductID,
		"price", deal.Price)

	return deal, nil
}

// Product assembles the cross-platform view for one product ID.
func (s *Service) Product(ctx context.Context, productID string) (*ProductView, error) {
	deal, err := s.store.GetDealByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("product lookup failed: %w", err)
	}
	if deal == nil {
		return nil, ErrNotFound
	}

	variants, err := s.store.VariantsByNormalizedTitle(ctx, deal.NormalizedTitle)
	if err != nil {
		return nil, fmt.Errorf("variant lookup failed: %w", err)
	}

	history, err := s.store.PriceHistoryFor(ctx, productID, 30)
	if err != nil {
		return nil, fmt.Errorf("price history lookup failed: %w", err)
	}

	scored := make([]models.ScoredDeal, 0, len(variants))
	for _, v := range variants {
		sim := matcher.CalculateSimilarity(deal.NormalizedTitle, v.NormalizedTitle)
		scored = append(scored, models.ScoredDeal{Deal: v, Similarity: sim})
	}

	return &ProductView{
		Deal:           deal,
		Variants:       scored,
		PriceHistory:   history,
		Recommendation: buyRecommendation(history, deal.Price),
	}, nil
}

// TriggerIngestion queues a scheduler run; false means one is already
// pending.
func (s *Service) TriggerIngestion() bool {
	return s.trigger.Trigger()
}

const (
	RecommendationBuy     = "good_time_to_buy"
	RecommendationWait    = "price_above_average"
	RecommendationNeutral = "neutral"
)

// buyRecommendation compares the current price against the observed
// series. Fewer than five observations is too thin to call either way.
func buyRecommendation(history []models.PricePoint, current float64) string {
	if len(history) < 5 {
		return RecommendationNeutral
	}

	min := history[0].Price
	var sum float64
	for _, p := range history {
		if p.Price < min {
			min = p.Price
		}
		sum += p.Price
	}
	avg := sum / float64(len(history))

	switch {
	case current <= min*1.05:
		return RecommendationBuy
	case current >= avg*1.15:
		return RecommendationWait
	default:
		return RecommendationNeutral
	}
}

func scoreDeals(deals []models.Deal, normalizedQuery string) []models.ScoredDeal {
	scored := make([]models.ScoredDeal, 0, len(deals))
	for _, deal := range deals {
		scored = append(scored, models.ScoredDeal{
			Deal:       deal,
			Similarity: matcher.CalculateSimilarity(normalizedQuery, deal.NormalizedTitle),
		})
	}
	return scored
}

func sortScored(scored []models.ScoredDeal, sortBy string) {
	switch sortBy {
	case SortPriceLow:
		sort.SliceStable(scored, func(i, j int) bool { return scored[i].Price < scored[j].Price })
	case SortPriceHigh:
		sort.SliceStable(scored, func(i, j int) bool { return scored[i].Price > scored[j].Price })
	case SortRating:
		sort.SliceStable(scored, func(i, j int) bool { return scored[i].Rating > scored[j].Rating })
	default:
		sort.SliceStable(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })
	}
}
