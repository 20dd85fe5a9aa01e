package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dealradar/deal-aggregator/internal/matcher"
	"github.com/dealradar/deal-aggregator/internal/models"
)

// DealTTL is how long a scraped deal stays live before the sweep removes it.
const DealTTL = 24 * time.Hour

// sentinelTitles never pass the valid-deal predicate in queries. Rows with
// these titles can only exist if they predate the validation gate.
var sentinelTitles = []string{models.TitleBlocked, models.TitleUnavailable, ""}

// NewDealFromScrape derives the persisted deal from a validated scrape:
// normalized title, keywords, brand, and category come from the matcher;
// the expiry window starts at the scrape time.
func NewDealFromScrape(p *models.ScrapedProduct) *models.Deal {
	now := time.Now()
	return &models.Deal{
		ProductID:       p.ProductID,
		Platform:        p.Platform,
		Title:           p.Title,
		NormalizedTitle: matcher.NormalizeTitle(p.Title),
		Price:           p.Price,
		Rating:          p.Rating,
		Reviews:         p.Reviews,
		Image:           p.Image,
		URL:             p.URL,
		Brand:           matcher.ExtractBrand(p.Title),
		Category:        matcher.Categorize(p.Title),
		Keywords:        matcher.ExtractKeywords(p.Title),
		IsActive:        true,
		LastScraped:     now,
		ExpiresAt:       now.Add(DealTTL),
	}
}

// UpsertDeal validates the candidate and writes it keyed by
// (product_id, platform). An existing row has all scrape-derived fields
// overwritten and its expiry refreshed; upserting the same candidate twice
// yields one row.
func (db *DB) UpsertDeal(ctx context.Context, deal *models.Deal) error {
	if err := ValidateScraped(&models.ScrapedProduct{
		Title: deal.Title,
		Price: deal.Price,
		URL:   deal.URL,
	}); err != nil {
		return err
	}

	query := `
		INSERT INTO deals (
			id, product_id, platform, title, normalized_title,
			price, original_price, discount, rating, reviews,
			image, url, category, brand, keywords,
			is_active, last_scraped, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (product_id, platform) DO UPDATE SET
			title            = EXCLUDED.title,
			normalized_title = EXCLUDED.normalized_title,
			price            = EXCLUDED.price,
			original_price   = EXCLUDED.original_price,
			discount         = EXCLUDED.discount,
			rating           = EXCLUDED.rating,
			reviews          = EXCLUDED.reviews,
			image            = EXCLUDED.image,
			url              = EXCLUDED.url,
			category         = EXCLUDED.category,
			brand            = EXCLUDED.brand,
			keywords         = EXCLUDED.keywords,
			is_active        = EXCLUDED.is_active,
			last_scraped     = EXCLUDED.last_scraped,
			expires_at       = EXCLUDED.expires_at,
			updated_at       = CURRENT_TIMESTAMP
		RETURNING id, created_at, updated_at`

	err := db.QueryRow(ctx, query,
		uuid.New().String(), deal.ProductID, deal.Platform, deal.Title, deal.NormalizedTitle,
		deal.Price, deal.OriginalPrice, deal.Discount, deal.Rating, deal.Reviews,
		deal.Image, deal.URL, deal.Category, deal.Brand, deal.Keywords,
		deal.IsActive, deal.LastScraped, deal.ExpiresAt,
	).Scan(&deal.ID, &deal.CreatedAt, &deal.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert deal: %w", err)
	}

	return nil
}

// DealOrder selects the sort applied inside the store query.
type DealOrder int

const (
	OrderDefault DealOrder = iota
	// OrderDiscountRecent ranks live deals: best discount first, newest
	// first within a discount.
	OrderDiscountRecent
)

// DealFilter narrows a deal query. The zero value selects all active,
// valid, unexpired deals.
type DealFilter struct {
	// Search restricts to rows whose normalized title or keywords mention
	// any token of the (normalized) search text.
	Search    string
	Platforms []models.Platform
	Category  string
	MinPrice  float64
	MaxPrice  float64
	Order     DealOrder
	Limit     int
}

// QueryDeals returns active, unexpired, valid deals matching the filter.
// The validity predicate (positive price, non-sentinel title) is part of
// every query so rows that predate the gate never surface.
func (db *DB) QueryDeals(ctx context.Context, filter DealFilter) ([]models.Deal, error) {
	var (
		conds []string
		args  []interface{}
	)

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conds = append(conds,
		"is_active",
		"expires_at > now()",
		"price > 0",
		"length(title) > 3",
		fmt.Sprintf("title != ALL(%s)", arg(sentinelTitles)),
	)

	if filter.Search != "" {
		tokens := matcher.ExtractKeywords(filter.Search)
		if normalized := matcher.NormalizeTitle(filter.Search); len(tokens) == 0 && normalized != "" {
			tokens = strings.Fields(normalized)
		}
		if len(tokens) > 0 {
			conds = append(conds, fmt.Sprintf(
				"(string_to_array(normalized_title, ' ') && %[1]s OR keywords && %[1]s)", arg(tokens)))
		}
	}

	if len(filter.Platforms) > 0 {
		platforms := make([]string, len(filter.Platforms))
		for i, p := range filter.Platforms {
			platforms[i] = string(p)
		}
		conds = append(conds, fmt.Sprintf("platform = ANY(%s)", arg(platforms)))
	}

	if filter.Category != "" {
		conds = append(conds, fmt.Sprintf("category = %s", arg(filter.Category)))
	}
	if filter.MinPrice > 0 {
		conds = append(conds, fmt.Sprintf("price >= %s", arg(filter.MinPrice)))
	}
	if filter.MaxPrice > 0 {
		conds = append(conds, fmt.Sprintf("price <= %s", arg(filter.MaxPrice)))
	}

	order := "normalized_title, platform"
	if filter.Order == OrderDiscountRecent {
		order = "discount DESC, created_at DESC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`
		SELECT id, product_id, platform, title, normalized_title,
		       price, original_price, discount, rating, reviews,
		       image, url, category, brand, keywords,
		       is_active, last_scraped, expires_at, created_at, updated_at
		FROM deals
		WHERE %s
		ORDER BY %s
		LIMIT %s`,
		strings.Join(conds, " AND "), order, arg(limit))

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer rows.Close()

	return scanDeals(rows)
}

// GetDealByProductID returns the first active deal observed for a product
// ID, or nil when none exists.
func (db *DB) GetDealByProductID(ctx context.Context, productID string) (*models.Deal, error) {
	query := `
		SELECT id, product_id, platform, title, normalized_title,
		       price, original_price, discount, rating, reviews,
		       image, url, category, brand, keywords,
		       is_active, last_scraped, expires_at, created_at, updated_at
		FROM deals
		WHERE product_id = $1 AND is_active
		LIMIT 1`

	rows, err := db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}
	defer rows.Close()

	deals, err := scanDeals(rows)
	if err != nil {
		return nil, err
	}
	if len(deals) == 0 {
		return nil, nil
	}
	return &deals[0], nil
}

// VariantsByNormalizedTitle returns all live deals sharing a normalized
// title, that is, the same product listed across platforms.
func (db *DB) VariantsByNormalizedTitle(ctx context.Context, normalizedTitle string) ([]models.Deal, error) {
	query := `
		SELECT id, product_id, platform, title, normalized_title,
		       price, original_price, discount, rating, reviews,
		       image, url, category, brand, keywords,
		       is_active, last_scraped, expires_at, created_at, updated_at
		FROM deals
		WHERE normalized_title = $1 AND is_active AND expires_at > now()`

	rows, err := db.Query(ctx, query, normalizedTitle)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	return scanDeals(rows)
}

// SweepExpired deletes every deal whose expiry has passed and returns the
// count. Safe to run concurrently with upserts.
func (db *DB) SweepExpired(ctx context.Context) (int64, error) {
	tag, err := db.Exec(ctx, `DELETE FROM deals WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired deals: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteInvalid purges rows that would not pass today's validation gate,
// such as rows written before the gate tightened. The scheduler runs it
// after every sweep.
func (db *DB) DeleteInvalid(ctx context.Context) (int64, error) {
	tag, err := db.Exec(ctx, `
		DELETE FROM deals
		WHERE price <= 0
		   OR length(title) <= 3
		   OR title = ANY($1)
		   OR url = ''`, sentinelTitles)
	if err != nil {
		return 0, fmt.Errorf("failed to delete invalid deals: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountActiveByPlatform reports live deal counts per platform.
func (db *DB) CountActiveByPlatform(ctx context.Context) (map[models.Platform]int, error) {
	rows, err := db.Query(ctx, `
		SELECT platform, COUNT(*)
		FROM deals
		WHERE is_active AND expires_at > now()
		GROUP BY platform`)
	if err != nil {
		return nil, fmt.Errorf("failed to count deals: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Platform]int)
	for rows.Next() {
		var platform models.Platform
		var count int
		if err := rows.Scan(&platform, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[platform] = count
	}

	return counts, rows.Err()
}

func scanDeals(rows pgx.Rows) ([]models.Deal, error) {
	var deals []models.Deal
	for rows.Next() {
		var d models.Deal
		err := rows.Scan(
			&d.ID, &d.ProductID, &d.Platform, &d.Title, &d.NormalizedTitle,
			&d.Price, &d.OriginalPrice, &d.Discount, &d.Rating, &d.Reviews,
			&d.Image, &d.URL, &d.Category, &d.Brand, &d.Keywords,
			&d.IsActive, &d.LastScraped, &d.ExpiresAt, &d.CreatedAt, &d.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}
