package models

import "time"

// Platform identifies one of the supported e-commerce sites.
type Platform string

const (
	PlatformAmazon   Platform = "amazon"
	PlatformFlipkart Platform = "flipkart"
	PlatformMeesho   Platform = "meesho"
	PlatformMyntra   Platform = "myntra"
	PlatformAjio     Platform = "ajio"
)

// AllPlatforms lists every supported platform in ingestion fan-out order.
func AllPlatforms() []Platform {
	return []Platform{
		PlatformAmazon,
		PlatformFlipkart,
		PlatformMeesho,
		PlatformMyntra,
		PlatformAjio,
	}
}

// Valid reports whether p is one of the known platform tags.
func (p Platform) Valid() bool {
	switch p {
	case PlatformAmazon, PlatformFlipkart, PlatformMeesho, PlatformMyntra, PlatformAjio:
		return true
	}
	return false
}

// Title sentinels produced by extractors for pages that could not be read.
// Deals carrying a sentinel title are never persisted.
const (
	TitleBlocked     = "Blocked"
	TitleUnavailable = "N/A"
)

// ScrapedProduct is the raw result of a single page extraction, before
// validation and normalization.
type ScrapedProduct struct {
	Platform  Platform `json:"platform"`
	ProductID string   `json:"product_id"`
	Title     string   `json:"title"`
	Price     float64  `json:"price"`
	Rating    float64  `json:"rating"`
	Reviews   int      `json:"reviews"`
	Image     string   `json:"image"`
	URL       string   `json:"url"`
}

// Blocked reports whether the extraction hit a bot challenge page.
func (p *ScrapedProduct) Blocked() bool {
	return p.Title == TitleBlocked
}

// Deal is one listing of one product on one platform. The identity key is
// (ProductID, Platform).
type Deal struct {
	ID              string    `json:"id" db:"id"`
	ProductID       string    `json:"product_id" db:"product_id"`
	Platform        Platform  `json:"platform" db:"platform"`
	Title           string    `json:"title" db:"title"`
	NormalizedTitle string    `json:"normalized_title" db:"normalized_title"`
	Price           float64   `json:"price" db:"price"`
	OriginalPrice   float64   `json:"original_price,omitempty" db:"original_price"`
	Discount        float64   `json:"discount,omitempty" db:"discount"`
	Rating          float64   `json:"rating" db:"rating"`
	Reviews         int       `json:"reviews" db:"reviews"`
	Image           string    `json:"image" db:"image"`
	URL             string    `json:"url" db:"url"`
	Category        string    `json:"category" db:"category"`
	Brand           string    `json:"brand" db:"brand"`
	Keywords        []string  `json:"keywords" db:"keywords"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	LastScraped     time.Time `json:"last_scraped" db:"last_scraped"`
	ExpiresAt       time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// ScoredDeal is a deal annotated with its similarity to a search query.
type ScoredDeal struct {
	Deal
	Similarity float64 `json:"similarity_score"`
}

// ProductGroup is a transient, query-time cluster of deals judged to be the
// same product across platforms. Never persisted; recomputed per query.
type ProductGroup struct {
	ProductName     string       `json:"product_name"`
	NormalizedTitle string       `json:"normalized_title"`
	Category        string       `json:"category"`
	Brand           string       `json:"brand"`
	Variants        []ScoredDeal `json:"variants"`
	LowestPrice     float64      `json:"lowest_price"`
	HighestRating   float64      `json:"highest_rating"`
	BestDeal        ScoredDeal   `json:"best_deal"`
}

// PricePoint is one append-only price observation for a product.
type PricePoint struct {
	ProductID string    `json:"product_id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}
