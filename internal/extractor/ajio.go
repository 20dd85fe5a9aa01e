package extractor

import (
	"regexp"

	"github.com/dealradar/deal-aggregator/internal/models"
	"github.com/dealradar/deal-aggregator/internal/session"
)

var ajioProductIDRe = regexp.MustCompile(`/p/(\d+)`)

// NewAjio builds the ajio.com extractor.
func NewAjio(sess *session.Manager) *SiteExtractor {
	return newSiteExtractor(sess, siteSpec{
		platform: models.PlatformAjio,
		hosts:    []string{"ajio.com"},

		titleSelectors: []string{
			".prod-title",
			`h1[class*="prod-name"]`,
			".pdp-product-title-price h1",
		},
		priceSelectors: []string{
			".prod-sp",
			`span[class*="prod-sp"]`,
			".prod-price span",
		},
		ratingSelectors: []string{
			".prod-rating-value",
			`span[class*="rating-value"]`,
		},
		reviewSelectors: []string{
			".prod-rating-count",
			`span[class*="rating-count"]`,
		},
		imageSelectors: []string{
			".rilrtl-image img",
			`img[class*="product-image"]`,
			".preview-image img",
		},

		blockedMarkers: []string{
			"captcha",
			"Access Denied",
			"Page Not Found",
		},

		productIDPattern: ajioProductIDRe,
	})
}
