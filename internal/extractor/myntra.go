package extractor

import (
	"regexp"

	"github.com/dealradar/deal-aggregator/internal/models"
	"github.com/dealradar/deal-aggregator/internal/session"
)

var myntraProductIDRe = regexp.MustCompile(`/(\d+)/buy`)

// NewMyntra builds the myntra.com extractor. Myntra product URLs end in
// /<numeric-id>/buy.
func NewMyntra(sess *session.Manager) *SiteExtractor {
	return newSiteExtractor(sess, siteSpec{
		platform: models.PlatformMyntra,
		hosts:    []string{"myntra.com"},

		titleSelectors: []string{
			".pdp-title",
			".pdp-name",
			"h1.pdp-name",
		},
		priceSelectors: []string{
			".pdp-price strong",
			".pdp-price",
			`span[class*="pdp-price"]`,
		},
		ratingSelectors: []string{
			".index-overallRating div",
			`div[class*="index-overallRating"]`,
		},
		reviewSelectors: []string{
			".index-ratingsCount",
			`div[class*="ratingsCount"]`,
		},
		imageSelectors: []string{
			".image-grid-image",
			".image-grid-imageContainer img",
		},

		blockedMarkers: []string{
			"captcha",
			"Access Denied",
			"Page Not Found",
		},

		productIDPattern: myntraProductIDRe,
	})
}
