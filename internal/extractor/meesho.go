package extractor

import (
	"regexp"

	"github.com/dealradar/deal-aggregator/internal/models"
	"github.com/dealradar/deal-aggregator/internal/session"
)

var meeshoProductIDRe = regexp.MustCompile(`/p/([^/?]+)`)

// NewMeesho builds the meesho.com extractor. Meesho uses generated
// styled-component class names, so everything matches on class-name
// substrings.
func NewMeesho(sess *session.Manager) *SiteExtractor {
	return newSiteExtractor(sess, siteSpec{
		platform: models.PlatformMeesho,
		hosts:    []string{"meesho.com"},

		titleSelectors: []string{
			`h1[class*="ProductDetail"]`,
			`h1[class*="Title"]`,
		},
		priceSelectors: []string{
			`span[class*="PriceCard__Price"]`,
			`h4[class*="DesktopPriceCard__Price"]`,
		},
		ratingSelectors: []string{
			`span[class*="Rating__RatingLabel"]`,
			`div[class*="Rating"] span`,
		},
		reviewSelectors: []string{
			`span[class*="Rating__Count"]`,
			`span[class*="ReviewCount"]`,
		},
		imageSelectors: []string{
			`img[class*="DetailCard__StickyImage"]`,
			`img[class*="ProductDetail__Image"]`,
		},

		blockedMarkers: []string{
			"captcha",
			"Access Denied",
		},

		productIDPattern: meeshoProductIDRe,
	})
}
