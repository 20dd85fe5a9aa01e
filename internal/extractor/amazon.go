package extractor

import (
	"regexp"

	"github.com/dealradar/deal-aggregator/internal/models"
	"github.com/dealradar/deal-aggregator/internal/session"
)

var amazonProductIDRe = regexp.MustCompile(`(?i)/dp/([A-Z0-9]{10})`)

// NewAmazon builds the amazon.in extractor. Amazon renders prices in a
// fixed-point encoding (paise), hence the divide-by-100 correction, and its
// rating text is only trustworthy when it carries the "out of 5 stars"
// phrasing.
func NewAmazon(sess *session.Manager) *SiteExtractor {
	return newSiteExtractor(sess, siteSpec{
		platform: models.PlatformAmazon,
		hosts:    []string{"amazon."},

		titleSelectors: []string{"#productTitle"},
		priceSelectors: []string{".a-price .a-offscreen"},
		ratingSelectors: []string{
			"span.a-icon-alt",
		},
		reviewSelectors: []string{"#acrCustomerReviewText"},
		imageSelectors:  []string{"#landingImage"},

		blockedMarkers: []string{
			"captcha",
			"Robot Check",
			"Enter the characters you see below",
			"Page Not Found",
		},

		productIDPattern: amazonProductIDRe,
		// Tracking segments around /dp/<ASIN> carry search context that
		// changes per visit; the bare /dp/ URL is the stable identity.
		canonicalize: func(url string) string {
			if m := amazonProductIDRe.FindStringSubmatch(url); len(m) > 1 {
				return "https://www.amazon.in/dp/" + m[1]
			}
			return url
		},

		priceDivisor:   100,
		ratingUnitWord: "out",
	})
}
