package extractor

import (
	"regexp"

	"github.com/dealradar/deal-aggregator/internal/models"
	"github.com/dealradar/deal-aggregator/internal/session"
)

var flipkartProductIDRe = regexp.MustCompile(`/p/(itm[a-z0-9]+)`)

// NewFlipkart builds the flipkart.com extractor. Flipkart churns its CSS
// class names frequently, so every field carries several generations of
// selectors.
func NewFlipkart(sess *session.Manager) *SiteExtractor {
	return newSiteExtractor(sess, siteSpec{
		platform: models.PlatformFlipkart,
		hosts:    []string{"flipkart.com"},

		titleSelectors: []string{
			".VU-ZEz",
			".B_NuCI",
			"span.B_NuCI",
			".yhB1nd",
		},
		priceSelectors: []string{
			"._30jeq3._16Jk6d",
			"._30jeq3",
		},
		ratingSelectors: []string{
			"div._3LWZlK",
			"._3LWZlK",
		},
		reviewSelectors: []string{
			"._2_R_DZ span",
			"span._2_R_DZ",
			"._13vcmD span",
		},
		imageSelectors: []string{
			"._396cs4._2amPTt img",
			"._1Nyybr img",
			"img._396cs4",
		},

		blockedMarkers: []string{
			"captcha",
			"Access Denied",
			"Page Not Found",
		},

		productIDPattern: flipkartProductIDRe,
	})
}
