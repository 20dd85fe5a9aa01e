package scheduler

import (
	"os"
	"strings"

	"github.com/dealradar/deal-aggregator/internal/models"
)

// defaultTargets seeds each platform with product pages known to rotate
// deals frequently. Overridable per platform via TARGETS_<PLATFORM> as a
// comma-separated URL list.
var defaultTargets = map[models.Platform][]string{
	models.PlatformAmazon: {
		"https://www.amazon.in/dp/B0CHX1W1XY",
		"https://www.amazon.in/dp/B0C7QLRJ37",
		"https://www.amazon.in/dp/B0BT9CXXXX",
	},
	models.PlatformFlipkart: {
		"https://www.flipkart.com/apple-iphone-15-blue-128-gb/p/itm6ac6485515ae4",
		"https://www.flipkart.com/samsung-galaxy-s24-5g/p/itmf3b180b73097b",
	},
	models.PlatformMeesho: {
		"https://www.meesho.com/stylish-cotton-kurta-set/p/3kt8xy",
		"https://www.meesho.com/wireless-bluetooth-earbuds/p/4mz2ab",
	},
	models.PlatformMyntra: {
		"https://www.myntra.com/tshirts/nike/nike-men-black-t-shirt/1700944/buy",
		"https://www.myntra.com/shoes/puma/puma-unisex-sneakers/2297156/buy",
	},
	models.PlatformAjio: {
		"https://www.ajio.com/nike-revolution-6-running-shoes/p/469437919",
		"https://www.ajio.com/levis-512-slim-tapered-jeans/p/461193258",
	},
}

// LoadTargets returns the scrape target list per platform, applying any
// TARGETS_<PLATFORM> env overrides to the seeded defaults.
func LoadTargets() map[models.Platform][]string {
	targets := make(map[models.Platform][]string, len(defaultTargets))

	for _, platform := range models.AllPlatforms() {
		urls := defaultTargets[platform]
		if raw := os.Getenv("TARGETS_" + strings.ToUpper(string(platform))); raw != "" {
			urls = nil
			for _, u := range strings.Split(raw, ",") {
				if u = strings.TrimSpace(u); u != "" {
					urls = append(urls, u)
				}
			}
		}
		if len(urls) > 0 {
			targets[platform] = urls
		}
	}

	return targets
}
