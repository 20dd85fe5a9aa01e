package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealradar/deal-aggregator/internal/models"
	"github.com/dealradar/deal-aggregator/internal/session"
)

func testRegistry() *Registry {
	// The session manager launches lazily; constructing it never touches a
	// browser.
	return NewRegistry(session.New(nil))
}

func TestRegistryForURL(t *testing.T) {
	r := testRegistry()

	tests := []struct {
		url      string
		platform models.Platform
	}{
		{"https://www.amazon.in/Apple-iPhone-15/dp/B0CHX1W1XY", models.PlatformAmazon},
		{"https://www.flipkart.com/apple-iphone-15/p/itm6ac6485971754", models.PlatformFlipkart},
		{"https://www.meesho.com/trendy-mens-tshirts/p/1srj4o", models.PlatformMeesho},
		{"https://www.myntra.com/tshirts/roadster/roadster-tee/1376577/buy", models.PlatformMyntra},
		{"https://www.ajio.com/levis-skinny-fit-jeans/p/460863045_blue", models.PlatformAjio},
	}

	for _, tt := range tests {
		e, err := r.ForURL(tt.url)
		require.NoError(t, err, "url %s", tt.url)
		assert.Equal(t, tt.platform, e.Platform())
	}
}

func TestRegistryForURLUnknownHost(t *testing.T) {
	r := testRegistry()

	_, err := r.ForURL("https://example.com/some-product")
	assert.Error(t, err)

	// The URL-driven single-deal path falls back to amazon.
	e := r.ForURLOrDefault("https://example.com/some-product")
	assert.Equal(t, models.PlatformAmazon, e.Platform())
}

func TestRegistryForPlatform(t *testing.T) {
	r := testRegistry()

	for _, platform := range models.AllPlatforms() {
		e, ok := r.ForPlatform(platform)
		require.True(t, ok, "missing extractor for %s", platform)
		assert.Equal(t, platform, e.Platform())
	}

	_, ok := r.ForPlatform("ebay")
	assert.False(t, ok)
}

func TestProductIDDerivation(t *testing.T) {
	r := testRegistry()

	tests := []struct {
		url string
		id  string
	}{
		{"https://www.amazon.in/Apple-iPhone-15/dp/B0CHX1W1XY", "B0CHX1W1XY"},
		{"https://www.flipkart.com/apple-iphone-15/p/itm6ac6485971754", "itm6ac6485971754"},
		{"https://www.meesho.com/trendy-mens-tshirts/p/1srj4o", "1srj4o"},
		{"https://www.myntra.com/tshirts/roadster/roadster-tee/1376577/buy", "1376577"},
		{"https://www.ajio.com/levis-skinny-fit-jeans/p/460863045_blue", "460863045"},
	}

	for _, tt := range tests {
		e, err := r.ForURL(tt.url)
		require.NoError(t, err)

		site, ok := e.(*SiteExtractor)
		require.True(t, ok)
		assert.Equal(t, tt.id, site.productID(tt.url), "url %s", tt.url)
	}
}

func TestProductIDFallsBackToTimestamp(t *testing.T) {
	r := testRegistry()

	e, err := r.ForURL("https://www.meesho.com/just-a-category-page")
	require.NoError(t, err)

	site := e.(*SiteExtractor)
	id := site.productID("https://www.meesho.com/just-a-category-page")
	assert.NotEmpty(t, id)
	assert.Regexp(t, `^\d+$`, id)
}

func TestAmazonCanonicalize(t *testing.T) {
	e := NewAmazon(session.New(nil))

	url := "https://www.amazon.in/Apple-iPhone-15/dp/B0CHX1W1XY/ref=sr_1_3?keywords=iphone&qid=17"
	assert.Equal(t, "https://www.amazon.in/dp/B0CHX1W1XY", e.spec.canonicalize(url))

	// URLs without a /dp/ segment pass through untouched.
	other := "https://www.amazon.in/s?k=iphone"
	assert.Equal(t, other, e.spec.canonicalize(other))
}
