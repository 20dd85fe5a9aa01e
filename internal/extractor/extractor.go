// Package extractor drives product pages through the shared browser session
// and turns them into structured scrape results. One extractor exists per
// supported platform; all of them share the same page-driving skeleton and
// differ only in selectors, URL rules, and price semantics.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/dealradar/deal-aggregator/internal/models"
	"github.com/dealradar/deal-aggregator/internal/session"
)

// Extractor is the capability every platform variant implements.
type Extractor interface {
	Platform() models.Platform
	Matches(url string) bool
	Extract(ctx context.Context, url string) (*models.ScrapedProduct, error)
}

// siteSpec captures everything platform-specific: where the fields live,
// how prices are encoded, and what a challenge page looks like.
type siteSpec struct {
	platform models.Platform
	hosts    []string

	titleSelectors  []string
	priceSelectors  []string
	ratingSelectors []string
	reviewSelectors []string
	imageSelectors  []string

	blockedMarkers []string

	productIDPattern *regexp.Regexp
	canonicalize     func(string) string

	// priceDivisor corrects fixed-point price encodings ("399900" → 3999).
	priceDivisor float64
	// ratingUnitWord, when set, must appear in the rating text for it to be
	// trusted as a rating at all.
	ratingUnitWord string
}

// SiteExtractor runs the shared extraction skeleton over one siteSpec.
type SiteExtractor struct {
	spec    siteSpec
	session *session.Manager
	logger  *slog.Logger
}

func newSiteExtractor(sess *session.Manager, spec siteSpec) *SiteExtractor {
	if spec.priceDivisor == 0 {
		spec.priceDivisor = 1
	}
	if spec.canonicalize == nil {
		spec.canonicalize = stripQuery
	}
	return &SiteExtractor{
		spec:    spec,
		session: sess,
		logger:  slog.Default().With("component", "extractor", "platform", string(spec.platform)),
	}
}

func (e *SiteExtractor) Platform() models.Platform { return e.spec.platform }

func (e *SiteExtractor) Matches(url string) bool {
	for _, host := range e.spec.hosts {
		if strings.Contains(url, host) {
			return true
		}
	}
	return false
}

// Extract navigates to the product page and reads title, price, rating,
// review count, and image. A recognized challenge page yields a Blocked
// result, not an error; the caller is expected to carry on. Navigation and
// render faults are returned as errors carrying the cause.
func (e *SiteExtractor) Extract(ctx context.Context, rawURL string) (*models.ScrapedProduct, error) {
	cleanURL := e.spec.canonicalize(rawURL)
	e.logger.Info("scraping product", "url", cleanURL)

	page, err := e.session.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()
	defer func() {
		if err := e.session.SaveState(); err != nil {
			e.logger.Warn("failed to persist session state", "error", err)
		}
	}()

	if err := e.session.NavigateHumanlike(page, cleanURL); err != nil {
		return nil, err
	}

	// Give client-side rendering a chance to fill the DOM.
	page.WaitForTimeout(3000)

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}

	if pageBlocked(html, e.spec.blockedMarkers) {
		e.logger.Warn("blocked by site defense", "url", cleanURL)
		return &models.ScrapedProduct{
			Platform:  e.spec.platform,
			ProductID: e.productID(cleanURL),
			Title:     models.TitleBlocked,
			URL:       cleanURL,
		}, nil
	}

	autoScroll(page)

	title := firstText(page, e.spec.titleSelectors)
	priceText := firstText(page, e.spec.priceSelectors)
	ratingText := firstText(page, e.spec.ratingSelectors)
	reviewsText := firstText(page, e.spec.reviewSelectors)

	image := firstAttribute(page, e.spec.imageSelectors, "src", "data-src")
	if image == "" {
		image = fallbackImage(html)
	}

	product := &models.ScrapedProduct{
		Platform:  e.spec.platform,
		ProductID: e.productID(cleanURL),
		Title:     title,
		Price:     parsePrice(priceText, e.spec.priceDivisor),
		Rating:    parseRating(ratingText, e.spec.ratingUnitWord),
		Reviews:   parseReviews(reviewsText),
		Image:     image,
		URL:       cleanURL,
	}

	e.logger.Info("scraped product",
		"product_id", product.ProductID,
		"title", product.Title,
		"price", product.Price)

	return product, nil
}

func (e *SiteExtractor) productID(url string) string {
	if e.spec.productIDPattern != nil {
		if m := e.spec.productIDPattern.FindStringSubmatch(url); len(m) > 1 {
			return m[1]
		}
	}
	// No recognizable ID in the URL; fall back to a timestamp key so the
	// observation is still recorded.
	return fmt.Sprintf("%d", time.Now().UnixMilli())
}

// firstText tries each selector in order and returns the first non-empty
// text match, or the unavailable sentinel when nothing matches.
func firstText(page playwright.Page, selectors []string) string {
	for _, sel := range selectors {
		locator := page.Locator(sel).First()
		text, err := locator.TextContent(playwright.LocatorTextContentOptions{
			Timeout: playwright.Float(2000),
		})
		if err != nil {
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return trimmed
		}
	}
	return models.TitleUnavailable
}

// firstAttribute tries each selector/attribute combination in order and
// returns the first non-empty value.
func firstAttribute(page playwright.Page, selectors []string, attrs ...string) string {
	for _, sel := range selectors {
		locator := page.Locator(sel).First()
		for _, attr := range attrs {
			value, err := locator.GetAttribute(attr, playwright.LocatorGetAttributeOptions{
				Timeout: playwright.Float(2000),
			})
			if err != nil {
				continue
			}
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// autoScroll steps to the bottom of the page so lazy-loaded sections render.
func autoScroll(page playwright.Page) {
	page.Evaluate(`async () => {
		await new Promise((resolve) => {
			let totalHeight = 0;
			const distance = 500;
			const timer = setInterval(() => {
				const scrollHeight = document.body.scrollHeight;
				window.scrollBy(0, distance);
				totalHeight += distance;
				if (totalHeight >= scrollHeight - window.innerHeight) {
					clearInterval(timer);
					resolve(true);
				}
			}, 400);
		});
	}`)
}

// stripQuery is the default URL canonicalization: drop tracking parameters.
func stripQuery(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}

// Registry selects the extractor for a URL once, by host pattern, instead of
// re-deriving the platform at every call site.
type Registry struct {
	extractors []Extractor
}

func NewRegistry(sess *session.Manager) *Registry {
	return &Registry{
		extractors: []Extractor{
			NewAmazon(sess),
			NewFlipkart(sess),
			NewMeesho(sess),
			NewMyntra(sess),
			NewAjio(sess),
		},
	}
}

// ForURL returns the extractor whose host pattern matches the URL.
func (r *Registry) ForURL(url string) (Extractor, error) {
	for _, e := range r.extractors {
		if e.Matches(url) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("no extractor registered for url %q", url)
}

// ForPlatform returns the extractor for a platform tag.
func (r *Registry) ForPlatform(platform models.Platform) (Extractor, bool) {
	for _, e := range r.extractors {
		if e.Platform() == platform {
			return e, true
		}
	}
	return nil, false
}

// ForURLOrDefault resolves like ForURL but falls back to the amazon
// extractor, matching the single-URL store path's historical behavior with
// bare short links.
func (r *Registry) ForURLOrDefault(url string) Extractor {
	if e, err := r.ForURL(url); err == nil {
		return e
	}
	return r.extractors[0]
}
