package extractor

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealradar/deal-aggregator/internal/models"
)

// parsePrice strips everything but digits from a price string and applies
// the platform's fixed-point correction ("₹3,999.00" → 399900 → 3999 with
// divisor 100; "₹3,999" → 3999 with divisor 1).
func parsePrice(text string, divisor float64) float64 {
	if text == "" || text == models.TitleUnavailable {
		return 0
	}

	digits := keepDigits(text)
	if digits == "" {
		return 0
	}

	n, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0
	}
	return n / divisor
}

// parseRating reads the leading decimal from a rating string
// ("4.1 out of 5 stars" → 4.1). When unitWord is set the text must contain
// it, otherwise the match is too ambiguous to trust.
func parseRating(text, unitWord string) float64 {
	if text == "" || text == models.TitleUnavailable {
		return 0
	}
	if unitWord != "" && !strings.Contains(text, unitWord) {
		return 0
	}

	end := 0
	for end < len(text) && (isDigit(text[end]) || text[end] == '.') {
		end++
	}
	if end == 0 {
		return 0
	}

	rating, err := strconv.ParseFloat(strings.TrimSuffix(text[:end], "."), 64)
	if err != nil {
		return 0
	}
	return rating
}

// parseReviews strips non-digits from a review count ("(4,864)" → 4864).
func parseReviews(text string) int {
	if text == "" || text == models.TitleUnavailable {
		return 0
	}

	digits := keepDigits(text)
	if digits == "" {
		return 0
	}

	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

func keepDigits(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// pageBlocked scans raw page content for the platform's known block and
// challenge markers.
func pageBlocked(html string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}

// fallbackImage pulls the og:image meta tag out of the captured HTML when
// none of the image selectors matched.
func fallbackImage(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	if src, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		return strings.TrimSpace(src)
	}
	return ""
}
