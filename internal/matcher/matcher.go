// Package matcher turns raw product titles into a canonical,
// comparison-ready form and scores how likely two listings describe the
// same product.
package matcher

import (
	"regexp"
	"strings"
)

var (
	connectiveRe = regexp.MustCompile(`\b(for|men|women|boys|girls|kids|pack|of|with|and|or|the|a|an)\b`)
	sizeTokenRe  = regexp.MustCompile(`\b(xs|s|m|l|xl|xxl|xxxl|\d+xl)\b`)
	magnitudeRe  = regexp.MustCompile(`\b\d+\s*(gb|tb|mb|kg|g|ml|l|cm|mm|inch|inches|ft|feet)\b`)
	colorRe      = regexp.MustCompile(`\b(black|white|red|blue|green|yellow|pink|purple|grey|gray|brown|orange|silver|gold)\b`)
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9\s]`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// NormalizeTitle lower-cases a title and strips connectives, size tokens,
// unit-suffixed magnitudes, color names, and punctuation. The result is a
// deterministic, pure function of the input and is idempotent.
func NormalizeTitle(title string) string {
	if title == "" {
		return ""
	}

	s := strings.TrimSpace(strings.ToLower(title))
	s = connectiveRe.ReplaceAllString(s, " ")
	s = sizeTokenRe.ReplaceAllString(s, " ")
	s = magnitudeRe.ReplaceAllString(s, " ")
	s = colorRe.ReplaceAllString(s, " ")
	s = nonAlnumRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// ExtractKeywords returns the unique tokens of the normalized title with
// length > 2. Order is not significant.
func ExtractKeywords(title string) []string {
	seen := make(map[string]bool)
	var keywords []string

	for _, w := range strings.Fields(NormalizeTitle(title)) {
		if len(w) <= 2 || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
	}

	return keywords
}

// CalculateSimilarity computes the Jaccard similarity of the word sets of
// the two normalized titles. Symmetric, bounded in [0,1], and 0 when the
// union is empty.
func CalculateSimilarity(a, b string) float64 {
	setA := wordSet(NormalizeTitle(a))
	setB := wordSet(NormalizeTitle(b))

	union := len(setA)
	intersection := 0
	for w := range setB {
		if setA[w] {
			intersection++
		} else {
			union++
		}
	}

	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

// commonBrands is the fixed brand vocabulary checked before falling back to
// the title's first word.
var commonBrands = []string{
	"samsung", "apple", "nike", "adidas", "puma", "reebok",
	"xiaomi", "realme", "oneplus", "oppo", "vivo",
	"hp", "dell", "lenovo", "sony", "lg",
	"boat", "jbl", "bose",
	"levi", "levis", "zara", "h&m", "uniqlo",
}

// ExtractBrand returns the first vocabulary brand found in the title, or the
// first word of the title when it is longer than 2 characters, or "".
func ExtractBrand(title string) string {
	lower := strings.ToLower(title)
	for _, brand := range commonBrands {
		if strings.Contains(lower, brand) {
			return brand
		}
	}

	fields := strings.Fields(title)
	if len(fields) > 0 && len(fields[0]) > 2 {
		return strings.ToLower(fields[0])
	}

	return ""
}

// categoryRules maps title patterns to categories, checked in order.
var categoryRules = []struct {
	pattern  *regexp.Regexp
	category string
}{
	{regexp.MustCompile(`\b(phone|mobile|smartphone|iphone|android)\b`), "electronics"},
	{regexp.MustCompile(`\b(laptop|computer|desktop|tablet|ipad)\b`), "computers"},
	{regexp.MustCompile(`\b(shirt|tshirt|t-shirt|jeans|pants|trouser|dress|top)\b`), "fashion"},
	{regexp.MustCompile(`\b(shoe|shoes|sneaker|boot|sandal|slipper)\b`), "footwear"},
	{regexp.MustCompile(`\b(watch|watches)\b`), "accessories"},
	{regexp.MustCompile(`\b(headphone|earphone|earbud|speaker|audio)\b`), "audio"},
	{regexp.MustCompile(`\b(bag|backpack|luggage|wallet)\b`), "bags"},
}

// Categorize assigns a coarse product category from the title, defaulting to
// "general".
func Categorize(title string) string {
	lower := strings.ToLower(title)
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(lower) {
			return rule.category
		}
	}
	return "general"
}
