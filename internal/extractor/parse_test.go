package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		divisor  float64
		expected float64
	}{
		{"amazon fixed-point paise", "₹3,999.00", 100, 3999},
		{"amazon lakh price", "₹1,49,900.00", 100, 149900},
		{"flipkart integer rupees", "₹3,999", 1, 3999},
		{"plain number", "499", 1, 499},
		{"unavailable sentinel", "N/A", 1, 0},
		{"empty", "", 100, 0},
		{"no digits", "Price on request", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parsePrice(tt.text, tt.divisor))
		})
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		unitWord string
		expected float64
	}{
		{"amazon with unit marker", "4.1 out of 5 stars", "out", 4.1},
		{"amazon missing unit marker", "4.1", "out", 0},
		{"flipkart bare rating", "4.3", "", 4.3},
		{"integer rating", "4", "", 4},
		{"unavailable", "N/A", "", 0},
		{"empty", "", "out", 0},
		{"no leading number", "Rated highly", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseRating(tt.text, tt.unitWord))
		})
	}
}

func TestParseReviews(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{"parenthesized count", "(4,864)", 4864},
		{"count with suffix", "4,864 Ratings", 4864},
		{"plain", "120", 120},
		{"unavailable", "N/A", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseReviews(tt.text))
		})
	}
}

func TestPageBlocked(t *testing.T) {
	markers := []string{"captcha", "Robot Check"}

	assert.True(t, pageBlocked(`<html><body>please solve this captcha</body></html>`, markers))
	assert.True(t, pageBlocked(`<title>Robot Check</title>`, markers))
	assert.False(t, pageBlocked(`<html><body><h1>Apple iPhone 15</h1></body></html>`, markers))
	assert.False(t, pageBlocked("", markers))
}

func TestFallbackImage(t *testing.T) {
	html := `<html><head>
		<meta property="og:image" content="https://img.example.com/p/1.jpg" />
	</head><body></body></html>`

	assert.Equal(t, "https://img.example.com/p/1.jpg", fallbackImage(html))
	assert.Equal(t, "", fallbackImage("<html><body>nothing</body></html>"))
}
