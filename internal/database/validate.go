package database

import (
	"errors"
	"fmt"

	"github.com/dealradar/deal-aggregator/internal/models"
)

// Validation reasons. Callers branch on the reason to decide whether the
// failure is retryable (blocked pages clear up, an empty title usually
// means the selectors aged out).
const (
	ReasonInvalidTitle = "invalid title"
	ReasonBlocked      = "blocked"
	ReasonUnavailable  = "unavailable"
	ReasonInvalidPrice = "invalid price"
	ReasonInvalidURL   = "invalid url"
)

// ValidationError rejects a scraped candidate before it reaches storage.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("deal validation failed: %s", e.Reason)
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// ValidateScraped is the gate in front of every write. The checks run in a
// fixed order (title shape, block sentinel, unavailable sentinel, price,
// URL), so a result like title "N/A" with price 0 reports the title
// problem, not the price.
func ValidateScraped(p *models.ScrapedProduct) error {
	if p == nil {
		return &ValidationError{Reason: ReasonInvalidTitle}
	}

	switch {
	case p.Title == "" || len(p.Title) <= 3:
		return &ValidationError{Reason: ReasonInvalidTitle}
	case p.Title == models.TitleBlocked:
		return &ValidationError{Reason: ReasonBlocked}
	case p.Title == models.TitleUnavailable:
		return &ValidationError{Reason: ReasonUnavailable}
	case p.Price <= 0:
		return &ValidationError{Reason: ReasonInvalidPrice}
	case p.URL == "":
		return &ValidationError{Reason: ReasonInvalidURL}
	}

	return nil
}
