package pricing

import (
	"time"

	"ms-booking-finance/internal/models"
)

// PricingContext carries everything the engine would otherwise read from
// ambient state: the evaluation time and the school's settings.
type PricingContext struct {
	Now    time.Time
	School models.School
}

// Options tune a single computation.
type Options struct {
	// ExcludeCourses drops every line item of these courses, used when
	// re-pricing partial cancellations.
	ExcludeCourses   map[int64]bool
	IncludeInsurance bool
}

func DefaultOptions() Options {
	return Options{IncludeInsurance: true}
}
