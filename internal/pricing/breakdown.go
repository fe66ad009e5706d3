package pricing

import (
	"ms-booking-finance/internal/models"

	"github.com/shopspring/decimal"
)

type PriceBreakdown struct {
	BookingID          int64              `json:"booking_id"`
	SchoolID           int64              `json:"school_id"`
	ActivitiesPrice    decimal.Decimal    `json:"activities_price"`
	AdditionalConcepts AdditionalConcepts `json:"additional_concepts"`
	Discounts          Discounts          `json:"discounts"`
	TotalFinal         decimal.Decimal    `json:"total_final"`
	Courses            []CoursePrice      `json:"courses"`
	// ActiveShareRatio is only set for partial-cancellation pricing.
	ActiveShareRatio *decimal.Decimal `json:"active_share_ratio,omitempty"`
	Issues           []models.Issue   `json:"issues,omitempty"`
}

type AdditionalConcepts struct {
	CancellationInsurance decimal.Decimal `json:"cancellation_insurance"`
	BoukiiCare            decimal.Decimal `json:"boukii_care"`
	TVA                   decimal.Decimal `json:"tva"`
	Total                 decimal.Decimal `json:"total"`
}

type Discounts struct {
	ManualReduction decimal.Decimal `json:"manual_reduction"`
	Total           decimal.Decimal `json:"total"`
}

// CoursePrice is the subtotal contributed by one course of the booking.
type CoursePrice struct {
	CourseID     int64             `json:"course_id"`
	CourseName   string            `json:"course_name"`
	CourseType   models.CourseType `json:"course_type"`
	IsFlexible   bool              `json:"is_flexible"`
	Participants int               `json:"participants"`
	Sessions     int               `json:"sessions"`
	BasePrice    decimal.Decimal   `json:"base_price"`
	ExtrasPrice  decimal.Decimal   `json:"extras_price"`
	Subtotal     decimal.Decimal   `json:"subtotal"`
	Error        string            `json:"error,omitempty"`
}
