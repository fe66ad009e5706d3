package models

import (
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// CourseType is the pricing model tag stored on a course.
type CourseType int

const (
	CourseTypeCollective CourseType = 1
	CourseTypePrivate    CourseType = 2
	CourseTypeActivity   CourseType = 3
)

func (t CourseType) String() string {
	switch t {
	case CourseTypeCollective:
		return "collective"
	case CourseTypePrivate:
		return "private"
	case CourseTypeActivity:
		return "activity"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

type Course struct {
	bun.BaseModel `bun:"table:courses,alias:c"`

	ID         int64           `bun:"id,pk,autoincrement" json:"id"`
	SchoolID   int64           `bun:"school_id" json:"school_id"`
	Name       string          `bun:"name" json:"name"`
	CourseType CourseType      `bun:"course_type,notnull" json:"course_type"`
	IsFlexible bool            `bun:"is_flexible" json:"is_flexible"`
	Price      decimal.Decimal `bun:"price,type:decimal(10,2)" json:"price"`
	Currency   string          `bun:"currency" json:"currency"`
	PriceRange []PriceRangeRow `bun:"price_range,type:jsonb" json:"price_range,omitempty"`
	Discounts  []DateDiscount  `bun:"discounts,type:jsonb" json:"discounts,omitempty"`
}

// PriceRangeRow holds the session prices of one duration interval,
// keyed by participant count ("1", "2", ...).
type PriceRangeRow struct {
	Interval string                     `json:"interval"`
	Prices   map[string]decimal.Decimal `json:"prices"`
}

// DateDiscount is a percentage off the base price for the Nth date a
// client attends a flexible collective course.
type DateDiscount struct {
	Day        int             `json:"day"`
	Percentage decimal.Decimal `json:"percentage"`
}

// SessionPrice returns the tabulated price for an interval label and a
// participant count.
func (c *Course) SessionPrice(interval string, participants int) (decimal.Decimal, bool) {
	for _, row := range c.PriceRange {
		if row.Interval != interval {
			continue
		}
		price, ok := row.Prices[strconv.Itoa(participants)]
		return price, ok
	}
	return decimal.Zero, false
}

// DiscountForDay returns the discount percentage for the Nth attended date.
func (c *Course) DiscountForDay(n int) decimal.Decimal {
	for _, d := range c.Discounts {
		if d.Day == n {
			return d.Percentage
		}
	}
	return decimal.Zero
}
