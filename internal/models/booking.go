package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type BookingStatus int

const (
	BookingStatusActive             BookingStatus = 1
	BookingStatusCancelled          BookingStatus = 2
	BookingStatusPartiallyCancelled BookingStatus = 3
)

func (s BookingStatus) String() string {
	switch s {
	case BookingStatusActive:
		return "active"
	case BookingStatusCancelled:
		return "cancelled"
	case BookingStatusPartiallyCancelled:
		return "partially_cancelled"
	default:
		return "unknown"
	}
}

type LineItemStatus int

const (
	LineItemStatusActive    LineItemStatus = 1
	LineItemStatusCancelled LineItemStatus = 2
)

// Booking is a client's reservation. Rows are soft-deleted only.
type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:b"`

	ID           int64         `bun:"id,pk,autoincrement" json:"id"`
	SchoolID     int64         `bun:"school_id,notnull" json:"school_id"`
	ClientMainID int64         `bun:"client_main_id,nullzero" json:"client_main_id"`
	Status       BookingStatus `bun:"status,notnull" json:"status"`
	Currency     string        `bun:"currency" json:"currency"`

	PriceTotal decimal.Decimal `bun:"price_total,type:decimal(10,2)" json:"price_total"`
	Paid       bool            `bun:"paid" json:"paid"`
	PaidTotal  decimal.Decimal `bun:"paid_total,type:decimal(10,2)" json:"paid_total"`

	HasCancellationInsurance   bool            `bun:"has_cancellation_insurance" json:"has_cancellation_insurance"`
	PriceCancellationInsurance decimal.Decimal `bun:"price_cancellation_insurance,type:decimal(10,2)" json:"price_cancellation_insurance"`
	HasBoukiiCare              bool            `bun:"has_boukii_care" json:"has_boukii_care"`
	PriceBoukiiCare            decimal.Decimal `bun:"price_boukii_care,type:decimal(10,2)" json:"price_boukii_care"`
	HasTVA                     bool            `bun:"has_tva" json:"has_tva"`
	PriceTVA                   decimal.Decimal `bun:"price_tva,type:decimal(10,2)" json:"price_tva"`
	PriceReduction             decimal.Decimal `bun:"price_reduction,type:decimal(10,2)" json:"price_reduction"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	DeletedAt time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`

	BookingUsers []*BookingUser `bun:"rel:has-many,join:id=booking_id" json:"booking_users,omitempty"`
	Payments     []*Payment     `bun:"rel:has-many,join:id=booking_id" json:"payments,omitempty"`
	VoucherLogs  []*VoucherLog  `bun:"rel:has-many,join:id=booking_id" json:"voucher_logs,omitempty"`
}

// BookingUser is one participant assigned to one course occurrence.
type BookingUser struct {
	bun.BaseModel `bun:"table:booking_users,alias:bu"`

	ID        int64               `bun:"id,pk,autoincrement" json:"id"`
	BookingID int64               `bun:"booking_id,notnull" json:"booking_id"`
	ClientID  int64               `bun:"client_id,nullzero" json:"client_id"`
	CourseID  int64               `bun:"course_id,nullzero" json:"course_id"`
	Status    LineItemStatus      `bun:"status,notnull" json:"status"`
	Date      time.Time           `bun:"date" json:"date"`
	HourStart string              `bun:"hour_start" json:"hour_start"`
	HourEnd   string              `bun:"hour_end" json:"hour_end"`
	MonitorID int64               `bun:"monitor_id,nullzero" json:"monitor_id,omitempty"`
	GroupID   int64               `bun:"group_id,nullzero" json:"group_id,omitempty"`
	DegreeID  int64               `bun:"degree_id,nullzero" json:"degree_id,omitempty"`
	Price     decimal.NullDecimal `bun:"price,type:decimal(10,2)" json:"price"`

	Course *Course             `bun:"rel:belongs-to,join:course_id=id" json:"course,omitempty"`
	Extras []*BookingUserExtra `bun:"rel:has-many,join:id=booking_user_id" json:"extras,omitempty"`
}

func (bu *BookingUser) IsActive() bool {
	return bu.Status == LineItemStatusActive
}

// ExtrasTotal is the flat sum of the extras attached to the line item.
func (bu *BookingUser) ExtrasTotal() decimal.Decimal {
	total := decimal.Zero
	for _, extra := range bu.Extras {
		if extra == nil {
			continue
		}
		total = total.Add(extra.Price)
	}
	return total
}

type BookingUserExtra struct {
	bun.BaseModel `bun:"table:booking_user_extras,alias:bue"`

	ID            int64           `bun:"id,pk,autoincrement" json:"id"`
	BookingUserID int64           `bun:"booking_user_id,notnull" json:"booking_user_id"`
	CourseExtraID int64           `bun:"course_extra_id,nullzero" json:"course_extra_id,omitempty"`
	Name          string          `bun:"name" json:"name"`
	Price         decimal.Decimal `bun:"price,type:decimal(10,2)" json:"price"`
}
