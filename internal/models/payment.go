package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type PaymentStatus string

const (
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusRefund        PaymentStatus = "refund"
	PaymentStatusPartialRefund PaymentStatus = "partial_refund"
	PaymentStatusNoRefund      PaymentStatus = "no_refund"
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusFailed        PaymentStatus = "failed"
	PaymentStatusCancelled     PaymentStatus = "cancelled"
)

// AffectsBalance reports whether payments in this status move the booking balance.
func (s PaymentStatus) AffectsBalance() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusRefund, PaymentStatusPartialRefund, PaymentStatusNoRefund:
		return true
	}
	return false
}

type Payment struct {
	bun.BaseModel `bun:"table:payments,alias:p"`

	ID               int64           `bun:"id,pk,autoincrement" json:"id"`
	BookingID        int64           `bun:"booking_id,notnull" json:"booking_id"`
	SchoolID         int64           `bun:"school_id" json:"school_id"`
	Amount           decimal.Decimal `bun:"amount,type:decimal(10,2)" json:"amount"`
	Status           PaymentStatus   `bun:"status,notnull" json:"status"`
	PayrexxReference string          `bun:"payrexx_reference,nullzero" json:"payrexx_reference,omitempty"`
	Notes            string          `bun:"notes,nullzero" json:"notes,omitempty"`
	CreatedAt        time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// PaymentEvent is what the booking platform emits whenever a payment row changes.
type PaymentEvent struct {
	Type      string        `json:"type"`
	BookingID int64         `json:"booking_id"`
	PaymentID int64         `json:"payment_id"`
	SchoolID  int64         `json:"school_id"`
	Status    PaymentStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}
