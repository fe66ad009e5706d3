package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Voucher is a stored-value credit instrument.
type Voucher struct {
	bun.BaseModel `bun:"table:vouchers,alias:v"`

	ID               int64           `bun:"id,pk,autoincrement" json:"id"`
	Code             string          `bun:"code" json:"code"`
	Quantity         decimal.Decimal `bun:"quantity,type:decimal(10,2)" json:"quantity"`
	RemainingBalance decimal.Decimal `bun:"remaining_balance,type:decimal(10,2)" json:"remaining_balance"`
	Payed            bool            `bun:"payed" json:"payed"`
	ClientID         int64           `bun:"client_id,nullzero" json:"client_id,omitempty"`
	SchoolID         int64           `bun:"school_id" json:"school_id"`
}

// UsedAmount is quantity minus remaining balance.
func (v *Voucher) UsedAmount() decimal.Decimal {
	return v.Quantity.Sub(v.RemainingBalance)
}

// VoucherLog records a voucher applied to (or released from) a booking.
// The sign of Amount is not reliable.
type VoucherLog struct {
	bun.BaseModel `bun:"table:vouchers_log,alias:vl"`

	ID        int64           `bun:"id,pk,autoincrement" json:"id"`
	VoucherID int64           `bun:"voucher_id,notnull" json:"voucher_id"`
	BookingID int64           `bun:"booking_id,notnull" json:"booking_id"`
	Amount    decimal.Decimal `bun:"amount,type:decimal(10,2)" json:"amount"`
	CreatedAt time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	Voucher *Voucher `bun:"rel:belongs-to,join:voucher_id=id" json:"voucher,omitempty"`
}
