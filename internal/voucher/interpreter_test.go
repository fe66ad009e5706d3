package voucher_test

import (
	"testing"

	"ms-booking-finance/internal/models"
	"ms-booking-finance/internal/voucher"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestHeuristicInterpreter_Classify(t *testing.T) {
	active := &models.Booking{ID: 1, Status: models.BookingStatusActive}
	cancelled := &models.Booking{ID: 2, Status: models.BookingStatusCancelled}
	partial := &models.Booking{ID: 3, Status: models.BookingStatusPartiallyCancelled}

	tests := []struct {
		name          string
		amount        string
		voucher       *models.Voucher
		booking       *models.Booking
		wantType      voucher.EntryType
		wantAmount    string
		wantRule      int
		wantLowSignal bool
	}{
		{
			name:       "fully used voucher wins regardless of sign",
			amount:     "-100",
			voucher:    &models.Voucher{Quantity: d("100"), RemainingBalance: d("0")},
			booking:    cancelled,
			wantType:   voucher.EntryPayment,
			wantAmount: "100",
			wantRule:   1,
		},
		{
			name:       "paid voucher with matching usage",
			amount:     "-40",
			voucher:    &models.Voucher{Quantity: d("100"), RemainingBalance: d("60"), Payed: true},
			booking:    cancelled,
			wantType:   voucher.EntryPayment,
			wantAmount: "40",
			wantRule:   2,
		},
		{
			name:       "paid voucher with partial use",
			amount:     "25",
			voucher:    &models.Voucher{Quantity: d("100"), RemainingBalance: d("60"), Payed: true},
			booking:    active,
			wantType:   voucher.EntryPayment,
			wantAmount: "25",
			wantRule:   2,
		},
		{
			name:       "paid voucher with amount above usage is a refund",
			amount:     "50",
			voucher:    &models.Voucher{Quantity: d("100"), RemainingBalance: d("60"), Payed: true},
			booking:    active,
			wantType:   voucher.EntryRefund,
			wantAmount: "50",
			wantRule:   2,
		},
		{
			name:       "positive amount without strong signal",
			amount:     "30",
			voucher:    &models.Voucher{Quantity: d("100"), RemainingBalance: d("100")},
			booking:    cancelled,
			wantType:   voucher.EntryPayment,
			wantAmount: "30",
			wantRule:   3,
		},
		{
			name:       "negative on active booking with usage overrides sign",
			amount:     "-30",
			voucher:    &models.Voucher{Quantity: d("100"), RemainingBalance: d("70")},
			booking:    active,
			wantType:   voucher.EntryPayment,
			wantAmount: "30",
			wantRule:   4,
		},
		{
			name:       "negative on cancelled booking is a refund",
			amount:     "-30",
			voucher:    &models.Voucher{Quantity: d("100"), RemainingBalance: d("100")},
			booking:    cancelled,
			wantType:   voucher.EntryRefund,
			wantAmount: "30",
			wantRule:   4,
		},
		{
			name:          "fallback assumes payment",
			amount:        "-30",
			voucher:       &models.Voucher{Quantity: d("100"), RemainingBalance: d("100")},
			booking:       partial,
			wantType:      voucher.EntryPayment,
			wantAmount:    "30",
			wantRule:      4,
			wantLowSignal: true,
		},
		{
			name:          "missing voucher skips state rules",
			amount:        "-15",
			voucher:       nil,
			booking:       active,
			wantType:      voucher.EntryPayment,
			wantAmount:    "15",
			wantRule:      4,
			wantLowSignal: true,
		},
	}

	interpreter := voucher.NewHeuristicInterpreter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &models.VoucherLog{ID: 1, Amount: d(tt.amount)}
			got := interpreter.Classify(log, tt.voucher, tt.booking)

			assert.Equal(t, tt.wantType, got.Type)
			assert.True(t, d(tt.wantAmount).Equal(got.Amount), "amount %s", got.Amount)
			assert.Equal(t, tt.wantRule, got.Rule)
			assert.Equal(t, tt.wantLowSignal, got.LowConfidence)
			assert.NotEmpty(t, got.Reason)
		})
	}
}
