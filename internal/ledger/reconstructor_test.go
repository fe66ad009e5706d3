package ledger_test

import (
	"testing"
	"time"

	"ms-booking-finance/internal/ledger"
	"ms-booking-finance/internal/models"
	"ms-booking-finance/internal/voucher"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func at(hours int) time.Time {
	return base.Add(time.Duration(hours) * time.Hour)
}

func payment(id int64, status models.PaymentStatus, amount string, ts time.Time) *models.Payment {
	return &models.Payment{ID: id, BookingID: 1, Amount: d(amount), Status: status, CreatedAt: ts}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "%s: want %s, got %s", field, want, got)
}

func TestReconstruct_SinglePaidPayment(t *testing.T) {
	booking := &models.Booking{
		ID:       1,
		Status:   models.BookingStatusActive,
		Payments: []*models.Payment{payment(1, models.PaymentStatusPaid, "220", at(0))},
	}

	l, err := ledger.NewReconstructor(nil).Reconstruct(booking)
	require.NoError(t, err)

	assertDecimal(t, "220", l.TotalPaid, "total paid")
	assertDecimal(t, "220", l.NetBalance, "net balance")
	require.Len(t, l.Timeline, 1)
	assertDecimal(t, "220", l.Timeline[0].BalanceAfter, "balance after")
	require.Len(t, l.Milestones, 1)
	assert.Equal(t, ledger.MilestoneFirstPayment, l.Milestones[0].Type)
}

func TestReconstruct_TotalsAndRunningBalance(t *testing.T) {
	booking := &models.Booking{
		ID:     1,
		Status: models.BookingStatusCancelled,
		Payments: []*models.Payment{
			payment(3, models.PaymentStatusRefund, "100", at(5)),
			payment(1, models.PaymentStatusPaid, "150", at(1)),
			payment(2, models.PaymentStatusPending, "999", at(2)),
			payment(4, models.PaymentStatusPartialRefund, "20", at(6)),
			payment(5, models.PaymentStatusNoRefund, "30", at(7)),
		},
		VoucherLogs: []*models.VoucherLog{
			{
				ID: 9, VoucherID: 4, Amount: d("-50"), CreatedAt: at(3),
				Voucher: &models.Voucher{ID: 4, Code: "SKI50", Quantity: d("50"), RemainingBalance: d("0")},
			},
		},
	}

	l, err := ledger.NewReconstructor(voucher.NewHeuristicInterpreter()).Reconstruct(booking)
	require.NoError(t, err)

	assertDecimal(t, "150", l.TotalPaid, "total paid")
	assertDecimal(t, "120", l.TotalRefunded, "total refunded")
	assertDecimal(t, "30", l.TotalNoRefund, "total no refund")
	assertDecimal(t, "50", l.TotalVouchersUsed, "vouchers used")
	assertDecimal(t, "0", l.TotalVouchersRefunded, "vouchers refunded")
	assertDecimal(t, "50", l.NetBalance, "net balance")
	assert.Equal(t, 1, l.IgnoredPayments)
	assert.Equal(t, 2, l.RefundEvents)
	assert.Equal(t, 1, l.VoucherCount())

	require.Len(t, l.Timeline, 5)
	wantKinds := []ledger.EventKind{
		ledger.KindPaid, ledger.KindVoucherPayment, ledger.KindRefund, ledger.KindPartialRefund, ledger.KindNoRefund,
	}
	wantBalances := []string{"150", "200", "100", "80", "50"}
	for i, entry := range l.Timeline {
		assert.Equal(t, i+1, entry.Sequence)
		assert.Equal(t, wantKinds[i], entry.Kind)
		assertDecimal(t, wantBalances[i], entry.BalanceAfter, "balance after")
	}
	assert.Equal(t, "SKI50", l.Timeline[1].VoucherCode)
	assert.Equal(t, 1, l.Timeline[1].Rule)
}

func TestReconstruct_BalanceZeroedMilestone(t *testing.T) {
	booking := &models.Booking{
		ID:     1,
		Status: models.BookingStatusCancelled,
		Payments: []*models.Payment{
			payment(1, models.PaymentStatusPaid, "80", at(1)),
			payment(2, models.PaymentStatusRefund, "80", at(2)),
		},
	}

	l, err := ledger.NewReconstructor(nil).Reconstruct(booking)
	require.NoError(t, err)

	require.Len(t, l.Milestones, 2)
	assert.Equal(t, ledger.MilestoneFirstPayment, l.Milestones[0].Type)
	assert.Equal(t, ledger.MilestoneBalanceZeroed, l.Milestones[1].Type)
	assert.Equal(t, 2, l.Milestones[1].Sequence)
	assert.True(t, l.NetBalance.IsZero())
}

func TestReconstruct_NoRefundPhases(t *testing.T) {
	booking := &models.Booking{
		ID:     1,
		Status: models.BookingStatusCancelled,
		Payments: []*models.Payment{
			payment(1, models.PaymentStatusNoRefund, "10", at(0)),
			payment(2, models.PaymentStatusPaid, "100", at(1)),
			payment(3, models.PaymentStatusNoRefund, "100", at(2)),
		},
	}

	l, err := ledger.NewReconstructor(nil).Reconstruct(booking)
	require.NoError(t, err)

	require.Len(t, l.NoRefundEvents, 2)
	assert.Equal(t, ledger.PrePayment, l.NoRefundEvents[0].Phase)
	assert.Equal(t, int64(1), l.NoRefundEvents[0].PaymentID)
	assert.Equal(t, ledger.PostPayment, l.NoRefundEvents[1].Phase)
}

func TestReconstruct_NoRefundWithoutPaidIsPrePayment(t *testing.T) {
	booking := &models.Booking{
		ID:       1,
		Status:   models.BookingStatusCancelled,
		Payments: []*models.Payment{payment(1, models.PaymentStatusNoRefund, "10", at(3))},
	}

	l, err := ledger.NewReconstructor(nil).Reconstruct(booking)
	require.NoError(t, err)

	require.Len(t, l.NoRefundEvents, 1)
	assert.Equal(t, ledger.PrePayment, l.NoRefundEvents[0].Phase)
	assertDecimal(t, "-10", l.NetBalance, "net balance")
}

func TestReconstruct_EqualTimestampsKeepPaymentsFirst(t *testing.T) {
	booking := &models.Booking{
		ID:       1,
		Status:   models.BookingStatusActive,
		Payments: []*models.Payment{payment(1, models.PaymentStatusPaid, "40", at(1))},
		VoucherLogs: []*models.VoucherLog{
			{ID: 2, VoucherID: 3, Amount: d("60"), CreatedAt: at(1), Voucher: &models.Voucher{ID: 3, Quantity: d("100"), RemainingBalance: d("100")}},
		},
	}

	l, err := ledger.NewReconstructor(nil).Reconstruct(booking)
	require.NoError(t, err)

	require.Len(t, l.Timeline, 2)
	assert.Equal(t, ledger.SourcePayment, l.Timeline[0].Source)
	assert.Equal(t, ledger.SourceVoucher, l.Timeline[1].Source)
}

func TestReconstruct_MissingVoucherIsReported(t *testing.T) {
	booking := &models.Booking{
		ID:     1,
		Status: models.BookingStatusActive,
		VoucherLogs: []*models.VoucherLog{
			{ID: 7, VoucherID: 99, Amount: d("25"), CreatedAt: at(1)},
		},
	}

	l, err := ledger.NewReconstructor(nil).Reconstruct(booking)
	require.NoError(t, err)

	require.Len(t, l.Issues, 1)
	assert.Equal(t, models.IssueDataIntegrity, l.Issues[0].Type)
	assert.Equal(t, int64(7), l.Issues[0].VoucherLogID)
	assertDecimal(t, "25", l.TotalVouchersUsed, "vouchers used")
}

type stubInterpreter struct{}

func (stubInterpreter) Classify(log *models.VoucherLog, _ *models.Voucher, _ *models.Booking) voucher.Classification {
	return voucher.Classification{Type: voucher.EntryRefund, Amount: log.Amount.Abs(), Rule: 99, Reason: "stub"}
}

func TestReconstruct_UsesInjectedInterpreter(t *testing.T) {
	booking := &models.Booking{
		ID:     1,
		Status: models.BookingStatusActive,
		VoucherLogs: []*models.VoucherLog{
			{ID: 1, VoucherID: 1, Amount: d("30"), CreatedAt: at(1), Voucher: &models.Voucher{ID: 1, Quantity: d("30")}},
		},
	}

	l, err := ledger.NewReconstructor(stubInterpreter{}).Reconstruct(booking)
	require.NoError(t, err)

	assertDecimal(t, "30", l.TotalVouchersRefunded, "vouchers refunded")
	assertDecimal(t, "-30", l.NetBalance, "net balance")
	assert.Equal(t, 99, l.Timeline[0].Rule)
}

func TestReconstruct_NilBooking(t *testing.T) {
	_, err := ledger.NewReconstructor(nil).Reconstruct(nil)
	assert.ErrorIs(t, err, models.ErrNilBooking)
}

func TestInferMethod(t *testing.T) {
	tests := []struct {
		name    string
		payment models.Payment
		want    ledger.Method
	}{
		{"gateway reference", models.Payment{PayrexxReference: "prx_123", Notes: "cash"}, ledger.MethodOnline},
		{"cash notes", models.Payment{Notes: "Paid in CASH at the desk"}, ledger.MethodCash},
		{"card notes", models.Payment{Notes: "card terminal"}, ledger.MethodCard},
		{"transfer notes", models.Payment{Notes: "bank transfer received."}, ledger.MethodTransfer},
		{"voucher notes", models.Payment{Notes: "covered by voucher"}, ledger.MethodVoucher},
		{"nothing to go on", models.Payment{Notes: "see office"}, ledger.MethodOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ledger.InferMethod(&tt.payment))
		})
	}
}
