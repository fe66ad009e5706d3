package ledger

import (
	"time"

	"ms-booking-finance/internal/models"

	"github.com/shopspring/decimal"
)

type EventKind string

const (
	KindPaid           EventKind = "paid"
	KindRefund         EventKind = "refund"
	KindPartialRefund  EventKind = "partial_refund"
	KindNoRefund       EventKind = "no_refund"
	KindVoucherPayment EventKind = "voucher_payment"
	KindVoucherRefund  EventKind = "voucher_refund"
)

// Credits reports whether the event adds to the balance.
func (k EventKind) Credits() bool {
	return k == KindPaid || k == KindVoucherPayment
}

func (k EventKind) IsRefund() bool {
	return k == KindRefund || k == KindPartialRefund || k == KindVoucherRefund
}

type Method string

const (
	MethodOnline   Method = "online"
	MethodCard     Method = "card"
	MethodCash     Method = "cash"
	MethodTransfer Method = "transfer"
	MethodVoucher  Method = "voucher"
	MethodOther    Method = "other"
)

type Source string

const (
	SourcePayment Source = "payment"
	SourceVoucher Source = "voucher"
)

// TimelineEntry is one balance-moving event, in replay order.
type TimelineEntry struct {
	Sequence     int             `json:"sequence"`
	Timestamp    time.Time       `json:"timestamp"`
	Source       Source          `json:"source"`
	Kind         EventKind       `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Method       Method          `json:"method"`

	PaymentID        int64  `json:"payment_id,omitempty"`
	PaymentReference string `json:"payment_reference,omitempty"`
	VoucherLogID     int64  `json:"voucher_log_id,omitempty"`
	VoucherCode      string `json:"voucher_code,omitempty"`
	Rule             int    `json:"rule,omitempty"`
	Reason           string `json:"reason,omitempty"`
	LowConfidence    bool   `json:"low_confidence,omitempty"`
}

// SignedAmount is the entry's effect on the running balance.
func (e TimelineEntry) SignedAmount() decimal.Decimal {
	if e.Kind.Credits() {
		return e.Amount
	}
	return e.Amount.Neg()
}

type MilestoneType string

const (
	MilestoneFirstPayment  MilestoneType = "first_payment"
	MilestoneBalanceZeroed MilestoneType = "balance_zeroed"
)

type Milestone struct {
	Type      MilestoneType   `json:"type"`
	Sequence  int             `json:"sequence"`
	Timestamp time.Time       `json:"timestamp"`
	Balance   decimal.Decimal `json:"balance"`
}

type NoRefundPhase string

const (
	// PrePayment no_refund rows are usually fees or adjustments.
	PrePayment NoRefundPhase = "pre_payment"
	// PostPayment no_refund rows are usually withheld refunds.
	PostPayment NoRefundPhase = "post_payment"
)

type NoRefundEvent struct {
	PaymentID int64           `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
	Phase     NoRefundPhase   `json:"phase"`
}

// Ledger is the replayed money history of one booking.
type Ledger struct {
	TotalPaid             decimal.Decimal `json:"total_paid"`
	TotalRefunded         decimal.Decimal `json:"total_refunded"`
	TotalNoRefund         decimal.Decimal `json:"total_no_refund"`
	TotalVouchersUsed     decimal.Decimal `json:"total_vouchers_used"`
	TotalVouchersRefunded decimal.Decimal `json:"total_vouchers_refunded"`
	NetBalance            decimal.Decimal `json:"net_balance"`

	RefundEvents    int `json:"refund_events"`
	IgnoredPayments int `json:"ignored_payments"`

	Timeline       []TimelineEntry `json:"timeline"`
	Milestones     []Milestone     `json:"milestones"`
	NoRefundEvents []NoRefundEvent `json:"no_refund_events,omitempty"`
	Issues         []models.Issue  `json:"issues,omitempty"`
}

// VoucherCount is the number of voucher entries on the timeline.
func (l *Ledger) VoucherCount() int {
	n := 0
	for _, e := range l.Timeline {
		if e.Source == SourceVoucher {
			n++
		}
	}
	return n
}
