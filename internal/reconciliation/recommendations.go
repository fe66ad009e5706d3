package reconciliation

import (
	"fmt"
	"slices"
)

type Recommendation struct {
	Type           DiscrepancyType `json:"type"`
	Priority       Severity        `json:"priority"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Action         string          `json:"action"`
	SuggestedSteps []string        `json:"suggested_steps"`
}

type template struct {
	title  string
	action string
	steps  []string
}

var templates = map[DiscrepancyType]template{
	Underpayment: {
		title:  "Collect outstanding balance",
		action: "contact_client",
		steps: []string{
			"Confirm the course and extras the client actually attended",
			"Send a payment link for the remaining balance",
			"Mark the booking as paid once the balance is settled",
		},
	},
	Overpayment: {
		title:  "Return surplus to client",
		action: "issue_refund",
		steps: []string{
			"Check for duplicate gateway payments",
			"Refund the surplus or convert it into a voucher",
			"Record the refund against the booking",
		},
	},
	UnprocessedCancellation: {
		title:  "Resolve cancelled booking with money still held",
		action: "decide_refund_policy",
		steps: []string{
			"Check the cancellation date against the school's refund policy",
			"Check whether cancellation insurance was purchased",
			"Issue a refund or record a no_refund entry for the held amount",
		},
	},
	OverprocessedCancellation: {
		title:  "Investigate refund above amount received",
		action: "audit_refunds",
		steps: []string{
			"List every refund and voucher release on the booking",
			"Identify the duplicated or oversized refund",
			"Recover the excess or book it as a loss",
		},
	},
	PartialCancellationDiscrepancy: {
		title:  "Adjust balance after partial cancellation",
		action: "rebalance_partial_cancellation",
		steps: []string{
			"Confirm which participants were cancelled",
			"Refund or charge the difference for the cancelled participants",
			"Review how insurance and service fees were split",
		},
	},
	VoucherExcess: {
		title:  "Vouchers exceed booking price",
		action: "restore_voucher_balance",
		steps: []string{
			"Compare voucher logs with the booking price",
			"Return the unused amount to the voucher balance",
		},
	},
	PaymentStatusInconsistency: {
		title:  "Update paid flag",
		action: "mark_paid",
		steps: []string{
			"Verify the payments in the gateway",
			"Set the booking as paid",
		},
	},
	MultipleRefunds: {
		title:  "Review repeated refunds",
		action: "review_refund_history",
		steps: []string{
			"Check the refund timeline for duplicates",
			"Confirm each refund with the payment gateway",
		},
	},
	DataIntegrity: {
		title:  "Fix booking data",
		action: "repair_data",
		steps: []string{
			"Restore missing course, client or voucher references",
			"Re-run the analysis after the fix",
		},
	},
}

var priorityRank = map[Severity]int{
	SeverityHigh:   0,
	SeverityMedium: 1,
	SeverityLow:    2,
}

// GenerateRecommendations maps each discrepancy to a remediation template,
// highest priority first.
func GenerateRecommendations(discrepancies []Discrepancy) []Recommendation {
	out := make([]Recommendation, 0, len(discrepancies))
	for _, d := range discrepancies {
		tpl, ok := templates[d.Type]
		if !ok {
			tpl = template{title: "Review booking", action: "manual_review", steps: []string{"Review the booking manually"}}
		}
		description := d.Description
		if d.Amount.IsPositive() {
			description = fmt.Sprintf("%s (amount %s)", d.Description, d.Amount.StringFixed(2))
		}
		out = append(out, Recommendation{
			Type:           d.Type,
			Priority:       d.Severity,
			Title:          tpl.title,
			Description:    description,
			Action:         tpl.action,
			SuggestedSteps: slices.Clone(tpl.steps),
		})
	}

	slices.SortStableFunc(out, func(a, b Recommendation) int {
		return priorityRank[a.Priority] - priorityRank[b.Priority]
	})
	return out
}
