package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type School struct {
	bun.BaseModel `bun:"table:schools,alias:s"`

	ID               int64           `bun:"id,pk,autoincrement" json:"id"`
	Name             string          `bun:"name" json:"name"`
	Currency         string          `bun:"currency" json:"currency"`
	InsurancePercent decimal.Decimal `bun:"insurance_percent,type:decimal(5,4)" json:"insurance_percent"`
}

// FinancialSnapshot is the last reconciliation outcome stored per booking.
type FinancialSnapshot struct {
	bun.BaseModel `bun:"table:booking_financial_snapshots,alias:fs"`

	BookingID         int64           `bun:"booking_id,pk" json:"booking_id"`
	SchoolID          int64           `bun:"school_id" json:"school_id"`
	Status            string          `bun:"status" json:"status"`
	ExpectedTotal     decimal.Decimal `bun:"expected_total,type:decimal(10,2)" json:"expected_total"`
	NetBalance        decimal.Decimal `bun:"net_balance,type:decimal(10,2)" json:"net_balance"`
	IsConsistent      bool            `bun:"is_consistent" json:"is_consistent"`
	DiscrepancyAmount decimal.Decimal `bun:"discrepancy_amount,type:decimal(10,2)" json:"discrepancy_amount"`
	DiscrepancyCount  int             `bun:"discrepancy_count" json:"discrepancy_count"`
	AnalysisMethod    string          `bun:"analysis_method" json:"analysis_method"`
	AnalyzedAt        time.Time       `bun:"analyzed_at" json:"analyzed_at"`
}
