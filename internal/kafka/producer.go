package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"ms-booking-finance/internal/logger"
	"ms-booking-finance/internal/reconciliation"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// MessageWriter is the subset of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	topic  string
	logger *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Producer{Writer: writer, topic: topic, logger: log}
}

// DiscrepancyEvent is published whenever an analysis finds a booking out of balance.
type DiscrepancyEvent struct {
	EventID        string                           `json:"event_id"`
	Type           string                           `json:"type"`
	ReportID       string                           `json:"report_id"`
	BookingID      int64                            `json:"booking_id"`
	SchoolID       int64                            `json:"school_id"`
	BookingStatus  string                           `json:"booking_status"`
	Currency       string                           `json:"currency,omitempty"`
	ExpectedAmount decimal.Decimal                  `json:"expected_amount"`
	ActualAmount   decimal.Decimal                  `json:"actual_amount"`
	Amount         decimal.Decimal                  `json:"amount"`
	Direction      reconciliation.Direction         `json:"direction,omitempty"`
	Types          []reconciliation.DiscrepancyType `json:"types"`
	AnalysisMethod string                           `json:"analysis_method"`
	Error          string                           `json:"error,omitempty"`
	OccurredAt     time.Time                        `json:"occurred_at"`
}

const discrepancyEventType = "booking.financial_discrepancy"

func NewDiscrepancyEvent(report *reconciliation.FullReport) DiscrepancyEvent {
	event := DiscrepancyEvent{
		EventID:        uuid.New().String(),
		Type:           discrepancyEventType,
		ReportID:       report.ReportID,
		BookingID:      report.BookingID,
		SchoolID:       report.SchoolID,
		BookingStatus:  report.Status,
		Currency:       report.Currency,
		ExpectedAmount: report.StoredTotal,
		ActualAmount:   decimal.Zero,
		Amount:         decimal.Zero,
		Types:          []reconciliation.DiscrepancyType{},
		AnalysisMethod: report.AnalysisMethod,
		Error:          report.Error,
		OccurredAt:     report.AnalyzedAt,
	}
	if v := report.Verdict; v != nil {
		event.ExpectedAmount = v.ExpectedAmount
		event.ActualAmount = v.ActualAmount
		event.Amount = v.MainDiscrepancyAmount
		event.Direction = v.Direction
		for _, d := range v.Discrepancies {
			event.Types = append(event.Types, d.Type)
		}
	}
	return event
}

// PublishDiscrepancy streams the discrepancy of a report, keyed by booking
// so events of one booking stay ordered.
func (p *Producer) PublishDiscrepancy(ctx context.Context, report *reconciliation.FullReport) error {
	msgBytes, err := json.Marshal(NewDiscrepancyEvent(report))
	if err != nil {
		return err
	}

	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(report.BookingID, 10)),
		Value: msgBytes,
	})
	if err != nil {
		return fmt.Errorf("write to %s: %w", p.topic, err)
	}

	p.logger.LogKafka("PUBLISH", p.topic, fmt.Sprintf("discrepancy for booking %d", report.BookingID))
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
