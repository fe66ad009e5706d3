package models

type IssueType string

const (
	IssueDataIntegrity       IssueType = "DataIntegrity"
	IssueMissingPriceRange   IssueType = "MissingPriceRange"
	IssueInvalidPricingModel IssueType = "InvalidPricingModel"
	IssueMalformedTime       IssueType = "MalformedTime"
)

// Issue is a non-fatal problem found while analysing a booking.
type Issue struct {
	Type          IssueType `json:"type"`
	Message       string    `json:"message"`
	BookingUserID int64     `json:"booking_user_id,omitempty"`
	CourseID      int64     `json:"course_id,omitempty"`
	VoucherLogID  int64     `json:"voucher_log_id,omitempty"`
}
