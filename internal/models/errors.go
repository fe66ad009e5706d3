package models

import "errors"

var (
	ErrNilBooking          = errors.New("booking is nil")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrSchoolNotFound      = errors.New("school not found")
	ErrInvalidPricingModel = errors.New("invalid pricing model")
	ErrCacheMiss           = errors.New("report not cached")
	ErrRecalculationBusy   = errors.New("school recalculation already running")
	ErrForbiddenSchool     = errors.New("booking belongs to another school")
	ErrSnapshotNotFound    = errors.New("snapshot not found")
)
