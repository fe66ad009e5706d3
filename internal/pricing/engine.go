package pricing

import (
	"fmt"

	"ms-booking-finance/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Engine computes the expected price of a booking from its line items,
// independent of any payment history. It holds no state.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

type courseGroup struct {
	course *models.Course
	items  []*models.BookingUser
}

// ComputeTotal prices the active line items of a booking.
func (e *Engine) ComputeTotal(pc PricingContext, booking *models.Booking, opts Options) (*PriceBreakdown, error) {
	if booking == nil {
		return nil, models.ErrNilBooking
	}

	groups, issues := groupBillableItems(booking, opts)

	result := &PriceBreakdown{
		BookingID: booking.ID,
		SchoolID:  booking.SchoolID,
		Courses:   make([]CoursePrice, 0, len(groups)),
		Issues:    issues,
	}

	activities := decimal.Zero
	for _, group := range groups {
		cp, courseIssues, err := priceCourse(group.course, group.items)
		result.Issues = append(result.Issues, courseIssues...)
		if err != nil {
			cp.BasePrice = decimal.Zero
			cp.ExtrasPrice = decimal.Zero
			cp.Subtotal = decimal.Zero
			cp.Error = err.Error()
			result.Issues = append(result.Issues, models.Issue{
				Type:     models.IssueInvalidPricingModel,
				Message:  err.Error(),
				CourseID: group.course.ID,
			})
		}
		result.Courses = append(result.Courses, cp)
		activities = activities.Add(cp.Subtotal)
	}

	result.ActivitiesPrice = activities.Round(2)
	result.AdditionalConcepts = additionalConcepts(pc, booking, result.ActivitiesPrice, opts)
	result.Discounts = discountsFor(booking)
	result.TotalFinal = finalTotal(result)

	return result, nil
}

// ComputeActiveShare prices a partially cancelled booking: active line items
// are priced as usual and the flat concepts are scaled by the share of
// clients that are still active.
func (e *Engine) ComputeActiveShare(pc PricingContext, booking *models.Booking, opts Options) (*PriceBreakdown, error) {
	result, err := e.ComputeTotal(pc, booking, opts)
	if err != nil {
		return nil, err
	}

	ratio := ActiveClientRatio(booking)
	concepts := result.AdditionalConcepts
	concepts.BoukiiCare = concepts.BoukiiCare.Mul(ratio).Round(2)
	concepts.TVA = concepts.TVA.Mul(ratio).Round(2)
	concepts.Total = concepts.CancellationInsurance.Add(concepts.BoukiiCare).Add(concepts.TVA)

	result.AdditionalConcepts = concepts
	result.ActiveShareRatio = &ratio
	result.TotalFinal = finalTotal(result)
	return result, nil
}

// ActiveClientRatio is the number of distinct clients with an active line
// item over the number of distinct clients on the booking.
func ActiveClientRatio(booking *models.Booking) decimal.Decimal {
	all := make(map[int64]bool)
	active := make(map[int64]bool)
	for _, item := range booking.BookingUsers {
		if item == nil || item.ClientID == 0 {
			continue
		}
		all[item.ClientID] = true
		if item.IsActive() {
			active[item.ClientID] = true
		}
	}
	if len(all) == 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(int64(len(active))).Div(decimal.NewFromInt(int64(len(all))))
}

func groupBillableItems(booking *models.Booking, opts Options) ([]*courseGroup, []models.Issue) {
	var issues []models.Issue
	var groups []*courseGroup
	index := make(map[int64]*courseGroup)

	for _, item := range booking.BookingUsers {
		if item == nil || !item.IsActive() {
			continue
		}
		if opts.ExcludeCourses[item.CourseID] {
			continue
		}
		if item.Course == nil {
			issues = append(issues, models.Issue{
				Type:          models.IssueDataIntegrity,
				Message:       fmt.Sprintf("line item %d references missing course %d", item.ID, item.CourseID),
				BookingUserID: item.ID,
				CourseID:      item.CourseID,
			})
			continue
		}
		if item.ClientID == 0 {
			issues = append(issues, models.Issue{
				Type:          models.IssueDataIntegrity,
				Message:       fmt.Sprintf("line item %d has no client", item.ID),
				BookingUserID: item.ID,
				CourseID:      item.CourseID,
			})
			continue
		}

		group, ok := index[item.Course.ID]
		if !ok {
			group = &courseGroup{course: item.Course}
			index[item.Course.ID] = group
			groups = append(groups, group)
		}
		group.items = append(group.items, item)
	}
	return groups, issues
}

func additionalConcepts(pc PricingContext, booking *models.Booking, activities decimal.Decimal, opts Options) AdditionalConcepts {
	concepts := AdditionalConcepts{
		CancellationInsurance: decimal.Zero,
		BoukiiCare:            decimal.Zero,
		TVA:                   decimal.Zero,
	}
	if booking.HasCancellationInsurance && opts.IncludeInsurance {
		concepts.CancellationInsurance = activities.Mul(pc.School.InsurancePercent).Round(2)
	}
	if booking.HasBoukiiCare {
		concepts.BoukiiCare = booking.PriceBoukiiCare
	}
	if booking.HasTVA {
		concepts.TVA = booking.PriceTVA
	}
	concepts.Total = concepts.CancellationInsurance.Add(concepts.BoukiiCare).Add(concepts.TVA)
	return concepts
}

// discountsFor only ever returns the manual reduction. Vouchers settle the
// balance and are accounted for by the ledger.
func discountsFor(booking *models.Booking) Discounts {
	reduction := decimal.Zero
	if booking.PriceReduction.IsPositive() {
		reduction = booking.PriceReduction
	}
	return Discounts{ManualReduction: reduction, Total: reduction}
}

func finalTotal(b *PriceBreakdown) decimal.Decimal {
	return b.ActivitiesPrice.
		Add(b.AdditionalConcepts.Total).
		Sub(b.Discounts.Total).
		Round(2)
}
