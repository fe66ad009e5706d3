package pricing

import (
	"fmt"
	"sort"

	"ms-booking-finance/internal/models"

	"github.com/shopspring/decimal"
)

// priceCourse dispatches on the course pricing model. Unknown models return
// ErrInvalidPricingModel and leave the subtotal at zero.
func priceCourse(course *models.Course, items []*models.BookingUser) (CoursePrice, []models.Issue, error) {
	cp := CoursePrice{
		CourseID:    course.ID,
		CourseName:  course.Name,
		CourseType:  course.CourseType,
		IsFlexible:  course.IsFlexible,
		BasePrice:   decimal.Zero,
		ExtrasPrice: decimal.Zero,
		Subtotal:    decimal.Zero,
	}

	var issues []models.Issue
	switch course.CourseType {
	case models.CourseTypeCollective:
		if course.IsFlexible {
			cp.BasePrice, cp.Participants, cp.Sessions = collectiveFlexible(course, items)
		} else {
			cp.BasePrice, cp.Participants, cp.Sessions = collectiveFixed(course, items)
		}
	case models.CourseTypePrivate, models.CourseTypeActivity:
		if course.IsFlexible {
			cp.BasePrice, cp.Participants, cp.Sessions, issues = privateFlexible(course, items)
		} else {
			cp.BasePrice, cp.Participants, cp.Sessions = privateFixed(course, items)
		}
	default:
		return cp, nil, fmt.Errorf("%w: course %d has type %s", models.ErrInvalidPricingModel, course.ID, course.CourseType)
	}

	for _, item := range items {
		cp.ExtrasPrice = cp.ExtrasPrice.Add(item.ExtrasTotal())
	}
	cp.Subtotal = cp.BasePrice.Add(cp.ExtrasPrice)
	return cp, issues, nil
}

// collectiveFixed charges the course price once per distinct client, no
// matter how many dates each client attends.
func collectiveFixed(course *models.Course, items []*models.BookingUser) (decimal.Decimal, int, int) {
	clients := make(map[int64]bool)
	dates := make(map[string]bool)
	for _, item := range items {
		clients[item.ClientID] = true
		dates[dateKey(item)] = true
	}
	total := course.Price.Mul(decimal.NewFromInt(int64(len(clients))))
	return total, len(clients), len(dates)
}

// collectiveFlexible charges each client per attended date, applying the
// course's discount for the Nth date.
func collectiveFlexible(course *models.Course, items []*models.BookingUser) (decimal.Decimal, int, int) {
	datesByClient := make(map[int64]map[string]bool)
	for _, item := range items {
		if datesByClient[item.ClientID] == nil {
			datesByClient[item.ClientID] = make(map[string]bool)
		}
		datesByClient[item.ClientID][dateKey(item)] = true
	}

	total := decimal.Zero
	sessions := 0
	for _, dates := range datesByClient {
		ordered := make([]string, 0, len(dates))
		for d := range dates {
			ordered = append(ordered, d)
		}
		sort.Strings(ordered)

		for i := range ordered {
			pct := course.DiscountForDay(i + 1)
			factor := decimal.NewFromInt(1).Sub(pct.Div(hundred))
			total = total.Add(course.Price.Mul(factor))
			sessions++
		}
	}
	return total, len(datesByClient), sessions
}

// privateFixed sums the stored line-item prices, falling back to the course
// price when an item has none.
func privateFixed(course *models.Course, items []*models.BookingUser) (decimal.Decimal, int, int) {
	total := decimal.Zero
	clients := make(map[int64]bool)
	for _, item := range items {
		clients[item.ClientID] = true
		if item.Price.Valid {
			total = total.Add(item.Price.Decimal)
		} else {
			total = total.Add(course.Price)
		}
	}
	return total, len(clients), len(items)
}

type session struct {
	key     string
	items   []*models.BookingUser
	clients map[int64]bool
}

// privateFlexible prices each session (same date, start, monitor and group)
// from the course price-range table.
func privateFlexible(course *models.Course, items []*models.BookingUser) (decimal.Decimal, int, int, []models.Issue) {
	var issues []models.Issue
	var sessions []*session
	index := make(map[string]*session)
	clients := make(map[int64]bool)

	for _, item := range items {
		clients[item.ClientID] = true
		key := fmt.Sprintf("%s|%s|%d|%d", dateKey(item), item.HourStart, item.MonitorID, item.GroupID)
		s, ok := index[key]
		if !ok {
			s = &session{key: key, clients: make(map[int64]bool)}
			index[key] = s
			sessions = append(sessions, s)
		}
		s.items = append(s.items, item)
		s.clients[item.ClientID] = true
	}

	total := decimal.Zero
	for _, s := range sessions {
		first := s.items[0]
		minutes, err := SessionMinutes(first.HourStart, first.HourEnd)
		if err != nil {
			issues = append(issues, models.Issue{
				Type:          models.IssueMalformedTime,
				Message:       fmt.Sprintf("session %s: %v; duration treated as zero", s.key, err),
				BookingUserID: first.ID,
				CourseID:      course.ID,
			})
			minutes = 0
		}

		interval := IntervalLabel(minutes)
		price, ok := course.SessionPrice(interval, len(s.clients))
		if !ok {
			issues = append(issues, models.Issue{
				Type:          models.IssueMissingPriceRange,
				Message:       fmt.Sprintf("no price for interval %s and %d participants", interval, len(s.clients)),
				BookingUserID: first.ID,
				CourseID:      course.ID,
			})
			continue
		}
		total = total.Add(price)
	}
	return total, len(clients), len(sessions), issues
}

func dateKey(item *models.BookingUser) string {
	return item.Date.Format("2006-01-02")
}
