package service

import (
	"fmt"
	"time"

	"edufund/models"
)

// ResolveBillingPeriods splits a course's enrollment window into the ordered
// sequence of billing periods its cadence implies. The result is contiguous
// and covers exactly [courseStart, courseEnd]; the final period is clamped
// to courseEnd even when that makes it shorter than a full step. An equal
// start and end yields no periods.
//
// The function is pure: the only failure modes are an unrecognized cadence
// and an inverted date range, both configuration errors.
func ResolveBillingPeriods(courseStart time.Time, cadence models.BillingCadence, courseEnd time.Time) ([]models.BillingPeriod, error) {
	step, err := cadence.MonthStep()
	if err != nil {
		return nil, err
	}
	if courseEnd.Before(courseStart) {
		return nil, fmt.Errorf("%w: course start %s is after course end %s",
			models.ErrConfiguration, courseStart.Format("2006-01-02"), courseEnd.Format("2006-01-02"))
	}

	// Each boundary is computed as an offset from the original start, so a
	// clamp in a short month never shifts later boundaries: Jan 31 monthly
	// gives Feb 28, Mar 31, Apr 30, not a drift to the 28th forever.
	var periods []models.BillingPeriod
	for i := 0; ; i++ {
		start := addMonthsClamped(courseStart, i*step)
		if !start.Before(courseEnd) {
			break
		}
		end := addMonthsClamped(courseStart, (i+1)*step)
		if end.After(courseEnd) {
			end = courseEnd
		}
		periods = append(periods, models.BillingPeriod{Start: start, End: end})
	}
	return periods, nil
}

// addMonthsClamped advances t by the given number of months using calendar
// arithmetic, clamping the day to the last valid day of the target month.
// time.AddDate would overflow Jan 31 + 1 month into March.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	total := int(month) + months
	targetYear := year + (total-1)/12
	targetMonth := time.Month((total-1)%12 + 1)

	if last := daysInMonth(targetYear, targetMonth); day > last {
		day = last
	}
	return time.Date(targetYear, targetMonth, day, 0, 0, 0, 0, t.Location())
}

// daysInMonth returns the number of days in the given month
func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
