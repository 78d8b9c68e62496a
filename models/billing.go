package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrConfiguration marks errors caused by malformed rule or course
// configuration. These are never retried automatically.
var ErrConfiguration = errors.New("configuration error")

// BillingCadence represents how often a course is billed
type BillingCadence string

const (
	CadenceMonthly    BillingCadence = "monthly"
	CadenceQuarterly  BillingCadence = "quarterly"
	CadenceBiAnnually BillingCadence = "biannually"
	CadenceAnnually   BillingCadence = "annually"
)

// MonthStep returns the number of months one billing period spans
func (c BillingCadence) MonthStep() (int, error) {
	switch c {
	case CadenceMonthly:
		return 1, nil
	case CadenceQuarterly:
		return 3, nil
	case CadenceBiAnnually:
		return 6, nil
	case CadenceAnnually:
		return 12, nil
	default:
		return 0, fmt.Errorf("%w: unrecognized billing cadence %q", ErrConfiguration, string(c))
	}
}

// BillingPeriod is one half-open billing window [Start, End) of a course.
// Periods for one course are contiguous and non-overlapping; the last
// period's End equals the course end date even if that makes it shorter.
type BillingPeriod struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if t falls within the period
func (p BillingPeriod) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

func (p BillingPeriod) String() string {
	return fmt.Sprintf("[%s, %s)", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}
