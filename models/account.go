package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountHolder represents an education fund account as seen by the engine:
// the balance plus the demographic attributes the filter resolver matches
// against. Attributes are mutable, so the snapshot is always re-fetched at
// execution time rather than cached from rule creation.
type AccountHolder struct {
	ID                int64           `db:"id"`
	FullName          string          `db:"full_name"`
	BirthDate         time.Time       `db:"birth_date"`
	Balance           decimal.Decimal `db:"balance"`
	EducationLevelID  int32           `db:"education_level_id"`
	SchoolingStatusID int32           `db:"schooling_status_id"`
	Active            bool            `db:"active"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// AgeAt returns the account holder's age in whole years at the given time
func (a *AccountHolder) AgeAt(t time.Time) int {
	age := t.Year() - a.BirthDate.Year()
	anniversary := time.Date(t.Year(), a.BirthDate.Month(), a.BirthDate.Day(), 0, 0, 0, 0, t.Location())
	if t.Before(anniversary) {
		age--
	}
	return age
}
