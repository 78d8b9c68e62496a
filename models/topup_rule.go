package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TopUpStatus represents the lifecycle state of a top-up rule
type TopUpStatus string

const (
	TopUpStatusScheduled TopUpStatus = "scheduled"
	TopUpStatusExecuting TopUpStatus = "executing"
	TopUpStatusCompleted TopUpStatus = "completed"
	TopUpStatusFailed    TopUpStatus = "failed"
	TopUpStatusCancelled TopUpStatus = "cancelled"
)

// TargetType represents how a rule selects its accounts
type TargetType string

const (
	TargetAll      TargetType = "all"
	TargetFiltered TargetType = "filtered"
	TargetSpecific TargetType = "specific"
)

// BatchFilterType subdivides filtered targeting for administrator reporting
type BatchFilterType string

const (
	BatchFilterAge             BatchFilterType = "age"
	BatchFilterBalance         BatchFilterType = "balance"
	BatchFilterEducationLevel  BatchFilterType = "education_level"
	BatchFilterSchoolingStatus BatchFilterType = "schooling_status"
	BatchFilterCombined        BatchFilterType = "combined"
)

// AccountFilter is a conjunction of optional predicates over account
// snapshots. Nil bounds and empty sets impose no constraint.
type AccountFilter struct {
	MinAge             *int             `json:"min_age,omitempty"`
	MaxAge             *int             `json:"max_age,omitempty"`
	MinBalance         *decimal.Decimal `json:"min_balance,omitempty"`
	MaxBalance         *decimal.Decimal `json:"max_balance,omitempty"`
	EducationLevelIDs  []int32          `json:"education_level_ids,omitempty"`
	SchoolingStatusIDs []int32          `json:"schooling_status_ids,omitempty"`
}

// Matches reports whether the account satisfies every populated predicate.
// Age bounds are evaluated against the account's age at the given time.
func (f *AccountFilter) Matches(account *AccountHolder, at time.Time) bool {
	if f.MinAge != nil || f.MaxAge != nil {
		age := account.AgeAt(at)
		if f.MinAge != nil && age < *f.MinAge {
			return false
		}
		if f.MaxAge != nil && age > *f.MaxAge {
			return false
		}
	}
	if f.MinBalance != nil && account.Balance.LessThan(*f.MinBalance) {
		return false
	}
	if f.MaxBalance != nil && account.Balance.GreaterThan(*f.MaxBalance) {
		return false
	}
	if len(f.EducationLevelIDs) > 0 && !containsInt32(f.EducationLevelIDs, account.EducationLevelID) {
		return false
	}
	if len(f.SchoolingStatusIDs) > 0 && !containsInt32(f.SchoolingStatusIDs, account.SchoolingStatusID) {
		return false
	}
	return true
}

func containsInt32(set []int32, v int32) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Target carries the targeting payload for a rule. Exactly one of Filter
// and AccountIDs is populated, consistent with the rule's TargetType; the
// constructors below are the only way rule-creating code builds one, which
// keeps the variant invariant out of runtime validation.
type Target struct {
	Type            TargetType      `json:"type"`
	BatchFilterType BatchFilterType `json:"batch_filter_type,omitempty"`
	Filter          *AccountFilter  `json:"filter,omitempty"`
	AccountIDs      []int64         `json:"account_ids,omitempty"`
}

// TargetAllAccounts targets every active account
func TargetAllAccounts() Target {
	return Target{Type: TargetAll}
}

// TargetByFilter targets accounts matching the filter predicates
func TargetByFilter(batchType BatchFilterType, filter AccountFilter) Target {
	return Target{Type: TargetFiltered, BatchFilterType: batchType, Filter: &filter}
}

// TargetAccounts targets an explicit set of account IDs
func TargetAccounts(ids []int64) Target {
	return Target{Type: TargetSpecific, AccountIDs: ids}
}

// Validate checks the variant payload is consistent with the target type
func (t Target) Validate() error {
	switch t.Type {
	case TargetAll:
		if t.Filter != nil || len(t.AccountIDs) > 0 {
			return fmt.Errorf("%w: target type all must not carry a filter or account list", ErrConfiguration)
		}
	case TargetFiltered:
		if t.Filter == nil {
			return fmt.Errorf("%w: target type filtered requires a filter", ErrConfiguration)
		}
		if len(t.AccountIDs) > 0 {
			return fmt.Errorf("%w: target type filtered must not carry an account list", ErrConfiguration)
		}
		if t.BatchFilterType == "" {
			return fmt.Errorf("%w: target type filtered requires a batch filter type", ErrConfiguration)
		}
	case TargetSpecific:
		if len(t.AccountIDs) == 0 {
			return fmt.Errorf("%w: target type specific requires at least one account ID", ErrConfiguration)
		}
		if t.Filter != nil {
			return fmt.Errorf("%w: target type specific must not carry a filter", ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unrecognized target type %q", ErrConfiguration, string(t.Type))
	}
	return nil
}

// TopUpRule represents an administrator-created bulk credit rule
type TopUpRule struct {
	ID                 uuid.UUID       `db:"id"`
	Name               string          `db:"name"`
	Amount             decimal.Decimal `db:"amount"`
	Target             Target          `db:"target"`
	ScheduledTime      *time.Time      `db:"scheduled_time"`
	ExecuteImmediately bool            `db:"execute_immediately"`
	Status             TopUpStatus     `db:"status"`
	Description        string          `db:"description"`
	InternalRemarks    string          `db:"internal_remarks"`
	SucceededCount     int             `db:"succeeded_count"`
	FailedCount        int             `db:"failed_count"`
	ExecutedAt         *time.Time      `db:"executed_at"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

// Validate checks the rule is well-formed at creation time
func (r *TopUpRule) Validate(now time.Time) error {
	if r.Name == "" {
		return fmt.Errorf("%w: rule name is required", ErrConfiguration)
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: top-up amount must be positive, got %s", ErrConfiguration, r.Amount)
	}
	if err := r.Target.Validate(); err != nil {
		return err
	}
	if r.ExecuteImmediately {
		if r.ScheduledTime != nil {
			return fmt.Errorf("%w: immediate rules must not carry a scheduled time", ErrConfiguration)
		}
		return nil
	}
	if r.ScheduledTime == nil {
		return fmt.Errorf("%w: scheduled time is required unless executing immediately", ErrConfiguration)
	}
	if !r.ScheduledTime.After(now) {
		return fmt.Errorf("%w: scheduled time %s is not in the future", ErrConfiguration, r.ScheduledTime.Format(time.RFC3339))
	}
	return nil
}

// FireTime returns when the rule should execute. Immediate rules fire at
// the given now.
func (r *TopUpRule) FireTime(now time.Time) time.Time {
	if r.ScheduledTime != nil {
		return *r.ScheduledTime
	}
	return now
}

// CanCancel checks if the rule can still be cancelled
func (r *TopUpRule) CanCancel() bool {
	return r.Status == TopUpStatusScheduled
}

// IsTerminal checks if the rule has reached a final state
func (r *TopUpRule) IsTerminal() bool {
	switch r.Status {
	case TopUpStatusCompleted, TopUpStatusFailed, TopUpStatusCancelled:
		return true
	}
	return false
}
