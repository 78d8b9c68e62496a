package service

import (
	"context"
	"fmt"
	"time"

	"edufund/models"

	log "github.com/sirupsen/logrus"
)

// ResolveTargets computes the concrete set of account IDs a rule targets,
// against the snapshots the repository holds right now. Resolution is pure
// with respect to that snapshot; callers re-resolve at fire time rather
// than reusing a creation-time preview.
//
// For specific targeting, IDs that no longer resolve to an existing active
// account are dropped and returned in skipped rather than failing the run.
// An empty result is a valid outcome, not an error.
func ResolveTargets(ctx context.Context, accounts AccountRepository, target models.Target, now time.Time) (ids []int64, skipped []int64, err error) {
	if err := target.Validate(); err != nil {
		return nil, nil, err
	}

	switch target.Type {
	case models.TargetAll:
		active, err := accounts.GetAllActive(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
		}
		for _, account := range active {
			ids = append(ids, account.ID)
		}
		return ids, nil, nil

	case models.TargetSpecific:
		found, err := accounts.GetByIDs(ctx, target.AccountIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
		}
		activeByID := make(map[int64]bool, len(found))
		for _, account := range found {
			if account.Active {
				activeByID[account.ID] = true
			}
		}
		for _, id := range target.AccountIDs {
			if activeByID[id] {
				ids = append(ids, id)
			} else {
				skipped = append(skipped, id)
			}
		}
		if len(skipped) > 0 {
			log.WithFields(log.Fields{
				"skippedCount": len(skipped),
				"skippedIDs":   skipped,
			}).Warn("Dropped unresolvable accounts from explicit target set")
		}
		return ids, skipped, nil

	case models.TargetFiltered:
		active, err := accounts.GetAllActive(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
		}
		for _, account := range active {
			if target.Filter.Matches(account, now) {
				ids = append(ids, account.ID)
			}
		}
		return ids, nil, nil
	}

	// Unreachable: Validate rejects unknown target types
	return nil, nil, fmt.Errorf("%w: unrecognized target type %q", models.ErrConfiguration, string(target.Type))
}
