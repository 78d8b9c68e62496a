package service

import "errors"

var (
	// ErrRuleNotFound is returned when a rule ID does not resolve
	ErrRuleNotFound = errors.New("top-up rule not found")

	// ErrRuleNotCancellable is returned when a cancel request arrives after
	// the rule has started executing or reached a terminal state
	ErrRuleNotCancellable = errors.New("top-up rule is no longer scheduled")

	// ErrRuleNotClaimed is returned when a fire loses the race against a
	// cancel; the fire is a no-op
	ErrRuleNotClaimed = errors.New("top-up rule could not be claimed for execution")

	// ErrAccountNotFound is returned when an account ID does not resolve to
	// an existing, active account
	ErrAccountNotFound = errors.New("account not found or inactive")

	// ErrResolutionFailed marks a target resolution that could not complete
	// at all; the whole run aborts and the rule moves to failed
	ErrResolutionFailed = errors.New("target resolution failed")
)
