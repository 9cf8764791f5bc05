package services

import "errors"

// Lifecycle errors: terminal, non-retryable conditions distinct from
// validation errors.
var (
	ErrUnknownComputation = errors.New("no computation record for this ID")
	ErrDuplicateCallback  = errors.New("computation already terminal, callback rejected")
	ErrAbortedComputation = errors.New("computation was aborted by the execution fabric")
)

// Capacity errors: business-rule rejections from the reserve ledger, state
// preserving.
var (
	ErrBridgePaused        = errors.New("bridge is currently paused")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrAmountExceedsMax    = errors.New("amount exceeds maximum mint per transaction")
	ErrInsufficientReserve = errors.New("insufficient reserve to mint requested amount")
	ErrUnknownReserveAsset = errors.New("unknown reserve asset")
)
