package domain

import "errors"

// Sentinel errors used throughout the application.
// The API layer translates these to HTTP status codes via a single mapError
// function. Recoverable per-item conditions (duplicate enqueue, unknown
// exclusion key) are not errors at all; they go to the MessageCollection.
var (
	ErrQueueNotFound    = errors.New("queue not found for type")
	ErrGroupingNotFound = errors.New("grouping not found")
	ErrInvalidQueueType = errors.New("invalid queue type")
	ErrInvalidOrigin    = errors.New("invalid origin: must be manual, rework, or routed")
	ErrEmptyVesselSet   = errors.New("at least one vessel is required")
	ErrEmptyGroupName   = errors.New("grouping name must not be empty")
	ErrMissingPosition  = errors.New("target position is required: use move-to-top or move-to-bottom instead")
	ErrScopedQueueType  = errors.New("handler may not enqueue into its own trigger queue type")
	ErrOrderViolation   = errors.New("sort order invariant violated")
	ErrNotRequeueable   = errors.New("only a completed grouping can be requeued")
)
