package domain

import "errors"

// ErrWalkNotFound is returned when a walk ID cannot be found in the store.
var ErrWalkNotFound = errors.New("walk not found")

// ErrUnknownDecision is returned when a resume decision is neither APPROVE nor REJECT.
var ErrUnknownDecision = errors.New("unknown decision")

// ErrNotSuspended is returned when resuming a walk that is not awaiting approval.
var ErrNotSuspended = errors.New("walk is not suspended")

// ErrAlreadySuspended is returned when stepping a walk that is awaiting approval.
var ErrAlreadySuspended = errors.New("walk is awaiting approval")

// ErrGraphMisconfigured is returned when the graph topology is invalid or a walk
// exceeds its step ceiling.
var ErrGraphMisconfigured = errors.New("graph misconfigured")

// ErrWalkTerminated is returned when stepping a walk that already reached the end.
var ErrWalkTerminated = errors.New("walk already terminated")

// ErrImmutableField is returned by State.Apply when a delta tries to rewrite a
// set-once field.
var ErrImmutableField = errors.New("field is set-once")
