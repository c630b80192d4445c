package controller

import "errors"

var (
	// ErrUnauthorized means the bearer token matched no node's
	// accepted credential set
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidPayload means the telemetry report failed validation
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrRotationInFlight means a credential rotation is already in
	// progress for the node, including its post-acknowledgment grace
	// window
	ErrRotationInFlight = errors.New("rotation already in flight")

	// ErrRotationFailed means a rotation step failed and the
	// controller reverted to trusting only the old credential.
	// Safe to retry.
	ErrRotationFailed = errors.New("rotation failed")
)
