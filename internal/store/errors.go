package store

import "errors"

var (
	// ErrPlanNotFound is returned when no plan with the given id exists.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrStepNotFound is returned when no step with the given id exists in
	// any plan.
	ErrStepNotFound = errors.New("step not found")

	// ErrPhaseNotFound is returned when no phase with the given id exists in
	// any plan.
	ErrPhaseNotFound = errors.New("phase not found")

	// ErrInvalidTransition is returned when a status update is not reachable
	// from the step's current status. The mutation is rejected and derived
	// state is left untouched.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrFinalizeNotReady is returned when finalization is requested before
	// every step has been reviewed.
	ErrFinalizeNotReady = errors.New("plan has unreviewed steps")
)
