package engine

import "errors"

// Error taxonomy surfaced to callers. Anything not matching one of these
// sentinels is an internal storage failure and may be retried by the caller;
// these four are not retried and map onto HTTP 404/409/409/400 respectively.
var (
	// ErrNotFound indicates a referenced user, track, mission, or task does not exist.
	ErrNotFound = errors.New("not found")

	// ErrMissionExists indicates a mission already exists for the (user, date) pair.
	ErrMissionExists = errors.New("mission already exists for this date")

	// ErrTaskAlreadyCompleted indicates a completion was attempted on a task
	// that is already in a terminal state.
	ErrTaskAlreadyCompleted = errors.New("task already completed")

	// ErrInvalidInput indicates a malformed request (out-of-range ratings,
	// negative minutes, missing required fields).
	ErrInvalidInput = errors.New("invalid input")
)
