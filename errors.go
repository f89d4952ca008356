package main

import "fmt"

// ValidationError is a client-side input problem caught before any network
// call: empty query, unknown type, out-of-bounds selection. Recoverable by
// changing input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// CellNotSoilError means a plant operation targeted a cell whose current type
// forbids planting. Carries the actual type so the UI can say what is required.
type CellNotSoilError struct {
	Position CellPosition
	Actual   CellType
}

func (e *CellNotSoilError) Error() string {
	return fmt.Sprintf("cell (%d,%d) is %s, plants need soil", e.Position.X, e.Position.Y, e.Actual)
}

// AreaConflictError is the expected branch of an area-type change that would
// remove plants without prior authorization. Not a failure: it asks for an
// explicit user decision.
type AreaConflictError struct {
	PlantsCount int
}

func (e *AreaConflictError) Error() string {
	return fmt.Sprintf("change would remove %d plant(s), confirmation required", e.PlantsCount)
}

// TimeoutError means a request exceeded its deadline. Kept distinct from
// generic failures so the UI can offer "retry" and "skip AI scoring" together.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string { return e.Op + ": request timed out" }

// TransientServiceError covers rate limiting and 5xx responses; recoverable
// by retrying.
type TransientServiceError struct {
	Op     string
	Status int
}

func (e *TransientServiceError) Error() string {
	return fmt.Sprintf("%s: transient service error (status %d)", e.Op, e.Status)
}

// FatalError is anything that fits no other category (malformed response,
// unexpected status). Surfaced to the user with no automatic retry.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }
