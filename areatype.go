package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// CoordinatorState is the area-type coordinator's lifecycle position.
type CoordinatorState int

const (
	CoordIdle CoordinatorState = iota
	CoordSubmitting
	CoordAwaitingConfirmation
)

func (s CoordinatorState) String() string {
	switch s {
	case CoordIdle:
		return "idle"
	case CoordSubmitting:
		return "submitting"
	case CoordAwaitingConfirmation:
		return "awaitingConfirmation"
	}
	return fmt.Sprintf("CoordinatorState(%d)", int(s))
}

// ErrMutationInFlight is returned when a second area-type change is requested
// while one is already submitting or awaiting confirmation.
var ErrMutationInFlight = errors.New("an area-type change is already in progress")

// PendingAreaTypeOperation is held between a conflict response and the user's
// confirm/cancel decision. PlantsCount comes from the server, which is
// authoritative about which cells currently hold plants.
type PendingAreaTypeOperation struct {
	Selection   CellSelection
	TargetType  CellType
	PlantsCount int
}

// AreaTypeCoordinator applies one target cell type to every cell of a
// selection, in two phases when the change would orphan plants: the first
// request detects the conflict, and only an explicit Confirm re-issues it with
// removal authorized. The destructive branch can never run without that
// informed user action; the common case completes in one round trip.
//
// At most one (selection, type) pair is in flight at a time.
type AreaTypeCoordinator struct {
	svc    PlanService
	planID string

	mu      sync.Mutex
	state   CoordinatorState
	pending *PendingAreaTypeOperation
}

// NewAreaTypeCoordinator creates an idle coordinator for one plan.
func NewAreaTypeCoordinator(svc PlanService, planID string) *AreaTypeCoordinator {
	return &AreaTypeCoordinator{svc: svc, planID: planID}
}

// State returns the current lifecycle position.
func (c *AreaTypeCoordinator) State() CoordinatorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns a copy of the operation awaiting confirmation, if any.
func (c *AreaTypeCoordinator) Pending() *PendingAreaTypeOperation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return nil
	}
	op := *c.pending
	return &op
}

// Apply submits the area-type change without removal authorization.
//
// On success it returns the affected/removed counts. When the server reports
// the change would remove plants, Apply stores the pending operation,
// transitions to awaitingConfirmation, and returns the *AreaConflictError; no
// mutation happened on that branch. Any other error returns the coordinator
// to idle.
func (c *AreaTypeCoordinator) Apply(ctx context.Context, sel CellSelection, targetType CellType) (*AreaTypeResult, error) {
	if !ValidCellType(targetType) {
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown cell type %q", targetType)}
	}
	sel = sel.Normalize()

	c.mu.Lock()
	if c.state != CoordIdle {
		c.mu.Unlock()
		return nil, ErrMutationInFlight
	}
	c.state = CoordSubmitting
	c.mu.Unlock()

	result, err := c.svc.SetAreaType(ctx, c.planID, sel, targetType, false)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		var conflict *AreaConflictError
		if errors.As(err, &conflict) {
			c.state = CoordAwaitingConfirmation
			c.pending = &PendingAreaTypeOperation{
				Selection:   sel,
				TargetType:  targetType,
				PlantsCount: conflict.PlantsCount,
			}
			return nil, err
		}
		c.state = CoordIdle
		return nil, err
	}
	c.state = CoordIdle
	return result, nil
}

// Confirm re-issues the pending operation with removal authorized. The
// request references the exact (selection, type) pair that conflicted.
//
// Calling Confirm with no pending operation is a no-op. A repeated conflict
// means a concurrent change invalidated the original assumptions; it is
// surfaced as a *FatalError rather than looping, and the pending operation is
// discarded. Other errors keep the pending operation so Confirm can be
// retried.
func (c *AreaTypeCoordinator) Confirm(ctx context.Context) (*AreaTypeResult, error) {
	c.mu.Lock()
	if c.state != CoordAwaitingConfirmation || c.pending == nil {
		c.mu.Unlock()
		return nil, nil
	}
	op := *c.pending
	c.state = CoordSubmitting
	c.mu.Unlock()

	result, err := c.svc.SetAreaType(ctx, c.planID, op.Selection, op.TargetType, true)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		var conflict *AreaConflictError
		if errors.As(err, &conflict) {
			c.pending = nil
			c.state = CoordIdle
			return nil, &FatalError{Op: "confirm area type", Err: fmt.Errorf("conflict persisted after confirmation: %w", err)}
		}
		c.state = CoordAwaitingConfirmation
		return nil, err
	}
	c.pending = nil
	c.state = CoordIdle
	return result, nil
}

// Cancel discards the pending operation with no mutation. The original
// selection is left untouched; the caller decides whether to keep it.
func (c *AreaTypeCoordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != CoordAwaitingConfirmation {
		return
	}
	c.pending = nil
	c.state = CoordIdle
}

// InvalidateIfChanged cancels the pending operation when the live selection
// no longer matches the one that conflicted. Stale parameters must never be
// silently reused.
func (c *AreaTypeCoordinator) InvalidateIfChanged(sel CellSelection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil && c.pending.Selection != sel.Normalize() {
		c.pending = nil
		c.state = CoordIdle
	}
}
