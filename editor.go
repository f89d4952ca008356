package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Tool is the editor's active interaction mode.
type Tool string

const (
	ToolSelect     Tool = "select"
	ToolAddPlant   Tool = "add_plant"
	ToolChangeType Tool = "change_type" // alias for select; completion opens the type panel
)

// Notifier receives user-facing outcome messages. Injected so the core stays
// testable without a UI.
type Notifier interface {
	NotifySuccess(msg string)
	NotifyError(msg string)
}

type nopNotifier struct{}

func (nopNotifier) NotifySuccess(string) {}
func (nopNotifier) NotifyError(string)   {}

// Editor composes the selection engine, area-type coordinator and placement
// workflow over one plan. It owns the authoritative CellGrid snapshot: the
// snapshot is read-only to the child engines and replaced only here, after a
// server-confirmed mutation — never speculatively.
type Editor struct {
	planID   string
	svc      PlanService
	notifier Notifier

	Selection *SelectionEngine
	AreaType  *AreaTypeCoordinator
	Plants    *PlantWorkflow

	mu            sync.Mutex
	grid          *CellGrid
	tool          Tool
	typePanelOpen bool
	plantTarget   *CellPosition
}

// NewEditor creates an editor over an initial snapshot. notifier may be nil.
func NewEditor(svc PlanService, planID string, grid *CellGrid, notifier Notifier) *Editor {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	e := &Editor{
		planID:   planID,
		svc:      svc,
		notifier: notifier,
		grid:     grid,
		tool:     ToolSelect,
	}
	e.Selection = NewSelectionEngine(grid.Width, grid.Height, e.onSelectionComplete)
	e.AreaType = NewAreaTypeCoordinator(svc, planID)
	e.Plants = NewPlantWorkflow(svc, planID, e.Grid, e.onPlantCommitted)
	return e
}

// Grid returns the current snapshot.
func (e *Editor) Grid() *CellGrid {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid
}

// Tool returns the active tool.
func (e *Editor) Tool() Tool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tool
}

// TypePanelOpen reports whether the transient "choose a type" control is up.
func (e *Editor) TypePanelOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.typePanelOpen
}

// SetTool switches the interaction mode. Changing tools cancels any drag,
// closes the type panel and clears the selection.
func (e *Editor) SetTool(t Tool) {
	e.mu.Lock()
	if e.tool == t {
		e.mu.Unlock()
		return
	}
	e.tool = t
	e.typePanelOpen = false
	e.mu.Unlock()

	e.Selection.Cancel()
	e.Selection.Clear()
	e.Selection.SetEnabled(t == ToolSelect || t == ToolChangeType)
}

// PointerDown routes a press to the selection engine (select tools) or opens
// the placement workflow for the clicked cell (add_plant tool).
func (e *Editor) PointerDown(pos CellPosition) {
	switch e.Tool() {
	case ToolSelect, ToolChangeType:
		e.Selection.Begin(pos)
	case ToolAddPlant:
		if err := e.OpenPlacement(pos); err != nil {
			var notSoil *CellNotSoilError
			if errors.As(err, &notSoil) {
				e.notifier.NotifyError(notSoil.Error())
			}
		}
	}
}

// PointerMove extends an in-progress drag.
func (e *Editor) PointerMove(pos CellPosition) {
	e.Selection.Extend(pos)
}

// PointerUp finalizes an in-progress drag.
func (e *Editor) PointerUp() {
	e.Selection.End()
}

// PointerLeave cancels a drag when the pointer leaves the grid surface.
func (e *Editor) PointerLeave() {
	e.Selection.Cancel()
}

// EscapePressed cancels a drag, or dismisses the type panel and the current
// selection when no drag is active.
func (e *Editor) EscapePressed() {
	if e.Selection.Dragging() {
		e.Selection.Cancel()
		return
	}
	e.mu.Lock()
	e.typePanelOpen = false
	e.mu.Unlock()
	e.Selection.Clear()
	e.AreaType.Cancel()
}

func (e *Editor) onSelectionComplete(sel CellSelection) {
	e.AreaType.InvalidateIfChanged(sel)
	e.mu.Lock()
	e.typePanelOpen = true
	e.mu.Unlock()
}

// OpenPlacement targets a cell for the add-plant workflow. The cell must be
// an on-grid soil cell; a mismatch is reported without opening the placement
// form and without any network call.
func (e *Editor) OpenPlacement(pos CellPosition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.grid.InBounds(pos) {
		return &ValidationError{Reason: fmt.Sprintf("cell (%d,%d) is outside the plan", pos.X, pos.Y)}
	}
	if t := e.grid.TypeAt(pos); t != CellSoil {
		return &CellNotSoilError{Position: pos, Actual: t}
	}
	e.plantTarget = &pos
	return nil
}

// PlantTarget returns the cell currently targeted by the placement workflow.
func (e *Editor) PlantTarget() *CellPosition {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.plantTarget == nil {
		return nil
	}
	pos := *e.plantTarget
	return &pos
}

// ApplyAreaType applies targetType to the current selection. On success the
// snapshot is reconciled and the selection cleared; a conflict leaves both
// untouched and is returned for the confirmation dialog.
func (e *Editor) ApplyAreaType(ctx context.Context, targetType CellType) (*AreaTypeResult, error) {
	sel := e.Selection.Selection()
	if sel == nil {
		return nil, &ValidationError{Reason: "no selection to apply a type to"}
	}

	result, err := e.AreaType.Apply(ctx, *sel, targetType)
	if err != nil {
		var conflict *AreaConflictError
		if !errors.As(err, &conflict) {
			e.notifier.NotifyError(err.Error())
		}
		return nil, err
	}
	e.reconcileAreaType(*sel, targetType, result)
	return result, nil
}

// ConfirmAreaType authorizes the pending destructive change.
func (e *Editor) ConfirmAreaType(ctx context.Context) (*AreaTypeResult, error) {
	pending := e.AreaType.Pending()
	if pending == nil {
		return nil, nil
	}

	result, err := e.AreaType.Confirm(ctx)
	if err != nil {
		e.notifier.NotifyError(err.Error())
		return nil, err
	}
	if result != nil {
		e.reconcileAreaType(pending.Selection, pending.TargetType, result)
	}
	return result, nil
}

// CancelAreaType discards the pending destructive change. The selection is
// kept so the user can pick a different type.
func (e *Editor) CancelAreaType() {
	e.AreaType.Cancel()
}

func (e *Editor) reconcileAreaType(sel CellSelection, targetType CellType, result *AreaTypeResult) {
	e.mu.Lock()
	e.grid = e.grid.WithAreaType(sel, targetType, result.RemovedPlants > 0)
	e.typePanelOpen = false
	e.mu.Unlock()
	e.Selection.Clear()
	e.notifier.NotifySuccess(fmt.Sprintf("changed %d cell(s), removed %d plant(s)", result.AffectedCells, result.RemovedPlants))
}

func (e *Editor) onPlantCommitted(p PlantPlacement) {
	e.mu.Lock()
	e.grid = e.grid.WithPlant(p)
	e.plantTarget = nil
	e.mu.Unlock()
	e.notifier.NotifySuccess(fmt.Sprintf("planted %s at (%d,%d)", p.PlantName, p.Position.X, p.Position.Y))
}

// RemovePlant deletes a single placement. Removing an absent plant succeeds.
func (e *Editor) RemovePlant(ctx context.Context, pos CellPosition) error {
	if err := e.svc.RemovePlant(ctx, e.planID, pos); err != nil {
		e.notifier.NotifyError(err.Error())
		return err
	}
	e.mu.Lock()
	e.grid = e.grid.WithoutPlant(pos)
	e.mu.Unlock()
	return nil
}
