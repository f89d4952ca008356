package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// recordingNotifier captures user-facing messages.
type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) NotifySuccess(msg string) {
	n.mu.Lock()
	n.successes = append(n.successes, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) NotifyError(msg string) {
	n.mu.Lock()
	n.errors = append(n.errors, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) lastError() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.errors) == 0 {
		return ""
	}
	return n.errors[len(n.errors)-1]
}

func newTestEditor(svc PlanService, grid *CellGrid) (*Editor, *recordingNotifier) {
	notifier := &recordingNotifier{}
	return NewEditor(svc, "plan1", grid, notifier), notifier
}

func TestEditorSelectionOpensTypePanel(t *testing.T) {
	e, _ := newTestEditor(&fakeService{}, NewCellGrid(10, 10, nil, nil))

	e.PointerDown(CellPosition{1, 1})
	e.PointerMove(CellPosition{3, 3})
	e.PointerUp()

	if !e.TypePanelOpen() {
		t.Fatal("completed selection should open the type panel")
	}
	selPtr := e.Selection.Selection()
	if selPtr == nil || *selPtr != sel(1, 1, 3, 3) {
		t.Fatalf("unexpected selection: %+v", selPtr)
	}
}

func TestEditorChangeTypeToolAlsoSelects(t *testing.T) {
	e, _ := newTestEditor(&fakeService{}, NewCellGrid(10, 10, nil, nil))
	e.SetTool(ToolChangeType)

	e.PointerDown(CellPosition{0, 0})
	e.PointerUp()

	if !e.TypePanelOpen() {
		t.Fatal("change_type completion should open the type panel")
	}
}

func TestEditorAddPlantToolRejectsNonSoil(t *testing.T) {
	grid := NewCellGrid(10, 10, map[CellPosition]CellType{{4, 4}: CellPath}, nil)
	e, notifier := newTestEditor(&fakeService{}, grid)
	e.SetTool(ToolAddPlant)

	e.PointerDown(CellPosition{4, 4})

	if e.PlantTarget() != nil {
		t.Fatal("non-soil cell must not become a plant target")
	}
	if !strings.Contains(notifier.lastError(), "soil") {
		t.Fatalf("error should say soil is required, got %q", notifier.lastError())
	}
	if e.Selection.Selection() != nil {
		t.Fatal("add_plant tool must not start a selection")
	}
}

func TestEditorAddPlantToolTargetsSoil(t *testing.T) {
	e, _ := newTestEditor(&fakeService{}, NewCellGrid(10, 10, nil, nil))
	e.SetTool(ToolAddPlant)

	e.PointerDown(CellPosition{2, 3})

	target := e.PlantTarget()
	if target == nil || *target != (CellPosition{2, 3}) {
		t.Fatalf("expected plant target (2,3), got %+v", target)
	}
}

func TestEditorEscapeClearsPanelAndSelection(t *testing.T) {
	e, _ := newTestEditor(&fakeService{}, NewCellGrid(10, 10, nil, nil))

	e.PointerDown(CellPosition{1, 1})
	e.EscapePressed() // mid-drag: cancels the drag only
	if e.Selection.Dragging() {
		t.Fatal("escape mid-drag should cancel")
	}

	e.PointerDown(CellPosition{1, 1})
	e.PointerUp()
	e.EscapePressed()
	if e.TypePanelOpen() || e.Selection.Selection() != nil {
		t.Fatal("escape should dismiss the panel and selection")
	}
}

func TestEditorApplyAreaTypeReconciles(t *testing.T) {
	svc := &fakeService{
		areaFn: func(_ context.Context, s CellSelection, _ CellType, _ bool) (*AreaTypeResult, error) {
			return &AreaTypeResult{AffectedCells: s.CellCount()}, nil
		},
	}
	e, notifier := newTestEditor(svc, NewCellGrid(10, 10, nil, nil))

	e.PointerDown(CellPosition{1, 1})
	e.PointerMove(CellPosition{3, 3})
	e.PointerUp()

	result, err := e.ApplyAreaType(context.Background(), CellPath)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if result.AffectedCells != 9 {
		t.Fatalf("expected 9 affected cells, got %d", result.AffectedCells)
	}
	if e.Grid().TypeAt(CellPosition{2, 2}) != CellPath {
		t.Fatal("snapshot should be reconciled after success")
	}
	if e.Selection.Selection() != nil || e.TypePanelOpen() {
		t.Fatal("selection and panel should be cleared after a successful apply")
	}
	if len(notifier.successes) == 0 {
		t.Fatal("success should be notified")
	}
}

func TestEditorApplyWithoutSelection(t *testing.T) {
	e, _ := newTestEditor(&fakeService{}, NewCellGrid(10, 10, nil, nil))

	_, err := e.ApplyAreaType(context.Background(), CellPath)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestEditorConflictConfirmFlow(t *testing.T) {
	grid := NewCellGrid(10, 10, nil, map[CellPosition]PlantPlacement{
		{2, 2}: {Position: CellPosition{2, 2}, PlantName: "Tomato"},
	})
	svc := &fakeService{
		areaFn: func(_ context.Context, s CellSelection, _ CellType, confirm bool) (*AreaTypeResult, error) {
			if !confirm {
				return nil, &AreaConflictError{PlantsCount: 1}
			}
			return &AreaTypeResult{AffectedCells: s.CellCount(), RemovedPlants: 1}, nil
		},
	}
	e, _ := newTestEditor(svc, grid)

	e.PointerDown(CellPosition{1, 1})
	e.PointerMove(CellPosition{3, 3})
	e.PointerUp()

	_, err := e.ApplyAreaType(context.Background(), CellPath)
	var conflict *AreaConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// Conflict branch: nothing mutated yet.
	if e.Grid().TypeAt(CellPosition{2, 2}) != CellSoil {
		t.Fatal("conflict must not touch the snapshot")
	}
	if _, ok := e.Grid().PlantAt(CellPosition{2, 2}); !ok {
		t.Fatal("conflict must not remove plants from the snapshot")
	}

	result, err := e.ConfirmAreaType(context.Background())
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if result.RemovedPlants != 1 {
		t.Fatalf("expected 1 removed plant, got %d", result.RemovedPlants)
	}
	if _, ok := e.Grid().PlantAt(CellPosition{2, 2}); ok {
		t.Fatal("confirmed removal should drop the plant from the snapshot")
	}
	if e.Grid().TypeAt(CellPosition{2, 2}) != CellPath {
		t.Fatal("confirmed change should update cell types")
	}
}

func TestEditorCancelAreaTypeKeepsSelection(t *testing.T) {
	svc := &fakeService{
		areaFn: func(_ context.Context, _ CellSelection, _ CellType, _ bool) (*AreaTypeResult, error) {
			return nil, &AreaConflictError{PlantsCount: 1}
		},
	}
	e, _ := newTestEditor(svc, NewCellGrid(10, 10, nil, nil))

	e.PointerDown(CellPosition{1, 1})
	e.PointerUp()
	e.ApplyAreaType(context.Background(), CellPath)

	e.CancelAreaType()
	if e.AreaType.Pending() != nil {
		t.Fatal("cancel should discard the pending operation")
	}
	if e.Selection.Selection() == nil {
		t.Fatal("cancel must leave the selection for the user to reuse")
	}
}

func TestEditorPlantCommitUpdatesSnapshot(t *testing.T) {
	svc := &fakeService{
		searchFn: func(_ context.Context, _ string) ([]PlantSearchCandidate, error) {
			return []PlantSearchCandidate{{Name: "Tomato"}}, nil
		},
	}
	e, _ := newTestEditor(svc, NewCellGrid(10, 10, nil, nil))
	e.SetTool(ToolAddPlant)
	e.PointerDown(CellPosition{2, 2})

	e.Plants.Search(context.Background(), "tomato")
	if _, err := e.Plants.StartFit(context.Background(), PlantSearchCandidate{Name: "Tomato"}, CellPosition{2, 2}); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if _, err := e.Plants.Commit(context.Background()); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	if _, ok := e.Grid().PlantAt(CellPosition{2, 2}); !ok {
		t.Fatal("committed plant should appear in the snapshot")
	}
	if e.PlantTarget() != nil {
		t.Fatal("plant target should be cleared after commit")
	}
}

func TestEditorRemovePlant(t *testing.T) {
	grid := NewCellGrid(10, 10, nil, map[CellPosition]PlantPlacement{
		{1, 1}: {Position: CellPosition{1, 1}, PlantName: "Tomato"},
	})
	e, _ := newTestEditor(&fakeService{}, grid)

	if err := e.RemovePlant(context.Background(), CellPosition{1, 1}); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, ok := e.Grid().PlantAt(CellPosition{1, 1}); ok {
		t.Fatal("removed plant should be gone from the snapshot")
	}
}

func TestEditorToolSwitchDisablesSelection(t *testing.T) {
	e, _ := newTestEditor(&fakeService{}, NewCellGrid(10, 10, nil, nil))

	e.PointerDown(CellPosition{1, 1})
	e.PointerUp()
	e.SetTool(ToolAddPlant)

	if e.Selection.Selection() != nil || e.TypePanelOpen() {
		t.Fatal("switching tools should clear selection state")
	}

	// Pointer input no longer reaches the selection engine.
	e.PointerDown(CellPosition{5, 5})
	e.PointerMove(CellPosition{6, 6})
	if e.Selection.Dragging() {
		t.Fatal("selection engine should be disabled for add_plant")
	}
}

func TestOpenPlacementRejectsOffGridCell(t *testing.T) {
	e, _ := newTestEditor(&fakeService{}, NewCellGrid(10, 10, nil, nil))

	err := e.OpenPlacement(CellPosition{10, 0})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if e.PlantTarget() != nil {
		t.Fatal("off-grid cell must not become the placement target")
	}
}
