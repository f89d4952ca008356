package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// PlanService is the editor core's view of the backend. Implementations must
// honor context cancellation so in-flight requests can be aborted, and must
// report the area-type conflict branch as *AreaConflictError.
type PlanService interface {
	SearchPlants(ctx context.Context, query string) ([]PlantSearchCandidate, error)
	CheckPlantFit(ctx context.Context, planID string, pos CellPosition, plantName string) (*FitScore, error)
	CommitPlant(ctx context.Context, planID string, pos CellPosition, plantName string, scores *FitScore) (*PlantPlacement, error)
	SetAreaType(ctx context.Context, planID string, sel CellSelection, targetType CellType, confirmRemoval bool) (*AreaTypeResult, error)
	RemovePlant(ctx context.Context, planID string, pos CellPosition) error
}

// HTTPPlanService talks to the plan API over HTTP and maps transport outcomes
// onto the editor's error taxonomy: 409 → *AreaConflictError, deadline →
// *TimeoutError, 429/5xx → *TransientServiceError, anything else unexpected →
// *FatalError.
type HTTPPlanService struct {
	baseURL string
	client  *http.Client
}

// NewHTTPPlanService creates a service against baseURL (no trailing slash).
// client may be nil to use http.DefaultClient.
func NewHTTPPlanService(baseURL string, client *http.Client) *HTTPPlanService {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPlanService{baseURL: baseURL, client: client}
}

// SearchPlants looks up plant candidates for a free-text query.
func (s *HTTPPlanService) SearchPlants(ctx context.Context, query string) ([]PlantSearchCandidate, error) {
	var resp struct {
		Candidates []PlantSearchCandidate `json:"candidates"`
	}
	err := s.postJSON(ctx, "search plants", "/api/plants/search",
		map[string]string{"query": query}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Candidates, nil
}

// CheckPlantFit scores how well a plant suits a cell.
func (s *HTTPPlanService) CheckPlantFit(ctx context.Context, planID string, pos CellPosition, plantName string) (*FitScore, error) {
	var fit FitScore
	err := s.postJSON(ctx, "check plant fit", "/api/plans/"+planID+"/plants/fit",
		map[string]any{"x": pos.X, "y": pos.Y, "plant_name": plantName}, &fit)
	if err != nil {
		return nil, err
	}
	return &fit, nil
}

// CommitPlant creates or replaces a placement (upsert semantics).
func (s *HTTPPlanService) CommitPlant(ctx context.Context, planID string, pos CellPosition, plantName string, scores *FitScore) (*PlantPlacement, error) {
	body := map[string]any{"x": pos.X, "y": pos.Y, "plant_name": plantName}
	if scores != nil {
		body["scores"] = scores
	}
	var placement PlantPlacement
	err := s.postJSON(ctx, "commit plant", "/api/plans/"+planID+"/plants", body, &placement)
	if err != nil {
		return nil, err
	}
	return &placement, nil
}

// SetAreaType applies targetType to the selection. A 409 response becomes an
// *AreaConflictError carrying the server-reported plant count.
func (s *HTTPPlanService) SetAreaType(ctx context.Context, planID string, sel CellSelection, targetType CellType, confirmRemoval bool) (*AreaTypeResult, error) {
	var result AreaTypeResult
	err := s.postJSON(ctx, "set area type", "/api/plans/"+planID+"/area-type",
		map[string]any{"selection": sel, "type": targetType, "confirm_removal": confirmRemoval}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RemovePlant deletes the placement at a position; removing an absent plant
// succeeds.
func (s *HTTPPlanService) RemovePlant(ctx context.Context, planID string, pos CellPosition) error {
	const op = "remove plant"
	url := fmt.Sprintf("%s/api/plans/%s/plants/%d,%d", s.baseURL, planID, pos.X, pos.Y)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return &FatalError{Op: op, Err: err}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return wrapTransportError(op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return statusError(op, resp.StatusCode)
	}
	return nil
}

func (s *HTTPPlanService) postJSON(ctx context.Context, op, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &FatalError{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &FatalError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return wrapTransportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		var conflict struct {
			PlantsCount int `json:"plants_count"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&conflict); err != nil {
			return &FatalError{Op: op, Err: fmt.Errorf("malformed conflict response: %w", err)}
		}
		return &AreaConflictError{PlantsCount: conflict.PlantsCount}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &FatalError{Op: op, Err: fmt.Errorf("malformed response: %w", err)}
		}
	}
	return nil
}

func wrapTransportError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &TransientServiceError{Op: op, Status: 0}
}

func statusError(op string, status int) error {
	if status == http.StatusTooManyRequests || status >= 500 {
		return &TransientServiceError{Op: op, Status: status}
	}
	return &FatalError{Op: op, Err: fmt.Errorf("unexpected status %d", status)}
}
