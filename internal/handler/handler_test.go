package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/homestead/internal/domain"
	"github.com/sumire/homestead/internal/service"
)

type fakeEngine struct {
	ownerID int64
	nodeID  int64
	toolID  string
	target  string
	err     error
}

func (f *fakeEngine) view(ownerID int64, kind domain.JobKind) (*service.JobView, error) {
	f.ownerID = ownerID
	if f.err != nil {
		return nil, f.err
	}
	return &service.JobView{
		Job:              &domain.Job{ID: "job-1", OwnerID: ownerID, Kind: kind, Status: domain.JobStatusActive},
		Status:           domain.JobStatusActive,
		RemainingSeconds: 30,
		DurationSeconds:  30,
	}, nil
}

func (f *fakeEngine) StartGathering(_ context.Context, ownerID, nodeID int64, toolID string) (*service.JobView, error) {
	f.nodeID, f.toolID = nodeID, toolID
	return f.view(ownerID, domain.JobKindGathering)
}

func (f *fakeEngine) StartBuilding(_ context.Context, ownerID int64, buildingID string) (*service.JobView, error) {
	f.target = buildingID
	return f.view(ownerID, domain.JobKindBuilding)
}

func (f *fakeEngine) StartUpgrade(_ context.Context, ownerID int64, buildingID string) (*service.JobView, error) {
	f.target = buildingID
	return f.view(ownerID, domain.JobKindBuilding)
}

func (f *fakeEngine) StartCrafting(_ context.Context, ownerID int64, recipeID string) (*service.JobView, error) {
	f.target = recipeID
	return f.view(ownerID, domain.JobKindCrafting)
}

func (f *fakeEngine) StartCollection(_ context.Context, ownerID int64, buildingID string) (*service.JobView, error) {
	f.target = buildingID
	return f.view(ownerID, domain.JobKindCollection)
}

func (f *fakeEngine) GetStatus(_ context.Context, ownerID int64) (*service.JobView, error) {
	f.ownerID = ownerID
	return &service.JobView{}, f.err
}

func (f *fakeEngine) Collect(_ context.Context, ownerID int64, jobID string) (*domain.Reward, error) {
	f.ownerID, f.target = ownerID, jobID
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Reward{JobID: "job-1", Kind: domain.JobKindGathering, Items: []domain.ItemStack{{Item: "wood", Quantity: 3}}}, nil
}

func (f *fakeEngine) Cancel(_ context.Context, ownerID int64) (*service.CancelResult, error) {
	f.ownerID = ownerID
	if f.err != nil {
		return nil, f.err
	}
	return &service.CancelResult{JobID: "job-1", Kind: domain.JobKindBuilding, Refunded: []domain.ItemStack{}}, nil
}

func (f *fakeEngine) GetNode(_ context.Context, id int64) (*domain.ResourceNode, error) {
	f.nodeID = id
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ResourceNode{ID: id, TypeID: "oak_tree", CurrentAmount: 3, MaxAmount: 3}, nil
}

func (f *fakeEngine) Inventory(_ context.Context, ownerID int64) (*service.InventoryView, error) {
	f.ownerID = ownerID
	return &service.InventoryView{Items: []domain.ItemStack{}, Crafted: []domain.CraftedItem{}}, f.err
}

type response struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

type testServer struct {
	e      *echo.Echo
	engine *fakeEngine
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	tokens := service.NewTokenService("test-secret", time.Minute)
	token, err := tokens.IssueAccessToken(7)
	require.NoError(t, err)

	engine := &fakeEngine{}
	return &testServer{
		e:      NewRouter(RouterConfig{Jobs: engine, Tokens: tokens}),
		engine: engine,
		token:  token,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string, auth bool) (int, response) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if auth {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, resp := s.do(t, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, string(resp.Data))
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.do(t, http.MethodGet, "/api/v1/jobs/current", "", false)
	assert.Equal(t, http.StatusUnauthorized, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "unauthorized", resp.Error.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/current", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer nope")
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStartRoutes(t *testing.T) {
	tests := []struct {
		path   string
		body   string
		kind   domain.JobKind
		target string
	}{
		{"/api/v1/jobs/building", `{"building_id":"workshop"}`, domain.JobKindBuilding, "workshop"},
		{"/api/v1/jobs/upgrade", `{"building_id":"forge"}`, domain.JobKindBuilding, "forge"},
		{"/api/v1/jobs/crafting", `{"recipe_id":"wooden_club"}`, domain.JobKindCrafting, "wooden_club"},
		{"/api/v1/jobs/collection", `{"building_id":"lumber_yard"}`, domain.JobKindCollection, "lumber_yard"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			s := newTestServer(t)
			code, resp := s.do(t, http.MethodPost, tt.path, tt.body, true)
			require.Equal(t, http.StatusCreated, code)

			var view service.JobView
			require.NoError(t, json.Unmarshal(resp.Data, &view))
			assert.Equal(t, tt.kind, view.Job.Kind)
			assert.Equal(t, int64(7), s.engine.ownerID)
			assert.Equal(t, tt.target, s.engine.target)
		})
	}
}

func TestStartGathering(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPost, "/api/v1/jobs/gathering", `{"node_id":3,"tool_id":"stone_axe"}`, true)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, int64(3), s.engine.nodeID)
	assert.Equal(t, "stone_axe", s.engine.toolID)

	code, resp := s.do(t, http.MethodPost, "/api/v1/jobs/gathering", `{"tool_id":"stone_axe"}`, true)
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "validation_error", resp.Error.Code)
	assert.Equal(t, []FieldError{{Field: "node_id", Message: "failed on 'required' validation"}}, resp.Error.Details)

	code, resp = s.do(t, http.MethodPost, "/api/v1/jobs/gathering", `{"node_id":`, true)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", resp.Error.Code)
}

func TestCurrentAndCollect(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.do(t, http.MethodGet, "/api/v1/jobs/current", "", true)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"job":null,"remaining_seconds":0,"paused":false}`, string(resp.Data))

	code, resp = s.do(t, http.MethodPost, "/api/v1/jobs/current/collect", "", true)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"job_id":"job-1","kind":"gathering","items":[{"item":"wood","quantity":3}]}`, string(resp.Data))
	assert.Empty(t, s.engine.target)

	code, _ = s.do(t, http.MethodPost, "/api/v1/jobs/current/collect", `{"job_id":"5f0c6f7e-8b44-4c61-9a4e-3f6a1f0b2c9d"}`, true)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "5f0c6f7e-8b44-4c61-9a4e-3f6a1f0b2c9d", s.engine.target)

	code, resp = s.do(t, http.MethodPost, "/api/v1/jobs/current/collect", `{"job_id":"nope"}`, true)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "job_id", resp.Error.Details[0].Field)

	code, _ = s.do(t, http.MethodPost, "/api/v1/jobs/current/cancel", "", true)
	assert.Equal(t, http.StatusOK, code)
}

func TestReads(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.do(t, http.MethodGet, "/api/v1/nodes/12", "", true)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(12), s.engine.nodeID)
	var node domain.ResourceNode
	require.NoError(t, json.Unmarshal(resp.Data, &node))
	assert.Equal(t, "oak_tree", node.TypeID)

	code, resp = s.do(t, http.MethodGet, "/api/v1/nodes/abc", "", true)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "id", resp.Error.Details[0].Field)

	code, resp = s.do(t, http.MethodGet, "/api/v1/inventory", "", true)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"items":[],"crafted":[]}`, string(resp.Data))
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"job in progress", domain.ErrJobInProgress, http.StatusConflict, "job_in_progress"},
		{"too far", domain.ErrTooFar, http.StatusUnprocessableEntity, "too_far"},
		{"not at home", domain.ErrNotAtHome, http.StatusUnprocessableEntity, "not_at_home"},
		{"max level", domain.ErrMaxLevelReached, http.StatusUnprocessableEntity, "max_level_reached"},
		{"insufficient", &domain.InsufficientResourcesError{Missing: map[string]int{"wood": 5}}, http.StatusUnprocessableEntity, "insufficient_resources"},
		{"not ready", &domain.NotReadyError{Remaining: 42 * time.Second}, http.StatusConflict, "not_ready"},
		{"already collected", domain.ErrAlreadyCollected, http.StatusConflict, "already_collected"},
		{"no active job", domain.ErrNoActiveJob, http.StatusNotFound, "no_active_job"},
		{"wrapped not found", fmt.Errorf("recipe %q: %w", "x", domain.ErrNotFound), http.StatusNotFound, "not_found"},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.engine.err = tt.err

			code, resp := s.do(t, http.MethodPost, "/api/v1/jobs/current/collect", "", true)
			assert.Equal(t, tt.status, code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestErrorMapping_Meta(t *testing.T) {
	_, apiErr := mapError(&domain.NotReadyError{Remaining: 42 * time.Second, Paused: true})
	assert.Equal(t, map[string]any{"remaining_seconds": int64(42), "paused": true}, apiErr.Meta)

	_, apiErr = mapError(&domain.InsufficientResourcesError{Missing: map[string]int{"wood": 5}})
	assert.Equal(t, map[string]any{"missing": map[string]int{"wood": 5}}, apiErr.Meta)
	assert.Equal(t, "insufficient resources: missing wood x5", apiErr.Message)
}
