package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sumire/homestead/internal/domain"
	"github.com/sumire/homestead/internal/service"
)

// JobEngine is the job lifecycle API the handlers expose.
type JobEngine interface {
	StartGathering(ctx context.Context, ownerID, nodeID int64, toolID string) (*service.JobView, error)
	StartBuilding(ctx context.Context, ownerID int64, buildingID string) (*service.JobView, error)
	StartUpgrade(ctx context.Context, ownerID int64, buildingID string) (*service.JobView, error)
	StartCrafting(ctx context.Context, ownerID int64, recipeID string) (*service.JobView, error)
	StartCollection(ctx context.Context, ownerID int64, buildingID string) (*service.JobView, error)
	GetStatus(ctx context.Context, ownerID int64) (*service.JobView, error)
	Collect(ctx context.Context, ownerID int64, jobID string) (*domain.Reward, error)
	Cancel(ctx context.Context, ownerID int64) (*service.CancelResult, error)
	GetNode(ctx context.Context, id int64) (*domain.ResourceNode, error)
	Inventory(ctx context.Context, ownerID int64) (*service.InventoryView, error)
}

// JobHandler handles job endpoints.
type JobHandler struct {
	jobs JobEngine
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobs JobEngine) *JobHandler {
	return &JobHandler{jobs: jobs}
}

type startGatheringRequest struct {
	NodeID int64  `json:"node_id" validate:"required,gt=0"`
	ToolID string `json:"tool_id" validate:"omitempty,max=64"`
}

type buildingRequest struct {
	BuildingID string `json:"building_id" validate:"required,max=64"`
}

type craftingRequest struct {
	RecipeID string `json:"recipe_id" validate:"required,max=64"`
}

type collectRequest struct {
	JobID string `json:"job_id" validate:"omitempty,uuid"`
}

// StartGathering starts a gathering job on a resource node.
func (h *JobHandler) StartGathering(c echo.Context) error {
	ownerID, ok := GetOwnerID(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	var req startGatheringRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	view, err := h.jobs.StartGathering(c.Request().Context(), ownerID, req.NodeID, req.ToolID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, view)
}

// StartBuilding starts constructing a building.
func (h *JobHandler) StartBuilding(c echo.Context) error {
	return h.startForBuilding(c, h.jobs.StartBuilding)
}

// StartUpgrade starts upgrading a building by one level.
func (h *JobHandler) StartUpgrade(c echo.Context) error {
	return h.startForBuilding(c, h.jobs.StartUpgrade)
}

// StartCollection starts collecting a building's produce.
func (h *JobHandler) StartCollection(c echo.Context) error {
	return h.startForBuilding(c, h.jobs.StartCollection)
}

func (h *JobHandler) startForBuilding(c echo.Context, start func(context.Context, int64, string) (*service.JobView, error)) error {
	ownerID, ok := GetOwnerID(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	var req buildingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	view, err := start(c.Request().Context(), ownerID, req.BuildingID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, view)
}

// StartCrafting starts crafting a recipe.
func (h *JobHandler) StartCrafting(c echo.Context) error {
	ownerID, ok := GetOwnerID(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	var req craftingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	view, err := h.jobs.StartCrafting(c.Request().Context(), ownerID, req.RecipeID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, view)
}

// Current returns the caller's active job; data.job is null when there is none.
func (h *JobHandler) Current(c echo.Context) error {
	ownerID, ok := GetOwnerID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	view, err := h.jobs.GetStatus(c.Request().Context(), ownerID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, view)
}

// Collect collects the caller's ready job.
func (h *JobHandler) Collect(c echo.Context) error {
	ownerID, ok := GetOwnerID(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	var req collectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	rw, err := h.jobs.Collect(c.Request().Context(), ownerID, req.JobID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, rw)
}

// Cancel cancels the caller's active job.
func (h *JobHandler) Cancel(c echo.Context) error {
	ownerID, ok := GetOwnerID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	res, err := h.jobs.Cancel(c.Request().Context(), ownerID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, res)
}

// Node returns a resource node with respawn applied.
func (h *JobHandler) Node(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return &domain.ValidationError{Field: "id", Message: "must be a positive integer"}
	}

	node, err := h.jobs.GetNode(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, node)
}

// Inventory returns the caller's items.
func (h *JobHandler) Inventory(c echo.Context) error {
	ownerID, ok := GetOwnerID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	inv, err := h.jobs.Inventory(c.Request().Context(), ownerID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, inv)
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return c.Validate(req)
}
