package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/stowage/internal/audit"
	"github.com/eugenenazirov/stowage/internal/planner"
)

type placementRequest struct {
	UserID     string         `json:"userId,omitempty"`
	Items      []itemDTO      `json:"items" validate:"required,min=1,dive"`
	Containers []containerDTO `json:"containers" validate:"dive"`
}

type placementResponse struct {
	Success          bool               `json:"success"`
	Placements       []placementDTO     `json:"placements"`
	Rearrangements   []rearrangementDTO `json:"rearrangements"`
	UnplacedItems    []string           `json:"unplacedItems"`
	SpaceUtilization map[string]float64 `json:"spaceUtilization"`
}

// handlePlacement plans the requested items into the requested containers
// (or every stored container when none are given) and commits the plan.
func (h *Handler) handlePlacement(w http.ResponseWriter, r *http.Request) {
	var req placementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]planner.Item, 0, len(req.Items))
	for _, d := range req.Items {
		it, err := d.item()
		if err != nil {
			writeDomainError(w, err)
			return
		}
		items = append(items, it)
	}
	containers := make([]planner.Container, 0, len(req.Containers))
	for _, d := range req.Containers {
		containers = append(containers, d.container())
	}

	h.storage.Lock()
	defer h.storage.Unlock()

	if err := h.storage.UpsertContainers(containers); err != nil {
		writeDomainError(w, err)
		return
	}
	if len(containers) == 0 {
		containers = h.storage.Containers()
	}

	snapshot, _ := h.storage.Snapshot()
	result, err := h.engine.Plan(items, containers, planner.StateFromItems(snapshot))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.storage.UpsertItems(items); err != nil {
		writeDomainError(w, err)
		return
	}
	for _, id := range result.Unplaced {
		if err := h.storage.SetLocation(id, nil); err != nil {
			writeInternalError(w, err)
			return
		}
	}
	if err := h.storage.ApplyPlacements(result); err != nil {
		writeInternalError(w, err)
		return
	}

	user := userOrSystem(req.UserID)
	for _, pl := range result.Placements {
		h.audit.Record(user, audit.ActionPlacement, pl.ItemID, map[string]any{
			"containerId": pl.ContainerID,
			"position":    toPositionDTO(pl.Box),
		})
	}

	resp := placementResponse{
		Success:          true,
		Placements:       make([]placementDTO, 0, len(result.Placements)),
		Rearrangements:   make([]rearrangementDTO, 0, len(result.Rearrangements)),
		UnplacedItems:    result.Unplaced,
		SpaceUtilization: result.Utilization,
	}
	for _, pl := range result.Placements {
		resp.Placements = append(resp.Placements, placementDTO{
			ItemID:      pl.ItemID,
			ContainerID: pl.ContainerID,
			Position:    toPositionDTO(pl.Box),
		})
	}
	for _, step := range result.Rearrangements {
		resp.Rearrangements = append(resp.Rearrangements, toRearrangementDTO(step))
	}
	writeJSON(w, http.StatusOK, resp)
}

type placeRequest struct {
	ItemID      string      `json:"itemId" validate:"required"`
	UserID      string      `json:"userId"`
	Timestamp   *time.Time  `json:"timestamp"`
	ContainerID string      `json:"containerId" validate:"required"`
	Position    positionDTO `json:"position"`
}

// handlePlace records that an item was put back at a given position. The
// position must fit the container and must not collide with its occupants.
func (h *Handler) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	box := req.Position.box()
	if err := box.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid position", err.Error())
		return
	}

	h.storage.Lock()
	defer h.storage.Unlock()

	it, err := h.storage.Item(req.ItemID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	c, err := h.storage.Container(req.ContainerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	snapshot, _ := h.storage.Snapshot()
	state := planner.StateFromItems(snapshot)
	state.RemoveItem(it.ID)
	clearance := h.clearance()
	if !state.IsValid(c, box, clearance) {
		writeError(w, http.StatusConflict, "Position unavailable",
			"position is outside the container or collides with another item",
			"use /api/placement to let the planner choose a position")
		return
	}

	if err := h.storage.SetLocation(it.ID, &planner.Location{ContainerID: c.ID, Box: box}); err != nil {
		writeDomainError(w, err)
		return
	}
	h.audit.Record(userOrSystem(req.UserID), audit.ActionPlace, it.ID, map[string]any{
		"containerId": c.ID,
		"position":    req.Position,
	})
	h.logger.Debug("item placed manually", zap.String("item_id", it.ID), zap.String("container_id", c.ID))

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

type successResponse struct {
	Success bool `json:"success"`
}

// clearance returns the planner clearance when the engine exposes one.
func (h *Handler) clearance() float64 {
	if p, ok := h.engine.(interface{ Clearance() float64 }); ok {
		return p.Clearance()
	}
	return 0
}
