package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/stowage/internal/audit"
	"github.com/eugenenazirov/stowage/internal/planner"
	"github.com/eugenenazirov/stowage/internal/storage"
)

type wasteView struct {
	ItemID      string       `json:"itemId"`
	Name        string       `json:"name"`
	Reason      string       `json:"reason"`
	ContainerID string       `json:"containerId,omitempty"`
	Position    *positionDTO `json:"position,omitempty"`
}

type wasteResponse struct {
	Success    bool        `json:"success"`
	WasteItems []wasteView `json:"wasteItems"`
}

// handleIdentifyWaste flags newly expired or exhausted items and lists every
// item awaiting disposal.
func (h *Handler) handleIdentifyWaste(w http.ResponseWriter, r *http.Request) {
	_ = r
	now := h.now()

	h.storage.Lock()
	flagged := h.storage.MarkWaste(now)
	items := h.storage.Items()
	h.storage.Unlock()

	for _, wi := range flagged {
		h.audit.Record(systemUser, audit.ActionDisposal, wi.ItemID, map[string]any{"reason": wi.Reason})
	}

	resp := wasteResponse{Success: true, WasteItems: []wasteView{}}
	for _, it := range items {
		if !it.Disposal {
			continue
		}
		v := wasteView{ItemID: it.ID, Name: it.Name, Reason: planner.WasteReason(it, now)}
		if it.Location != nil {
			pos := toPositionDTO(it.Location.Box)
			v.ContainerID = it.Location.ContainerID
			v.Position = &pos
		}
		resp.WasteItems = append(resp.WasteItems, v)
	}
	writeJSON(w, http.StatusOK, resp)
}

type returnPlanRequest struct {
	UndockingContainerID string    `json:"undockingContainerId" validate:"required"`
	UndockingDate        time.Time `json:"undockingDate" validate:"required"`
	MaxWeight            float64   `json:"maxWeight" validate:"gte=0"`
}

type returnPlanResponse struct {
	Success bool `json:"success"`
	planner.ReturnResult
}

// handleReturnPlan selects waste for the undocking container and plans the
// moves that bring it there.
func (h *Handler) handleReturnPlan(w http.ResponseWriter, r *http.Request) {
	var req returnPlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.planReturn(req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, returnPlanResponse{Success: true, ReturnResult: result})
}

// planReturn flags pending waste and plans a return against the current
// inventory.
func (h *Handler) planReturn(req returnPlanRequest) (planner.ReturnResult, error) {
	h.storage.Lock()
	defer h.storage.Unlock()

	h.storage.MarkWaste(h.now())
	items, containers := h.storage.Snapshot()
	return h.engine.PlanReturn(planner.ReturnRequest{
		UndockingContainerID: req.UndockingContainerID,
		UndockingDate:        req.UndockingDate,
		MaxWeight:            req.MaxWeight,
	}, items, containers)
}

type completeUndockingRequest struct {
	UndockingContainerID string     `json:"undockingContainerId" validate:"required"`
	UserID               string     `json:"userId"`
	Timestamp            *time.Time `json:"timestamp"`
}

type completeUndockingResponse struct {
	Success      bool `json:"success"`
	ItemsRemoved int  `json:"itemsRemoved"`
}

// handleCompleteUndocking discards the waste loaded into the undocking
// container. Non-waste items left in it are unstowed rather than lost.
func (h *Handler) handleCompleteUndocking(w http.ResponseWriter, r *http.Request) {
	var req completeUndockingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.storage.Lock()
	defer h.storage.Unlock()

	if _, err := h.storage.Container(req.UndockingContainerID); err != nil {
		writeDomainError(w, err)
		return
	}

	var waste []string
	for _, it := range storage.ContainerOccupancy(h.storage.Items(), req.UndockingContainerID) {
		if it.Disposal {
			waste = append(waste, it.ID)
			continue
		}
		if err := h.storage.SetLocation(it.ID, nil); err != nil {
			writeInternalError(w, err)
			return
		}
	}
	removed := h.storage.RemoveItems(waste)

	user := userOrSystem(req.UserID)
	for _, id := range waste {
		h.audit.Record(user, audit.ActionUndocking, id, map[string]any{"containerId": req.UndockingContainerID})
	}
	h.logger.Info("undocking completed",
		zap.String("container_id", req.UndockingContainerID),
		zap.Int("items_removed", removed),
	)

	writeJSON(w, http.StatusOK, completeUndockingResponse{Success: true, ItemsRemoved: removed})
}
