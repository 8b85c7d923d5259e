package api

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/stowage/internal/audit"
	"github.com/eugenenazirov/stowage/internal/planner"
)

type searchResponse struct {
	Success        bool                    `json:"success"`
	Found          bool                    `json:"found"`
	Item           *itemView               `json:"item,omitempty"`
	RetrievalSteps []planner.RetrievalStep `json:"retrievalSteps"`
	BlockingItems  int                     `json:"blockingItems"`
}

// handleSearch looks an item up by id or by name and returns the steps
// needed to take it out of its container.
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	itemID := strings.TrimSpace(q.Get("itemId"))
	itemName := strings.TrimSpace(q.Get("itemName"))
	if itemID == "" && itemName == "" {
		writeError(w, http.StatusBadRequest, "Missing parameter",
			"itemId or itemName is required", "example: /api/search?itemId=001")
		return
	}

	snapshot, _ := h.storage.Snapshot()
	target, ok := lookupItem(snapshot, itemID, itemName)
	if !ok {
		writeJSON(w, http.StatusOK, searchResponse{Success: true, RetrievalSteps: []planner.RetrievalStep{}})
		return
	}

	steps, err := h.engine.PlanRetrieval(target.ID, snapshot)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	blockers := 0
	if target.Placed() {
		blockers = len(planner.BlockingItems(target, snapshot))
	}

	h.audit.Record(userOrSystem(q.Get("userId")), audit.ActionSearch, target.ID, map[string]any{
		"blockingItems": blockers,
	})

	view := toItemView(target)
	writeJSON(w, http.StatusOK, searchResponse{
		Success:        true,
		Found:          true,
		Item:           &view,
		RetrievalSteps: steps,
		BlockingItems:  blockers,
	})
}

// lookupItem prefers an id match; names match case-insensitively and the
// first stored item with that name wins.
func lookupItem(items []planner.Item, id, name string) (planner.Item, bool) {
	if id != "" {
		for _, it := range items {
			if it.ID == id {
				return it, true
			}
		}
		return planner.Item{}, false
	}
	for _, it := range items {
		if strings.EqualFold(it.Name, name) {
			return it, true
		}
	}
	return planner.Item{}, false
}

type retrieveRequest struct {
	ItemID    string     `json:"itemId" validate:"required"`
	UserID    string     `json:"userId"`
	Timestamp *time.Time `json:"timestamp"`
}

type retrieveResponse struct {
	Success bool     `json:"success"`
	Item    itemView `json:"item"`
}

// handleRetrieve records that an item was taken out and used once. The item
// leaves its container; an item whose uses run out becomes waste.
func (h *Handler) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.storage.Lock()
	defer h.storage.Unlock()

	before, err := h.storage.Item(req.ItemID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	it, err := h.storage.RecordUse(req.ItemID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.storage.SetLocation(it.ID, nil); err != nil {
		writeInternalError(w, err)
		return
	}
	it.Location = nil

	user := userOrSystem(req.UserID)
	details := map[string]any{}
	if before.Location != nil {
		details["fromContainer"] = before.Location.ContainerID
	}
	if it.UsesRemaining != nil {
		details["usesRemaining"] = *it.UsesRemaining
	}
	h.audit.Record(user, audit.ActionRetrieval, it.ID, details)
	if it.Disposal && !before.Disposal {
		h.audit.Record(user, audit.ActionDisposal, it.ID, map[string]any{"reason": planner.ReasonOutOfUses})
		h.logger.Info("item out of uses", zap.String("item_id", it.ID))
	}

	writeJSON(w, http.StatusOK, retrieveResponse{Success: true, Item: toItemView(it)})
}
