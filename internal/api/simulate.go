package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/eugenenazirov/stowage/internal/audit"
	"github.com/eugenenazirov/stowage/internal/simulation"
)

type usageDTO struct {
	ItemID string `json:"itemId"`
	Name   string `json:"name"`
}

type simulateRequest struct {
	NumOfDays           *int       `json:"numOfDays" validate:"omitempty,min=1,max=3650"`
	ToTimestamp         *time.Time `json:"toTimestamp"`
	ItemsToBeUsedPerDay []usageDTO `json:"itemsToBeUsedPerDay"`
	UserID              string     `json:"userId"`
}

type simulateChanges struct {
	ItemsUsed          []string `json:"itemsUsed"`
	ItemsExpired       []string `json:"itemsExpired"`
	ItemsDepletedToday []string `json:"itemsDepletedToday"`
}

type simulateResponse struct {
	Success bool                   `json:"success"`
	NewDate time.Time              `json:"newDate"`
	Changes simulateChanges        `json:"changes"`
	Days    []simulation.DayReport `json:"days"`
}

// handleSimulate advances the mission calendar by a number of days or up to
// a target timestamp, using the listed items once per day.
func (h *Handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if (req.NumOfDays == nil) == (req.ToTimestamp == nil) {
		writeError(w, http.StatusBadRequest, "Invalid request",
			"exactly one of numOfDays or toTimestamp is required")
		return
	}

	h.storage.Lock()
	defer h.storage.Unlock()

	snapshot, _ := h.storage.Snapshot()
	usage := make([]string, 0, len(req.ItemsToBeUsedPerDay))
	for _, u := range req.ItemsToBeUsedPerDay {
		if it, ok := lookupItem(snapshot, u.ItemID, u.Name); ok {
			usage = append(usage, it.ID)
		}
	}

	var (
		report simulation.Report
		err    error
	)
	if req.NumOfDays != nil {
		report, err = h.simulator.Advance(*req.NumOfDays, usage)
	} else {
		report, err = h.simulator.AdvanceTo(*req.ToTimestamp, usage)
	}
	switch {
	case errors.Is(err, simulation.ErrInvalidDays), errors.Is(err, simulation.ErrTargetInPast):
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	case err != nil:
		writeInternalError(w, err)
		return
	}

	h.audit.Record(userOrSystem(req.UserID), audit.ActionSimulation, "", map[string]any{
		"days":    len(report.Days),
		"newDate": report.NewDate,
	})

	writeJSON(w, http.StatusOK, simulateResponse{
		Success: true,
		NewDate: report.NewDate,
		Changes: simulateChanges{
			ItemsUsed:          usage,
			ItemsExpired:       report.Expired,
			ItemsDepletedToday: report.Depleted,
		},
		Days: report.Days,
	})
}

type simulationStatusResponse struct {
	Success     bool      `json:"success"`
	CurrentDate time.Time `json:"currentDate"`
}

func (h *Handler) handleSimulationStatus(w http.ResponseWriter, r *http.Request) {
	_ = r
	writeJSON(w, http.StatusOK, simulationStatusResponse{Success: true, CurrentDate: h.now()})
}
