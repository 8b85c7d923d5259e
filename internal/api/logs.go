package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/eugenenazirov/stowage/internal/audit"
	"github.com/eugenenazirov/stowage/internal/importer"
)

type logsResponse struct {
	Success bool          `json:"success"`
	Logs    []audit.Entry `json:"logs"`
}

// handleLogs returns audit entries filtered by date range, item, user and
// action type.
func (h *Handler) handleLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseLogTime(q.Get("startDate"), false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid startDate", err.Error())
		return
	}
	to, err := parseLogTime(q.Get("endDate"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid endDate", err.Error())
		return
	}

	entries := h.audit.Query(audit.Filter{
		From:   from,
		To:     to,
		ItemID: q.Get("itemId"),
		UserID: q.Get("userId"),
		Action: audit.Action(q.Get("actionType")),
	})
	writeJSON(w, http.StatusOK, logsResponse{Success: true, Logs: entries})
}

// parseLogTime accepts the same layouts as expiry dates. A bare start date
// is taken from midnight; a bare end date runs to the end of the day.
func parseLogTime(raw string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if d, err := time.Parse(time.DateOnly, raw); err == nil {
		if endOfDay {
			return d.Add(24*time.Hour - time.Nanosecond), nil
		}
		return d, nil
	}
	t, err := importer.ParseExpiry(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
	}
	return t, nil
}
