package api

import (
	"net/http"

	"github.com/eugenenazirov/stowage/internal/storage"
)

type containerResponse struct {
	Success     bool         `json:"success"`
	Container   containerDTO `json:"container"`
	ItemCount   int          `json:"itemCount"`
	Utilization float64      `json:"utilization"`
	Items       []itemView   `json:"items,omitempty"`
}

type containersResponse struct {
	Success    bool           `json:"success"`
	Containers []containerDTO `json:"containers"`
}

func (h *Handler) handleListContainers(w http.ResponseWriter, r *http.Request) {
	_ = r
	stored := h.storage.Containers()
	resp := containersResponse{Success: true, Containers: make([]containerDTO, 0, len(stored))}
	for _, c := range stored {
		resp.Containers = append(resp.Containers, toContainerDTO(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetContainer describes one container and its fill level. The
// utilization is the fraction of the container volume that is occupied.
func (h *Handler) handleGetContainer(w http.ResponseWriter, r *http.Request) {
	h.writeContainer(w, r.PathValue("id"), false)
}

func (h *Handler) handleContainerItems(w http.ResponseWriter, r *http.Request) {
	h.writeContainer(w, r.PathValue("id"), true)
}

func (h *Handler) writeContainer(w http.ResponseWriter, id string, withItems bool) {
	c, err := h.storage.Container(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	occupants := storage.ContainerOccupancy(h.storage.Items(), c.ID)

	used := 0.0
	for _, it := range occupants {
		used += it.Location.Box.Volume()
	}
	resp := containerResponse{
		Success:   true,
		Container: toContainerDTO(c),
		ItemCount: len(occupants),
	}
	if v := c.Volume(); v > 0 {
		resp.Utilization = used / v
	}
	if withItems {
		resp.Items = make([]itemView, 0, len(occupants))
		for _, it := range occupants {
			resp.Items = append(resp.Items, toItemView(it))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
