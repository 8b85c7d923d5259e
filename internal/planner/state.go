package planner

import (
	"slices"
	"sort"

	"github.com/eugenenazirov/stowage/internal/geometry"
)

// Occupant is an item and the box it occupies.
type Occupant struct {
	Item Item
	Box  geometry.Box
}

// State records the boxes currently occupying each container. It is a
// plain value owned by the caller; the planner works on a clone.
type State struct {
	containers map[string][]Occupant
	tally      map[string]float64
}

// NewState returns an empty spatial state.
func NewState() *State {
	return &State{
		containers: make(map[string][]Occupant),
		tally:      make(map[string]float64),
	}
}

// StateFromItems builds a state from the placed items of a snapshot, in
// snapshot order.
func StateFromItems(items []Item) *State {
	s := NewState()
	for _, it := range items {
		if it.Location == nil {
			continue
		}
		s.Add(it.Location.ContainerID, Occupant{Item: it, Box: it.Location.Box})
	}
	return s
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	out := NewState()
	if s == nil {
		return out
	}
	for id, occs := range s.containers {
		out.containers[id] = slices.Clone(occs)
	}
	for id, v := range s.tally {
		out.tally[id] = v
	}
	return out
}

// Occupants returns a copy of the occupants of a container in insertion order.
func (s *State) Occupants(containerID string) []Occupant {
	return slices.Clone(s.containers[containerID])
}

// ContainerIDs returns the ids of containers holding at least one occupant, sorted.
func (s *State) ContainerIDs() []string {
	ids := make([]string, 0, len(s.containers))
	for id, occs := range s.containers {
		if len(occs) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Add appends an occupant to a container and updates its volume tally.
func (s *State) Add(containerID string, occ Occupant) {
	s.containers[containerID] = append(s.containers[containerID], occ)
	s.tally[containerID] += occ.Box.Volume()
}

// Remove deletes an item from a container, returning the removed occupant.
func (s *State) Remove(containerID, itemID string) (Occupant, bool) {
	occs := s.containers[containerID]
	for i, occ := range occs {
		if occ.Item.ID == itemID {
			s.containers[containerID] = slices.Delete(occs, i, i+1)
			s.tally[containerID] -= occ.Box.Volume()
			return occ, true
		}
	}
	return Occupant{}, false
}

// RemoveItem deletes an item from whichever container holds it.
func (s *State) RemoveItem(itemID string) (string, Occupant, bool) {
	for _, id := range s.ContainerIDs() {
		if occ, ok := s.Remove(id, itemID); ok {
			return id, occ, true
		}
	}
	return "", Occupant{}, false
}

// Volume returns the raw occupied volume of a container.
func (s *State) Volume(containerID string) float64 {
	return s.tally[containerID]
}

// Utilization returns the occupied volume per container id.
func (s *State) Utilization() map[string]float64 {
	out := make(map[string]float64, len(s.tally))
	for id, v := range s.tally {
		out[id] = v
	}
	return out
}

// IsValid reports whether b lies inside c and neither overlaps nor sits
// closer than clearance to any occupant of c.
func (s *State) IsValid(c Container, b geometry.Box, clearance float64) bool {
	if !geometry.Within(b, c.Size) {
		return false
	}
	for _, occ := range s.containers[c.ID] {
		if geometry.Overlaps3D(b, occ.Box) || geometry.TooClose(b, occ.Box, clearance) {
			return false
		}
	}
	return true
}

// CandidateOrigins returns the shelf-scan origins for a container: the
// container origin, then for each occupant the points just past its end on
// the width axis and on the depth axis.
func (s *State) CandidateOrigins(containerID string, clearance float64) []geometry.Vec3 {
	occs := s.containers[containerID]
	out := make([]geometry.Vec3, 0, 1+2*len(occs))
	out = append(out, geometry.Vec3{})
	for _, occ := range occs {
		out = append(out,
			geometry.Vec3{W: occ.Box.End.W + clearance, D: occ.Box.Start.D, H: occ.Box.Start.H},
			geometry.Vec3{W: occ.Box.Start.W, D: occ.Box.End.D + clearance, H: occ.Box.Start.H},
		)
	}
	return out
}

// conflicts returns every pair of occupants in a container that overlap or
// sit too close.
func (s *State) conflicts(containerID string, clearance float64) [][2]Occupant {
	var out [][2]Occupant
	occs := s.containers[containerID]
	for i := range occs {
		for j := i + 1; j < len(occs); j++ {
			if geometry.Overlaps3D(occs[i].Box, occs[j].Box) || geometry.TooClose(occs[i].Box, occs[j].Box, clearance) {
				out = append(out, [2]Occupant{occs[i], occs[j]})
			}
		}
	}
	return out
}
