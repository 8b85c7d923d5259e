package planner

import (
	"cmp"
	"math"
	"slices"

	"github.com/eugenenazirov/stowage/internal/geometry"
)

// footprintTolerance is how far a stacking base may differ from the item's
// width and depth.
const footprintTolerance = 0.1

// outcome is the result of one successful rearrangement strategy applied to
// one container. state is a full copy of the run state with the item placed.
type outcome struct {
	strategy  Strategy
	placement Placement
	steps     []PlacementStep
	evicted   []Occupant
	state     *State
	score     float64
}

type strategyFunc func(r *placementRun, it Item, c Container) (outcome, bool)

// strategies in declaration order; the order breaks score ties.
var strategies = []struct {
	name Strategy
	run  strategyFunc
}{
	{StrategyCompaction, compact},
	{StrategyStacking, stack},
	{StrategyEviction, evict},
}

// rearrangements evaluates every strategy against every container and
// returns the successful outcomes ranked by resulting occupied volume. The
// sort is stable, so ties keep container order and then strategy order.
func (r *placementRun) rearrangements(it Item, allowEviction bool) []outcome {
	var candidates []outcome
	for _, c := range r.containers {
		for _, s := range strategies {
			if s.name == StrategyEviction && !allowEviction {
				continue
			}
			o, ok := s.run(r, it, c)
			if !ok {
				continue
			}
			o.strategy = s.name
			o.score = o.state.Volume(c.ID)
			candidates = append(candidates, o)
		}
	}
	return rankOutcomes(candidates)
}

func rankOutcomes(candidates []outcome) []outcome {
	slices.SortStableFunc(candidates, func(a, b outcome) int {
		return cmp.Compare(a.score, b.score)
	})
	return candidates
}

// compact shifts each occupant of c toward the origin where a closer valid
// slot exists, then retries the item in the freed space.
func compact(r *placementRun, it Item, c Container) (outcome, bool) {
	work := r.state.Clone()
	clearance := r.planner.clearance
	var steps []PlacementStep

	for _, occ := range work.Occupants(c.ID) {
		work.Remove(c.ID, occ.Item.ID)
		target := occ.Box
		if b, ok := compactPosition(work, c, occ.Box, clearance); ok {
			from, to := occ.Box, b
			steps = append(steps, PlacementStep{
				Action:        ActionMove,
				ItemID:        occ.Item.ID,
				FromContainer: c.ID,
				FromBox:       &from,
				ToContainer:   c.ID,
				ToBox:         &to,
			})
			target = b
		}
		work.Add(c.ID, Occupant{Item: occ.Item, Box: target})
	}
	if len(steps) == 0 {
		return outcome{}, false
	}

	b, ok := r.findAnyOrientation(work, it, c)
	if !ok {
		return outcome{}, false
	}
	work.Add(c.ID, Occupant{Item: it, Box: b})
	return outcome{
		placement: Placement{ItemID: it.ID, ContainerID: c.ID, Box: b},
		steps:     steps,
		state:     work,
	}, true
}

// compactPosition finds the valid shelf origin that is componentwise no
// further from the container origin than current and closest to it.
func compactPosition(state *State, c Container, current geometry.Box, clearance float64) (geometry.Box, bool) {
	size := current.Size()
	best := geometry.Box{}
	bestDist := math.Inf(1)
	curDist := l1(current.Start)
	for _, origin := range state.CandidateOrigins(c.ID, clearance) {
		if origin.W > current.Start.W || origin.D > current.Start.D || origin.H > current.Start.H {
			continue
		}
		d := l1(origin)
		if d >= curDist || d >= bestDist {
			continue
		}
		if b := geometry.NewBox(origin, size); state.IsValid(c, b, clearance) {
			best, bestDist = b, d
		}
	}
	return best, !math.IsInf(bestDist, 1)
}

func l1(v geometry.Vec3) float64 {
	return v.W + v.D + v.H
}

// stack places the item on top of an occupant with a matching footprint,
// one clearance above its top face.
func stack(r *placementRun, it Item, c Container) (outcome, bool) {
	clearance := r.planner.clearance
	occs := r.state.Occupants(c.ID)
	for _, size := range geometry.Permutations(it.Size) {
		for _, base := range occs {
			bs := base.Box.Size()
			if math.Abs(bs.W-size.W) >= footprintTolerance || math.Abs(bs.D-size.D) >= footprintTolerance {
				continue
			}
			origin := geometry.Vec3{W: base.Box.Start.W, D: base.Box.Start.D, H: base.Box.End.H + clearance}
			if origin.H+size.H > c.Size.H {
				continue
			}
			b := geometry.NewBox(origin, size)
			if !r.state.IsValid(c, b, clearance) {
				continue
			}
			work := r.state.Clone()
			work.Add(c.ID, Occupant{Item: it, Box: b})
			return outcome{
				placement: Placement{ItemID: it.ID, ContainerID: c.ID, Box: b},
				state:     work,
			}, true
		}
	}
	return outcome{}, false
}

// evict removes every occupant of c with strictly lower priority than the
// item and retries the item. Evictees get a move step without destination.
func evict(r *placementRun, it Item, c Container) (outcome, bool) {
	work := r.state.Clone()
	var low []Occupant
	for _, occ := range work.Occupants(c.ID) {
		if occ.Item.Priority < it.Priority {
			low = append(low, occ)
		}
	}
	if len(low) == 0 {
		return outcome{}, false
	}
	for _, occ := range low {
		work.Remove(c.ID, occ.Item.ID)
	}

	b, ok := r.findAnyOrientation(work, it, c)
	if !ok {
		return outcome{}, false
	}
	work.Add(c.ID, Occupant{Item: it, Box: b})

	steps := make([]PlacementStep, 0, len(low))
	for _, occ := range low {
		from := occ.Box
		steps = append(steps, PlacementStep{
			Action:        ActionMove,
			ItemID:        occ.Item.ID,
			FromContainer: c.ID,
			FromBox:       &from,
		})
	}
	return outcome{
		placement: Placement{ItemID: it.ID, ContainerID: c.ID, Box: b},
		steps:     steps,
		evicted:   low,
		state:     work,
	}, true
}
