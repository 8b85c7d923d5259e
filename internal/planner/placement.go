package planner

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/stowage/internal/geometry"
)

// Plan assigns each item a box in one of the containers, starting from
// state (which may be nil). Items already present in state are re-planned.
// Items that cannot be placed are listed in Unplaced; that is not an error.
func (p *Planner) Plan(items []Item, containers []Container, state *State) (PlacementResult, error) {
	start := time.Now()
	if err := validateItems(items); err != nil {
		return PlacementResult{}, err
	}
	if err := validateContainers(containers); err != nil {
		return PlacementResult{}, err
	}

	run := &placementRun{
		planner:    p,
		state:      state.Clone(),
		containers: sortContainers(containers),
	}
	for _, it := range items {
		run.state.RemoveItem(it.ID)
	}

	for _, it := range sortItems(items) {
		run.place(it, true)
	}
	for len(run.evicted) > 0 {
		ev := run.evicted[0]
		run.evicted = run.evicted[1:]
		run.rehome(ev)
	}

	result := PlacementResult{
		Placements:     run.placements,
		Rearrangements: run.steps,
		Unplaced:       run.unplaced(items),
		Utilization:    run.state.Utilization(),
		State:          run.state,
	}
	if result.Placements == nil {
		result.Placements = []Placement{}
	}
	if result.Rearrangements == nil {
		result.Rearrangements = []PlacementStep{}
	}
	run.assertInvariant()

	elapsed := time.Since(start)
	p.logger.Info("placement planned",
		zap.Int("items", len(items)),
		zap.Int("containers", len(containers)),
		zap.Int("placed", len(result.Placements)),
		zap.Int("unplaced", len(result.Unplaced)),
		zap.Int("rearrangement_steps", len(result.Rearrangements)),
		zap.Duration("duration", elapsed),
	)
	if p.observer != nil {
		p.observer.ObservePlacement(result, elapsed)
	}
	return result, nil
}

// compareItems orders items by priority descending, expiry ascending with
// missing expiry last, then volume descending.
func compareItems(a, b Item) int {
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	if c := compareExpiry(a.Expiry, b.Expiry); c != 0 {
		return c
	}
	return cmp.Compare(b.Volume(), a.Volume())
}

func compareExpiry(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return a.Compare(*b)
	}
}

func sortItems(items []Item) []Item {
	out := slices.Clone(items)
	slices.SortStableFunc(out, compareItems)
	return out
}

func sortContainers(containers []Container) []Container {
	out := slices.Clone(containers)
	slices.SortStableFunc(out, func(a, b Container) int {
		return cmp.Compare(b.Volume(), a.Volume())
	})
	return out
}

// eviction tracks an occupant displaced by the eviction strategy and the
// step that records its displacement.
type eviction struct {
	occupant Occupant
	step     int
}

type placementRun struct {
	planner    *Planner
	state      *State
	containers []Container
	placements []Placement
	steps      []PlacementStep
	evicted    []eviction
}

// place runs the direct attempt, rotations and, failing those,
// rearrangement. Evictees never evict in turn, which bounds the run.
func (r *placementRun) place(it Item, allowEviction bool) (Placement, bool) {
	log := r.planner.logger.With(zap.String("item_id", it.ID))

	if pl, ok := r.direct(it); ok {
		r.state.Add(pl.ContainerID, Occupant{Item: it, Box: pl.Box})
		r.placements = append(r.placements, pl)
		log.Debug("item placed directly", zap.String("container_id", pl.ContainerID), zap.Stringer("box", pl.Box))
		return pl, true
	}

	ranked := r.rearrangements(it, allowEviction)
	if len(ranked) == 0 {
		log.Debug("item could not be placed")
		return Placement{}, false
	}
	best := ranked[0]
	r.apply(it, best)
	log.Debug("item placed after rearrangement",
		zap.String("container_id", best.placement.ContainerID),
		zap.String("strategy", string(best.strategy)),
		zap.Int("steps", len(best.steps)),
	)
	return best.placement, true
}

// direct tries every orientation of the item, each against every container
// in order, and returns the first valid placement.
func (r *placementRun) direct(it Item) (Placement, bool) {
	for _, size := range geometry.Permutations(it.Size) {
		for _, c := range r.containers {
			if b, ok := r.findPosition(r.state, size, c); ok {
				return Placement{ItemID: it.ID, ContainerID: c.ID, Box: b}, true
			}
		}
	}
	return Placement{}, false
}

// findPosition tries the zone presets and then the shelf scan for a box of
// exactly the given size in container c.
func (r *placementRun) findPosition(state *State, size geometry.Vec3, c Container) (geometry.Box, bool) {
	if size.W > c.Size.W || size.D > c.Size.D || size.H > c.Size.H {
		return geometry.Box{}, false
	}
	clearance := r.planner.clearance
	for _, fp := range LayoutForZone(c.Zone).Footprints() {
		if !holds(fp, size) {
			continue
		}
		if b := geometry.NewBox(fp.Start, size); state.IsValid(c, b, clearance) {
			return b, true
		}
	}
	for _, origin := range state.CandidateOrigins(c.ID, clearance) {
		if b := geometry.NewBox(origin, size); state.IsValid(c, b, clearance) {
			return b, true
		}
	}
	return geometry.Box{}, false
}

// findAnyOrientation is findPosition over every orientation of the item.
func (r *placementRun) findAnyOrientation(state *State, it Item, c Container) (geometry.Box, bool) {
	for _, size := range geometry.Permutations(it.Size) {
		if b, ok := r.findPosition(state, size, c); ok {
			return b, true
		}
	}
	return geometry.Box{}, false
}

// apply commits a rearrangement outcome: its state replaces the run state,
// its steps are numbered from 1 and evictees are queued for re-homing.
func (r *placementRun) apply(it Item, o outcome) {
	r.state = o.state
	for i, step := range o.steps {
		step.Step = i + 1
		step.Strategy = o.strategy
		step.ForItemID = it.ID
		r.steps = append(r.steps, step)
		if step.Action == ActionMove && step.ToBox != nil {
			r.movePlacement(step.ItemID, step.ToContainer, *step.ToBox)
		}
	}
	first := len(r.steps) - len(o.steps)
	for i, occ := range o.evicted {
		r.dropPlacement(occ.Item.ID)
		r.evicted = append(r.evicted, eviction{occupant: occ, step: first + i})
	}
	r.placements = append(r.placements, o.placement)
}

// rehome gives an evictee a second chance. A successful placement becomes
// the destination of its eviction step; otherwise the step is a removal.
func (r *placementRun) rehome(ev eviction) {
	pl, ok := r.place(ev.occupant.Item, false)
	step := &r.steps[ev.step]
	if ok {
		box := pl.Box
		step.ToContainer = pl.ContainerID
		step.ToBox = &box
		return
	}
	step.Action = ActionRemove
	r.planner.logger.Warn("evicted item left without a slot", zap.String("item_id", ev.occupant.Item.ID))
}

func (r *placementRun) movePlacement(itemID, containerID string, box geometry.Box) {
	for i := range r.placements {
		if r.placements[i].ItemID == itemID {
			r.placements[i].ContainerID = containerID
			r.placements[i].Box = box
			return
		}
	}
}

func (r *placementRun) dropPlacement(itemID string) {
	r.placements = slices.DeleteFunc(r.placements, func(pl Placement) bool {
		return pl.ItemID == itemID
	})
}

// unplaced lists requested items and evictees that ended without a placement.
func (r *placementRun) unplaced(items []Item) []string {
	placed := make(map[string]struct{}, len(r.placements))
	for _, pl := range r.placements {
		placed[pl.ItemID] = struct{}{}
	}
	out := []string{}
	seen := make(map[string]struct{})
	for _, it := range items {
		if _, ok := placed[it.ID]; !ok {
			out = append(out, it.ID)
			seen[it.ID] = struct{}{}
		}
	}
	for _, step := range r.steps {
		if step.Action != ActionRemove {
			continue
		}
		if _, ok := seen[step.ItemID]; ok {
			continue
		}
		if _, ok := placed[step.ItemID]; !ok {
			out = append(out, step.ItemID)
			seen[step.ItemID] = struct{}{}
		}
	}
	return out
}

// assertInvariant panics if a placement produced by this run conflicts with
// another occupant of its container.
func (r *placementRun) assertInvariant() {
	for _, c := range r.containers {
		for _, pair := range r.state.conflicts(c.ID, r.planner.clearance) {
			if r.touched(pair[0].Item.ID) || r.touched(pair[1].Item.ID) {
				panic(fmt.Sprintf("planner: %s and %s conflict in container %s", pair[0].Item.ID, pair[1].Item.ID, c.ID))
			}
		}
	}
}

func (r *placementRun) touched(itemID string) bool {
	for _, pl := range r.placements {
		if pl.ItemID == itemID {
			return true
		}
	}
	for _, step := range r.steps {
		if step.ItemID == itemID {
			return true
		}
	}
	return false
}
