package planner

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
)

// TemporaryHolding is the pseudo-container blockers are parked in while a
// waste item is moved out.
const TemporaryHolding = "temporary"

// Waste reasons.
const (
	ReasonExpired   = "Expired"
	ReasonOutOfUses = "Out of Uses"
)

// PlanReturn selects disposal-flagged items for the undocking container
// under the mass budget and the container's volume, and plans the moves
// that bring each selected item into it. Items that would exceed a budget
// are skipped; later smaller items may still be accepted.
func (p *Planner) PlanReturn(req ReturnRequest, snapshot []Item, containers []Container) (ReturnResult, error) {
	if req.MaxWeight < 0 {
		return ReturnResult{}, invalid(ErrInvalidItem, req.UndockingContainerID, "max weight must be non-negative")
	}
	undocking, ok := findContainer(containers, req.UndockingContainerID)
	if !ok {
		return ReturnResult{}, fmt.Errorf("%w: %s", ErrUnknownContainer, req.UndockingContainerID)
	}

	var waste []Item
	for _, it := range snapshot {
		if it.Disposal {
			waste = append(waste, it)
		}
	}
	slices.SortStableFunc(waste, func(a, b Item) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return compareExpiry(a.Expiry, b.Expiry)
	})

	now := p.clock()
	capacity := undocking.Volume()
	result := ReturnResult{
		ReturnPlan:     []ReturnPlanRow{},
		RetrievalSteps: []ReturnStep{},
		Manifest: Manifest{
			UndockingContainerID: undocking.ID,
			UndockingDate:        req.UndockingDate,
			ReturnItems:          []ReturnItem{},
		},
	}
	seq := 0
	for _, it := range waste {
		volume := it.Volume()
		if result.Manifest.TotalWeight+it.Mass > req.MaxWeight || result.Manifest.TotalVolume+volume > capacity {
			p.logger.Debug("waste item skipped by budget", zap.String("item_id", it.ID))
			continue
		}
		result.Manifest.ReturnItems = append(result.Manifest.ReturnItems, ReturnItem{
			ItemID: it.ID,
			Name:   it.Name,
			Mass:   it.Mass,
			Volume: volume,
			Reason: WasteReason(it, now),
		})
		result.Manifest.TotalWeight += it.Mass
		result.Manifest.TotalVolume += volume

		if it.Location == nil || it.Location.ContainerID == undocking.ID {
			continue
		}
		source := it.Location.ContainerID
		blockers := BlockingItems(it, snapshot)
		move := func(b Item, from, to string) {
			seq++
			result.RetrievalSteps = append(result.RetrievalSteps, ReturnStep{
				Step:          seq,
				Action:        ActionMove,
				ItemID:        b.ID,
				ItemName:      b.Name,
				FromContainer: from,
				ToContainer:   to,
			})
		}
		for _, b := range blockers {
			move(b, source, TemporaryHolding)
		}
		move(it, source, undocking.ID)
		for i := len(blockers) - 1; i >= 0; i-- {
			move(blockers[i], TemporaryHolding, source)
		}
		seq++
		result.ReturnPlan = append(result.ReturnPlan, ReturnPlanRow{
			Step:          seq,
			ItemID:        it.ID,
			ItemName:      it.Name,
			FromContainer: source,
			ToContainer:   undocking.ID,
			Mass:          it.Mass,
			Volume:        volume,
		})
	}

	p.logger.Info("return planned",
		zap.String("undocking_container_id", undocking.ID),
		zap.Int("candidates", len(waste)),
		zap.Int("accepted", len(result.Manifest.ReturnItems)),
		zap.Float64("total_weight", result.Manifest.TotalWeight),
		zap.Float64("total_volume", result.Manifest.TotalVolume),
	)
	if p.observer != nil {
		p.observer.ObserveReturn(result)
	}
	return result, nil
}

// IdentifyWaste returns the items of the snapshot that are not yet flagged
// as waste but have expired by now or have no uses left.
func IdentifyWaste(snapshot []Item, now time.Time) []WasteItem {
	out := []WasteItem{}
	for _, it := range snapshot {
		if it.Disposal || !IsWaste(it, now) {
			continue
		}
		w := WasteItem{ItemID: it.ID, Name: it.Name, Reason: WasteReason(it, now), Location: it.Location}
		if it.Location != nil {
			w.ContainerID = it.Location.ContainerID
		}
		out = append(out, w)
	}
	return out
}

// IsWaste reports whether an item is expired or exhausted at now.
func IsWaste(it Item, now time.Time) bool {
	if it.Expiry != nil && !it.Expiry.After(now) {
		return true
	}
	return it.UsageLimit != nil && it.UsesRemaining != nil && *it.UsesRemaining <= 0
}

// WasteReason classifies a waste item.
func WasteReason(it Item, now time.Time) string {
	if it.Expiry != nil && !it.Expiry.After(now) {
		return ReasonExpired
	}
	return ReasonOutOfUses
}

func findContainer(containers []Container, id string) (Container, bool) {
	for _, c := range containers {
		if c.ID == id {
			return c, true
		}
	}
	return Container{}, false
}
