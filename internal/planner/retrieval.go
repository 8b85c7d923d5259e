package planner

import (
	"cmp"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/eugenenazirov/stowage/internal/geometry"
)

// PlanRetrieval returns the steps needed to extract an item through its
// container's opening at depth zero: every blocker is removed front to
// back, the item is retrieved, and the blockers are placed back in reverse.
// An unplaced item yields an empty plan.
func (p *Planner) PlanRetrieval(itemID string, snapshot []Item) ([]RetrievalStep, error) {
	target, ok := findItem(snapshot, itemID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}
	if target.Location == nil {
		return []RetrievalStep{}, nil
	}
	if err := target.Location.Box.Validate(); err != nil {
		return nil, invalid(err, target.ID, "bad position")
	}

	blockers := BlockingItems(target, snapshot)
	steps := make([]RetrievalStep, 0, 2*len(blockers)+1)
	seq := 0
	next := func(a Action, it Item) {
		seq++
		steps = append(steps, RetrievalStep{Step: seq, Action: a, ItemID: it.ID, ItemName: it.Name})
	}
	for _, b := range blockers {
		next(ActionRemove, b)
	}
	next(ActionRetrieve, target)
	for i := len(blockers) - 1; i >= 0; i-- {
		next(ActionPlace, blockers[i])
	}

	p.logger.Debug("retrieval planned",
		zap.String("item_id", itemID),
		zap.String("container_id", target.Location.ContainerID),
		zap.Int("blockers", len(blockers)),
	)
	return steps, nil
}

// BlockingItems returns the non-waste items of the target's container that
// sit between the opening and the target: their depth start is strictly
// smaller and their width/height projection overlaps the target's. The
// result is ordered nearest the opening first.
func BlockingItems(target Item, snapshot []Item) []Item {
	if target.Location == nil {
		return nil
	}
	tb := target.Location.Box
	var out []Item
	for _, it := range snapshot {
		if it.ID == target.ID || it.Disposal || it.Location == nil {
			continue
		}
		if it.Location.ContainerID != target.Location.ContainerID {
			continue
		}
		b := it.Location.Box
		if b.Start.D < tb.Start.D && geometry.Overlaps2D(b, tb, geometry.Width, geometry.Height) {
			out = append(out, it)
		}
	}
	slices.SortStableFunc(out, func(a, b Item) int {
		return cmp.Compare(a.Location.Box.Start.D, b.Location.Box.Start.D)
	})
	return out
}

func findItem(snapshot []Item, id string) (Item, bool) {
	for _, it := range snapshot {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
