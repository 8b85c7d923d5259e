package planner

import (
	"time"

	"github.com/eugenenazirov/stowage/internal/geometry"
)

// Item is a physical item to be stored. A nil Location means the item is
// not placed in any container.
type Item struct {
	ID            string
	Name          string
	Size          geometry.Vec3
	Mass          float64
	Priority      int
	Expiry        *time.Time
	UsageLimit    *int
	UsesRemaining *int
	PreferredZone string
	Location      *Location
	Disposal      bool
}

// Volume returns the volume of the item's bounding box.
func (it Item) Volume() float64 {
	return it.Size.Volume()
}

// Placed reports whether the item currently occupies a container.
func (it Item) Placed() bool {
	return it.Location != nil
}

// Location is the container and box an item occupies.
type Location struct {
	ContainerID string       `json:"containerId"`
	Box         geometry.Box `json:"position"`
}

// Container is a fixed-size storage volume belonging to a zone.
type Container struct {
	ID   string
	Zone string
	Size geometry.Vec3
}

// Volume returns the container capacity.
func (c Container) Volume() float64 {
	return c.Size.Volume()
}

// Action names a physical operation in a step plan.
type Action string

const (
	ActionMove     Action = "move"
	ActionRemove   Action = "remove"
	ActionPlace    Action = "place"
	ActionRetrieve Action = "retrieve"
)

// Strategy identifies the rearrangement heuristic that produced a step.
type Strategy string

const (
	StrategyCompaction Strategy = "compaction"
	StrategyStacking   Strategy = "stacking"
	StrategyEviction   Strategy = "eviction"
)

// Placement assigns an item to a box inside a container.
type Placement struct {
	ItemID      string       `json:"itemId"`
	ContainerID string       `json:"containerId"`
	Box         geometry.Box `json:"position"`
}

// PlacementStep records one relocation performed to make room for an item.
// ToContainer and ToBox are empty for a remove step.
type PlacementStep struct {
	Step          int           `json:"step"`
	Action        Action        `json:"action"`
	ItemID        string        `json:"itemId"`
	FromContainer string        `json:"fromContainer,omitempty"`
	FromBox       *geometry.Box `json:"fromPosition,omitempty"`
	ToContainer   string        `json:"toContainer,omitempty"`
	ToBox         *geometry.Box `json:"toPosition,omitempty"`
	Strategy      Strategy      `json:"strategy"`
	ForItemID     string        `json:"forItemId"`
}

// PlacementResult is the outcome of a placement planning call.
type PlacementResult struct {
	Placements     []Placement        `json:"placements"`
	Rearrangements []PlacementStep    `json:"rearrangements"`
	Unplaced       []string           `json:"unplacedItems"`
	Utilization    map[string]float64 `json:"spaceUtilization"`

	// State is the spatial state after planning. Callers commit it.
	State *State `json:"-"`
}

// RetrievalStep is one operation in the plan for extracting an item.
type RetrievalStep struct {
	Step     int    `json:"step"`
	Action   Action `json:"action"`
	ItemID   string `json:"itemId"`
	ItemName string `json:"itemName"`
}

// ReturnRequest describes an undocking for which waste is selected.
type ReturnRequest struct {
	UndockingContainerID string
	UndockingDate        time.Time
	MaxWeight            float64
}

// ReturnItem is one manifest line.
type ReturnItem struct {
	ItemID string  `json:"itemId"`
	Name   string  `json:"name"`
	Mass   float64 `json:"mass"`
	Volume float64 `json:"volume"`
	Reason string  `json:"reason"`
}

// ReturnPlanRow summarises the transfer of one waste item.
type ReturnPlanRow struct {
	Step          int     `json:"step"`
	ItemID        string  `json:"itemId"`
	ItemName      string  `json:"itemName"`
	FromContainer string  `json:"fromContainer"`
	ToContainer   string  `json:"toContainer"`
	Mass          float64 `json:"mass"`
	Volume        float64 `json:"volume"`
}

// ReturnStep is one physical move in a return plan.
type ReturnStep struct {
	Step          int    `json:"step"`
	Action        Action `json:"action"`
	ItemID        string `json:"itemId"`
	ItemName      string `json:"itemName"`
	FromContainer string `json:"fromContainer"`
	ToContainer   string `json:"toContainer"`
}

// Manifest aggregates the waste accepted for an undocking.
type Manifest struct {
	UndockingContainerID string       `json:"undockingContainerId"`
	UndockingDate        time.Time    `json:"undockingDate"`
	ReturnItems          []ReturnItem `json:"returnItems"`
	TotalVolume          float64      `json:"totalVolume"`
	TotalWeight          float64      `json:"totalWeight"`
}

// ReturnResult is the outcome of return planning.
type ReturnResult struct {
	ReturnPlan     []ReturnPlanRow `json:"returnPlan"`
	RetrievalSteps []ReturnStep    `json:"retrievalSteps"`
	Manifest       Manifest        `json:"returnManifest"`
}

// WasteItem describes an item that has become waste.
type WasteItem struct {
	ItemID      string    `json:"itemId"`
	Name        string    `json:"name"`
	Reason      string    `json:"reason"`
	ContainerID string    `json:"containerId,omitempty"`
	Location    *Location `json:"-"`
}

// Engine describes the planning operations offered by the planner.
type Engine interface {
	Plan(items []Item, containers []Container, state *State) (PlacementResult, error)
	PlanRetrieval(itemID string, snapshot []Item) ([]RetrievalStep, error)
	PlanReturn(req ReturnRequest, snapshot []Item, containers []Container) (ReturnResult, error)
}

// Observer receives planning outcomes, typically for metrics.
type Observer interface {
	ObservePlacement(result PlacementResult, elapsed time.Duration)
	ObserveReturn(result ReturnResult)
}
