package storage

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/eugenenazirov/stowage/internal/planner"
)

var (
	// ErrItemNotFound indicates the requested item id is not stored.
	ErrItemNotFound = errors.New("item not found")
	// ErrContainerNotFound indicates the requested container id is not stored.
	ErrContainerNotFound = errors.New("container not found")
	// ErrEmptyID indicates a record without an id was offered to the store.
	ErrEmptyID = errors.New("record id must not be empty")
)

// Storage provides access to the inventory of items and containers.
type Storage interface {
	Items() []planner.Item
	Item(id string) (planner.Item, error)
	Containers() []planner.Container
	Container(id string) (planner.Container, error)
	Snapshot() ([]planner.Item, []planner.Container)

	ReplaceItems(items []planner.Item) error
	ReplaceContainers(containers []planner.Container) error
	UpsertItems(items []planner.Item) error
	UpsertContainers(containers []planner.Container) error

	ApplyPlacements(result planner.PlacementResult) error
	SetLocation(itemID string, loc *planner.Location) error
	RecordUse(itemID string) (planner.Item, error)
	UseItems(ids []string) []string
	MarkWaste(now time.Time) []planner.WasteItem
	RemoveItems(ids []string) int

	Lock()
	Unlock()
}

// MemoryStorage keeps the inventory in-memory and guards access with a RWMutex.
// Records keep their insertion order so snapshots are deterministic.
type MemoryStorage struct {
	mu         sync.RWMutex
	items      map[string]planner.Item
	itemOrder  []string
	containers map[string]planner.Container
	contOrder  []string

	// planning serialises plan-then-commit sequences.
	planning sync.Mutex
}

// NewMemoryStorage initialises an empty inventory.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		items:      make(map[string]planner.Item),
		containers: make(map[string]planner.Container),
	}
}

// Lock acquires the planning lock. Callers hold it from reading a snapshot
// until the resulting plan is committed.
func (s *MemoryStorage) Lock() {
	s.planning.Lock()
}

// Unlock releases the planning lock.
func (s *MemoryStorage) Unlock() {
	s.planning.Unlock()
}

// Items returns defensive copies of all items in insertion order.
func (s *MemoryStorage) Items() []planner.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.itemsLocked()
}

func (s *MemoryStorage) itemsLocked() []planner.Item {
	out := make([]planner.Item, 0, len(s.itemOrder))
	for _, id := range s.itemOrder {
		out = append(out, cloneItem(s.items[id]))
	}
	return out
}

// Item returns a copy of a single item.
func (s *MemoryStorage) Item(id string) (planner.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return planner.Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return cloneItem(it), nil
}

// Containers returns all containers in insertion order.
func (s *MemoryStorage) Containers() []planner.Container {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.containersLocked()
}

func (s *MemoryStorage) containersLocked() []planner.Container {
	out := make([]planner.Container, 0, len(s.contOrder))
	for _, id := range s.contOrder {
		out = append(out, s.containers[id])
	}
	return out
}

// Container returns a single container.
func (s *MemoryStorage) Container(id string) (planner.Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.containers[id]
	if !ok {
		return planner.Container{}, fmt.Errorf("%w: %s", ErrContainerNotFound, id)
	}
	return c, nil
}

// Snapshot returns a consistent copy of items and containers.
func (s *MemoryStorage) Snapshot() ([]planner.Item, []planner.Container) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.itemsLocked(), s.containersLocked()
}

// ReplaceItems discards all items and stores the given ones.
func (s *MemoryStorage) ReplaceItems(items []planner.Item) error {
	if err := checkItemIDs(items); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]planner.Item, len(items))
	s.itemOrder = s.itemOrder[:0]
	s.upsertItemsLocked(items)
	return nil
}

// ReplaceContainers discards all containers and stores the given ones.
func (s *MemoryStorage) ReplaceContainers(containers []planner.Container) error {
	if err := checkContainerIDs(containers); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.containers = make(map[string]planner.Container, len(containers))
	s.contOrder = s.contOrder[:0]
	s.upsertContainersLocked(containers)
	return nil
}

// UpsertItems inserts new items and overwrites existing ones. An update
// without a location keeps the stored location.
func (s *MemoryStorage) UpsertItems(items []planner.Item) error {
	if err := checkItemIDs(items); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertItemsLocked(items)
	return nil
}

func (s *MemoryStorage) upsertItemsLocked(items []planner.Item) {
	for _, it := range items {
		prev, exists := s.items[it.ID]
		if !exists {
			s.itemOrder = append(s.itemOrder, it.ID)
		} else if it.Location == nil {
			it.Location = prev.Location
		}
		s.items[it.ID] = cloneItem(it)
	}
}

// UpsertContainers inserts new containers and overwrites existing ones.
func (s *MemoryStorage) UpsertContainers(containers []planner.Container) error {
	if err := checkContainerIDs(containers); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertContainersLocked(containers)
	return nil
}

func (s *MemoryStorage) upsertContainersLocked(containers []planner.Container) {
	for _, c := range containers {
		if _, exists := s.containers[c.ID]; !exists {
			s.contOrder = append(s.contOrder, c.ID)
		}
		s.containers[c.ID] = c
	}
}

// ApplyPlacements commits a placement result: placements and moves set the
// item location, removals clear it. Unknown items are reported before any
// change is made.
func (s *MemoryStorage) ApplyPlacements(result planner.PlacementResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, pl := range result.Placements {
		if _, ok := s.items[pl.ItemID]; !ok {
			return fmt.Errorf("%w: %s", ErrItemNotFound, pl.ItemID)
		}
	}
	for _, step := range result.Rearrangements {
		if _, ok := s.items[step.ItemID]; !ok {
			return fmt.Errorf("%w: %s", ErrItemNotFound, step.ItemID)
		}
	}

	for _, step := range result.Rearrangements {
		switch {
		case step.Action == planner.ActionRemove:
			s.locate(step.ItemID, nil)
		case step.ToBox != nil:
			s.locate(step.ItemID, &planner.Location{ContainerID: step.ToContainer, Box: *step.ToBox})
		}
	}
	for _, pl := range result.Placements {
		s.locate(pl.ItemID, &planner.Location{ContainerID: pl.ContainerID, Box: pl.Box})
	}
	return nil
}

// SetLocation records where an item currently is. A nil location marks the
// item as not stowed.
func (s *MemoryStorage) SetLocation(itemID string, loc *planner.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[itemID]; !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	if loc != nil {
		if _, ok := s.containers[loc.ContainerID]; !ok {
			return fmt.Errorf("%w: %s", ErrContainerNotFound, loc.ContainerID)
		}
	}
	s.locate(itemID, loc)
	return nil
}

func (s *MemoryStorage) locate(itemID string, loc *planner.Location) {
	it := s.items[itemID]
	if loc == nil {
		it.Location = nil
	} else {
		l := *loc
		it.Location = &l
	}
	s.items[itemID] = it
}

// RecordUse consumes one use of an item with a usage limit. An item whose
// uses run out is flagged for disposal. The updated item is returned.
func (s *MemoryStorage) RecordUse(itemID string) (planner.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[itemID]
	if !ok {
		return planner.Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	it = consume(it)
	s.items[itemID] = it
	return cloneItem(it), nil
}

func consume(it planner.Item) planner.Item {
	if it.UsageLimit == nil || it.Disposal {
		return it
	}
	left := *it.UsageLimit
	if it.UsesRemaining != nil {
		left = *it.UsesRemaining
	}
	if left > 0 {
		left--
	}
	it.UsesRemaining = &left
	if left == 0 {
		it.Disposal = true
	}
	return it
}

// MarkWaste flags every item that is expired or exhausted at now and
// returns the newly flagged items.
func (s *MemoryStorage) MarkWaste(now time.Time) []planner.WasteItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := planner.IdentifyWaste(s.itemsLocked(), now)
	for _, w := range found {
		it := s.items[w.ItemID]
		it.Disposal = true
		s.items[w.ItemID] = it
	}
	return found
}

// UseItems consumes one use of each listed item, skipping unknown ids, and
// returns the ids that became waste.
func (s *MemoryStorage) UseItems(ids []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var depleted []string
	for _, id := range ids {
		it, ok := s.items[id]
		if !ok || it.Disposal {
			continue
		}
		it = consume(it)
		s.items[id] = it
		if it.Disposal {
			depleted = append(depleted, id)
		}
	}
	return depleted
}

// RemoveItems deletes the given items and returns how many were removed.
func (s *MemoryStorage) RemoveItems(ids []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, id := range ids {
		if _, ok := s.items[id]; ok {
			delete(s.items, id)
			removed++
		}
	}
	s.itemOrder = slices.DeleteFunc(s.itemOrder, func(id string) bool {
		_, ok := s.items[id]
		return !ok
	})
	return removed
}

func checkItemIDs(items []planner.Item) error {
	for _, it := range items {
		if it.ID == "" {
			return ErrEmptyID
		}
	}
	return nil
}

func checkContainerIDs(containers []planner.Container) error {
	for _, c := range containers {
		if c.ID == "" {
			return ErrEmptyID
		}
	}
	return nil
}

func cloneItem(it planner.Item) planner.Item {
	if it.Expiry != nil {
		exp := *it.Expiry
		it.Expiry = &exp
	}
	if it.UsageLimit != nil {
		n := *it.UsageLimit
		it.UsageLimit = &n
	}
	if it.UsesRemaining != nil {
		n := *it.UsesRemaining
		it.UsesRemaining = &n
	}
	if it.Location != nil {
		loc := *it.Location
		it.Location = &loc
	}
	return it
}

// ContainerOccupancy returns the stored items located in a container.
func ContainerOccupancy(items []planner.Item, containerID string) []planner.Item {
	var out []planner.Item
	for _, it := range items {
		if it.Location != nil && it.Location.ContainerID == containerID {
			out = append(out, it)
		}
	}
	return out
}
