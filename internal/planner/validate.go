package planner

func validateItems(items []Item) error {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.ID == "" {
			return invalid(ErrInvalidItem, it.Name, "item id is empty")
		}
		if _, dup := seen[it.ID]; dup {
			return invalid(ErrDuplicateID, it.ID, "item listed twice")
		}
		seen[it.ID] = struct{}{}
		if err := validateItem(it); err != nil {
			return err
		}
	}
	return nil
}

func validateItem(it Item) error {
	if !it.Size.Positive() {
		return invalid(ErrInvalidGeometry, it.ID, "dimensions must be positive, got %s", it.Size)
	}
	if it.Priority < 0 || it.Priority > 100 {
		return invalid(ErrInvalidItem, it.ID, "priority %d outside [0,100]", it.Priority)
	}
	if it.Mass < 0 {
		return invalid(ErrInvalidItem, it.ID, "mass must be non-negative")
	}
	if it.UsesRemaining != nil && *it.UsesRemaining < 0 {
		return invalid(ErrInvalidItem, it.ID, "uses remaining must be non-negative")
	}
	if it.Location != nil {
		if err := it.Location.Box.Validate(); err != nil {
			return invalid(err, it.ID, "bad position")
		}
	}
	return nil
}

func validateContainers(containers []Container) error {
	seen := make(map[string]struct{}, len(containers))
	for _, c := range containers {
		if c.ID == "" {
			return invalid(ErrInvalidItem, c.Zone, "container id is empty")
		}
		if _, dup := seen[c.ID]; dup {
			return invalid(ErrDuplicateID, c.ID, "container listed twice")
		}
		seen[c.ID] = struct{}{}
		if !c.Size.Positive() {
			return invalid(ErrInvalidGeometry, c.ID, "dimensions must be positive, got %s", c.Size)
		}
	}
	return nil
}
