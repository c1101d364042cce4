package promotion

import (
	"context"
	"fmt"
)

// Resweep re-evaluates a whole group and promotes its top-scoring copy.
// Steady-state ingestion only ever compares the newest candidate against the
// incumbent, so score drift among backups accumulates until this explicit
// maintenance operation is run. Returns the id of the primary after the
// sweep, or "" for an empty group.
func (c *Controller) Resweep(ctx context.Context, groupID string) (string, error) {
	l := c.groupLock(groupID)
	l.Lock()
	defer l.Unlock()

	var primaryID string
	err := c.store.Transact(ctx, func(ops Ops) error {
		copies, err := ops.CopiesByGroup(ctx, groupID)
		if err != nil {
			return fmt.Errorf("list copies for group %s: %w", groupID, err)
		}
		if len(copies) == 0 {
			return nil
		}

		// Highest score wins; on a tie the sitting primary keeps its seat,
		// otherwise first encountered.
		best := copies[0]
		for _, cp := range copies[1:] {
			if cp.QualityScore > best.QualityScore {
				best = cp
				continue
			}
			if cp.QualityScore == best.QualityScore && cp.IsPrimary && !best.IsPrimary {
				best = cp
			}
		}

		for _, cp := range copies {
			if cp.IsPrimary && cp.ID != best.ID {
				if err := ops.ClearPrimary(ctx, cp.ID); err != nil {
					return fmt.Errorf("demote %s: %w", cp.ID, err)
				}
			}
		}
		if !best.IsPrimary {
			if err := ops.SetPrimary(ctx, best.ID); err != nil {
				return fmt.Errorf("promote %s: %w", best.ID, err)
			}
		}
		primaryID = best.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return primaryID, nil
}
