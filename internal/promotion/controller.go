package promotion

import (
	"context"
	"fmt"
	"sync"

	"filmdex/pkg/models"
)

// Ops is the store surface one promotion sequence reads and writes.
// PrimaryCopy returns nil-nil when a group has no primary yet.
type Ops interface {
	PrimaryCopy(ctx context.Context, groupID string) (*models.Copy, error)
	CopiesByGroup(ctx context.Context, groupID string) ([]models.Copy, error)
	SetPrimary(ctx context.Context, copyID string) error
	ClearPrimary(ctx context.Context, copyID string) error
}

// Store adds write-transaction scoping around a promotion sequence. The
// keyed mutex below serializes writers inside one process; Transact is what
// keeps the read-compare-demote-promote sequence atomic when several writer
// binaries share the same database file.
type Store interface {
	Ops
	Transact(ctx context.Context, fn func(Ops) error) error
}

// Decision is the outcome of comparing a candidate against the group's
// incumbent primary. IncumbentID is empty when the group had none.
type Decision struct {
	ShouldPromote bool
	IncumbentID   string
}

// Controller maintains the "at most one primary copy per group" invariant.
type Controller struct {
	store Store

	mu     sync.Mutex
	groups map[string]*sync.Mutex
}

func NewController(store Store) *Controller {
	return &Controller{
		store:  store,
		groups: make(map[string]*sync.Mutex),
	}
}

func (c *Controller) groupLock(groupID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.groups[groupID]
	if !ok {
		l = &sync.Mutex{}
		c.groups[groupID] = l
	}
	return l
}

// EvaluatePrimary decides whether the candidate should become the group's
// primary. No incumbent promotes unconditionally; an incumbent is displaced
// only by a strictly higher score, so ties keep the incumbent and avoid
// needless churn. Read-only; Apply is the authoritative path.
func (c *Controller) EvaluatePrimary(ctx context.Context, groupID, candidateID string, candidateScore int) (Decision, error) {
	return evaluatePrimary(ctx, c.store, groupID, candidateID, candidateScore)
}

func evaluatePrimary(ctx context.Context, ops Ops, groupID, candidateID string, candidateScore int) (Decision, error) {
	incumbent, err := ops.PrimaryCopy(ctx, groupID)
	if err != nil {
		return Decision{}, fmt.Errorf("lookup primary for group %s: %w", groupID, err)
	}

	if incumbent == nil {
		return Decision{ShouldPromote: true}, nil
	}
	if incumbent.ID == candidateID {
		// rescoring the sitting primary never demotes it here
		return Decision{ShouldPromote: false, IncumbentID: incumbent.ID}, nil
	}
	if candidateScore > incumbent.QualityScore {
		return Decision{ShouldPromote: true, IncumbentID: incumbent.ID}, nil
	}
	return Decision{ShouldPromote: false, IncumbentID: incumbent.ID}, nil
}

// Demote clears a copy's primary flag. Demoting an already-non-primary copy
// is a no-op.
func (c *Controller) Demote(ctx context.Context, copyID string) error {
	return c.store.ClearPrimary(ctx, copyID)
}

// Apply runs the full sequence for a newly scored candidate: read the
// incumbent, compare, demote the loser, promote the winner — all inside one
// store transaction so a second writer process cannot interleave. Returns
// the decision so callers can report and broadcast it.
func (c *Controller) Apply(ctx context.Context, groupID, candidateID string, candidateScore int) (Decision, error) {
	l := c.groupLock(groupID)
	l.Lock()
	defer l.Unlock()

	var d Decision
	err := c.store.Transact(ctx, func(ops Ops) error {
		var err error
		d, err = evaluatePrimary(ctx, ops, groupID, candidateID, candidateScore)
		if err != nil {
			return err
		}
		if !d.ShouldPromote {
			return nil
		}

		if d.IncumbentID != "" {
			if err := ops.ClearPrimary(ctx, d.IncumbentID); err != nil {
				return fmt.Errorf("demote incumbent %s: %w", d.IncumbentID, err)
			}
		}
		if err := ops.SetPrimary(ctx, candidateID); err != nil {
			return fmt.Errorf("promote candidate %s: %w", candidateID, err)
		}
		return nil
	})
	if err != nil {
		return Decision{}, err
	}
	return d, nil
}
