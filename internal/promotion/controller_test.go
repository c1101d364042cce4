package promotion

import (
	"context"
	"sync"
	"testing"

	"filmdex/pkg/models"
)

type memStore struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	copies map[string]*models.Copy // id -> copy
}

func newMemStore() *memStore {
	return &memStore{copies: make(map[string]*models.Copy)}
}

// Transact mimics the sqlite store's write transaction: one sequence at a
// time touches the data, regardless of which controller drives it.
func (s *memStore) Transact(_ context.Context, fn func(Ops) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

func (s *memStore) add(c models.Copy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := c
	s.copies[c.ID] = &cp
}

func (s *memStore) PrimaryCopy(_ context.Context, groupID string) (*models.Copy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.copies {
		if c.GroupID == groupID && c.IsPrimary {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) CopiesByGroup(_ context.Context, groupID string) ([]models.Copy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Copy
	for _, c := range s.copies {
		if c.GroupID == groupID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *memStore) SetPrimary(_ context.Context, copyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.copies[copyID].IsPrimary = true
	return nil
}

func (s *memStore) ClearPrimary(_ context.Context, copyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.copies[copyID]; ok {
		c.IsPrimary = false
	}
	return nil
}

func (s *memStore) primaries(groupID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id, c := range s.copies {
		if c.GroupID == groupID && c.IsPrimary {
			out = append(out, id)
		}
	}
	return out
}

func TestEvaluatePrimaryEmptyGroup(t *testing.T) {
	c := NewController(newMemStore())
	d, err := c.EvaluatePrimary(context.Background(), "g1", "c1", 10)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !d.ShouldPromote || d.IncumbentID != "" {
		t.Fatalf("empty group should promote with no incumbent, got %+v", d)
	}
}

func TestEvaluatePrimaryTieFavorsIncumbent(t *testing.T) {
	store := newMemStore()
	store.add(models.Copy{ID: "inc", GroupID: "g1", QualityScore: 70, IsPrimary: true})

	c := NewController(store)
	d, err := c.EvaluatePrimary(context.Background(), "g1", "cand", 70)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if d.ShouldPromote {
		t.Fatalf("tie must keep the incumbent, got %+v", d)
	}
	if d.IncumbentID != "inc" {
		t.Fatalf("incumbent id missing: %+v", d)
	}
}

func TestEvaluatePrimaryStrictlyHigherPromotes(t *testing.T) {
	store := newMemStore()
	store.add(models.Copy{ID: "inc", GroupID: "g1", QualityScore: 70, IsPrimary: true})

	c := NewController(store)
	d, err := c.EvaluatePrimary(context.Background(), "g1", "cand", 71)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !d.ShouldPromote || d.IncumbentID != "inc" {
		t.Fatalf("71 vs 70 should promote and name the incumbent, got %+v", d)
	}
}

func TestApplyPromotesAndDemotes(t *testing.T) {
	store := newMemStore()
	store.add(models.Copy{ID: "inc", GroupID: "g1", QualityScore: 30, IsPrimary: true})
	store.add(models.Copy{ID: "cand", GroupID: "g1", QualityScore: 75})

	c := NewController(store)
	d, err := c.Apply(context.Background(), "g1", "cand", 75)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !d.ShouldPromote {
		t.Fatalf("expected promotion, got %+v", d)
	}

	got := store.primaries("g1")
	if len(got) != 1 || got[0] != "cand" {
		t.Fatalf("exactly the candidate must be primary, got %v", got)
	}
}

func TestApplyIngestionOrderIrrelevant(t *testing.T) {
	// Whatever order the strong and weak copies arrive in, the strong one
	// ends up primary.
	for _, strongFirst := range []bool{true, false} {
		store := newMemStore()
		store.add(models.Copy{ID: "strong", GroupID: "g1", QualityScore: 75})
		store.add(models.Copy{ID: "weak", GroupID: "g1", QualityScore: 30})

		c := NewController(store)
		order := []struct {
			id    string
			score int
		}{{"strong", 75}, {"weak", 30}}
		if !strongFirst {
			order[0], order[1] = order[1], order[0]
		}
		for _, step := range order {
			if _, err := c.Apply(context.Background(), "g1", step.id, step.score); err != nil {
				t.Fatalf("apply %s: %v", step.id, err)
			}
		}

		got := store.primaries("g1")
		if len(got) != 1 || got[0] != "strong" {
			t.Fatalf("strongFirst=%v: want [strong], got %v", strongFirst, got)
		}
	}
}

func TestDemoteIdempotent(t *testing.T) {
	store := newMemStore()
	store.add(models.Copy{ID: "c1", GroupID: "g1", QualityScore: 10})

	c := NewController(store)
	for i := 0; i < 3; i++ {
		if err := c.Demote(context.Background(), "c1"); err != nil {
			t.Fatalf("demote #%d: %v", i+1, err)
		}
	}
	if got := store.primaries("g1"); len(got) != 0 {
		t.Fatalf("expected no primary, got %v", got)
	}
}

func TestApplyConcurrentSingleWinner(t *testing.T) {
	store := newMemStore()
	c := NewController(store)

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		store.add(models.Copy{ID: id, GroupID: "g1", QualityScore: i})
	}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			_, _ = c.Apply(context.Background(), "g1", id, i)
		}(i)
	}
	wg.Wait()

	if got := store.primaries("g1"); len(got) != 1 {
		t.Fatalf("invariant broken: %d primaries (%v)", len(got), got)
	}
}

func TestApplyTwoWritersSingleWinner(t *testing.T) {
	// Two controllers over one store stand in for two writer processes
	// sharing the database file: their keyed mutexes are independent, so
	// only the store transaction keeps the sequences from interleaving.
	store := newMemStore()
	writers := []*Controller{NewController(store), NewController(store)}

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		store.add(models.Copy{ID: id, GroupID: "g1", QualityScore: i})
	}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			_, _ = writers[i%2].Apply(context.Background(), "g1", id, i)
		}(i)
	}
	wg.Wait()

	if got := store.primaries("g1"); len(got) != 1 {
		t.Fatalf("invariant broken across writers: %d primaries (%v)", len(got), got)
	}
}

func TestResweepPromotesTopScorer(t *testing.T) {
	store := newMemStore()
	store.add(models.Copy{ID: "old", GroupID: "g1", QualityScore: 40, IsPrimary: true})
	store.add(models.Copy{ID: "drifted", GroupID: "g1", QualityScore: 90})

	c := NewController(store)
	got, err := c.Resweep(context.Background(), "g1")
	if err != nil {
		t.Fatalf("resweep: %v", err)
	}
	if got != "drifted" {
		t.Fatalf("resweep winner: got %s, want drifted", got)
	}
	if p := store.primaries("g1"); len(p) != 1 || p[0] != "drifted" {
		t.Fatalf("primaries after resweep: %v", p)
	}
}

func TestResweepTieKeepsIncumbent(t *testing.T) {
	store := newMemStore()
	store.add(models.Copy{ID: "inc", GroupID: "g1", QualityScore: 70, IsPrimary: true})
	store.add(models.Copy{ID: "other", GroupID: "g1", QualityScore: 70})

	c := NewController(store)
	got, err := c.Resweep(context.Background(), "g1")
	if err != nil {
		t.Fatalf("resweep: %v", err)
	}
	if got != "inc" {
		t.Fatalf("tie should keep the incumbent, got %s", got)
	}
}

func TestResweepEmptyGroup(t *testing.T) {
	c := NewController(newMemStore())
	got, err := c.Resweep(context.Background(), "missing")
	if err != nil {
		t.Fatalf("resweep: %v", err)
	}
	if got != "" {
		t.Fatalf("empty group: got %q", got)
	}
}
