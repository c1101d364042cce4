package retitle

import (
	"context"
	"fmt"
	"log"

	"filmdex/internal/patterns"
	"filmdex/internal/titleclean"
	"filmdex/pkg/models"
)

// Store is the slice of the persistence collaborator batch repair needs.
type Store interface {
	AllCopies(ctx context.Context) ([]models.Copy, error)
	UpdateCleanTitle(ctx context.Context, copyID, cleanTitle string) error
}

// Change records one repaired title, before and after, for manual audit.
type Change struct {
	CopyID string `json:"copy_id"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Report summarizes a repair run. Failed counts copies whose update (or
// pattern lookup) failed; those never abort the rest of the batch.
type Report struct {
	Updated   int      `json:"updated"`
	Unchanged int      `json:"unchanged"`
	Failed    int      `json:"failed"`
	Changes   []Change `json:"changes"`
}

// Runner re-cleans every stored copy title. Exists to repair copies
// imported before pattern detection existed, or cleaned with a since-revised
// noise list.
type Runner struct {
	Store    Store
	Patterns patterns.Supplier
}

func NewRunner(store Store, supplier patterns.Supplier) *Runner {
	return &Runner{Store: store, Patterns: supplier}
}

// Run processes all copies independently; per-copy failures are counted and
// logged, not fatal. Only listing the catalog itself can fail the run.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	copies, err := r.Store.AllCopies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list copies: %w", err)
	}

	report := &Report{}
	patternCache := make(map[string]*models.ChannelTitlePattern)

	for _, c := range copies {
		pattern, ok := patternCache[c.ChannelID]
		if !ok {
			pattern, err = r.Patterns.PatternFor(ctx, c.ChannelID)
			if err != nil {
				log.Printf("[retitle] pattern for channel %s: %v", c.ChannelID, err)
				report.Failed++
				continue
			}
			patternCache[c.ChannelID] = pattern
		}

		clean := titleclean.Clean(c.RawTitle, pattern)
		if clean == c.CleanTitle {
			report.Unchanged++
			continue
		}

		if err := r.Store.UpdateCleanTitle(ctx, c.ID, clean); err != nil {
			log.Printf("[retitle] update copy %s: %v", c.ID, err)
			report.Failed++
			continue
		}

		report.Updated++
		report.Changes = append(report.Changes, Change{
			CopyID: c.ID,
			Before: c.CleanTitle,
			After:  clean,
		})
	}
	return report, nil
}
