package resolver

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"filmdex/internal/similarity"
	"filmdex/internal/titleclean"
	"filmdex/pkg/models"
	"filmdex/pkg/utils"
)

// MatchType records how a candidate was attached to its group, for audit.
type MatchType string

const (
	MatchExternalID MatchType = "external_id"
	MatchTitleFuzzy MatchType = "title_fuzzy"
	MatchNewGroup   MatchType = "new_group"
)

// Candidate is an incoming copy to attach to a work group. RawTitle is the
// title as sourced; CleanTitle is the cleaned form the ingest pipeline
// extracted from it. ReleaseYear of 0 means unknown.
type Candidate struct {
	ExternalID  string
	RawTitle    string
	CleanTitle  string
	ReleaseYear int
	ChannelID   string
}

// Result is the resolved group plus how confident the match is.
// external_id and new_group matches are authoritative (1.0); fuzzy matches
// carry the similarity score.
type Result struct {
	Group      *models.WorkGroup
	MatchType  MatchType
	Confidence float64
}

// Store is the slice of the persistence collaborator the resolver needs.
type Store interface {
	GroupByExternalID(ctx context.Context, externalID string) (*models.WorkGroup, error)
	InsertOrFetchGroup(ctx context.Context, g models.WorkGroup) (*models.WorkGroup, error)
}

type Resolver struct {
	store  Store
	search similarity.Searcher
	cfg    utils.CatalogConfig
}

func New(store Store, search similarity.Searcher, cfg utils.CatalogConfig) *Resolver {
	return &Resolver{store: store, search: search, cfg: cfg}
}

// Resolve attaches c to an existing group or creates a new one. Resolving
// the same candidate twice with no intervening writes yields the same group
// and match type. Collaborator failures propagate unmasked.
func (r *Resolver) Resolve(ctx context.Context, c Candidate) (*Result, error) {
	// Step 1: exact external catalog id. Authoritative, short-circuits
	// everything else.
	if c.ExternalID != "" {
		g, err := r.store.GroupByExternalID(ctx, c.ExternalID)
		if err != nil {
			return nil, fmt.Errorf("external id lookup: %w", err)
		}
		if g != nil {
			return &Result{Group: g, MatchType: MatchExternalID, Confidence: 1.0}, nil
		}
	}

	normalized := titleclean.Normalize(c.CleanTitle)

	// Step 2: fuzzy title/year match.
	if normalized != "" {
		matches, err := r.search.Search(ctx, similarity.Query{
			NormalizedTitle: normalized,
			ReleaseYear:     c.ReleaseYear,
			YearTolerance:   r.cfg.YearTolerance,
			Threshold:       r.cfg.FuzzyMatchThreshold,
		})
		if err != nil {
			return nil, fmt.Errorf("similarity search: %w", err)
		}

		if best := r.bestMatch(c, matches); best != nil {
			return &Result{Group: &best.Group, MatchType: MatchTitleFuzzy, Confidence: best.Similarity}, nil
		}
	}

	// Step 3: no match, create. Raw title becomes the canonical title; the
	// normalized form is fixed here and never recomputed.
	g, err := r.store.InsertOrFetchGroup(ctx, models.WorkGroup{
		ID:              uuid.NewString(),
		CanonicalTitle:  c.RawTitle,
		NormalizedTitle: normalized,
		ExternalID:      c.ExternalID,
		ReleaseYear:     c.ReleaseYear,
	})
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return &Result{Group: g, MatchType: MatchNewGroup, Confidence: 1.0}, nil
}

// bestMatch picks the highest-similarity candidate that survives the year
// guard. The searcher already filters by year window, but it is a black box;
// re-checking here keeps remakes sharing a title apart even when a searcher
// reports textual similarity 1.0.
func (r *Resolver) bestMatch(c Candidate, matches []similarity.Match) *similarity.Match {
	var best *similarity.Match
	for i := range matches {
		m := &matches[i]
		if c.ReleaseYear != 0 && m.Group.ReleaseYear != 0 {
			diff := c.ReleaseYear - m.Group.ReleaseYear
			if diff < 0 {
				diff = -diff
			}
			if diff > r.cfg.YearTolerance {
				continue
			}
		}
		if best == nil || m.Similarity > best.Similarity {
			best = m
		}
	}
	return best
}
