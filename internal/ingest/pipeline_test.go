package ingest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"filmdex/internal/catalog"
	"filmdex/internal/patterns"
	"filmdex/internal/promotion"
	"filmdex/internal/resolver"
	"filmdex/internal/scoring"
	"filmdex/internal/similarity"
	"filmdex/pkg/database"
	"filmdex/pkg/utils"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestPipeline(t *testing.T) (*Pipeline, *catalog.Repo) {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.MigrateFrom(db, "../../docs/schema.sql"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := catalog.NewRepo(db)
	cfg := utils.CatalogConfig{FuzzyMatchThreshold: 0.7, YearTolerance: 1}
	p := &Pipeline{
		Store:    repo,
		Resolver: resolver.New(repo, similarity.NewIndex(db), cfg),
		Scorer:   &scoring.Scorer{Rep: scoring.StubReputation{Value: 0.5}, Now: func() time.Time { return testNow }},
		Promoter: promotion.NewController(repo),
		Patterns: patterns.NewRepo(db),
	}
	return p, repo
}

func timePtr(t time.Time) *time.Time { return &t }

// Two uploads of the same film from different channels. The fresh, popular,
// embeddable copy must end up primary no matter which arrives first.
func twoCopies() (strong, weak Video) {
	strong = Video{
		VideoID:     "v-strong",
		ChannelID:   "ch-films",
		RawTitle:    "The Matrix 1999 [HD]",
		ReleaseYear: 1999,
		ViewCount:   1_000_000,
		PublishedAt: timePtr(testNow),
		Embeddable:  true,
	}
	weak = Video{
		VideoID:     "v-weak",
		ChannelID:   "ch-misc",
		RawTitle:    "The Matrix 1999 full movie",
		ReleaseYear: 1999,
		ViewCount:   1_000,
		PublishedAt: timePtr(testNow.AddDate(-3, 0, 0)),
	}
	return strong, weak
}

func TestPipelineGroupsCopiesAndPicksPrimary(t *testing.T) {
	p, repo := newTestPipeline(t)
	ctx := context.Background()
	strong, weak := twoCopies()

	first, err := p.IngestOne(ctx, strong)
	if err != nil {
		t.Fatalf("ingest strong: %v", err)
	}
	if first.MatchType != resolver.MatchNewGroup {
		t.Fatalf("first copy matched %s, want new_group", first.MatchType)
	}
	if !first.Promoted {
		t.Fatal("sole copy not promoted")
	}

	second, err := p.IngestOne(ctx, weak)
	if err != nil {
		t.Fatalf("ingest weak: %v", err)
	}
	// both titles clean to "The Matrix 1999", so the second attaches by fuzzy
	// title instead of opening a duplicate group
	if second.MatchType != resolver.MatchTitleFuzzy {
		t.Fatalf("second copy matched %s, want title_fuzzy", second.MatchType)
	}
	if second.Group.ID != first.Group.ID {
		t.Fatalf("copies landed in different groups: %s vs %s", first.Group.ID, second.Group.ID)
	}
	if second.Promoted {
		t.Fatal("weaker copy displaced the primary")
	}

	primary, err := repo.PrimaryCopy(ctx, first.Group.ID)
	if err != nil {
		t.Fatalf("primary copy: %v", err)
	}
	if primary == nil || primary.VideoID != strong.VideoID {
		t.Fatalf("primary = %+v, want video %s", primary, strong.VideoID)
	}
}

func TestPipelinePrimaryIndependentOfIngestionOrder(t *testing.T) {
	p, repo := newTestPipeline(t)
	ctx := context.Background()
	strong, weak := twoCopies()

	// weak first: it holds primary until the strong copy arrives
	weakOut, err := p.IngestOne(ctx, weak)
	if err != nil {
		t.Fatalf("ingest weak: %v", err)
	}
	if !weakOut.Promoted {
		t.Fatal("sole copy not promoted")
	}

	strongOut, err := p.IngestOne(ctx, strong)
	if err != nil {
		t.Fatalf("ingest strong: %v", err)
	}
	if !strongOut.Promoted {
		t.Fatal("stronger copy did not displace the incumbent")
	}

	primary, err := repo.PrimaryCopy(ctx, strongOut.Group.ID)
	if err != nil {
		t.Fatalf("primary copy: %v", err)
	}
	if primary == nil || primary.VideoID != strong.VideoID {
		t.Fatalf("primary = %+v, want video %s", primary, strong.VideoID)
	}

	copies, err := repo.CopiesByGroup(ctx, strongOut.Group.ID)
	if err != nil {
		t.Fatalf("copies by group: %v", err)
	}
	if len(copies) != 2 {
		t.Fatalf("group holds %d copies, want 2", len(copies))
	}
}

func TestPipelineReingestRefreshesInsteadOfDuplicating(t *testing.T) {
	p, repo := newTestPipeline(t)
	ctx := context.Background()
	strong, _ := twoCopies()

	first, err := p.IngestOne(ctx, strong)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if !first.Created {
		t.Fatal("first ingest did not create a copy")
	}

	strong.ViewCount = 5_000_000
	second, err := p.IngestOne(ctx, strong)
	if err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	if second.Created {
		t.Fatal("re-ingest created a duplicate copy")
	}
	if second.Copy.ID != first.Copy.ID {
		t.Fatalf("re-ingest produced copy %s, want %s", second.Copy.ID, first.Copy.ID)
	}
	if second.Copy.QualityScore <= first.Copy.QualityScore {
		t.Fatalf("score did not grow with views: %d -> %d", first.Copy.QualityScore, second.Copy.QualityScore)
	}

	copies, err := repo.CopiesByGroup(ctx, first.Group.ID)
	if err != nil {
		t.Fatalf("copies by group: %v", err)
	}
	if len(copies) != 1 {
		t.Fatalf("group holds %d copies, want 1", len(copies))
	}
	if copies[0].ViewCount != 5_000_000 {
		t.Fatalf("view count not refreshed: %d", copies[0].ViewCount)
	}
}

func TestPipelineAttachesExternalIDToGroup(t *testing.T) {
	p, repo := newTestPipeline(t)
	ctx := context.Background()
	strong, weak := twoCopies()

	// the group opens without a catalog id
	first, err := p.IngestOne(ctx, strong)
	if err != nil {
		t.Fatalf("ingest strong: %v", err)
	}
	if first.Group.ExternalID != "" {
		t.Fatalf("unexpected external id %s", first.Group.ExternalID)
	}

	// a later copy knows the catalog id and donates it
	weak.ExternalID = "tt0133093"
	if _, err := p.IngestOne(ctx, weak); err != nil {
		t.Fatalf("ingest weak: %v", err)
	}

	g, err := repo.GroupByID(ctx, first.Group.ID)
	if err != nil {
		t.Fatalf("group by id: %v", err)
	}
	if g.ExternalID != "tt0133093" {
		t.Fatalf("group external id = %q, want tt0133093", g.ExternalID)
	}

	// a third ingest with the id short-circuits on it
	third, err := p.IngestOne(ctx, Video{
		VideoID:    "v-third",
		ChannelID:  "ch-other",
		RawTitle:   "Matrix, The",
		ExternalID: "tt0133093",
	})
	if err != nil {
		t.Fatalf("ingest third: %v", err)
	}
	if third.MatchType != resolver.MatchExternalID {
		t.Fatalf("third copy matched %s, want external_id", third.MatchType)
	}
	if third.Group.ID != first.Group.ID {
		t.Fatalf("external id resolved to group %s, want %s", third.Group.ID, first.Group.ID)
	}
}

func TestPipelineReingestIntoAnotherGroupKeepsOnePrimaryEach(t *testing.T) {
	p, repo := newTestPipeline(t)
	ctx := context.Background()
	strong, weak := twoCopies()

	// group A: a primary and a backup
	strongOut, err := p.IngestOne(ctx, strong)
	if err != nil {
		t.Fatalf("ingest strong: %v", err)
	}
	if _, err := p.IngestOne(ctx, weak); err != nil {
		t.Fatalf("ingest weak: %v", err)
	}

	// group B: a different work, known by external catalog id
	other, err := p.IngestOne(ctx, Video{
		VideoID:     "v-other",
		ChannelID:   "ch-else",
		RawTitle:    "Stalker",
		ExternalID:  "tt0079944",
		ReleaseYear: 1979,
		ViewCount:   10,
	})
	if err != nil {
		t.Fatalf("ingest other: %v", err)
	}

	// the backup re-ingests carrying group B's external id: its row must
	// follow it into group B instead of being promoted in absentia
	weak.ExternalID = "tt0079944"
	moved, err := p.IngestOne(ctx, weak)
	if err != nil {
		t.Fatalf("re-ingest weak: %v", err)
	}
	if moved.Group.ID != other.Group.ID {
		t.Fatalf("re-ingest resolved to group %s, want %s", moved.Group.ID, other.Group.ID)
	}

	row, err := repo.CopyByVideoID(ctx, weak.VideoID)
	if err != nil {
		t.Fatalf("copy by video id: %v", err)
	}
	if row.GroupID != other.Group.ID {
		t.Fatalf("copy row still lives in group %s", row.GroupID)
	}

	// at most one primary per group, on both sides of the move
	for _, groupID := range []string{strongOut.Group.ID, other.Group.ID} {
		copies, err := repo.CopiesByGroup(ctx, groupID)
		if err != nil {
			t.Fatalf("copies by group %s: %v", groupID, err)
		}
		primaries := 0
		for _, cp := range copies {
			if cp.IsPrimary {
				primaries++
			}
		}
		if primaries != 1 {
			t.Fatalf("group %s has %d primary copies, want 1", groupID, primaries)
		}
	}

	// the old group's primary is untouched by the departure
	primary, err := repo.PrimaryCopy(ctx, strongOut.Group.ID)
	if err != nil {
		t.Fatalf("primary copy: %v", err)
	}
	if primary == nil || primary.VideoID != strong.VideoID {
		t.Fatalf("old group primary = %+v, want video %s", primary, strong.VideoID)
	}
}

func TestPipelineRejectsMissingIdentifiers(t *testing.T) {
	p, _ := newTestPipeline(t)

	if _, err := p.IngestOne(context.Background(), Video{RawTitle: "No IDs"}); err == nil {
		t.Fatal("expected error for video without ids")
	}
}
