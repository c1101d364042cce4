package similarity

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"filmdex/pkg/database"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.MigrateFrom(db, "../../docs/schema.sql"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewIndex(db)
}

func seedGroup(t *testing.T, ix *Index, id, title, normalized string, year int) {
	t.Helper()
	var y any
	if year != 0 {
		y = year
	}
	_, err := ix.DB.Exec(`
		INSERT INTO work_groups (id, canonical_title, normalized_title, release_year)
		VALUES (?, ?, ?, ?)
	`, id, title, normalized, y)
	if err != nil {
		t.Fatalf("seed group %s: %v", id, err)
	}
}

func TestIndexRanksBestMatchFirst(t *testing.T) {
	ix := newTestIndex(t)

	seedGroup(t, ix, "g1", "The Matrix", "the matrix", 1999)
	seedGroup(t, ix, "g2", "The Matrix Reloaded", "the matrix reloaded", 1999)
	seedGroup(t, ix, "g3", "Stalker", "stalker", 1979)

	got, err := ix.Search(context.Background(), Query{
		NormalizedTitle: "the matrix",
		Threshold:       0.4,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) == 0 || got[0].Group.ID != "g1" {
		t.Fatalf("best match = %+v, want g1 first", got)
	}
	if got[0].Similarity != 1.0 {
		t.Fatalf("exact title scored %f, want 1.0", got[0].Similarity)
	}
	for _, m := range got {
		if m.Group.ID == "g3" {
			t.Fatalf("stalker passed threshold 0.4 with %f", m.Similarity)
		}
	}
}

func TestIndexYearWindow(t *testing.T) {
	ix := newTestIndex(t)

	seedGroup(t, ix, "g1", "Nosferatu", "nosferatu", 1922)
	seedGroup(t, ix, "g2", "Nosferatu", "nosferatu", 2024)
	seedGroup(t, ix, "g3", "Nosferatu", "nosferatu", 0) // year unknown

	got, err := ix.Search(context.Background(), Query{
		NormalizedTitle: "nosferatu",
		ReleaseYear:     2024,
		YearTolerance:   1,
		Threshold:       0.7,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	// the remake and the unknown-year group survive; 1922 is out of window
	ids := make(map[string]bool, len(got))
	for _, m := range got {
		ids[m.Group.ID] = true
	}
	if ids["g1"] {
		t.Fatal("1922 group survived a 2024±1 window")
	}
	if !ids["g2"] || !ids["g3"] {
		t.Fatalf("got %v, want g2 and g3", ids)
	}
}

func TestIndexSkipsYearFilterWhenQueryYearUnknown(t *testing.T) {
	ix := newTestIndex(t)

	seedGroup(t, ix, "g1", "Nosferatu", "nosferatu", 1922)

	got, err := ix.Search(context.Background(), Query{
		NormalizedTitle: "nosferatu",
		ReleaseYear:     0,
		YearTolerance:   1,
		Threshold:       0.7,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Group.ID != "g1" {
		t.Fatalf("got %+v, want g1", got)
	}
}
