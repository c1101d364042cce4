package similarity

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"filmdex/pkg/models"
)

// Query asks for work groups whose normalized title resembles
// NormalizedTitle. ReleaseYear of 0 means unknown; the year filter is
// skipped when either side lacks a year.
type Query struct {
	NormalizedTitle string
	ReleaseYear     int
	YearTolerance   int
	Threshold       float64 // [0,1], minimum similarity to report
}

// Match is one candidate group with its similarity score in [0,1].
type Match struct {
	Group      models.WorkGroup
	Similarity float64
}

// Searcher is the similarity-search collaborator the resolver depends on.
// Implementations return matches ranked best-first.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Match, error)
}

// Index is the sqlite-backed Searcher: the release-year window is applied
// in SQL, trigram scoring over the surviving rows happens here. Stands in
// for a real trigram index; the resolver only sees ranked [0,1] scores.
type Index struct {
	DB *sql.DB
}

func NewIndex(db *sql.DB) *Index {
	return &Index{DB: db}
}

func (ix *Index) Search(ctx context.Context, q Query) ([]Match, error) {
	sqlStr := `
		SELECT id, canonical_title, normalized_title, external_id, release_year, created_at
		FROM work_groups
	`
	var args []any
	if q.ReleaseYear != 0 {
		// groups without a year stay in; the guard only applies when both
		// sides know their year
		sqlStr += ` WHERE release_year IS NULL OR (release_year BETWEEN ? AND ?)`
		args = append(args, q.ReleaseYear-q.YearTolerance, q.ReleaseYear+q.YearTolerance)
	}

	rows, err := ix.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var (
			g          models.WorkGroup
			externalID sql.NullString
			year       sql.NullInt64
		)
		if err := rows.Scan(&g.ID, &g.CanonicalTitle, &g.NormalizedTitle, &externalID, &year, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("similarity scan: %w", err)
		}
		g.ExternalID = externalID.String
		if year.Valid {
			g.ReleaseYear = int(year.Int64)
		}

		sim := Similarity(q.NormalizedTitle, g.NormalizedTitle)
		if sim >= q.Threshold {
			out = append(out, Match{Group: g, Similarity: sim})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("similarity rows: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	return out, nil
}
