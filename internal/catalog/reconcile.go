package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MergeResult records one reconciled duplicate: MergedID's copies now live
// under SurvivorID and the merged group row is gone.
type MergeResult struct {
	SurvivorID string `json:"survivor_id"`
	MergedID   string `json:"merged_id"`
}

type dupPair struct {
	aID, bID             string
	aExternal, bExternal string
	aYear, bYear         int
	aCreated, bCreated   time.Time
}

// ReconcileDuplicates is the fallback path for groups that were created
// twice under concurrent ingestion before their titles could match: pairs
// with identical normalized titles and compatible years are merged. Groups
// holding two different external catalog ids are distinct works and are
// never merged. Callers should re-sweep each survivor's primary afterwards.
func (r *Repo) ReconcileDuplicates(ctx context.Context, yearTolerance int) ([]MergeResult, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT a.id, a.external_id, a.release_year, a.created_at,
		       b.id, b.external_id, b.release_year, b.created_at
		FROM work_groups a
		JOIN work_groups b
		  ON a.normalized_title = b.normalized_title
		 AND a.normalized_title != ''
		 AND a.id < b.id
	`)
	if err != nil {
		return nil, fmt.Errorf("find duplicate groups: %w", err)
	}
	defer rows.Close()

	var pairs []dupPair
	for rows.Next() {
		var (
			p            dupPair
			aExt, bExt   sql.NullString
			aYear, bYear sql.NullInt64
		)
		if err := rows.Scan(&p.aID, &aExt, &aYear, &p.aCreated, &p.bID, &bExt, &bYear, &p.bCreated); err != nil {
			return nil, fmt.Errorf("scan duplicate pair: %w", err)
		}
		p.aExternal, p.bExternal = aExt.String, bExt.String
		p.aYear, p.bYear = int(aYear.Int64), int(bYear.Int64)
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}

	merged := make(map[string]bool)
	var out []MergeResult

	for _, p := range pairs {
		if merged[p.aID] || merged[p.bID] {
			continue
		}
		// same guard the resolver applies: known years too far apart means
		// different works sharing a title
		if p.aYear != 0 && p.bYear != 0 {
			diff := p.aYear - p.bYear
			if diff < 0 {
				diff = -diff
			}
			if diff > yearTolerance {
				continue
			}
		}
		// two distinct external ids are two distinct works
		if p.aExternal != "" && p.bExternal != "" && p.aExternal != p.bExternal {
			continue
		}

		// prefer the group that carries an external id, else the older one
		survivor, victim := p.aID, p.bID
		switch {
		case p.aExternal == "" && p.bExternal != "":
			survivor, victim = p.bID, p.aID
		case p.aExternal == p.bExternal && p.bCreated.Before(p.aCreated):
			survivor, victim = p.bID, p.aID
		}

		if err := r.mergeGroups(ctx, survivor, victim); err != nil {
			return nil, err
		}
		merged[victim] = true
		out = append(out, MergeResult{SurvivorID: survivor, MergedID: victim})
	}
	return out, nil
}

func (r *Repo) mergeGroups(ctx context.Context, survivorID, victimID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE copies SET group_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE group_id = ?
	`, survivorID, victimID); err != nil {
		return fmt.Errorf("move copies %s -> %s: %w", victimID, survivorID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM work_groups WHERE id = ?
	`, victimID); err != nil {
		return fmt.Errorf("delete merged group %s: %w", victimID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit merge: %w", err)
	}
	return nil
}
