package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"filmdex/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const groupCols = `id, canonical_title, normalized_title, external_id, release_year, created_at`

const copyCols = `id, group_id, raw_title, clean_title, channel_id, video_id,
	view_count, like_count, published_at, embeddable, quality_score, is_primary,
	created_at, updated_at`

// ---- work groups ----

func (r *Repo) GroupByID(ctx context.Context, id string) (*models.WorkGroup, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+groupCols+`
		FROM work_groups
		WHERE id = ?
	`, id)
	return scanGroup(row)
}

func (r *Repo) GroupByExternalID(ctx context.Context, externalID string) (*models.WorkGroup, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+groupCols+`
		FROM work_groups
		WHERE external_id = ?
	`, externalID)
	return scanGroup(row)
}

// InsertOrFetchGroup creates g, or returns the existing group when another
// ingestion already created one for the same external id. The uniqueness
// constraint on external_id makes the race safe; no partial group is left
// behind on failure.
func (r *Repo) InsertOrFetchGroup(ctx context.Context, g models.WorkGroup) (*models.WorkGroup, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO work_groups (id, canonical_title, normalized_title, external_id, release_year)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO NOTHING
	`, g.ID, g.CanonicalTitle, g.NormalizedTitle, nullString(g.ExternalID), nullInt(g.ReleaseYear))
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("insert group rows: %w", err)
	}
	if n == 0 {
		// lost the race: someone inserted this external id first
		existing, err := r.GroupByExternalID(ctx, g.ExternalID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("insert group: conflict but no row for external id %s", g.ExternalID)
		}
		return existing, nil
	}
	return r.GroupByID(ctx, g.ID)
}

// SetGroupExternalID records the external catalog id the first time a
// confident match discovers it. A group that already carries one is left
// untouched.
func (r *Repo) SetGroupExternalID(ctx context.Context, groupID, externalID string) error {
	if externalID == "" {
		return nil
	}
	_, err := r.DB.ExecContext(ctx, `
		UPDATE work_groups
		SET external_id = ?
		WHERE id = ? AND external_id IS NULL
	`, externalID, groupID)
	if err != nil {
		return fmt.Errorf("set group external id: %w", err)
	}
	return nil
}

type ListQuery struct {
	Q      string // keyword search in canonical/normalized title
	Year   int
	Limit  int
	Offset int
}

func (r *Repo) CountGroups(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildGroupListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count groups: %w", err)
	}
	return total, nil
}

func (r *Repo) ListGroups(ctx context.Context, q ListQuery) ([]models.WorkGroup, error) {
	sqlStr, args := buildGroupListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	out := make([]models.WorkGroup, 0, q.Limit)
	for rows.Next() {
		g, err := scanGroupRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func buildGroupListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `SELECT ` + groupCols + ` FROM work_groups`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM work_groups`
	}

	var where []string
	var args []any

	if strings.TrimSpace(q.Q) != "" {
		where = append(where, "(LOWER(canonical_title) LIKE ? OR normalized_title LIKE ?)")
		kw := "%" + strings.ToLower(strings.TrimSpace(q.Q)) + "%"
		args = append(args, kw, kw)
	}
	if q.Year != 0 {
		where = append(where, "release_year = ?")
		args = append(args, q.Year)
	}

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		sqlStr += " ORDER BY canonical_title ASC LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}

	return sqlStr, args
}

// ---- copies ----

func (r *Repo) CreateCopy(ctx context.Context, c models.Copy) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO copies (id, group_id, raw_title, clean_title, channel_id, video_id,
			view_count, like_count, published_at, embeddable, quality_score, is_primary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
	`, c.ID, c.GroupID, c.RawTitle, c.CleanTitle, c.ChannelID, c.VideoID,
		c.ViewCount, c.LikeCount, nullTime(c.PublishedAt), c.Embeddable, c.QualityScore)
	if err != nil {
		return fmt.Errorf("create copy: %w", err)
	}
	return nil
}

func (r *Repo) CopyByID(ctx context.Context, id string) (*models.Copy, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+copyCols+`
		FROM copies
		WHERE id = ?
	`, id)
	return scanCopy(row)
}

func (r *Repo) CopyByVideoID(ctx context.Context, videoID string) (*models.Copy, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+copyCols+`
		FROM copies
		WHERE video_id = ?
	`, videoID)
	return scanCopy(row)
}

func (r *Repo) CopiesByGroup(ctx context.Context, groupID string) ([]models.Copy, error) {
	return copiesByGroup(ctx, r.DB, groupID)
}

func copiesByGroup(ctx context.Context, q querier, groupID string) ([]models.Copy, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+copyCols+`
		FROM copies
		WHERE group_id = ?
		ORDER BY quality_score DESC, created_at ASC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("copies by group: %w", err)
	}
	defer rows.Close()

	var out []models.Copy
	for rows.Next() {
		c, err := scanCopyRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// PrimaryCopy returns the group's current primary, or nil when the group
// has none yet. Absence is an expected state, not an error.
func (r *Repo) PrimaryCopy(ctx context.Context, groupID string) (*models.Copy, error) {
	return primaryCopy(ctx, r.DB, groupID)
}

func primaryCopy(ctx context.Context, q querier, groupID string) (*models.Copy, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+copyCols+`
		FROM copies
		WHERE group_id = ? AND is_primary = 1
	`, groupID)
	return scanCopy(row)
}

func (r *Repo) SetPrimary(ctx context.Context, copyID string) error {
	return setPrimary(ctx, r.DB, copyID)
}

func setPrimary(ctx context.Context, q querier, copyID string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE copies
		SET is_primary = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, copyID)
	if err != nil {
		return fmt.Errorf("set primary: %w", err)
	}
	return nil
}

// ClearPrimary demotes a copy. Clearing an already-non-primary copy is a
// no-op, which is what makes demotion idempotent for callers.
func (r *Repo) ClearPrimary(ctx context.Context, copyID string) error {
	return clearPrimary(ctx, r.DB, copyID)
}

func clearPrimary(ctx context.Context, q querier, copyID string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE copies
		SET is_primary = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, copyID)
	if err != nil {
		return fmt.Errorf("clear primary: %w", err)
	}
	return nil
}

// MoveCopy re-homes a copy to another group, dropping any primary flag it
// held on the way out. Primary status in the destination group is earned
// through promotion, never inherited.
func (r *Repo) MoveCopy(ctx context.Context, copyID, groupID string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE copies
		SET group_id = ?, is_primary = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, groupID, copyID)
	if err != nil {
		return fmt.Errorf("move copy: %w", err)
	}
	return nil
}

// RefreshEngagement updates a copy's engagement signals and the quality
// score recomputed from them.
func (r *Repo) RefreshEngagement(ctx context.Context, c models.Copy) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE copies
		SET view_count = ?, like_count = ?, published_at = ?, embeddable = ?,
			quality_score = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, c.ViewCount, c.LikeCount, nullTime(c.PublishedAt), c.Embeddable, c.QualityScore, c.ID)
	if err != nil {
		return fmt.Errorf("refresh engagement: %w", err)
	}
	return nil
}

func (r *Repo) UpdateCleanTitle(ctx context.Context, copyID, cleanTitle string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE copies
		SET clean_title = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, cleanTitle, copyID)
	if err != nil {
		return fmt.Errorf("update clean title: %w", err)
	}
	return nil
}

// AllCopies streams every copy in the catalog, oldest first. Used by batch
// maintenance (title repair).
func (r *Repo) AllCopies(ctx context.Context) ([]models.Copy, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+copyCols+`
		FROM copies
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("all copies: %w", err)
	}
	defer rows.Close()

	var out []models.Copy
	for rows.Next() {
		c, err := scanCopyRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// ---- scan helpers ----

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroupFrom(sc rowScanner) (*models.WorkGroup, error) {
	var (
		g          models.WorkGroup
		externalID sql.NullString
		year       sql.NullInt64
	)
	if err := sc.Scan(&g.ID, &g.CanonicalTitle, &g.NormalizedTitle, &externalID, &year, &g.CreatedAt); err != nil {
		return nil, err
	}
	g.ExternalID = externalID.String
	if year.Valid {
		g.ReleaseYear = int(year.Int64)
	}
	return &g, nil
}

func scanGroup(row *sql.Row) (*models.WorkGroup, error) {
	g, err := scanGroupFrom(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan group: %w", err)
	}
	return g, nil
}

func scanGroupRows(rows *sql.Rows) (*models.WorkGroup, error) {
	g, err := scanGroupFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("scan group row: %w", err)
	}
	return g, nil
}

func scanCopyFrom(sc rowScanner) (*models.Copy, error) {
	var (
		c         models.Copy
		published sql.NullTime
	)
	if err := sc.Scan(
		&c.ID, &c.GroupID, &c.RawTitle, &c.CleanTitle, &c.ChannelID, &c.VideoID,
		&c.ViewCount, &c.LikeCount, &published, &c.Embeddable, &c.QualityScore, &c.IsPrimary,
		&c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if published.Valid {
		t := published.Time
		c.PublishedAt = &t
	}
	return &c, nil
}

func scanCopy(row *sql.Row) (*models.Copy, error) {
	c, err := scanCopyFrom(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan copy: %w", err)
	}
	return c, nil
}

func scanCopyRows(rows *sql.Rows) (*models.Copy, error) {
	c, err := scanCopyFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("scan copy row: %w", err)
	}
	return c, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

