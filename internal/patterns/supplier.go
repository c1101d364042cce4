package patterns

import (
	"context"
	"database/sql"
	"fmt"

	"filmdex/pkg/models"
)

// Supplier hands out the title pattern known for a channel, or nil-nil when
// none has been learned yet. Patterns are advisory; the title cleaner may
// override them.
type Supplier interface {
	PatternFor(ctx context.Context, channelID string) (*models.ChannelTitlePattern, error)
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) PatternFor(ctx context.Context, channelID string) (*models.ChannelTitlePattern, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT channel_id, has_separator, title_position, confidence, sample_count, updated_at
		FROM channel_patterns
		WHERE channel_id = ?
	`, channelID)

	var p models.ChannelTitlePattern
	var position string
	if err := row.Scan(&p.ChannelID, &p.HasSeparator, &position, &p.Confidence, &p.SampleCount, &p.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("pattern for %s: %w", channelID, err)
	}
	p.Position = models.TitlePosition(position)
	return &p, nil
}

func (r *Repo) Upsert(ctx context.Context, p models.ChannelTitlePattern) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO channel_patterns (channel_id, has_separator, title_position, confidence, sample_count, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(channel_id) DO UPDATE SET
			has_separator = excluded.has_separator,
			title_position = excluded.title_position,
			confidence = excluded.confidence,
			sample_count = excluded.sample_count,
			updated_at = CURRENT_TIMESTAMP
	`, p.ChannelID, p.HasSeparator, string(p.Position), p.Confidence, p.SampleCount)
	if err != nil {
		return fmt.Errorf("upsert pattern for %s: %w", p.ChannelID, err)
	}
	return nil
}
