package models

import "time"

// WorkGroup represents one creative work, independent of how many uploaded
// copies of it exist. NormalizedTitle is derived from CanonicalTitle once at
// creation time and never recomputed afterwards.
type WorkGroup struct {
	ID              string    `json:"id"`
	CanonicalTitle  string    `json:"canonical_title"`
	NormalizedTitle string    `json:"normalized_title"`
	ExternalID      string    `json:"external_id,omitempty"`
	ReleaseYear     int       `json:"release_year,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Copy is one uploaded instance of a work, tied to a source channel.
// Within a group at most one copy has IsPrimary set; the promotion
// controller owns that invariant, not the store.
type Copy struct {
	ID           string     `json:"id"`
	GroupID      string     `json:"group_id"`
	RawTitle     string     `json:"raw_title"`
	CleanTitle   string     `json:"clean_title"`
	ChannelID    string     `json:"channel_id"`
	VideoID      string     `json:"video_id"`
	ViewCount    int64      `json:"view_count"`
	LikeCount    int64      `json:"like_count"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	Embeddable   bool       `json:"embeddable"`
	QualityScore int        `json:"quality_score"`
	IsPrimary    bool       `json:"is_primary"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
