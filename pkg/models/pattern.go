package models

import "time"

// TitlePosition says where a channel usually places the work's title among
// the separator-delimited segments of its upload titles.
type TitlePosition string

const (
	TitleFirst  TitlePosition = "first"
	TitleLast   TitlePosition = "last"
	TitleEither TitlePosition = "either"
)

// ChannelTitlePattern is a per-channel template describing how that channel
// formats upload titles. It is advisory input for the title cleaner and may
// be overridden when it contradicts the literal structure of a raw title.
type ChannelTitlePattern struct {
	ChannelID    string        `json:"channel_id"`
	HasSeparator bool          `json:"has_separator"`
	Position     TitlePosition `json:"title_position"`
	Confidence   float64       `json:"confidence"` // [0,1]
	SampleCount  int           `json:"sample_count,omitempty"`
	UpdatedAt    time.Time     `json:"updated_at,omitempty"`
}
