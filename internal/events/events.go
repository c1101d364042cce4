package events

import "time"

const (
	TypeWelcome        = "welcome"
	TypeGroupCreated   = "group.created"
	TypeCopyIngested   = "copy.ingested"
	TypePrimaryChanged = "primary.changed"
)

// Event is what catalog mirrors receive over the TCP and WebSocket feeds
// whenever ingestion changes state.
type Event struct {
	Type       string    `json:"type"`
	GroupID    string    `json:"group_id,omitempty"`
	CopyID     string    `json:"copy_id,omitempty"`
	Title      string    `json:"title,omitempty"`
	MatchType  string    `json:"match_type,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Score      int       `json:"score,omitempty"`
	At         time.Time `json:"at"`
}
