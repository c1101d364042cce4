package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"filmdex/internal/events"
	"filmdex/internal/patterns"
	"filmdex/internal/promotion"
	"filmdex/internal/resolver"
	"filmdex/internal/scoring"
	"filmdex/internal/titleclean"
	"filmdex/pkg/models"
)

// Video is one upload as sourced from the platform, before any cleaning.
type Video struct {
	VideoID     string     `json:"video_id"`
	ChannelID   string     `json:"channel_id"`
	RawTitle    string     `json:"title"`
	ExternalID  string     `json:"external_id,omitempty"`
	ReleaseYear int        `json:"release_year,omitempty"`
	ViewCount   int64      `json:"view_count"`
	LikeCount   int64      `json:"like_count"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Embeddable  bool       `json:"embeddable"`
}

// Store is the slice of the persistence collaborator the pipeline needs
// beyond what the resolver and promoter hold themselves.
type Store interface {
	CopyByVideoID(ctx context.Context, videoID string) (*models.Copy, error)
	CreateCopy(ctx context.Context, c models.Copy) error
	MoveCopy(ctx context.Context, copyID, groupID string) error
	RefreshEngagement(ctx context.Context, c models.Copy) error
	UpdateCleanTitle(ctx context.Context, copyID, cleanTitle string) error
	SetGroupExternalID(ctx context.Context, groupID, externalID string) error
}

// PatternSink persists learned channel patterns.
type PatternSink interface {
	Upsert(ctx context.Context, p models.ChannelTitlePattern) error
}

// Outcome reports what one ingestion event did, for responses and logs.
type Outcome struct {
	Copy       models.Copy        `json:"copy"`
	Group      models.WorkGroup   `json:"group"`
	MatchType  resolver.MatchType `json:"match_type"`
	Confidence float64            `json:"confidence"`
	Promoted   bool               `json:"promoted"`
	Created    bool               `json:"created"`
}

// Pipeline runs the full ingestion sequence: pattern -> clean -> resolve ->
// score -> promote. Hub may be nil when no live feed is wired.
type Pipeline struct {
	Store    Store
	Resolver *resolver.Resolver
	Scorer   *scoring.Scorer
	Promoter *promotion.Controller
	Patterns patterns.Supplier
	Hub      *events.Hub
}

// IngestOne processes a single sourced video. Re-ingesting a known video id
// refreshes its engagement signals and rescored quality instead of creating
// a second copy.
func (p *Pipeline) IngestOne(ctx context.Context, v Video) (*Outcome, error) {
	if v.VideoID == "" || v.ChannelID == "" {
		return nil, fmt.Errorf("ingest: video id and channel id are required")
	}

	pattern, err := p.Patterns.PatternFor(ctx, v.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("pattern lookup: %w", err)
	}

	clean := titleclean.Clean(v.RawTitle, pattern)

	res, err := p.Resolver.Resolve(ctx, resolver.Candidate{
		ExternalID:  v.ExternalID,
		RawTitle:    v.RawTitle,
		CleanTitle:  clean,
		ReleaseYear: v.ReleaseYear,
		ChannelID:   v.ChannelID,
	})
	if err != nil {
		return nil, err
	}
	group := res.Group

	// First confident discovery of the external catalog id sticks to the
	// group; a group that already has one is left alone.
	if v.ExternalID != "" && group.ExternalID == "" {
		if err := p.Store.SetGroupExternalID(ctx, group.ID, v.ExternalID); err != nil {
			return nil, err
		}
		group.ExternalID = v.ExternalID
	}

	existing, err := p.Store.CopyByVideoID(ctx, v.VideoID)
	if err != nil {
		return nil, err
	}

	var c models.Copy
	created := existing == nil
	if existing != nil {
		c = *existing

		// A refresh can resolve somewhere new, e.g. when it now carries an
		// external catalog id pointing at another group. The copy must move
		// before promotion runs, and it leaves any primary flag behind:
		// promoting it while its row still sat in the old group would give
		// that group two primaries.
		if c.GroupID != group.ID {
			if err := p.Store.MoveCopy(ctx, c.ID, group.ID); err != nil {
				return nil, err
			}
			c.GroupID = group.ID
			c.IsPrimary = false
		}

		c.ViewCount = v.ViewCount
		c.LikeCount = v.LikeCount
		c.PublishedAt = v.PublishedAt
		c.Embeddable = v.Embeddable

		score, err := p.Scorer.ScoreCopy(ctx, c)
		if err != nil {
			return nil, err
		}
		c.QualityScore = score

		if err := p.Store.RefreshEngagement(ctx, c); err != nil {
			return nil, err
		}
		if clean != c.CleanTitle {
			if err := p.Store.UpdateCleanTitle(ctx, c.ID, clean); err != nil {
				return nil, err
			}
			c.CleanTitle = clean
		}
	} else {
		c = models.Copy{
			ID:          uuid.NewString(),
			GroupID:     group.ID,
			RawTitle:    v.RawTitle,
			CleanTitle:  clean,
			ChannelID:   v.ChannelID,
			VideoID:     v.VideoID,
			ViewCount:   v.ViewCount,
			LikeCount:   v.LikeCount,
			PublishedAt: v.PublishedAt,
			Embeddable:  v.Embeddable,
		}
		score, err := p.Scorer.ScoreCopy(ctx, c)
		if err != nil {
			return nil, err
		}
		c.QualityScore = score

		if err := p.Store.CreateCopy(ctx, c); err != nil {
			return nil, err
		}
	}

	dec, err := p.Promoter.Apply(ctx, group.ID, c.ID, c.QualityScore)
	if err != nil {
		return nil, err
	}
	c.IsPrimary = dec.ShouldPromote || dec.IncumbentID == c.ID

	p.broadcast(res, group, c, dec.ShouldPromote)

	return &Outcome{
		Copy:       c,
		Group:      *group,
		MatchType:  res.MatchType,
		Confidence: res.Confidence,
		Promoted:   dec.ShouldPromote,
		Created:    created,
	}, nil
}

func (p *Pipeline) broadcast(res *resolver.Result, group *models.WorkGroup, c models.Copy, promoted bool) {
	if p.Hub == nil {
		return
	}
	now := time.Now()

	if res.MatchType == resolver.MatchNewGroup {
		p.Hub.Broadcast(events.Event{
			Type:    events.TypeGroupCreated,
			GroupID: group.ID,
			Title:   group.CanonicalTitle,
			At:      now,
		})
	}
	p.Hub.Broadcast(events.Event{
		Type:       events.TypeCopyIngested,
		GroupID:    group.ID,
		CopyID:     c.ID,
		Title:      c.CleanTitle,
		MatchType:  string(res.MatchType),
		Confidence: res.Confidence,
		Score:      c.QualityScore,
		At:         now,
	})
	if promoted {
		p.Hub.Broadcast(events.Event{
			Type:    events.TypePrimaryChanged,
			GroupID: group.ID,
			CopyID:  c.ID,
			Score:   c.QualityScore,
			At:      now,
		})
	}
}

// RunReport summarizes a batch run across sources.
type RunReport struct {
	Fetched  int
	Ingested int
	Failed   int
}

// Run fetches from every source and pushes each video through the pipeline.
// One broken source or video does not stop the rest. When sink is non-nil,
// channel patterns are re-learned from the fetched sample before ingestion
// so cleaning benefits from them immediately.
func (p *Pipeline) Run(ctx context.Context, sink PatternSink, sources ...Source) (RunReport, error) {
	var report RunReport

	var videos []Video
	for _, src := range sources {
		log.Printf("[ingest] fetching from %s", src.Name())
		vs, err := src.FetchAll(ctx)
		if err != nil {
			log.Printf("[ingest] source %s error: %v", src.Name(), err)
			// keep going: one broken source should not kill the batch
			continue
		}
		videos = append(videos, vs...)
	}
	report.Fetched = len(videos)

	if sink != nil {
		p.learnPatterns(ctx, sink, videos)
	}

	for _, v := range videos {
		if _, err := p.IngestOne(ctx, v); err != nil {
			log.Printf("[ingest] video %s failed: %v", v.VideoID, err)
			report.Failed++
			continue
		}
		report.Ingested++
	}
	return report, nil
}

func (p *Pipeline) learnPatterns(ctx context.Context, sink PatternSink, videos []Video) {
	byChannel := make(map[string][]string)
	for _, v := range videos {
		byChannel[v.ChannelID] = append(byChannel[v.ChannelID], v.RawTitle)
	}
	for channelID, titles := range byChannel {
		pat := patterns.Detect(channelID, titles)
		if pat == nil {
			continue
		}
		if err := sink.Upsert(ctx, *pat); err != nil {
			log.Printf("[ingest] pattern upsert for %s failed: %v", channelID, err)
		}
	}
}
