package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"filmdex/internal/catalog"
	"filmdex/internal/ingest"
	"filmdex/internal/patterns"
	"filmdex/internal/promotion"
	"filmdex/internal/resolver"
	"filmdex/internal/scoring"
	"filmdex/internal/similarity"
	"filmdex/pkg/database"
	"filmdex/pkg/utils"
)

// Imports a platform CSV export through the regular ingestion pipeline, so
// backfilled copies get the same cleaning, grouping and promotion as live
// ingests. Expected columns: video_id, channel_id, title, and optionally
// external_id, release_year, view_count, like_count, published_at,
// embeddable.
func main() {
	var (
		in      = flag.String("in", "data/videos.csv", "input CSV path")
		timeout = flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	repo := catalog.NewRepo(db)
	pipeline := &ingest.Pipeline{
		Store:    repo,
		Resolver: resolver.New(repo, similarity.NewIndex(db), utils.LoadCatalogConfig()),
		Scorer:   scoring.NewScorer(scoring.DefaultReputation()),
		Promoter: promotion.NewController(repo),
		Patterns: patterns.NewRepo(db),
	}

	videos, err := readVideos(*in)
	if err != nil {
		log.Fatalf("read csv failed: %v", err)
	}

	ok, failed := 0, 0
	for _, v := range videos {
		if _, err := pipeline.IngestOne(ctx, v); err != nil {
			log.Printf("import %s failed: %v", v.VideoID, err)
			failed++
			continue
		}
		ok++
	}

	log.Printf("imported %d videos from %s (%d failed)", ok, *in, failed)
}

func readVideos(path string) ([]ingest.Video, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	var out []ingest.Video
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}

		videoID := valueAt(header, row, "video_id")
		channelID := valueAt(header, row, "channel_id")
		title := valueAt(header, row, "title")
		if videoID == "" || channelID == "" || title == "" {
			continue
		}

		year, err := parseInt(valueAt(header, row, "release_year"))
		if err != nil {
			return nil, fmt.Errorf("parse release_year for %s: %w", videoID, err)
		}
		views, err := parseInt64(valueAt(header, row, "view_count"))
		if err != nil {
			return nil, fmt.Errorf("parse view_count for %s: %w", videoID, err)
		}
		likes, err := parseInt64(valueAt(header, row, "like_count"))
		if err != nil {
			return nil, fmt.Errorf("parse like_count for %s: %w", videoID, err)
		}
		published, err := parseTime(valueAt(header, row, "published_at"))
		if err != nil {
			return nil, fmt.Errorf("parse published_at for %s: %w", videoID, err)
		}

		out = append(out, ingest.Video{
			VideoID:     videoID,
			ChannelID:   channelID,
			RawTitle:    title,
			ExternalID:  valueAt(header, row, "external_id"),
			ReleaseYear: year,
			ViewCount:   views,
			LikeCount:   likes,
			PublishedAt: published,
			Embeddable:  parseBool(valueAt(header, row, "embeddable")),
		})
	}
	return out, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func parseInt64(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func parseTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseBool(raw string) bool {
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
