package main

import (
	"context"
	"flag"
	"log"
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

func main() {
	var (
		feedURL  = flag.String("feed", "", "HTTP feed base URL (serves GET /videos)")
		filePath = flag.String("file", "", "local JSON file with a video array")
		timeout  = flag.Duration("timeout", 5*time.Minute, "overall run timeout")
	)
	flag.Parse()

	if *feedURL == "" && *filePath == "" {
		log.Fatal("at least one of -feed or -file is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	repo := catalog.NewRepo(db)
	patternRepo := patterns.NewRepo(db)
	pipeline := &ingest.Pipeline{
		Store:    repo,
		Resolver: resolver.New(repo, similarity.NewIndex(db), utils.LoadCatalogConfig()),
		Scorer:   scoring.NewScorer(scoring.DefaultReputation()),
		Promoter: promotion.NewController(repo),
		Patterns: patternRepo,
	}

	var sources []ingest.Source
	if *feedURL != "" {
		sources = append(sources, ingest.NewFeedSource(*feedURL))
	}
	if *filePath != "" {
		sources = append(sources, ingest.NewFileSource(*filePath))
	}

	report, err := pipeline.Run(ctx, patternRepo, sources...)
	if err != nil {
		log.Fatalf("ingest run failed: %v", err)
	}

	log.Printf("ingest done: fetched=%d ingested=%d failed=%d",
		report.Fetched, report.Ingested, report.Failed)
}
