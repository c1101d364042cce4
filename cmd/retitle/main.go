package main

import (
	"context"
	"flag"
	"log"
	"time"

	"filmdex/internal/catalog"
	"filmdex/internal/patterns"
	"filmdex/internal/retitle"
	"filmdex/pkg/database"
)

func main() {
	var (
		verbose = flag.Bool("v", false, "print every title change")
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

	runner := retitle.NewRunner(catalog.NewRepo(db), patterns.NewRepo(db))
	report, err := runner.Run(ctx)
	if err != nil {
		log.Fatalf("retitle run failed: %v", err)
	}

	log.Printf("retitle done: updated=%d unchanged=%d failed=%d",
		report.Updated, report.Unchanged, report.Failed)

	if *verbose {
		for _, ch := range report.Changes {
			log.Printf("  %s: %q -> %q", ch.CopyID, ch.Before, ch.After)
		}
	}
}
