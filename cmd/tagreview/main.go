package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"NewsDigest/internal/app"
	"NewsDigest/internal/config"
	"NewsDigest/internal/logging"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "build and validate a proposal without committing it")
	stats := flag.Bool("stats", false, "print vocabulary stats and exit")
	unmapped := flag.Int("unmapped", 0, "print the N most frequent unmapped raw tags and exit")
	rollback := flag.String("rollback", "", "re-publish the given snapshot version and backfill")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	review := application.Review()

	switch {
	case *stats:
		s, err := review.Stats(ctx)
		if err != nil {
			logger.Error("stats failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("version: %s\ncanonical tags: %d\nmapped raw tags: %d\n",
			s.Version, s.CanonicalCount, s.MappedRawCount)

	case *unmapped > 0:
		sample, err := review.UnmappedSample(ctx, *unmapped)
		if err != nil {
			logger.Error("unmapped sample failed", "error", err)
			os.Exit(1)
		}
		for _, stat := range sample {
			fmt.Printf("%6d  %s\n", stat.Frequency, stat.Name)
		}

	case *rollback != "":
		snapshot, err := review.Rollback(ctx, *rollback)
		if err != nil {
			logger.Error("rollback failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("rolled back to %s as version %s (base %s)\n",
			*rollback, snapshot.Version, snapshot.BaseVersion)

	default:
		snapshot, err := review.Run(ctx, *dryRun)
		if err != nil {
			logger.Error("review failed", "error", err)
			os.Exit(1)
		}
		changes, err := json.MarshalIndent(snapshot.Changes, "", "  ")
		if err != nil {
			logger.Error("render changes failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("version: %s (base %s)\n%s\n", snapshot.Version, snapshot.BaseVersion, changes)
	}
}
