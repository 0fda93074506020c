// Command backfill re-runs the analysis pipeline across a profile's history.
// It is the operational entry point after an algorithm change.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jason-traum/stride-os-sub002/internal/config"
	persistence "github.com/jason-traum/stride-os-sub002/internal/persistence/postgres"
	"github.com/jason-traum/stride-os-sub002/internal/pipeline"
)

func main() {
	var (
		profileID    = flag.String("profile", "", "profile whose workouts to reprocess (required)")
		workers      = flag.Int("workers", 1, "worker pool size; 1 preserves strict ordering")
		updateRoutes = flag.Bool("update-routes", false, "also update canonical route statistics (double-counts observations on repeat runs)")
	)
	flag.Parse()

	if *profileID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		log.Println("backfill interrupted, finishing in-flight workouts")
		cancel()
	}()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)
	processor := pipeline.NewProcessor(repo)
	runner := pipeline.NewBatchRunner(processor, repo, *workers)

	opts := pipeline.Options{SkipRouteMatching: !*updateRoutes}
	progress := func(completed, total int) {
		if completed%50 == 0 || completed == total {
			log.Printf("progress: %d/%d", completed, total)
		}
	}

	summary, err := runner.ReprocessAll(ctx, *profileID, opts, progress)
	if err != nil {
		log.Fatalf("reprocess failed: %v", err)
	}

	log.Printf("done: total=%d ok=%d partial=%d failed=%d stage_errors=%d",
		summary.Total, summary.Succeeded, summary.Partial, summary.Failed, summary.StageErrors)
	if summary.Failed > 0 {
		os.Exit(1)
	}
}
