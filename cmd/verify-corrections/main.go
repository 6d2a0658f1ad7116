package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/visibilityscore/internal/adapters/database"
	"github.com/zatekoja/visibilityscore/internal/application/services"
	"github.com/zatekoja/visibilityscore/internal/bootstrap"
)

func main() {
	var batchSize int
	var workers int

	flag.IntVar(&batchSize, "batch-size", 0, "Claims to process in this sweep (defaults to CORRECTION_BATCH_SIZE)")
	flag.IntVar(&workers, "workers", 0, "Number of concurrent workers (defaults to CORRECTION_WORKERS)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, batchSize, workers); err != nil {
		log.Error().Err(err).Msg("correction sweep failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, batchSize, workers int) error {
	rt, err := bootstrap.Init(ctx, "visibilityscore-verify-corrections")
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := rt.Config

	if batchSize <= 0 {
		batchSize = cfg.Verification.BatchSize
	}
	if workers <= 0 {
		workers = cfg.Verification.Workers
	}

	pgClient, err := rt.Database(ctx)
	if err != nil {
		return err
	}
	claimRepo := database.NewClaimAdapter(pgClient.DB())

	prober, err := services.NewCitationProbeService(rt.EngineClient(), cfg.Engines.Enabled, nil)
	if err != nil {
		return fmt.Errorf("failed to configure engines: %w", err)
	}
	cooldown := time.Duration(cfg.Verification.CooldownDays) * 24 * time.Hour
	verifier := services.NewCorrectionVerificationService(prober, nil, cooldown)
	sweep := services.NewCorrectionSweepService(claimRepo, verifier, nil, batchSize, workers)

	start := time.Now()
	summary, err := sweep.Run(ctx)
	if summary != nil {
		log.Info().Dur("duration", time.Since(start)).Msg("sweep finished")
		if writeErr := bootstrap.WriteJSON(os.Stdout, summary); writeErr != nil {
			return writeErr
		}
	}
	return err
}
