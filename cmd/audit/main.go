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
	"github.com/zatekoja/visibilityscore/internal/adapters/fetcher"
	"github.com/zatekoja/visibilityscore/internal/application/services"
	"github.com/zatekoja/visibilityscore/internal/bootstrap"
	"github.com/zatekoja/visibilityscore/internal/domain/entities"
	apperrors "github.com/zatekoja/visibilityscore/pkg/errors"
)

func main() {
	var pageURL string
	var pageType string
	var heuristicOnly bool

	flag.StringVar(&pageURL, "url", "", "Page URL to audit")
	flag.StringVar(&pageType, "page-type", string(entities.PageTypeHomepage), "Page type: homepage, menu, about, faq, events, other")
	flag.BoolVar(&heuristicOnly, "heuristic", false, "Skip the generative answer-first scorer")
	businessFlags := bootstrap.RegisterBusinessFlags(flag.CommandLine)
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, pageURL, entities.PageType(pageType), heuristicOnly, businessFlags); err != nil {
		log.Error().Err(err).Msg("audit failed")
		if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, pageURL string, pageType entities.PageType, heuristicOnly bool, businessFlags *bootstrap.BusinessFlags) error {
	rt, err := bootstrap.Init(ctx, "visibilityscore-audit")
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := rt.Config

	business, err := businessFlags.Business()
	if err != nil {
		return err
	}
	if pageURL == "" {
		return apperrors.NewValidationError("-url is required")
	}

	pageFetcher := fetcher.NewCollyFetcher(fetcher.Options{
		UserAgent:    cfg.Audit.UserAgent,
		Timeout:      time.Duration(cfg.Audit.FetchTimeoutSeconds) * time.Second,
		MaxBodyBytes: cfg.Audit.MaxBodyBytes,
	})

	var scorer services.AnswerFirstScorer
	if cfg.Audit.GenerativeScoring && !heuristicOnly {
		client := rt.EngineClient()
		if client.HasCredential(entities.EngineChatGPT) {
			scorer = services.NewGenerativeAnswerFirstScorer(
				client,
				entities.EngineChatGPT,
				rt.ScoreCache(ctx, "visibilityscore"),
				cfg.Audit.ScoreCacheTTLSeconds,
			)
		} else {
			log.Debug().Msg("no chatgpt credential, using heuristic answer-first scoring")
		}
	}

	svc := services.NewPageAuditService(pageFetcher, scorer, nil)

	start := time.Now()
	result, err := svc.AuditPage(ctx, pageURL, pageType, business)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeFetch) {
			log.Warn().Int("status", apperrors.StatusCode(err)).Str("url", pageURL).Msg("page could not be fetched")
		}
		return err
	}
	log.Info().
		Str("url", pageURL).
		Int("overall_score", result.OverallScore).
		Dur("duration", time.Since(start)).
		Msg("audit complete")

	if err := bootstrap.WriteJSON(os.Stdout, result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
