package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/visibilityscore/internal/application/services"
	"github.com/zatekoja/visibilityscore/internal/bootstrap"
	"github.com/zatekoja/visibilityscore/internal/domain/entities"
)

type probeOutput struct {
	Query        string                       `json:"query"`
	Results      []entities.EngineQueryResult `json:"results"`
	ShareOfVoice entities.ShareOfVoice        `json:"share_of_voice"`
}

func main() {
	var query string
	var engines string

	flag.StringVar(&query, "query", "", "Natural-language search query to probe")
	flag.StringVar(&engines, "engines", "", "Comma-separated engines to probe (defaults to ENGINES)")
	businessFlags := bootstrap.RegisterBusinessFlags(flag.CommandLine)
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, query, engines, businessFlags); err != nil {
		log.Error().Err(err).Msg("probe failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, query, engines string, businessFlags *bootstrap.BusinessFlags) error {
	rt, err := bootstrap.Init(ctx, "visibilityscore-probe")
	if err != nil {
		return err
	}
	defer rt.Close()

	business, err := businessFlags.Business()
	if err != nil {
		return err
	}

	engineIDs := rt.Config.Engines.Enabled
	if strings.TrimSpace(engines) != "" {
		engineIDs = strings.Split(engines, ",")
	}

	prober, err := services.NewCitationProbeService(rt.EngineClient(), engineIDs, nil)
	if err != nil {
		return fmt.Errorf("failed to configure engines: %w", err)
	}

	results, err := prober.ProbeQuery(ctx, query, business)
	if err != nil {
		return err
	}
	sov := services.ShareOfVoice(results)
	log.Info().
		Int("engines", len(prober.Engines())).
		Int("results", len(results)).
		Float64("share_of_voice", sov.Rate).
		Msg("probe complete")

	return bootstrap.WriteJSON(os.Stdout, probeOutput{Query: query, Results: results, ShareOfVoice: sov})
}
