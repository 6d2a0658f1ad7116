package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/zatekoja/visibilityscore/internal/domain/entities"
	"github.com/zatekoja/visibilityscore/internal/domain/providers"
	"github.com/zatekoja/visibilityscore/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/visibilityscore/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// CitationProbeService asks every configured engine the same local search
// question and reports whether each answer cites the business.
type CitationProbeService struct {
	provider providers.TextGenerationProvider
	engines  []EngineStrategy
	clock    providers.Clock
}

// NewCitationProbeService builds a prober over engineIDs, in that order.
// Unknown engine identifiers are rejected.
func NewCitationProbeService(provider providers.TextGenerationProvider, engineIDs []string, clock providers.Clock) (*CitationProbeService, error) {
	if clock == nil {
		clock = providers.SystemClock{}
	}
	seen := make(map[entities.EngineID]struct{})
	var engines []EngineStrategy
	for _, raw := range engineIDs {
		id := entities.EngineID(strings.ToLower(strings.TrimSpace(raw)))
		if id == "" {
			continue
		}
		strategy, ok := StrategyFor(id)
		if !ok {
			return nil, fmt.Errorf("unsupported engine: %s", raw)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		engines = append(engines, strategy)
	}
	return &CitationProbeService{provider: provider, engines: engines, clock: clock}, nil
}

// Engines returns the configured engine identifiers in probe order.
func (s *CitationProbeService) Engines() []entities.EngineID {
	ids := make([]entities.EngineID, len(s.engines))
	for i, e := range s.engines {
		ids[i] = e.ID
	}
	return ids
}

// Ask sends query to a single engine and parses its answer. Any failure,
// including a missing credential, is returned as an ENGINE error.
func (s *CitationProbeService) Ask(ctx context.Context, engine entities.EngineID, query string) (*EngineAnswer, error) {
	strategy, ok := StrategyFor(engine)
	if !ok {
		return nil, apperrors.NewEngineError(string(engine), fmt.Errorf("unknown engine"))
	}
	if !s.provider.HasCredential(engine) {
		return nil, apperrors.NewEngineError(string(engine), fmt.Errorf("no credential configured"))
	}
	return s.ask(ctx, strategy, query)
}

func (s *CitationProbeService) ask(ctx context.Context, strategy EngineStrategy, query string) (*EngineAnswer, error) {
	req := strategy.BuildPrompt(query)

	var raw string
	if strategy.Structured {
		out, err := s.provider.GenerateObject(ctx, strategy.ID, req, probeAnswerSchema)
		if err != nil {
			return nil, apperrors.NewEngineError(string(strategy.ID), err)
		}
		raw = string(out)
	} else {
		out, err := s.provider.GenerateText(ctx, strategy.ID, req)
		if err != nil {
			return nil, apperrors.NewEngineError(string(strategy.ID), err)
		}
		raw = out
	}

	answer, err := strategy.ParseResponse(raw)
	if err != nil {
		return nil, apperrors.NewEngineError(string(strategy.ID), err)
	}
	return answer, nil
}

// ProbeQuery runs query against every configured engine concurrently and waits
// for all of them. Engines without a credential yield a placeholder; engines
// that fail are left out. Only invalid input returns an error.
func (s *CitationProbeService) ProbeQuery(ctx context.Context, query string, business entities.BusinessContext) ([]entities.EngineQueryResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("query is required")
	}
	if strings.TrimSpace(business.Name) == "" {
		return nil, apperrors.NewValidationError("business name is required")
	}

	ctx, span := observability.StartSpan(ctx, "citation_probe.probe")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("probe.query", query),
		attribute.Int("probe.engines", len(s.engines)),
	)

	runID := uuid.New().String()
	slots := make([]*entities.EngineQueryResult, len(s.engines))

	var wg sync.WaitGroup
	for i, strategy := range s.engines {
		if !s.provider.HasCredential(strategy.ID) {
			slots[i] = s.placeholder(runID, strategy.ID, query)
			observability.RecordProbeOutcome(ctx, string(strategy.ID), "placeholder")
			continue
		}

		wg.Add(1)
		go func(i int, strategy EngineStrategy) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					observability.LoggerFromContext(ctx).Debug().
						Str("engine", string(strategy.ID)).
						Interface("panic", r).
						Msg("engine probe panicked, dropping result")
					observability.RecordProbeOutcome(ctx, string(strategy.ID), "failed")
				}
			}()

			answer, err := s.ask(ctx, strategy, query)
			if err != nil {
				observability.LoggerFromContext(ctx).Debug().
					Err(err).
					Str("engine", string(strategy.ID)).
					Msg("engine probe failed, dropping result")
				observability.RecordProbeOutcome(ctx, string(strategy.ID), "failed")
				return
			}

			result := s.buildResult(runID, strategy.ID, query, answer, business)
			slots[i] = result
			outcome := "not_cited"
			if result.BusinessCited {
				outcome = "cited"
			}
			observability.RecordProbeOutcome(ctx, string(strategy.ID), outcome)
		}(i, strategy)
	}
	wg.Wait()

	results := make([]entities.EngineQueryResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	observability.SetSpanAttributes(span, attribute.Int("probe.results", len(results)))
	return results, nil
}

func (s *CitationProbeService) placeholder(runID string, engine entities.EngineID, query string) *entities.EngineQueryResult {
	return &entities.EngineQueryResult{
		RunID:           runID,
		Engine:          engine,
		Query:           query,
		BusinessCited:   false,
		OtherBusinesses: []string{},
		Placeholder:     true,
		ProbedAt:        s.clock.Now(),
	}
}

func (s *CitationProbeService) buildResult(runID string, engine entities.EngineID, query string, answer *EngineAnswer, business entities.BusinessContext) *entities.EngineQueryResult {
	cited, others := detectCitation(answer, business)
	text := answer.Text
	result := &entities.EngineQueryResult{
		RunID:           runID,
		Engine:          engine,
		Query:           query,
		ResponseText:    &text,
		BusinessCited:   cited,
		OtherBusinesses: others,
		ProbedAt:        s.clock.Now(),
	}
	if answer.CitationURL != "" {
		citation := answer.CitationURL
		result.CitationURL = &citation
		result.CitedOwnSite = sameSite(citation, business.Website)
	}
	return result
}

// ShareOfVoice aggregates probe results into citation rates. Placeholder
// results count as runs without a citation.
func ShareOfVoice(results []entities.EngineQueryResult) entities.ShareOfVoice {
	sov := entities.ShareOfVoice{PerEngine: make(map[entities.EngineID]entities.EngineShare)}
	for _, r := range results {
		bucket := sov.PerEngine[r.Engine]
		bucket.Runs++
		sov.Runs++
		if r.BusinessCited {
			bucket.Cited++
			sov.Cited++
		}
		sov.PerEngine[r.Engine] = bucket
	}
	for engine, bucket := range sov.PerEngine {
		bucket.Rate = rate(bucket.Cited, bucket.Runs)
		sov.PerEngine[engine] = bucket
	}
	sov.Rate = rate(sov.Cited, sov.Runs)
	return sov
}

func rate(cited, runs int) float64 {
	if runs == 0 {
		return 0
	}
	return float64(cited) / float64(runs)
}
