package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/zatekoja/visibilityscore/internal/domain/entities"
	"github.com/zatekoja/visibilityscore/internal/domain/providers"
	"github.com/zatekoja/visibilityscore/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/visibilityscore/pkg/errors"
	"github.com/zatekoja/visibilityscore/pkg/htmldoc"
	"go.opentelemetry.io/otel/attribute"
)

// PageAuditService scores a single page for machine readability.
type PageAuditService struct {
	fetcher providers.PageFetcher
	scorer  AnswerFirstScorer
	clock   providers.Clock
}

// NewPageAuditService creates an auditor. scorer may be nil, in which case the
// answer-first dimension always uses the heuristic.
func NewPageAuditService(fetcher providers.PageFetcher, scorer AnswerFirstScorer, clock providers.Clock) *PageAuditService {
	if clock == nil {
		clock = providers.SystemClock{}
	}
	return &PageAuditService{
		fetcher: fetcher,
		scorer:  scorer,
		clock:   clock,
	}
}

// AuditPage fetches rawURL once and scores it. A non-2xx response or transport
// failure returns a FETCH error; nothing is retried.
func (s *PageAuditService) AuditPage(ctx context.Context, rawURL string, pageType entities.PageType, business entities.BusinessContext) (*entities.PageAuditResult, error) {
	if err := validateAuditInput(rawURL, pageType, business); err != nil {
		observability.RecordAudit(ctx, string(pageType), "invalid")
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "page_audit.audit")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("audit.url", rawURL),
		attribute.String("audit.page_type", string(pageType)),
	)

	page, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		observability.RecordError(span, err)
		observability.RecordAudit(ctx, string(pageType), "fetch_failed")
		if apperrors.IsType(err, apperrors.ErrorTypeFetch) {
			return nil, err
		}
		return nil, apperrors.NewFetchError(rawURL, apperrors.StatusCode(err), err)
	}

	doc, err := htmldoc.ParseBytes(page.Body)
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewInternalError("failed to parse page", err)
	}

	result := s.score(ctx, doc, business)
	result.ID = uuid.New().String()
	result.URL = rawURL
	result.PageType = pageType
	result.AuditedAt = s.clock.Now()

	observability.SetSpanAttributes(span, attribute.Int("audit.overall_score", result.OverallScore))
	observability.RecordAudit(ctx, string(pageType), "scored")
	return result, nil
}

func (s *PageAuditService) score(ctx context.Context, doc *htmldoc.Document, business entities.BusinessContext) *entities.PageAuditResult {
	opening := openingText(doc)
	answerFirst := scoreAnswerFirstHeuristic(opening, business)
	source := entities.ScoreSourceHeuristic

	if s.scorer != nil {
		score, err := s.scorer.Score(ctx, opening, business)
		switch {
		case err == nil:
			answerFirst = answerFirstFromModel(score)
			source = entities.ScoreSourceGenerative
		case errors.Is(err, ErrScorerUnavailable):
		default:
			observability.LoggerFromContext(ctx).Debug().Err(err).Msg("generative answer-first scoring failed, using heuristic")
		}
	}

	schema := scoreSchemaCompleteness(doc)
	faq, hasFAQ := scoreFAQ(doc)
	keyword := scoreKeywordDensity(doc, business)
	entity := scoreEntityClarity(doc, business)

	var recs []entities.Recommendation
	for _, d := range []dimensionScore{answerFirst, schema, faq, keyword, entity} {
		recs = append(recs, d.recs...)
	}
	entities.SortRecommendations(recs)
	if recs == nil {
		recs = []entities.Recommendation{}
	}

	return &entities.PageAuditResult{
		AnswerFirstScore:        answerFirst.score,
		SchemaCompletenessScore: schema.score,
		FAQSchemaScore:          faq.score,
		KeywordDensityScore:     keyword.score,
		EntityClarityScore:      entity.score,
		OverallScore:            entities.ComputeOverall(answerFirst.score, schema.score, faq.score, keyword.score, entity.score),
		HasFAQSchema:            hasFAQ,
		AnswerFirstSource:       source,
		Recommendations:         recs,
	}
}

func validateAuditInput(rawURL string, pageType entities.PageType, business entities.BusinessContext) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperrors.NewValidationError(fmt.Sprintf("invalid page url %q: must be an absolute http(s) url", rawURL))
	}
	if !pageType.IsValid() {
		return apperrors.NewValidationError(fmt.Sprintf("invalid page type %q", pageType))
	}
	if strings.TrimSpace(business.Name) == "" {
		return apperrors.NewValidationError("business name is required")
	}
	return nil
}
