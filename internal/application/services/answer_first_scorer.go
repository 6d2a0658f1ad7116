package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zatekoja/visibilityscore/internal/domain/entities"
	"github.com/zatekoja/visibilityscore/internal/domain/providers"
	"github.com/zatekoja/visibilityscore/internal/infrastructure/observability"
)

// ErrScorerUnavailable means no credential is configured for the scoring engine.
var ErrScorerUnavailable = errors.New("generative scorer unavailable")

// AnswerFirstScorer rates how directly an opening paragraph answers
// "who, what, where" for the business. Scores are 0..100.
type AnswerFirstScorer interface {
	Score(ctx context.Context, opening string, business entities.BusinessContext) (int, error)
}

const answerFirstSystemPrompt = `You grade local business web pages for AI answer engines.
Given the opening paragraph of a page and the business it belongs to, rate 0-100 how well the paragraph
answers a customer's first question directly: it should name the business, say what kind of business it is,
say where it is, and state a concrete fact. Generic greetings score low.`

var answerFirstSchema = providers.ObjectSchema{
	Name:        "answer_first_score",
	Description: "Answer-first quality score for an opening paragraph",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score": map[string]any{
				"type":    "integer",
				"minimum": 0,
				"maximum": 100,
			},
		},
		"required":             []string{"score"},
		"additionalProperties": false,
	},
}

// GenerativeAnswerFirstScorer delegates the answer-first score to an engine
// and caches results by content hash.
type GenerativeAnswerFirstScorer struct {
	provider providers.TextGenerationProvider
	engine   entities.EngineID
	cache    providers.CacheProvider
	cacheTTL int
}

// NewGenerativeAnswerFirstScorer creates a scorer. cache may be nil.
func NewGenerativeAnswerFirstScorer(
	provider providers.TextGenerationProvider,
	engine entities.EngineID,
	cache providers.CacheProvider,
	cacheTTLSeconds int,
) *GenerativeAnswerFirstScorer {
	if engine == "" {
		engine = entities.EngineChatGPT
	}
	return &GenerativeAnswerFirstScorer{
		provider: provider,
		engine:   engine,
		cache:    cache,
		cacheTTL: cacheTTLSeconds,
	}
}

type answerFirstPayload struct {
	Score *int `json:"score"`
}

// Score returns the model's score clamped to 0..100.
func (s *GenerativeAnswerFirstScorer) Score(ctx context.Context, opening string, business entities.BusinessContext) (int, error) {
	if s.provider == nil || !s.provider.HasCredential(s.engine) {
		return 0, ErrScorerUnavailable
	}

	key := s.cacheKey(opening, business)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err == nil {
			if score, convErr := strconv.Atoi(string(cached)); convErr == nil {
				observability.RecordCacheHit(ctx, "answer_first")
				return score, nil
			}
		}
		observability.RecordCacheMiss(ctx, "answer_first")
	}

	raw, err := s.provider.GenerateObject(ctx, s.engine, providers.GenerateRequest{
		System:      answerFirstSystemPrompt,
		Prompt:      buildAnswerFirstPrompt(opening, business),
		Temperature: 0.1,
		MaxTokens:   50,
	}, answerFirstSchema)
	if err != nil {
		return 0, fmt.Errorf("answer-first scoring failed: %w", err)
	}

	var payload answerFirstPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, fmt.Errorf("failed to parse answer-first score: %w", err)
	}
	if payload.Score == nil {
		return 0, errors.New("answer-first response missing score")
	}
	score := entities.ClampScore(*payload.Score)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, []byte(strconv.Itoa(score)), s.cacheTTL); err != nil {
			observability.LoggerFromContext(ctx).Debug().Err(err).Msg("failed to cache answer-first score")
		}
	}
	return score, nil
}

func buildAnswerFirstPrompt(opening string, business entities.BusinessContext) string {
	return fmt.Sprintf(
		"Business name: %s\nCategories: %s\nLocation: %s\nOpening paragraph:\n%s\n",
		business.Name,
		strings.Join(business.Categories, ", "),
		business.Location(),
		opening,
	)
}

func (s *GenerativeAnswerFirstScorer) cacheKey(opening string, business entities.BusinessContext) string {
	h := sha256.New()
	h.Write([]byte(s.engine))
	h.Write([]byte{0})
	h.Write([]byte(buildAnswerFirstPrompt(opening, business)))
	return "answer_first:" + hex.EncodeToString(h.Sum(nil))
}
