package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zatekoja/visibilityscore/internal/domain/entities"
	"github.com/zatekoja/visibilityscore/internal/domain/providers"
)

// EngineStrategy describes how to prompt one engine and read its answer.
// Adding an engine means adding an entry to engineStrategies.
type EngineStrategy struct {
	ID          entities.EngineID
	DisplayName string
	// Structured engines are asked for probeAnswerSchema instead of free text.
	Structured    bool
	BuildPrompt   func(query string) providers.GenerateRequest
	ParseResponse func(raw string) (*EngineAnswer, error)
}

// EngineAnswer is an engine response reduced to what citation detection needs.
type EngineAnswer struct {
	Text        string
	Candidates  []string
	CitationURL string
}

const probeInstructions = `Answer the user's local search question the way you normally would for a consumer.
Recommend specific businesses by their exact names. If you rely on a source page, include its full URL.`

var probeAnswerSchema = providers.ObjectSchema{
	Name:        "local_search_answer",
	Description: "Answer to a local business search question with the businesses named in it",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": map[string]any{"type": "string"},
			"businesses": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
					},
					"required":             []string{"name"},
					"additionalProperties": false,
				},
			},
			"citation_url": map[string]any{"type": "string"},
		},
		"required":             []string{"answer", "businesses", "citation_url"},
		"additionalProperties": false,
	},
}

func promptWithSources(sources string) func(query string) providers.GenerateRequest {
	return func(query string) providers.GenerateRequest {
		return providers.GenerateRequest{
			System:      probeInstructions + "\n" + sources,
			Prompt:      strings.TrimSpace(query),
			Temperature: 0.2,
			MaxTokens:   800,
		}
	}
}

var engineStrategies = map[entities.EngineID]EngineStrategy{
	entities.EngineChatGPT: {
		ID:            entities.EngineChatGPT,
		DisplayName:   "ChatGPT",
		Structured:    true,
		BuildPrompt:   promptWithSources("Use your general knowledge of the web and well-known review sites."),
		ParseResponse: parseStructuredAnswer,
	},
	entities.EnginePerplexity: {
		ID:          entities.EnginePerplexity,
		DisplayName: "Perplexity",
		BuildPrompt: promptWithSources("Search live web sources and cite the URL of the page your top recommendation comes from. " +
			"List each business on its own line."),
		ParseResponse: parseFreeTextAnswer,
	},
	entities.EngineGemini: {
		ID:          entities.EngineGemini,
		DisplayName: "Gemini",
		Structured:  true,
		BuildPrompt: promptWithSources("Prefer Google Maps and Google Business Profile place data: names, ratings, hours " +
			"and addresses as listed there."),
		ParseResponse: parseStructuredAnswer,
	},
	entities.EngineCopilot: {
		ID:          entities.EngineCopilot,
		DisplayName: "Copilot",
		BuildPrompt: promptWithSources("Prefer Bing Places and business directory listings such as Yellow Pages and Yelp. " +
			"List each business as a bullet with its name in bold."),
		ParseResponse: parseFreeTextAnswer,
	},
}

// StrategyFor returns the strategy registered for engine.
func StrategyFor(engine entities.EngineID) (EngineStrategy, bool) {
	s, ok := engineStrategies[engine]
	return s, ok
}

type structuredAnswer struct {
	Answer     string `json:"answer"`
	Businesses []struct {
		Name string `json:"name"`
	} `json:"businesses"`
	CitationURL string `json:"citation_url"`
}

func parseStructuredAnswer(raw string) (*EngineAnswer, error) {
	var payload structuredAnswer
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse structured answer: %w", err)
	}

	answer := &EngineAnswer{Text: strings.TrimSpace(payload.Answer)}
	seen := make(map[string]struct{})
	for _, b := range payload.Businesses {
		answer.Candidates = appendCandidate(answer.Candidates, seen, b.Name)
	}
	if answer.Text == "" && len(answer.Candidates) == 0 {
		return nil, fmt.Errorf("structured answer is empty")
	}

	answer.CitationURL = normalizeCitation(payload.CitationURL)
	if answer.CitationURL == "" {
		answer.CitationURL = firstURL(answer.Text)
	}
	return answer, nil
}

func parseFreeTextAnswer(raw string) (*EngineAnswer, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("empty answer")
	}
	return &EngineAnswer{
		Text:        text,
		Candidates:  extractCandidates(text),
		CitationURL: firstURL(text),
	}, nil
}
