package entities

import "time"

// EngineID identifies an AI answer engine.
type EngineID string

const (
	EngineChatGPT    EngineID = "chatgpt"
	EnginePerplexity EngineID = "perplexity"
	EngineGemini     EngineID = "gemini"
	EngineCopilot    EngineID = "copilot"
)

// EngineQueryResult is one engine's answer to one probe query.
type EngineQueryResult struct {
	RunID           string    `json:"run_id"`
	Engine          EngineID  `json:"engine"`
	Query           string    `json:"query"`
	ResponseText    *string   `json:"response_text"`
	BusinessCited   bool      `json:"business_cited"`
	OtherBusinesses []string  `json:"other_businesses"`
	CitationURL     *string   `json:"citation_url,omitempty"`
	CitedOwnSite    bool      `json:"cited_own_site"`
	Placeholder     bool      `json:"placeholder"`
	ProbedAt        time.Time `json:"probed_at"`
}

// EngineShare is the citation rate for a single engine.
type EngineShare struct {
	Runs  int     `json:"runs"`
	Cited int     `json:"cited"`
	Rate  float64 `json:"rate"`
}

// ShareOfVoice is the fraction of engine runs in which the business was cited.
type ShareOfVoice struct {
	Runs      int                      `json:"runs"`
	Cited     int                      `json:"cited"`
	Rate      float64                  `json:"rate"`
	PerEngine map[EngineID]EngineShare `json:"per_engine"`
}
