package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/zatekoja/visibilityscore/internal/domain/entities"
	"github.com/zatekoja/visibilityscore/internal/domain/providers"
	"github.com/zatekoja/visibilityscore/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const defaultTimeout = 30 * time.Second

// Provider names the credential an engine is served by.
const (
	ProviderOpenAI     = "openai"
	ProviderPerplexity = "perplexity"
	ProviderGemini     = "gemini"
)

// engineProviders maps each engine to the credential it runs on. Copilot is
// served through the OpenAI credential.
var engineProviders = map[entities.EngineID]string{
	entities.EngineChatGPT:    ProviderOpenAI,
	entities.EngineCopilot:    ProviderOpenAI,
	entities.EnginePerplexity: ProviderPerplexity,
	entities.EngineGemini:     ProviderGemini,
}

// Client implements providers.TextGenerationProvider over OpenAI-compatible
// chat completion endpoints.
type Client struct {
	backends map[string]*backend
	timeout  time.Duration
}

type backend struct {
	provider string
	model    string
	api      oai.Client
	limiter  *tokenBucket
}

var _ providers.TextGenerationProvider = (*Client)(nil)

// NewClient creates a client for every provider that has an API key.
// httpClient may be nil.
func NewClient(cfg *config.EnginesConfig, httpClient *http.Client) *Client {
	timeout := defaultTimeout
	if cfg != nil && cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{backends: make(map[string]*backend), timeout: timeout}
	if cfg == nil {
		return c
	}

	for name, pc := range map[string]config.OpenAIConfig{
		ProviderOpenAI:     cfg.OpenAI,
		ProviderPerplexity: cfg.Perplexity,
		ProviderGemini:     cfg.Gemini,
	} {
		if strings.TrimSpace(pc.APIKey) == "" {
			continue
		}
		c.backends[name] = newBackend(name, pc, httpClient)
	}
	return c
}

func newBackend(name string, cfg config.OpenAIConfig, httpClient *http.Client) *backend {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retries are the caller's policy.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		baseURL := cfg.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &backend{
		provider: name,
		model:    model,
		api:      oai.NewClient(opts...),
		limiter:  newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst),
	}
}

// Close stops every backend's rate limiter.
func (c *Client) Close() error {
	for _, b := range c.backends {
		if b.limiter != nil {
			b.limiter.Stop()
		}
	}
	return nil
}

// HasCredential reports whether the engine's provider has an API key.
func (c *Client) HasCredential(engine entities.EngineID) bool {
	_, ok := c.backendFor(engine)
	return ok
}

// GenerateText returns the first choice's message content.
func (c *Client) GenerateText(ctx context.Context, engine entities.EngineID, req providers.GenerateRequest) (string, error) {
	b, ok := c.backendFor(engine)
	if !ok {
		return "", fmt.Errorf("no credential configured for engine %s", engine)
	}
	return c.complete(ctx, engine, b, req, nil)
}

// GenerateObject requests a response constrained to schema and returns the raw JSON.
func (c *Client) GenerateObject(ctx context.Context, engine entities.EngineID, req providers.GenerateRequest, schema providers.ObjectSchema) ([]byte, error) {
	b, ok := c.backendFor(engine)
	if !ok {
		return nil, fmt.Errorf("no credential configured for engine %s", engine)
	}
	if schema.Name == "" || schema.Schema == nil {
		return nil, errors.New("object schema requires a name and a schema")
	}

	req.System = withJSONInstruction(req.System)
	text, err := c.complete(ctx, engine, b, req, &schema)
	if err != nil {
		return nil, err
	}

	cleaned := stripCodeFence(text)
	if cleaned == "" {
		return nil, fmt.Errorf("%s returned an empty object", b.provider)
	}
	return []byte(cleaned), nil
}

func (c *Client) backendFor(engine entities.EngineID) (*backend, bool) {
	name, ok := engineProviders[engine]
	if !ok {
		return nil, false
	}
	b, ok := c.backends[name]
	return b, ok
}

func (c *Client) complete(ctx context.Context, engine entities.EngineID, b *backend, req providers.GenerateRequest, schema *providers.ObjectSchema) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", errors.New("prompt is required")
	}

	if b.limiter != nil {
		waitStart := time.Now()
		if err := b.limiter.Wait(ctx); err != nil {
			recordEngineMetric(ctx, engine, b, 0, 0, err)
			return "", err
		}
		recordRateLimitWait(ctx, engine, b, time.Since(waitStart))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]oai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, oai.SystemMessage(req.System))
	}
	messages = append(messages, oai.UserMessage(req.Prompt))

	params := oai.ChatCompletionNewParams{
		Messages: messages,
		Model:    oai.ChatModel(b.model),
	}
	if req.Temperature > 0 {
		params.Temperature = oai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = oai.Int(int64(req.MaxTokens))
	}
	if schema != nil {
		params.ResponseFormat = oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &oai.ResponseFormatJSONSchemaParam{
				JSONSchema: oai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        schema.Name,
					Description: oai.String(schema.Description),
					Schema:      schema.Schema,
					Strict:      oai.Bool(true),
				},
			},
		}
	}

	start := time.Now()
	resp, err := b.api.Chat.Completions.New(ctx, params)
	if err != nil {
		status := 0
		var apiErr *oai.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		recordEngineMetric(ctx, engine, b, status, time.Since(start), err)
		if status > 0 {
			return "", fmt.Errorf("%s request failed with status %d: %w", b.provider, status, err)
		}
		return "", fmt.Errorf("%s request failed: %w", b.provider, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		err := fmt.Errorf("%s response missing message content", b.provider)
		recordEngineMetric(ctx, engine, b, http.StatusOK, time.Since(start), err)
		return "", err
	}

	recordEngineMetric(ctx, engine, b, http.StatusOK, time.Since(start), nil)
	return resp.Choices[0].Message.Content, nil
}

func newTokenBucket(rpm int, burst int) *tokenBucket {
	if rpm == 0 {
		rpm = 60
	}
	if rpm < 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}
	return newTokenBucketWithRate(rpm, burst)
}

type tokenBucket struct {
	tokens chan struct{}
	stop   chan struct{}
	once   sync.Once
}

func newTokenBucketWithRate(rpm int, burst int) *tokenBucket {
	bucket := &tokenBucket{
		tokens: make(chan struct{}, burst),
		stop:   make(chan struct{}),
	}

	for i := 0; i < burst; i++ {
		bucket.tokens <- struct{}{}
	}

	interval := time.Minute / time.Duration(rpm)
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-bucket.stop:
				return
			case <-ticker.C:
				select {
				case bucket.tokens <- struct{}{}:
				default:
				}
			}
		}
	}()

	return bucket
}

// Stop ends the refill goroutine. Safe to call more than once.
func (b *tokenBucket) Stop() {
	b.once.Do(func() { close(b.stop) })
}

func (b *tokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.tokens:
		return nil
	}
}

type engineMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

var (
	engineMetricsOnce sync.Once
	engineMetricsOK   bool
	aiMetrics         engineMetrics
)

func ensureEngineMetrics() bool {
	engineMetricsOnce.Do(func() {
		meter := otel.Meter("github.com/zatekoja/visibilityscore/engines")

		requestCount, err := meter.Int64Counter(
			"ai.engine.request.count",
			metric.WithDescription("Number of AI engine requests"),
		)
		if err != nil {
			return
		}
		requestDuration, err := meter.Float64Histogram(
			"ai.engine.request.duration",
			metric.WithDescription("AI engine request duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}
		requestErrors, err := meter.Int64Counter(
			"ai.engine.request.errors",
			metric.WithDescription("Number of AI engine request errors"),
		)
		if err != nil {
			return
		}
		rateLimitWait, err := meter.Float64Histogram(
			"ai.engine.rate_limit.wait",
			metric.WithDescription("Time spent waiting for the engine rate limiter in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}

		aiMetrics = engineMetrics{
			requestCount:    requestCount,
			requestDuration: requestDuration,
			requestErrors:   requestErrors,
			rateLimitWait:   rateLimitWait,
		}
		engineMetricsOK = true
	})
	return engineMetricsOK
}

func metricAttrs(engine entities.EngineID, b *backend) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("ai.engine", string(engine)),
		attribute.String("ai.provider", b.provider),
		attribute.String("ai.model", b.model),
	}
}

func recordEngineMetric(ctx context.Context, engine entities.EngineID, b *backend, statusCode int, duration time.Duration, err error) {
	if !ensureEngineMetrics() {
		return
	}

	attrs := metricAttrs(engine, b)
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	aiMetrics.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	aiMetrics.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		aiMetrics.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func recordRateLimitWait(ctx context.Context, engine entities.EngineID, b *backend, wait time.Duration) {
	if !ensureEngineMetrics() {
		return
	}
	aiMetrics.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(metricAttrs(engine, b)...))
}
