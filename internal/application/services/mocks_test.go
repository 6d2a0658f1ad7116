package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/visibilityscore/internal/domain/entities"
	"github.com/zatekoja/visibilityscore/internal/domain/providers"
)

// Mocks

type MockTextGenerationProvider struct {
	mock.Mock
}

func (m *MockTextGenerationProvider) HasCredential(engine entities.EngineID) bool {
	args := m.Called(engine)
	return args.Bool(0)
}

func (m *MockTextGenerationProvider) GenerateText(ctx context.Context, engine entities.EngineID, req providers.GenerateRequest) (string, error) {
	args := m.Called(ctx, engine, req)
	return args.String(0), args.Error(1)
}

func (m *MockTextGenerationProvider) GenerateObject(ctx context.Context, engine entities.EngineID, req providers.GenerateRequest, schema providers.ObjectSchema) ([]byte, error) {
	args := m.Called(ctx, engine, req, schema)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockClaimRepository struct {
	mock.Mock
}

func (m *MockClaimRepository) ListDueForVerification(ctx context.Context, cutoff time.Time, limit int) ([]*entities.HallucinationClaim, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.HallucinationClaim), args.Error(1)
}

func (m *MockClaimRepository) MarkChecked(ctx context.Context, id string, checkedAt time.Time) error {
	args := m.Called(ctx, id, checkedAt)
	return args.Error(0)
}

func (m *MockClaimRepository) SaveTransition(ctx context.Context, claim *entities.HallucinationClaim) error {
	args := m.Called(ctx, claim)
	return args.Error(0)
}

type MockAnswerFirstScorer struct {
	mock.Mock
}

func (m *MockAnswerFirstScorer) Score(ctx context.Context, opening string, business entities.BusinessContext) (int, error) {
	args := m.Called(ctx, opening, business)
	return args.Int(0), args.Error(1)
}

type MockEngineAsker struct {
	mock.Mock
}

func (m *MockEngineAsker) Ask(ctx context.Context, engine entities.EngineID, query string) (*EngineAnswer, error) {
	args := m.Called(ctx, engine, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*EngineAnswer), args.Error(1)
}

// Fakes

type stubFetcher struct {
	body  string
	err   error
	calls int
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (*providers.FetchedPage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &providers.FetchedPage{URL: url, StatusCode: 200, ContentType: "text/html", Body: []byte(f.body)}, nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

var testNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func charcoalNChill() entities.BusinessContext {
	return entities.BusinessContext{
		Name:       "Charcoal N Chill",
		City:       "Alpharetta",
		State:      "GA",
		Categories: []string{"hookah bar", "lounge"},
		Amenities:  map[string]bool{"serves_alcohol": true, "outdoor_seating": true},
		Website:    "https://www.charcoalnchill.com",
	}
}
