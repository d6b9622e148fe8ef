package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crediscan/crediscan/internal/cache"
	"github.com/crediscan/crediscan/internal/config"
	"github.com/crediscan/crediscan/internal/faults"
	"github.com/crediscan/crediscan/internal/llm"
	"github.com/crediscan/crediscan/internal/search"
	"github.com/crediscan/crediscan/internal/types"
)

type stubSearch struct{ err error }

func (s *stubSearch) Search(ctx context.Context, _ string) ([]search.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, s.err
}

// stubLLM answers analysis prompts with minimal valid section JSON and
// everything else with an empty list. Normalization prompts echo the raw
// answer back unchanged.
type stubLLM struct{ err error }

func (s *stubLLM) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return s.GenerateJSON(ctx, prompt, tier)
}

func (s *stubLLM) GenerateJSON(ctx context.Context, prompt string, _ llm.ModelTier) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.err != nil {
		return "", s.err
	}
	if _, answer, found := strings.Cut(prompt, "Answer:\n"); found {
		return answer, nil
	}
	switch {
	case strings.Contains(prompt, "business and history"):
		return `{"background": "A company."}`, nil
	case strings.Contains(prompt, "founders with their"):
		return `{"founders": []}`, nil
	case strings.Contains(prompt, "funding rounds in"):
		return `{"funding": []}`, nil
	case strings.Contains(prompt, "legal disputes"):
		return `{"legal_issues": []}`, nil
	case strings.Contains(prompt, "security posture"):
		return `{"security": {"summary": "No known incidents."}}`, nil
	case strings.Contains(prompt, "employee reviews"):
		return `{"reviews": []}`, nil
	}
	return `[]`, nil
}

func (s *stubLLM) Close() error { return nil }

type stubAggregator struct {
	answer string
	err    error
	calls  int
}

func (s *stubAggregator) Query(ctx context.Context, _, _ string) (string, error) {
	s.calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.answer, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		SearchAPIKey:    "search-key",
		LLMAPIKey:       "llm-key",
		AggregateTokens: []string{"t1"},
		AggregateAPIURL: "https://agg.example/v1/chat",
		CacheBackend:    config.BackendMemory,
		RequestDeadline: time.Minute,
		CallDeadline:    5 * time.Second,
		MaxAttempts:     2,
	}
}

func newTestPipeline(t *testing.T, cfg *config.Config, searchErr error, agg *stubAggregator) *Pipeline {
	t.Helper()
	p, err := New(context.Background(), Options{
		Config:     cfg,
		Store:      cache.NewMemoryStore(),
		Search:     &stubSearch{err: searchErr},
		LLM:        &stubLLM{},
		Aggregator: agg,
	})
	require.NoError(t, err)
	return p
}

func acme() types.CompanyID {
	return types.CompanyID{Name: "Acme Labs", Domain: "acme.example"}
}

func TestRun_ProducesReportAndSummary(t *testing.T) {
	agg := &stubAggregator{answer: `{"founders": [{"name": "Jan Doe"}]}`}
	p := newTestPipeline(t, testConfig(), errors.New("search down"), agg)

	report, summary, err := p.Run(context.Background(), acme(), false)
	require.NoError(t, err)
	require.NotNil(t, report)
	require.NotNil(t, summary)

	assert.Equal(t, "A company.", report.Background)
	// aggregator filled what analysis left empty
	require.Len(t, report.Founders, 1)
	assert.Equal(t, "Jan Doe", report.Founders[0].Name)

	require.Len(t, summary.Stages, 3)
	assert.Equal(t, types.StageDiscovery, summary.Stages[0].Stage)
	assert.Equal(t, types.StageAnalysis, summary.Stages[1].Stage)
	assert.Equal(t, types.StageAggregation, summary.Stages[2].Stage)
	assert.Equal(t, p.RunID(), summary.RunID)

	// search was down, so discovery degraded rather than failed
	assert.Equal(t, types.OutcomeDegraded, summary.Stages[0].Outcome)
	assert.False(t, summary.Clean())
}

func TestRun_SecondRunServesFromCache(t *testing.T) {
	agg := &stubAggregator{answer: `{}`}
	p := newTestPipeline(t, testConfig(), nil, agg)

	_, _, err := p.Run(context.Background(), acme(), false)
	require.NoError(t, err)

	_, summary, err := p.Run(context.Background(), acme(), false)
	require.NoError(t, err)
	for _, st := range summary.Stages {
		assert.Equal(t, types.OutcomeCached, st.Outcome, "stage %s", st.Stage)
	}
}

func TestRun_ExpiredDeadlineSurfacesPartialResults(t *testing.T) {
	cfg := testConfig()
	cfg.RequestDeadline = time.Nanosecond

	// a previous run left discovery results behind; the expired run must
	// still surface them instead of erroring out
	store := cache.NewMemoryStore()
	postings := []types.JobPosting{{Title: "ML Engineer", Classification: types.ClassAIRelevant}}
	payload, err := json.Marshal(postings)
	require.NoError(t, err)
	fp := cache.Fingerprint(acme(), cache.KindDiscovery)
	require.NoError(t, store.Put(context.Background(), fp, cache.KindDiscovery, payload))

	agg := &stubAggregator{answer: `{}`}
	p, err := New(context.Background(), Options{
		Config:     cfg,
		Store:      store,
		Search:     &stubSearch{},
		LLM:        &stubLLM{},
		Aggregator: agg,
	})
	require.NoError(t, err)

	report, summary, err := p.Run(context.Background(), acme(), false)
	require.NoError(t, err, "deadline expiry is recorded per stage, not returned")
	require.NotNil(t, report)
	require.NotNil(t, summary)

	require.Len(t, report.OpenPositions, 1)
	assert.Equal(t, "ML Engineer", report.OpenPositions[0].Title)

	require.Len(t, summary.Stages, 3)
	assert.Equal(t, types.OutcomeCached, summary.Stages[0].Outcome)
	assert.Equal(t, types.OutcomeFailed, summary.Stages[1].Outcome, "every section call hit the expired deadline")
	assert.Equal(t, types.OutcomeDegraded, summary.Stages[2].Outcome)
	assert.False(t, summary.Clean())
}

func TestRun_MissingAggregationSkipsStage(t *testing.T) {
	cfg := testConfig()
	cfg.AggregateTokens = nil
	p := newTestPipeline(t, cfg, nil, nil)

	report, summary, err := p.Run(context.Background(), acme(), false)
	require.NoError(t, err)
	require.NotNil(t, report)
	require.Len(t, summary.Stages, 3)
	assert.Equal(t, types.OutcomeSkipped, summary.Stages[2].Outcome)
}

func TestRunDiscovery_MissingSearchKeyIsConfigurationFault(t *testing.T) {
	cfg := testConfig()
	cfg.SearchAPIKey = ""
	p := newTestPipeline(t, cfg, nil, nil)

	_, err := p.RunDiscovery(context.Background(), acme(), false)
	require.Error(t, err)
	assert.True(t, faults.IsConfiguration(err))
}

func TestRunAnalysis_MissingLLMKeyIsConfigurationFault(t *testing.T) {
	cfg := testConfig()
	cfg.LLMAPIKey = ""
	p := newTestPipeline(t, cfg, nil, nil)

	_, err := p.RunAnalysis(context.Background(), acme(), nil, false)
	require.Error(t, err)
	assert.True(t, faults.IsConfiguration(err))
}

func TestRun_ZeroCompanyFails(t *testing.T) {
	p := newTestPipeline(t, testConfig(), nil, nil)
	_, _, err := p.Run(context.Background(), types.CompanyID{}, false)
	require.Error(t, err)
	assert.True(t, faults.IsConfiguration(err))
}

func TestRun_EmitsProgressEvents(t *testing.T) {
	var (
		mu     sync.Mutex
		events []ProgressEvent
	)
	p, err := New(context.Background(), Options{
		Config:     testConfig(),
		Store:      cache.NewMemoryStore(),
		Search:     &stubSearch{},
		LLM:        &stubLLM{},
		Aggregator: &stubAggregator{answer: `{}`},
		OnProgress: func(e ProgressEvent) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	_, _, err = p.Run(context.Background(), acme(), false)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	for _, e := range events {
		assert.Equal(t, p.RunID(), e.RunID)
	}
}
