package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crediscan/crediscan/internal/cache"
	"github.com/crediscan/crediscan/internal/llm"
	"github.com/crediscan/crediscan/internal/search"
	"github.com/crediscan/crediscan/internal/types"
)

type stubSearch struct {
	results map[string][]search.Result
	err     error
	calls   int
}

func (s *stubSearch) Search(_ context.Context, query string) ([]search.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	for prefix, hits := range s.results {
		if strings.HasPrefix(query, prefix) {
			return hits, nil
		}
	}
	return nil, nil
}

// stubLLM answers extraction prompts with extractJSON and classification
// prompts with classifyJSON, keyed on prompt content.
type stubLLM struct {
	extractJSON  string
	classifyJSON string
	classifyErr  error
	calls        []string
}

func (s *stubLLM) GenerateContent(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	return s.GenerateJSON(context.Background(), prompt, llm.TierLite)
}

func (s *stubLLM) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	s.calls = append(s.calls, prompt)
	if strings.Contains(prompt, "extracting job openings") {
		return s.extractJSON, nil
	}
	if s.classifyErr != nil {
		return "", s.classifyErr
	}
	return s.classifyJSON, nil
}

func (s *stubLLM) Close() error { return nil }

func acme() types.CompanyID {
	return types.CompanyID{Name: "Acme Labs", Domain: "acme.example"}
}

func TestKeywordClassify(t *testing.T) {
	tests := []struct {
		title      string
		want       types.Classification
		definitive bool
	}{
		{"Senior Machine Learning Engineer", types.ClassAIRelevant, true},
		{"Computer Vision Researcher", types.ClassAIRelevant, true},
		{"Solidity Developer", types.ClassWeb3Relevant, true},
		{"Smart Contract Auditor", types.ClassWeb3Relevant, true},
		{"Office Manager", types.ClassNeither, true},
		{"Account Executive", types.ClassNeither, true},
		// matches both lists
		{"ML Engineer, DeFi Risk Models", types.ClassNeither, false},
		// weak signal only
		{"Research Scientist", types.ClassNeither, false},
		{"Quant Researcher", types.ClassNeither, false},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got, definitive := KeywordClassify(tt.title)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.definitive, definitive)
		})
	}
}

func TestRun_ReturnsCachedPostings(t *testing.T) {
	store := cache.NewMemoryStore()
	cached := []types.JobPosting{
		{Title: "ML Engineer", Classification: types.ClassAIRelevant},
		{Title: "Office Manager", Classification: types.ClassNeither},
	}
	payload, err := json.Marshal(cached)
	require.NoError(t, err)
	fp := cache.Fingerprint(acme(), cache.KindDiscovery)
	require.NoError(t, store.Put(context.Background(), fp, cache.KindDiscovery, payload))

	searcher := &stubSearch{}
	stage := New(store, searcher, &stubLLM{}, nil, nil)

	res, err := stage.Run(context.Background(), acme(), false)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, cached, res.Postings)
	assert.Zero(t, searcher.calls, "cache hit must not trigger search")
}

func TestRun_SearchFailureDegradesToEmpty(t *testing.T) {
	store := cache.NewMemoryStore()
	searcher := &stubSearch{err: errors.New("search unavailable")}
	stage := New(store, searcher, &stubLLM{}, nil, nil)

	res, err := stage.Run(context.Background(), acme(), false)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Empty(t, res.Postings)
	assert.Contains(t, res.Degraded, "search")

	// the degraded result is still cached
	fp := cache.Fingerprint(acme(), cache.KindDiscovery)
	entry, err := store.Get(context.Background(), fp, cache.KindDiscovery)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(entry.Payload))
}

func TestRun_ExtractsAndClassifies(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body><main>` + strings.Repeat("Open roles at Acme Labs. ", 40) +
			`Machine Learning Engineer. Office Manager. Research Scientist.</main></body></html>`))
	}))
	defer page.Close()

	store := cache.NewMemoryStore()
	searcher := &stubSearch{results: map[string][]search.Result{
		"": {{Title: "Careers", URL: page.URL}},
	}}
	model := &stubLLM{
		extractJSON:  `["Machine Learning Engineer", "Office Manager", "Research Scientist"]`,
		classifyJSON: `[{"title": "Research Scientist", "classification": "ai"}]`,
	}
	stage := New(store, searcher, model, nil, nil)

	res, err := stage.Run(context.Background(), acme(), false)
	require.NoError(t, err)
	require.Len(t, res.Postings, 3)

	byTitle := map[string]types.Classification{}
	for _, p := range res.Postings {
		byTitle[p.Title] = p.Classification
		assert.Equal(t, page.URL, p.SourceURL)
	}
	assert.Equal(t, types.ClassAIRelevant, byTitle["Machine Learning Engineer"])
	assert.Equal(t, types.ClassNeither, byTitle["Office Manager"])
	// ambiguous title resolved by the model
	assert.Equal(t, types.ClassAIRelevant, byTitle["Research Scientist"])

	fp := cache.Fingerprint(acme(), cache.KindDiscovery)
	_, err = store.Get(context.Background(), fp, cache.KindDiscovery)
	assert.NoError(t, err)
}

func TestRun_ClassificationFailureDefaultsToNeither(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body><main>` + strings.Repeat("Roles. ", 100) + `</main></body></html>`))
	}))
	defer page.Close()

	store := cache.NewMemoryStore()
	searcher := &stubSearch{results: map[string][]search.Result{
		"": {{Title: "Careers", URL: page.URL}},
	}}
	model := &stubLLM{
		extractJSON: `["Research Scientist"]`,
		classifyErr: errors.New("model unavailable"),
	}
	stage := New(store, searcher, model, nil, nil)

	res, err := stage.Run(context.Background(), acme(), false)
	require.NoError(t, err)
	require.Len(t, res.Postings, 1)
	assert.Equal(t, types.ClassNeither, res.Postings[0].Classification)
	assert.Contains(t, res.Degraded, "classify:Research Scientist")
}

func TestRun_ForceRefreshBypassesRead(t *testing.T) {
	store := cache.NewMemoryStore()
	fp := cache.Fingerprint(acme(), cache.KindDiscovery)
	stale, _ := json.Marshal([]types.JobPosting{{Title: "Stale Role"}})
	require.NoError(t, store.Put(context.Background(), fp, cache.KindDiscovery, stale))

	searcher := &stubSearch{err: errors.New("search unavailable")}
	stage := New(store, searcher, &stubLLM{}, nil, nil)

	res, err := stage.Run(context.Background(), acme(), true)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Empty(t, res.Postings)
	assert.Positive(t, searcher.calls)

	// the stale entry was overwritten
	entry, err := store.Get(context.Background(), fp, cache.KindDiscovery)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(entry.Payload))
}

func TestRun_ZeroCompanyIsConfigurationFault(t *testing.T) {
	stage := New(cache.NewMemoryStore(), &stubSearch{}, &stubLLM{}, nil, nil)
	_, err := stage.Run(context.Background(), types.CompanyID{}, false)
	require.Error(t, err)
}

func TestDedupePostings(t *testing.T) {
	in := []types.JobPosting{
		{Title: "ML Engineer", SourceURL: "https://a.example"},
		{Title: "ml engineer", SourceURL: "https://a.example"},
		{Title: "ML Engineer", SourceURL: "https://b.example"},
	}
	out := dedupePostings(in)
	assert.Len(t, out, 2)
}
