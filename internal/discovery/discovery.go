package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crediscan/crediscan/internal/cache"
	"github.com/crediscan/crediscan/internal/faults"
	"github.com/crediscan/crediscan/internal/fetch"
	"github.com/crediscan/crediscan/internal/llm"
	"github.com/crediscan/crediscan/internal/prompts"
	"github.com/crediscan/crediscan/internal/search"
	"github.com/crediscan/crediscan/internal/types"
)

const (
	// maxCandidatePages bounds how many search hits are fetched per company.
	maxCandidatePages = 3
	// maxPageText truncates page text before it goes into a prompt.
	maxPageText = 20000
	// classifyConcurrency bounds parallel LLM confirmation calls.
	classifyConcurrency = 4
)

// Stage runs job discovery for one company.
type Stage struct {
	store  cache.Store
	search search.Client
	llm    llm.Client
	fetch  *fetch.Options
	logger *zap.Logger
}

// New builds a discovery stage. A nil fetchOpts falls back to defaults.
func New(store cache.Store, searchClient search.Client, llmClient llm.Client, fetchOpts *fetch.Options, logger *zap.Logger) *Stage {
	if fetchOpts == nil {
		fetchOpts = fetch.DefaultOptions()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stage{
		store:  store,
		search: searchClient,
		llm:    llmClient,
		fetch:  fetchOpts,
		logger: logger,
	}
}

// Result is the discovery stage outcome. Degraded lists the units that fell
// back (a failed search, an unreachable page, a posting the model could not
// classify) without failing the stage.
type Result struct {
	Postings  []types.JobPosting
	FromCache bool
	Degraded  []string
}

// Run discovers and classifies job postings for the company. Cached results
// are returned as-is unless forceRefresh is set; a refreshed run always
// rewrites the cache entry, and a failed cache write is logged but never
// fails the stage.
func (s *Stage) Run(ctx context.Context, id types.CompanyID, forceRefresh bool) (*Result, error) {
	if id.IsZero() {
		return nil, faults.Configuration("discovery.run", "company name or domain required")
	}

	fp := cache.Fingerprint(id, cache.KindDiscovery)
	log := s.logger.With(zap.String("company", id.String()), zap.String("fingerprint", fp))

	if !forceRefresh {
		if cached, ok := s.readCache(ctx, fp, log); ok {
			return &Result{Postings: cached, FromCache: true}, nil
		}
	}

	res := &Result{Postings: []types.JobPosting{}}

	pages := s.findJobPages(ctx, id, res, log)
	for _, pageURL := range pages {
		titles, err := s.extractTitles(ctx, id, pageURL)
		if err != nil {
			log.Warn("job page skipped", zap.String("url", pageURL), zap.Error(err))
			res.Degraded = append(res.Degraded, "page:"+pageURL)
			continue
		}
		for _, title := range titles {
			res.Postings = append(res.Postings, types.JobPosting{
				Title:     title,
				SourceURL: pageURL,
			})
		}
	}

	res.Postings = dedupePostings(res.Postings)
	s.classifyAll(ctx, res, log)

	s.writeCache(ctx, fp, res.Postings, log)
	return res, nil
}

// findJobPages searches for candidate careers/job-board pages. Every query
// failing degrades to an empty page list rather than an error.
func (s *Stage) findJobPages(ctx context.Context, id types.CompanyID, res *Result, log *zap.Logger) []string {
	var (
		pages []string
		seen  = map[string]struct{}{}
		anyOK bool
	)
	for _, query := range search.JobPageQueries(id.Name, id.Domain) {
		hits, err := s.search.Search(ctx, query)
		if err != nil {
			log.Warn("search query failed", zap.String("query", query), zap.Error(err))
			continue
		}
		anyOK = true
		for _, hit := range hits {
			if _, dup := seen[hit.URL]; dup {
				continue
			}
			seen[hit.URL] = struct{}{}
			pages = append(pages, hit.URL)
			if len(pages) >= maxCandidatePages {
				return pages
			}
		}
	}
	if !anyOK {
		res.Degraded = append(res.Degraded, "search")
	}
	return pages
}

// extractTitles fetches a page and asks the model for the open position
// titles stated on it.
func (s *Stage) extractTitles(ctx context.Context, id types.CompanyID, pageURL string) ([]string, error) {
	page, err := fetch.URL(ctx, pageURL, s.fetch)
	if err != nil {
		return nil, err
	}
	text := page.Text
	if s.fetch.UseBrowser && fetch.ShouldUseBrowser(text) {
		if html, rerr := fetch.WithBrowser(ctx, pageURL, s.fetch.Timeout); rerr == nil {
			if extracted, xerr := fetch.ExtractMainText(html, fetch.JobPageSelectors()); xerr == nil {
				text = extracted
			}
		}
	}
	if len(text) > maxPageText {
		text = text[:maxPageText]
	}

	prompt := prompts.Format(prompts.MustGet("discovery.json", "extract-postings"), map[string]string{
		"Company":  id.Name,
		"PageText": text,
	})
	raw, err := s.llm.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return nil, err
	}

	var titles []string
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &titles); err != nil {
		return nil, faults.Permanent("discovery.extract", "model returned unparseable posting list", err)
	}

	out := titles[:0]
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

// classifyAll assigns a classification to every posting. Definitive keyword
// matches never touch the model; ambiguous titles fan out to bounded
// concurrent LLM calls, and any call failure defaults that posting to
// neither.
func (s *Stage) classifyAll(ctx context.Context, res *Result, log *zap.Logger) {
	var ambiguous []int
	for i := range res.Postings {
		class, definitive := KeywordClassify(res.Postings[i].Title)
		res.Postings[i].Classification = class
		if !definitive {
			ambiguous = append(ambiguous, i)
		}
	}
	if len(ambiguous) == 0 || s.llm == nil {
		return
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(classifyConcurrency)
	for _, idx := range ambiguous {
		g.Go(func() error {
			class, err := ConfirmClassification(gctx, s.llm, res.Postings[idx].Title)
			if err != nil {
				log.Warn("classification fell back",
					zap.String("title", res.Postings[idx].Title), zap.Error(err))
				mu.Lock()
				res.Degraded = append(res.Degraded, "classify:"+res.Postings[idx].Title)
				mu.Unlock()
				return nil
			}
			res.Postings[idx].Classification = class
			return nil
		})
	}
	g.Wait()
}

func (s *Stage) readCache(ctx context.Context, fp string, log *zap.Logger) ([]types.JobPosting, bool) {
	entry, err := s.store.Get(ctx, fp, cache.KindDiscovery)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			log.Warn("cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var postings []types.JobPosting
	if err := json.Unmarshal(entry.Payload, &postings); err != nil {
		log.Warn("cache entry unreadable", zap.Error(err))
		return nil, false
	}
	return postings, true
}

func (s *Stage) writeCache(ctx context.Context, fp string, postings []types.JobPosting, log *zap.Logger) {
	payload, err := json.Marshal(postings)
	if err != nil {
		log.Warn("cache write skipped", zap.Error(err))
		return
	}
	if err := s.store.Put(ctx, fp, cache.KindDiscovery, payload); err != nil {
		f := faults.CacheWrite("discovery.cache", err)
		log.Warn("cache write failed", zap.Error(f))
	}
}

// dedupePostings drops repeated titles from the same source page, keeping
// first occurrence order.
func dedupePostings(postings []types.JobPosting) []types.JobPosting {
	seen := map[string]struct{}{}
	out := postings[:0]
	for _, p := range postings {
		key := strings.ToLower(p.Title) + "\x00" + p.SourceURL
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}
