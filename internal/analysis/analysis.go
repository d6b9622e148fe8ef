// Package analysis implements the company analysis stage: six report
// sections produced concurrently from web search context and model calls,
// with per-section failure containment.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crediscan/crediscan/internal/cache"
	"github.com/crediscan/crediscan/internal/faults"
	"github.com/crediscan/crediscan/internal/llm"
	"github.com/crediscan/crediscan/internal/prompts"
	"github.com/crediscan/crediscan/internal/schemas"
	"github.com/crediscan/crediscan/internal/search"
	"github.com/crediscan/crediscan/internal/types"
)

const (
	// sectionConcurrency bounds parallel section production.
	sectionConcurrency = 3
	// maxSnippets caps search context per section prompt.
	maxSnippets = 5
)

// Stage runs company analysis for one company.
type Stage struct {
	store  cache.Store
	search search.Client
	llm    llm.Client
	logger *zap.Logger
}

// New builds an analysis stage.
func New(store cache.Store, searchClient search.Client, llmClient llm.Client, logger *zap.Logger) *Stage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stage{store: store, search: searchClient, llm: llmClient, logger: logger}
}

// Result is the analysis stage outcome. Degraded lists sections that were
// marked unavailable.
type Result struct {
	Report    *types.CompanyReport
	FromCache bool
	Degraded  []string
}

// Run produces the section report for the company. Discovered postings feed
// the section prompts as additional context but are never copied into the
// report; discovery owns them. Sections are produced concurrently and
// assembled in fixed order; any section failure marks that section
// unavailable and the rest of the report stands. Cached results are returned
// as-is unless forceRefresh is set.
func (s *Stage) Run(ctx context.Context, id types.CompanyID, postings []types.JobPosting, forceRefresh bool) (*Result, error) {
	if id.IsZero() {
		return nil, faults.Configuration("analysis.run", "company name or domain required")
	}

	fp := cache.Fingerprint(id, cache.KindAnalysis)
	log := s.logger.With(zap.String("company", id.String()), zap.String("fingerprint", fp))

	if !forceRefresh {
		if cached, ok := s.readCache(ctx, fp, log); ok {
			return &Result{Report: cached, FromCache: true}, nil
		}
	}

	report := &types.CompanyReport{Company: id}
	sections := types.ReportSections()
	applies := make([]func(*types.CompanyReport), len(sections))

	postingContext := formatPostings(postings)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sectionConcurrency)
	for i, sec := range sections {
		g.Go(func() error {
			apply, err := s.produceSection(gctx, id, sec, postingContext)
			if err != nil {
				log.Warn("section unavailable", zap.String("section", string(sec)), zap.Error(err))
				return nil
			}
			applies[i] = apply
			return nil
		})
	}
	g.Wait()

	res := &Result{Report: report}
	for i, sec := range sections {
		if applies[i] == nil {
			report.MarkSection(sec, types.StatusUnavailable)
			res.Degraded = append(res.Degraded, string(sec))
			continue
		}
		applies[i](report)
		report.MarkSection(sec, types.StatusOK)
	}

	s.writeCache(ctx, fp, report, log)
	return res, nil
}

// produceSection gathers search context for one section, runs the model and
// returns a closure applying the decoded content to a report. The closure
// indirection keeps all report writes on the assembly goroutine.
func (s *Stage) produceSection(ctx context.Context, id types.CompanyID, sec types.Section, postingContext string) (func(*types.CompanyReport), error) {
	snippets := s.gatherSnippets(ctx, id, sec) + postingContext
	prompt := prompts.Format(prompts.MustGet("analysis.json", string(sec)), map[string]string{
		"Company":  id.Name,
		"Snippets": snippets,
	})

	switch sec {
	case types.SectionBackground:
		var out struct {
			Background string `json:"background"`
		}
		if err := llm.GenerateStruct(ctx, s.llm, prompt, llm.TierStandard, schemas.Background, &out); err != nil {
			return nil, err
		}
		return func(r *types.CompanyReport) { r.Background = out.Background }, nil

	case types.SectionFounders:
		var out struct {
			Founders []types.Founder `json:"founders"`
		}
		if err := llm.GenerateStruct(ctx, s.llm, prompt, llm.TierStandard, schemas.Founders, &out); err != nil {
			return nil, err
		}
		return func(r *types.CompanyReport) { r.Founders = out.Founders }, nil

	case types.SectionFunding:
		var out struct {
			Funding []types.FundingRound `json:"funding"`
		}
		if err := llm.GenerateStruct(ctx, s.llm, prompt, llm.TierStandard, schemas.Funding, &out); err != nil {
			return nil, err
		}
		return func(r *types.CompanyReport) { r.Funding = out.Funding }, nil

	case types.SectionLegal:
		var out struct {
			LegalIssues []types.LegalIssue `json:"legal_issues"`
		}
		if err := llm.GenerateStruct(ctx, s.llm, prompt, llm.TierStandard, schemas.Legal, &out); err != nil {
			return nil, err
		}
		return func(r *types.CompanyReport) { r.LegalIssues = out.LegalIssues }, nil

	case types.SectionSecurity:
		var out struct {
			Security *types.SecurityAssessment `json:"security"`
		}
		if err := llm.GenerateStruct(ctx, s.llm, prompt, llm.TierStandard, schemas.Security, &out); err != nil {
			return nil, err
		}
		return func(r *types.CompanyReport) { r.Security = out.Security }, nil

	case types.SectionReviews:
		var out struct {
			Reviews []types.Review `json:"reviews"`
		}
		if err := llm.GenerateStruct(ctx, s.llm, prompt, llm.TierStandard, schemas.Reviews, &out); err != nil {
			return nil, err
		}
		return func(r *types.CompanyReport) { r.Reviews = out.Reviews }, nil
	}
	return nil, fmt.Errorf("unknown section %q", sec)
}

// sectionQueries maps each section to its search query suffix.
var sectionQueries = map[types.Section]string{
	types.SectionBackground: "company overview history",
	types.SectionFounders:   "founders leadership team",
	types.SectionFunding:    "funding rounds investors",
	types.SectionLegal:      "lawsuit legal dispute regulatory action",
	types.SectionSecurity:   "security breach data incident",
	types.SectionReviews:    "employee reviews ratings",
}

// gatherSnippets fetches search context for one section. A failed search
// degrades to an empty context block so the model still runs on its own
// knowledge.
func (s *Stage) gatherSnippets(ctx context.Context, id types.CompanyID, sec types.Section) string {
	if s.search == nil {
		return ""
	}
	query := fmt.Sprintf("%q %s", id.Name, sectionQueries[sec])
	hits, err := s.search.Search(ctx, query)
	if err != nil {
		s.logger.Warn("section search failed",
			zap.String("section", string(sec)), zap.Error(err))
		return ""
	}
	if len(hits) > maxSnippets {
		hits = hits[:maxSnippets]
	}
	var b strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", h.Title, h.Snippet, h.URL)
	}
	return b.String()
}

// formatPostings renders discovered postings as extra prompt context lines.
func formatPostings(postings []types.JobPosting) string {
	if len(postings) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range postings {
		fmt.Fprintf(&b, "- open position: %s (%s)\n", p.Title, p.SourceURL)
	}
	return b.String()
}

func (s *Stage) readCache(ctx context.Context, fp string, log *zap.Logger) (*types.CompanyReport, bool) {
	entry, err := s.store.Get(ctx, fp, cache.KindAnalysis)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			log.Warn("cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var report types.CompanyReport
	if err := json.Unmarshal(entry.Payload, &report); err != nil {
		log.Warn("cache entry unreadable", zap.Error(err))
		return nil, false
	}
	return &report, true
}

func (s *Stage) writeCache(ctx context.Context, fp string, report *types.CompanyReport, log *zap.Logger) {
	payload, err := json.Marshal(report)
	if err != nil {
		log.Warn("cache write skipped", zap.Error(err))
		return
	}
	if err := s.store.Put(ctx, fp, cache.KindAnalysis, payload); err != nil {
		f := faults.CacheWrite("analysis.cache", err)
		log.Warn("cache write failed", zap.Error(f))
	}
}
