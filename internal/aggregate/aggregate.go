package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/crediscan/crediscan/internal/cache"
	"github.com/crediscan/crediscan/internal/faults"
	"github.com/crediscan/crediscan/internal/llm"
	"github.com/crediscan/crediscan/internal/prompts"
	"github.com/crediscan/crediscan/internal/types"
)

// Stage runs report aggregation for one company.
type Stage struct {
	store   cache.Store
	service Service
	model   llm.Client
	tokens  []string
	logger  *zap.Logger
}

// New builds an aggregation stage. Tokens are tried in the given order. The
// model normalizes raw aggregator answers before the merge; when it is nil
// the cleaned answer is merged as-is.
func New(store cache.Store, service Service, model llm.Client, tokens []string, logger *zap.Logger) *Stage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stage{store: store, service: service, model: model, tokens: tokens, logger: logger}
}

// Result is the aggregation stage outcome. Degraded lists tokens whose calls
// failed; Filled lists the sections the aggregator supplied.
type Result struct {
	Report    *types.CompanyReport
	FromCache bool
	Filled    []types.Section
	Degraded  []string
}

// payload is the aggregator answer shape, mirroring the report sections.
type payload struct {
	Background  string                    `json:"background"`
	Founders    []types.Founder           `json:"founders"`
	Funding     []types.FundingRound      `json:"funding"`
	LegalIssues []types.LegalIssue        `json:"legal_issues"`
	Security    *types.SecurityAssessment `json:"security"`
	Reviews     []types.Review            `json:"reviews"`
}

// Run merges aggregator answers into the analysis report. Analysis content is
// authoritative: a token answer may only fill sections that are still empty,
// and the first non-empty answer per section wins. A failed token call is
// logged and skipped; the merge only degrades a section when every token
// failed to supply it. The merged report is cached under kind=aggregation.
func (s *Stage) Run(ctx context.Context, id types.CompanyID, report *types.CompanyReport, forceRefresh bool) (*Result, error) {
	if id.IsZero() {
		return nil, faults.Configuration("aggregate.run", "company name or domain required")
	}
	if len(s.tokens) == 0 {
		return nil, faults.Configuration("aggregate.run", "no aggregation tokens configured")
	}
	if report == nil {
		report = &types.CompanyReport{Company: id}
	}

	fp := cache.Fingerprint(id, cache.KindAggregation)
	log := s.logger.With(zap.String("company", id.String()), zap.String("fingerprint", fp))

	if !forceRefresh {
		if cached, ok := s.readCache(ctx, fp, log); ok {
			return &Result{Report: cached, FromCache: true}, nil
		}
	}

	res := &Result{Report: report}
	prompt := prompts.Format(prompts.MustGet("aggregate.json", "company-info"), map[string]string{
		"Company": id.Name,
		"Domain":  id.Domain,
	})

	for i, token := range s.tokens {
		if !anySectionEmpty(report) {
			break
		}
		answer, err := s.service.Query(ctx, token, prompt)
		if err != nil {
			log.Warn("aggregation token skipped", zap.Int("token_index", i), zap.Error(err))
			res.Degraded = append(res.Degraded, fmt.Sprintf("token:%d", i))
			continue
		}
		answer = s.normalize(ctx, CleanContent(answer), log)
		var p payload
		if err := json.Unmarshal([]byte(llm.CleanJSONBlock(answer)), &p); err != nil {
			log.Warn("aggregation answer unparseable", zap.Int("token_index", i), zap.Error(err))
			res.Degraded = append(res.Degraded, fmt.Sprintf("token:%d", i))
			continue
		}
		res.Filled = append(res.Filled, merge(report, &p)...)
	}

	s.writeCache(ctx, fp, report, log)
	return res, nil
}

// normalize passes a cleaned aggregator answer through the model so that
// non-English text is translated and stray prose is reduced back to the
// report payload shape. A normalization failure falls back to the cleaned
// answer so a flaky model call never discards an otherwise usable answer.
func (s *Stage) normalize(ctx context.Context, answer string, log *zap.Logger) string {
	if s.model == nil || answer == "" {
		return answer
	}
	prompt := prompts.Format(prompts.MustGet("aggregate.json", "normalize-answer"), map[string]string{
		"Answer": answer,
	})
	normalized, err := s.model.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		log.Warn("answer normalization skipped", zap.Error(err))
		return answer
	}
	return normalized
}

// merge fills empty report sections from one aggregator answer and returns
// the sections it filled. Non-empty report content is never overwritten.
func merge(r *types.CompanyReport, p *payload) []types.Section {
	var filled []types.Section
	fill := func(sec types.Section, hasContent bool, apply func()) {
		if !r.SectionEmpty(sec) || !hasContent {
			return
		}
		apply()
		r.MarkSection(sec, types.StatusOK)
		filled = append(filled, sec)
	}

	fill(types.SectionBackground, p.Background != "", func() { r.Background = p.Background })
	fill(types.SectionFounders, len(p.Founders) > 0, func() { r.Founders = p.Founders })
	fill(types.SectionFunding, len(p.Funding) > 0, func() { r.Funding = p.Funding })
	fill(types.SectionLegal, len(p.LegalIssues) > 0, func() { r.LegalIssues = p.LegalIssues })
	fill(types.SectionSecurity, p.Security != nil && p.Security.Summary != "", func() { r.Security = p.Security })
	fill(types.SectionReviews, len(p.Reviews) > 0, func() { r.Reviews = p.Reviews })
	return filled
}

func anySectionEmpty(r *types.CompanyReport) bool {
	for _, sec := range types.ReportSections() {
		if r.SectionEmpty(sec) {
			return true
		}
	}
	return false
}

func (s *Stage) readCache(ctx context.Context, fp string, log *zap.Logger) (*types.CompanyReport, bool) {
	entry, err := s.store.Get(ctx, fp, cache.KindAggregation)
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
	data, err := json.Marshal(report)
	if err != nil {
		log.Warn("cache write skipped", zap.Error(err))
		return
	}
	if err := s.store.Put(ctx, fp, cache.KindAggregation, data); err != nil {
		f := faults.CacheWrite("aggregate.cache", err)
		log.Warn("cache write failed", zap.Error(f))
	}
}
