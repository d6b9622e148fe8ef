// Package pipeline provides the high-level orchestration for company scans:
// discovery, analysis and aggregation under one deadline, with per-stage
// outcomes collected into a run summary.
package pipeline

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crediscan/crediscan/internal/aggregate"
	"github.com/crediscan/crediscan/internal/analysis"
	"github.com/crediscan/crediscan/internal/cache"
	"github.com/crediscan/crediscan/internal/config"
	"github.com/crediscan/crediscan/internal/discovery"
	"github.com/crediscan/crediscan/internal/faults"
	"github.com/crediscan/crediscan/internal/fetch"
	"github.com/crediscan/crediscan/internal/llm"
	"github.com/crediscan/crediscan/internal/resilient"
	"github.com/crediscan/crediscan/internal/search"
	"github.com/crediscan/crediscan/internal/types"
)

// ProgressEvent is one progress update during a run.
type ProgressEvent struct {
	Stage   types.StageName `json:"stage"`
	Message string          `json:"message"`
	RunID   string          `json:"run_id,omitempty"`
}

// ProgressCallback receives progress events when configured.
type ProgressCallback func(event ProgressEvent)

// Options configures a pipeline. Config is required; the client fields are
// optional overrides used by tests, and anything left nil is built from
// Config on New.
type Options struct {
	Config     *config.Config
	Logger     *zap.Logger
	Store      cache.Store
	Search     search.Client
	LLM        llm.Client
	Aggregator aggregate.Service
	OnProgress ProgressCallback
}

// Pipeline wires the three stages to their shared collaborators.
type Pipeline struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      cache.Store
	search     search.Client
	llm        llm.Client
	aggregator aggregate.Service
	onProgress ProgressCallback

	runID string
}

// New builds a pipeline from options, constructing any collaborator not
// overridden. Missing credentials do not fail construction; the stage that
// needs them fails at its entry instead, so a discovery-only run never
// requires aggregation tokens.
func New(ctx context.Context, opts Options) (*Pipeline, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, faults.Configuration("pipeline.new", "config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pipeline{
		cfg:        cfg,
		logger:     logger,
		store:      opts.Store,
		search:     opts.Search,
		llm:        opts.LLM,
		aggregator: opts.Aggregator,
		onProgress: opts.OnProgress,
		runID:      uuid.NewString(),
	}

	if p.store == nil {
		store, err := cache.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		p.store = store
	}

	policy := resilient.Policy{
		MaxAttempts:  cfg.MaxAttempts,
		CallDeadline: cfg.CallDeadline,
		Logger:       logger,
	}

	if p.search == nil && cfg.SearchAPIKey != "" {
		client, err := search.NewHTTPClient(cfg.SearchAPIKey,
			search.WithPolicy(policy), search.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		p.search = client
	}

	if p.llm == nil && cfg.LLMAPIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, nil, cfg.LLMAPIKey)
		if err != nil {
			return nil, err
		}
		p.llm = llm.NewRetryingClient(gemini, llm.RetryPolicy{
			MaxAttempts:  cfg.MaxAttempts,
			CallDeadline: cfg.CallDeadline,
		}, logger)
	}

	if p.aggregator == nil && cfg.AggregateAPIURL != "" {
		svc, err := aggregate.NewHTTPService(cfg.AggregateAPIURL,
			aggregate.WithPolicy(policy), aggregate.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		p.aggregator = svc
	}

	return p, nil
}

// RunID returns the identifier attached to this pipeline's summaries.
func (p *Pipeline) RunID() string { return p.runID }

// Close releases the cache store and model client.
func (p *Pipeline) Close() {
	if p.llm != nil {
		p.llm.Close()
	}
	if p.store != nil {
		p.store.Close()
	}
}

func (p *Pipeline) emit(stage types.StageName, message string) {
	if p.onProgress != nil {
		p.onProgress(ProgressEvent{Stage: stage, Message: message, RunID: p.runID})
	}
}

// RunDiscovery runs the discovery stage alone. Fails only on missing
// credentials or an invalid company id.
func (p *Pipeline) RunDiscovery(ctx context.Context, id types.CompanyID, forceRefresh bool) (*discovery.Result, error) {
	if err := p.cfg.RequireSearch(); err != nil {
		return nil, err
	}
	if err := p.cfg.RequireLLM(); err != nil {
		return nil, err
	}
	p.emit(types.StageDiscovery, "discovering job postings")

	fetchOpts := fetch.DefaultOptions()
	fetchOpts.UseBrowser = p.cfg.UseBrowser
	stage := discovery.New(p.store, p.search, p.llm, fetchOpts, p.logger)
	return stage.Run(ctx, id, forceRefresh)
}

// RunAnalysis runs the analysis stage. Discovered postings are optional
// prompt context; nil runs the analysis on search context alone.
func (p *Pipeline) RunAnalysis(ctx context.Context, id types.CompanyID, postings []types.JobPosting, forceRefresh bool) (*analysis.Result, error) {
	if err := p.cfg.RequireLLM(); err != nil {
		return nil, err
	}
	p.emit(types.StageAnalysis, "producing report sections")

	stage := analysis.New(p.store, p.search, p.llm, p.logger)
	return stage.Run(ctx, id, postings, forceRefresh)
}

// RunAggregation runs the aggregation stage against an existing report. A
// nil report merges into an empty one.
func (p *Pipeline) RunAggregation(ctx context.Context, id types.CompanyID, report *types.CompanyReport, forceRefresh bool) (*aggregate.Result, error) {
	if err := p.cfg.RequireAggregation(); err != nil {
		return nil, err
	}
	p.emit(types.StageAggregation, "querying aggregation service")

	stage := aggregate.New(p.store, p.aggregator, p.llm, p.cfg.AggregateTokens, p.logger)
	return stage.Run(ctx, id, report, forceRefresh)
}

// Run executes the full pipeline under the configured overall deadline:
// discovery, then analysis consuming the discovered postings, then
// aggregation merging into the section report. Stage failures are recorded
// in the summary rather than propagated, so the caller always receives a
// report and a summary; deadline expiry surfaces whatever the finished
// stages produced.
func (p *Pipeline) Run(ctx context.Context, id types.CompanyID, forceRefresh bool) (*types.CompanyReport, *types.RunSummary, error) {
	if id.IsZero() {
		return nil, nil, faults.Configuration("pipeline.run", "company name or domain required")
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestDeadline)
	defer cancel()

	summary := &types.RunSummary{RunID: p.runID}
	report := &types.CompanyReport{Company: id}

	discoveryRes, discoveryErr := p.RunDiscovery(ctx, id, forceRefresh)
	recordStage(summary, types.StageDiscovery, discoveryErr, stageFacts{
		fromCache: discoveryRes != nil && discoveryRes.FromCache,
		degraded:  degradedOf(discoveryRes),
	})
	if discoveryRes != nil {
		report.OpenPositions = discoveryRes.Postings
	}

	analysisRes, analysisErr := p.RunAnalysis(ctx, id, report.OpenPositions, forceRefresh)
	recordStage(summary, types.StageAnalysis, analysisErr, stageFacts{
		fromCache:   analysisRes != nil && analysisRes.FromCache,
		degraded:    degradedOfAnalysis(analysisRes),
		fullyFailed: analysisRes != nil && analysisRes.Report.FullyFailed(),
	})
	if analysisRes != nil {
		mergeAnalysis(report, analysisRes.Report)
	}

	if err := p.cfg.RequireAggregation(); err != nil {
		summary.Add(types.StageAggregation, types.OutcomeSkipped, nil, err.Error())
		return report, summary, nil
	}
	aggRes, aggErr := p.RunAggregation(ctx, id, report, forceRefresh)
	recordStage(summary, types.StageAggregation, aggErr, stageFacts{
		fromCache: aggRes != nil && aggRes.FromCache,
		degraded:  degradedOfAggregate(aggRes),
	})
	if aggRes != nil {
		positions := report.OpenPositions
		*report = *aggRes.Report
		// discovery owns open positions; a cached merge never clobbers them
		if len(report.OpenPositions) == 0 {
			report.OpenPositions = positions
		}
	}

	return report, summary, nil
}

// stageFacts carries what recordStage needs to classify an outcome.
type stageFacts struct {
	fromCache   bool
	degraded    []string
	fullyFailed bool
}

func recordStage(summary *types.RunSummary, stage types.StageName, err error, facts stageFacts) {
	switch {
	case err != nil:
		summary.Add(stage, types.OutcomeFailed, nil, err.Error())
	case facts.fullyFailed:
		summary.Add(stage, types.OutcomeFailed, facts.degraded, "all sections unavailable")
	case facts.fromCache:
		summary.Add(stage, types.OutcomeCached, nil, "")
	case len(facts.degraded) > 0:
		summary.Add(stage, types.OutcomeDegraded, facts.degraded, "")
	default:
		summary.Add(stage, types.OutcomeOK, nil, "")
	}
}

func degradedOf(res *discovery.Result) []string {
	if res == nil {
		return nil
	}
	return res.Degraded
}

func degradedOfAnalysis(res *analysis.Result) []string {
	if res == nil {
		return nil
	}
	return res.Degraded
}

func degradedOfAggregate(res *aggregate.Result) []string {
	if res == nil {
		return nil
	}
	return res.Degraded
}

// mergeAnalysis copies the section fields from the analysis report into the
// run report. Open positions stay untouched: discovery owns them.
func mergeAnalysis(dst, src *types.CompanyReport) {
	dst.Background = src.Background
	dst.Founders = src.Founders
	dst.Funding = src.Funding
	dst.LegalIssues = src.LegalIssues
	dst.Security = src.Security
	dst.Reviews = src.Reviews
	for sec, status := range src.SectionStatus {
		dst.MarkSection(sec, status)
	}
}
