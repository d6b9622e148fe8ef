package types

// StageName identifies one pipeline stage in a run summary.
type StageName string

// Pipeline stages in execution order.
const (
	StageDiscovery   StageName = "discovery"
	StageAnalysis    StageName = "analysis"
	StageAggregation StageName = "aggregation"
)

// StageOutcome describes how one stage finished.
type StageOutcome string

// Stage outcomes recorded in the run summary.
const (
	OutcomeOK       StageOutcome = "ok"
	OutcomeDegraded StageOutcome = "degraded"
	OutcomeFailed   StageOutcome = "failed"
	OutcomeSkipped  StageOutcome = "skipped"
	OutcomeCached   StageOutcome = "cached"
)

// StageSummary is the machine-readable record of one stage's degradations.
type StageSummary struct {
	Stage    StageName    `json:"stage"`
	Outcome  StageOutcome `json:"outcome"`
	Degraded []string     `json:"degraded,omitempty"` // sections, postings, or tokens that fell back
	Detail   string       `json:"detail,omitempty"`
}

// RunSummary accompanies every report so callers can tell which parts of the
// result degraded without parsing error strings.
type RunSummary struct {
	RunID  string         `json:"run_id"`
	Stages []StageSummary `json:"stages"`
}

// Add appends one stage record.
func (s *RunSummary) Add(stage StageName, outcome StageOutcome, degraded []string, detail string) {
	s.Stages = append(s.Stages, StageSummary{
		Stage:    stage,
		Outcome:  outcome,
		Degraded: degraded,
		Detail:   detail,
	})
}

// Clean reports whether no stage degraded or failed.
func (s *RunSummary) Clean() bool {
	for _, st := range s.Stages {
		if st.Outcome == OutcomeDegraded || st.Outcome == OutcomeFailed {
			return false
		}
	}
	return true
}
