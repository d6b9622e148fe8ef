package types

// Section identifies one independently produced part of a company report.
type Section string

// Report sections in their fixed output order.
const (
	SectionBackground Section = "background"
	SectionFounders   Section = "founders"
	SectionFunding    Section = "funding"
	SectionLegal      Section = "legal"
	SectionSecurity   Section = "security"
	SectionReviews    Section = "reviews"
)

// ReportSections returns all sections in the order they appear in the final
// report. Concurrent section calls fan in against this order, so output
// ordering never depends on completion order.
func ReportSections() []Section {
	return []Section{
		SectionBackground,
		SectionFounders,
		SectionFunding,
		SectionLegal,
		SectionSecurity,
		SectionReviews,
	}
}

// SectionStatus marks whether a report section was produced or degraded.
type SectionStatus string

// Section status values.
const (
	// StatusOK means the section was produced normally.
	StatusOK SectionStatus = "ok"
	// StatusUnavailable means the section exhausted retries or hit a
	// permanent error. Distinct from an absent field: the section is
	// present in the report but explicitly marked.
	StatusUnavailable SectionStatus = "unavailable"
)

// Founder describes one company founder.
type Founder struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
	Bio  string `json:"bio,omitempty"`
}

// FundingRound describes one funding event.
type FundingRound struct {
	Round     string `json:"round"`
	Amount    string `json:"amount,omitempty"`
	Date      string `json:"date,omitempty"`
	Investors string `json:"investors,omitempty"`
}

// LegalIssue describes one known legal dispute or regulatory action.
type LegalIssue struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Review summarizes user or employee feedback from one source.
type Review struct {
	Source  string `json:"source,omitempty"`
	Summary string `json:"summary"`
	Rating  string `json:"rating,omitempty"`
}

// SecurityAssessment summarizes the company's security posture.
type SecurityAssessment struct {
	Summary   string   `json:"summary"`
	Incidents []string `json:"incidents,omitempty"`
	RiskLevel string   `json:"risk_level,omitempty"`
}

// CompanyReport is the aggregate output of a pipeline run. Each stage owns
// disjoint fields: discovery fills OpenPositions, analysis fills the report
// sections, aggregation may only fill fields that are still empty.
type CompanyReport struct {
	Company       CompanyID                 `json:"company"`
	Background    string                    `json:"background,omitempty"`
	Founders      []Founder                 `json:"founders,omitempty"`
	Funding       []FundingRound            `json:"funding,omitempty"`
	LegalIssues   []LegalIssue              `json:"legal_issues,omitempty"`
	Security      *SecurityAssessment       `json:"security,omitempty"`
	Reviews       []Review                  `json:"reviews,omitempty"`
	OpenPositions []JobPosting              `json:"open_positions,omitempty"`
	SectionStatus map[Section]SectionStatus `json:"section_status,omitempty"`
}

// MarkSection records the production status of a section.
func (r *CompanyReport) MarkSection(s Section, status SectionStatus) {
	if r.SectionStatus == nil {
		r.SectionStatus = make(map[Section]SectionStatus)
	}
	r.SectionStatus[s] = status
}

// SectionAvailable reports whether a section was produced normally.
// Sections never marked are treated as unavailable.
func (r *CompanyReport) SectionAvailable(s Section) bool {
	return r.SectionStatus[s] == StatusOK
}

// FullyFailed reports whether every section of the report is unavailable,
// which distinguishes a dead analysis from a merely partial one.
func (r *CompanyReport) FullyFailed() bool {
	for _, s := range ReportSections() {
		if r.SectionAvailable(s) {
			return false
		}
	}
	return true
}

// SectionEmpty reports whether a section carries no content, regardless of
// its recorded status. The aggregation merge uses this to decide whether a
// field may be filled.
func (r *CompanyReport) SectionEmpty(s Section) bool {
	switch s {
	case SectionBackground:
		return r.Background == ""
	case SectionFounders:
		return len(r.Founders) == 0
	case SectionFunding:
		return len(r.Funding) == 0
	case SectionLegal:
		return len(r.LegalIssues) == 0
	case SectionSecurity:
		return r.Security == nil || r.Security.Summary == ""
	case SectionReviews:
		return len(r.Reviews) == 0
	}
	return true
}
