// Package types provides type definitions for structured data used throughout the crediscan system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Classification labels a job posting by its relevance to the sectors crediscan tracks.
type Classification string

// Classification values assigned by the discovery stage.
const (
	ClassAIRelevant   Classification = "ai"
	ClassWeb3Relevant Classification = "web3"
	ClassNeither      Classification = "neither"
)

// Valid reports whether c is one of the known classification values.
func (c Classification) Valid() bool {
	switch c {
	case ClassAIRelevant, ClassWeb3Relevant, ClassNeither:
		return true
	}
	return false
}

// JobPosting represents one open position discovered for a company.
// Produced by the discovery stage; the analysis stage reads but never mutates it.
type JobPosting struct {
	Title          string         `json:"title"`
	SourceURL      string         `json:"source_url"`
	Description    string         `json:"description,omitempty"`
	Classification Classification `json:"classification"`
}

// CompanyID identifies the company a pipeline run is about.
// At least one of Name or Domain must be set.
type CompanyID struct {
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
}

// IsZero reports whether the identifier carries no usable information.
func (id CompanyID) IsZero() bool {
	return id.Name == "" && id.Domain == ""
}

// String returns a human-readable form of the identifier for logging.
func (id CompanyID) String() string {
	if id.Domain == "" {
		return id.Name
	}
	if id.Name == "" {
		return id.Domain
	}
	return id.Name + " (" + id.Domain + ")"
}
