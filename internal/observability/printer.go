package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/crediscan/crediscan/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose CLI mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintPostings outputs a human-readable summary of discovered job postings.
func (p *Printer) PrintPostings(postings []types.JobPosting) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Open positions: %d\n", len(postings)))

	shown := 0
	for _, posting := range postings {
		if shown >= maxItemsToShow {
			sb.WriteString(fmt.Sprintf("... and %d more", len(postings)-shown))
			break
		}
		sb.WriteString(fmt.Sprintf("- [%s] %s\n", posting.Classification, posting.Title))
		shown++
	}

	p.printBox("Discovered Positions", strings.TrimRight(sb.String(), "\n"))
}

// PrintReport outputs a human-readable summary of a company report.
func (p *Printer) PrintReport(report *types.CompanyReport) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Company: %s\n", report.Company))
	for _, section := range types.ReportSections() {
		status := "unavailable"
		if report.SectionAvailable(section) {
			status = "ok"
		}
		sb.WriteString(fmt.Sprintf("%-12s %s\n", section, status))
	}
	sb.WriteString(fmt.Sprintf("Founders: %d, funding rounds: %d, legal issues: %d, reviews: %d",
		len(report.Founders), len(report.Funding), len(report.LegalIssues), len(report.Reviews)))

	p.printBox("Company Report", sb.String())
}

// PrintSummary outputs the per-stage degradation summary of a run.
func (p *Printer) PrintSummary(summary *types.RunSummary) {
	var sb strings.Builder
	for _, stage := range summary.Stages {
		sb.WriteString(fmt.Sprintf("%-12s %s", stage.Stage, stage.Outcome))
		if len(stage.Degraded) > 0 {
			sb.WriteString(fmt.Sprintf(" (degraded: %s)", strings.Join(stage.Degraded, ", ")))
		}
		sb.WriteString("\n")
	}

	p.printBox("Run Summary", strings.TrimRight(sb.String(), "\n"))
}
