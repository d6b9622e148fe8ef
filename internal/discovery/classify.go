// Package discovery implements the job discovery stage: finding candidate
// job-listing pages for a company, extracting open positions, and
// classifying each as AI-relevant, Web3-relevant, or neither.
package discovery

import (
	"context"
	"strings"

	"github.com/crediscan/crediscan/internal/llm"
	"github.com/crediscan/crediscan/internal/prompts"
	"github.com/crediscan/crediscan/internal/schemas"
	"github.com/crediscan/crediscan/internal/types"
)

// Keyword lists for the deterministic classification pass. A title matching
// exactly one list is classified without a model call; only ambiguous titles
// go to the LLM, which keeps model usage bounded.
var (
	aiKeywords = []string{
		"machine learning", "artificial intelligence", "deep learning",
		"data scientist", "ml engineer", "ai engineer", "nlp",
		"computer vision", "llm", "applied scientist", "ai researcher",
	}
	web3Keywords = []string{
		"blockchain", "solidity", "smart contract", "web3", "defi",
		"crypto", "protocol engineer", "token", "zero-knowledge", "zk",
	}
	// weakKeywords suggest a technical research role that might belong to
	// either sector; they trigger an LLM confirmation instead of a guess.
	weakKeywords = []string{
		"research scientist", "research engineer", "quant", "cryptograph",
	}
)

func matchesAny(title string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

// KeywordClassify runs the deterministic filter. The second return value
// reports whether the classification is definitive; false means the title is
// ambiguous and needs LLM confirmation.
func KeywordClassify(title string) (types.Classification, bool) {
	lower := strings.ToLower(title)

	ai := matchesAny(lower, aiKeywords)
	web3 := matchesAny(lower, web3Keywords)

	switch {
	case ai && web3:
		return types.ClassNeither, false
	case ai:
		return types.ClassAIRelevant, true
	case web3:
		return types.ClassWeb3Relevant, true
	case matchesAny(lower, weakKeywords):
		return types.ClassNeither, false
	default:
		return types.ClassNeither, true
	}
}

// classifiedTitle is the LLM response shape for one classified posting.
type classifiedTitle struct {
	Title          string               `json:"title"`
	Classification types.Classification `json:"classification"`
}

// ConfirmClassification asks the model to classify one ambiguous title. The
// response is schema-validated; any failure surfaces as an error so the
// caller can apply the per-posting fallback.
func ConfirmClassification(ctx context.Context, client llm.Client, title string) (types.Classification, error) {
	template := prompts.MustGet("discovery.json", "classify-postings")
	prompt := prompts.Format(template, map[string]string{
		"Titles": title,
	})

	var classified []classifiedTitle
	if err := llm.GenerateStruct(ctx, client, prompt, llm.TierLite, schemas.Classification, &classified); err != nil {
		return types.ClassNeither, err
	}
	if len(classified) == 0 || !classified[0].Classification.Valid() {
		return types.ClassNeither, nil
	}
	return classified[0].Classification, nil
}
