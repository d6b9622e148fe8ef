package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_KnownPrompts(t *testing.T) {
	for _, tc := range []struct{ file, key string }{
		{"discovery.json", "classify-postings"},
		{"discovery.json", "extract-postings"},
		{"analysis.json", "background"},
		{"analysis.json", "founders"},
		{"analysis.json", "funding"},
		{"analysis.json", "legal"},
		{"analysis.json", "security"},
		{"analysis.json", "reviews"},
	} {
		prompt, err := Get(tc.file, tc.key)
		require.NoError(t, err, "%s/%s", tc.file, tc.key)
		assert.NotEmpty(t, prompt)
	}
}

func TestList_ReturnsSortedKeys(t *testing.T) {
	keys, err := List("aggregate.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"company-info", "normalize-answer"}, keys)

	_, err = List("nonexistent.json")
	assert.Error(t, err)
}

func TestGet_MissingKey(t *testing.T) {
	_, err := Get("analysis.json", "nonexistent")
	assert.Error(t, err)
}

func TestGet_MissingFile(t *testing.T) {
	_, err := Get("nonexistent.json", "background")
	assert.Error(t, err)
}

func TestMustGet_PanicsOnMissing(t *testing.T) {
	assert.Panics(t, func() {
		MustGet("analysis.json", "nonexistent")
	})
}

func TestFormat(t *testing.T) {
	template := "Research {{.Company}} using {{.Snippets}}."
	result := Format(template, map[string]string{
		"Company":  "Acme Labs",
		"Snippets": "snippet text",
	})
	assert.Equal(t, "Research Acme Labs using snippet text.", result)
}

func TestFormat_UnusedPlaceholderSurvives(t *testing.T) {
	result := Format("Hello {{.Name}}", map[string]string{"Other": "x"})
	assert.Equal(t, "Hello {{.Name}}", result)
}

func TestSectionPromptsMentionJSON(t *testing.T) {
	// Every analysis prompt must demand bare JSON so structured parsing works.
	for _, key := range []string{"background", "founders", "funding", "legal", "security", "reviews"} {
		prompt := MustGet("analysis.json", key)
		assert.Contains(t, prompt, "JSON", "prompt %s", key)
		assert.Contains(t, prompt, "{{.Company}}", "prompt %s", key)
	}
}
