// Package llm provides the language-model client adapter: a provider
// abstraction with a Gemini implementation, bounded-retry calling, and
// schema-validated structured responses.
package llm

// ModelTier represents the complexity/capability level of a model.
type ModelTier string

const (
	// TierLite is for cheap bounded tasks: posting classification.
	TierLite ModelTier = "lite"
	// TierStandard is for structured section generation.
	TierStandard ModelTier = "standard"
)

// Config holds the model selection for the adapter.
type Config struct {
	Models map[ModelTier]string
}

// DefaultConfig returns the default Gemini model mapping.
func DefaultConfig() *Config {
	return &Config{
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
		},
	}
}

// GetModel returns the model name for a tier, falling back to the standard
// tier when the requested one is not configured.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	return ""
}
