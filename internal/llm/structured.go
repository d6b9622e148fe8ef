package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/crediscan/crediscan/internal/faults"
	"github.com/crediscan/crediscan/internal/schemas"
)

// GenerateStruct issues one structured completion and decodes it into out.
// The raw response is validated against the named embedded schema first; an
// unparseable or schema-invalid response is a permanent call fault for this
// unit of work, never retried.
func GenerateStruct(ctx context.Context, client Client, prompt string, tier ModelTier, schemaName string, out any) error {
	raw, err := client.GenerateJSON(ctx, prompt, tier)
	if err != nil {
		return err
	}

	cleaned := []byte(CleanJSONBlock(raw))
	if err := schemas.Validate(schemaName, cleaned); err != nil {
		return err
	}

	if err := json.Unmarshal(cleaned, out); err != nil {
		return faults.Permanent("llm.generate_json",
			fmt.Sprintf("response validated against %s but failed to decode", schemaName), err)
	}
	return nil
}
