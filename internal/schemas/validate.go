// Package schemas provides JSON Schema validation for every structured LLM
// response shape. Schemas are embedded at compile time; a response that does
// not validate is a permanent call error for that unit of work.
package schemas

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/crediscan/crediscan/internal/faults"
)

//go:embed *.json
var schemaFiles embed.FS

// Known schema names, matching the embedded file names without extension.
const (
	Classification = "classification"
	Background     = "background"
	Founders       = "founders"
	Funding        = "funding"
	Legal          = "legal"
	Security       = "security"
	Reviews        = "reviews"
)

var (
	compiled   = make(map[string]*gojsonschema.Schema)
	compiledMu sync.Mutex
)

// load compiles and caches the named schema.
func load(name string) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if schema, ok := compiled[name]; ok {
		return schema, nil
	}

	data, err := schemaFiles.ReadFile(name + ".json")
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q: %w", name, err)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %q: %w", name, err)
	}

	compiled[name] = schema
	return schema, nil
}

// Validate checks document against the named schema. A schema violation is
// returned as a permanent call fault: retrying the same malformed shape
// would not help.
func Validate(name string, document []byte) error {
	schema, err := load(name)
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return faults.Permanent("schemas.validate", fmt.Sprintf("unparseable %s response", name), err)
	}
	if !result.Valid() {
		var sb strings.Builder
		for i, desc := range result.Errors() {
			if i > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(desc.String())
		}
		return faults.Permanent("schemas.validate", fmt.Sprintf("%s response failed validation: %s", name, sb.String()), nil)
	}
	return nil
}
