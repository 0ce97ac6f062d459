package capture

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("test-run.json", bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("test-run.json")
	})
	return schema, schemaErr
}

// ValidateJSON checks a serialized run document against the embedded
// result schema. It is used as a post-marshal safety check by the
// result writer and by tests; a validation error means the document
// would confuse the downstream consumer.
func ValidateJSON(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling result schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing result document: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("validating result document: %w", err)
	}
	return nil
}
