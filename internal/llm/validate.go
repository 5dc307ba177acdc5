package llm

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiledSchemas caches compilation keyed by the *Schema itself.
// Schemas are package-level singletons, so the cache stays tiny.
var compiledSchemas sync.Map // *Schema -> *jsonschema.Schema

// validateResponse rejects model output that does not conform to the
// requested schema. Conformance failures come back as ErrInvalidResponse
// so the retry layer grants one more attempt; a schema that will not
// compile is a caller bug and fails outright.
func validateResponse(schema *Schema, raw json.RawMessage) error {
	if schema == nil {
		return nil
	}

	compiled, err := schema.compile()
	if err != nil {
		return fmt.Errorf("schema %q: %w", schema.Name, err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("not JSON: %w", err)}
	}
	if err := compiled.Validate(doc); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: err}
	}
	return nil
}

func (s *Schema) compile() (*jsonschema.Schema, error) {
	if v, ok := compiledSchemas.Load(s); ok {
		return v.(*jsonschema.Schema), nil
	}

	// Round-trip the definition through JSON: the compiler wants the
	// document form, not Go maps holding arbitrary value types.
	buf, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal definition: %w", err)
	}
	var doc any
	if err := json.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("reparse definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("mem://%s.json", s.Name)
	if err := c.AddResource(url, doc); err != nil {
		return nil, err
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, err
	}

	compiledSchemas.Store(s, compiled)
	return compiled, nil
}
