package decision

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const intentSchema = `{
  "type": "object",
  "required": ["decision"],
  "properties": {
    "decision": {"type": "string", "minLength": 1},
    "reason": {"type": ["string", "null"]}
  }
}`

var (
	schemaOnce     sync.Once
	schemaCompiled *jsonschema.Schema
	schemaErr      error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("intent.json", strings.NewReader(intentSchema)); err != nil {
			schemaErr = err
			return
		}
		schemaCompiled, schemaErr = compiler.Compile("intent.json")
	})
	return schemaCompiled, schemaErr
}

// validateShape 校验 obj 是否符合 {decision, reason} 结构，顶层重复键直接拒绝。
func validateShape(obj string) error {
	if err := rejectDuplicateKeys(obj); err != nil {
		return err
	}
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile intent schema: %w", err)
	}
	var doc any
	dec := json.NewDecoder(strings.NewReader(obj))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}

var errDuplicateKey = errors.New("duplicate key")

func rejectDuplicateKeys(obj string) error {
	dec := json.NewDecoder(strings.NewReader(obj))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return err
	}
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %q", errDuplicateKey, key)
		}
		seen[key] = struct{}{}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return err
		}
	}
	return nil
}
