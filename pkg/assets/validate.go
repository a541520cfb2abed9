package assets

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Mindburn-Labs/curator/pkg/document"
)

// Validator gates incoming asset documents against a JSON schema. The
// repository is schema-less by default; deployments that want structural
// guarantees supply a schema and every create/update must satisfy it.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles a JSON schema.
func NewValidator(schemaJSON []byte) (*Validator, error) {
	schema, err := jsonschema.CompileString("asset.schema.json", string(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to compile asset schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate checks a document against the schema. Violations are client
// errors, not internal ones.
func (v *Validator) Validate(doc document.Document) error {
	if v == nil {
		return nil
	}
	if err := v.schema.Validate(map[string]any(doc)); err != nil {
		return &Error{Kind: KindInvalidParameter, Msg: "asset failed schema validation", Err: err}
	}
	return nil
}
