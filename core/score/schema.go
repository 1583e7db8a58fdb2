package score

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// reportSchema requires a total and numeric values throughout.
const reportSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["total"],
  "additionalProperties": {"type": "number"}
}`

var compiled = jsonschema.MustCompileString("score_report.json", reportSchema)

func validate(v any) error {
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("score output does not match schema: %w", err)
	}
	return nil
}
