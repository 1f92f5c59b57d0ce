package classifier

import (
	"bytes"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// resultSchema validates one classifier result element. Elements that fail
// it are skipped individually; the rest of the batch still goes through.
const resultSchema = `{
	"type": "object",
	"required": ["label", "confidence"],
	"properties": {
		"label": {"type": "string", "minLength": 1},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1}
	}
}`

func compileResultSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(resultSchema))
	if err != nil {
		panic(err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("classifier_result.json", doc); err != nil {
		panic(err)
	}

	sch, err := c.Compile("classifier_result.json")
	if err != nil {
		panic(err)
	}
	return sch
}

// validateResult checks a raw result element against the schema.
func validateResult(sch *jsonschema.Schema, raw []byte) error {
	val, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	return sch.Validate(val)
}
