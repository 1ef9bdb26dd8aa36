package registry

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const settingsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "router settings",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "enabled":    {"type": "boolean"},
    "classifier": {"type": "string", "enum": ["zero-shot-classification", "llm-zero-shot", "static"]},
    "model":      {"type": "string"},
    "n":          {"type": "integer", "minimum": 1},
    "threshold":  {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(settingsSchema))
	})
	return compiledSchema, schemaErr
}

// ValidateSettingsJSON checks a raw settings payload against the settings
// schema. It returns the violations, or an error if the payload could not be
// evaluated at all.
func ValidateSettingsJSON(body []byte) ([]string, error) {
	return validate(gojsonschema.NewBytesLoader(body))
}

// ValidateSettingsDocument checks an already decoded settings document.
func ValidateSettingsDocument(doc any) ([]string, error) {
	return validate(gojsonschema.NewGoLoader(doc))
}

func validate(doc gojsonschema.JSONLoader) ([]string, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("compile settings schema: %w", err)
	}
	result, err := schema.Validate(doc)
	if err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}
	return errs, nil
}
