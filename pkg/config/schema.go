package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrSchemaViolation is returned when a document does not match the schema.
var ErrSchemaViolation = errors.New("schema validation failed")

// documentSchema describes a key map configuration document.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "keychord configuration",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "commands": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["name", "steps"],
        "properties": {
          "name":  {"type": "string", "minLength": 1},
          "type":  {"type": "string"},
          "steps": {"type": ["string", "array"], "items": {"type": "string", "minLength": 1}},
          "when":  {"type": "string"}
        }
      }
    },
    "key_maps": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["keys", "command"],
        "properties": {
          "keys":    {"type": ["string", "array"], "items": {"type": "string", "minLength": 1}},
          "command": {"type": "string", "minLength": 1},
          "modes":   {"type": ["string", "array"], "items": {"type": "string", "minLength": 1}}
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// ValidateDocument checks a decoded generic document against the schema.
func ValidateDocument(doc any) error {
	return validate(gojsonschema.NewGoLoader(doc))
}

// ValidateJSON checks raw JSON bytes against the schema.
func ValidateJSON(data []byte) error {
	return validate(gojsonschema.NewBytesLoader(data))
}

func validate(document gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(schemaLoader, document)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	descs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		descs = append(descs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(descs, "; "))
}
