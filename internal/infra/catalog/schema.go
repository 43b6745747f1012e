package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"
)

const catalogSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "tools": { "type": "array", "items": { "$ref": "#/$defs/record" } },
    "skills": { "type": "array", "items": { "$ref": "#/$defs/record" } },
    "intents": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["intent", "keywords"],
        "properties": {
          "intent": { "type": "string" },
          "label": { "type": "string" },
          "keywords": { "type": "array", "items": { "type": "string" } }
        }
      }
    },
    "categoryIntents": {
      "type": "object",
      "additionalProperties": { "type": "array", "items": { "type": "string" } }
    },
    "store": {
      "type": "object",
      "properties": {
        "driver": { "type": "string" },
        "path": { "type": "string" }
      }
    },
    "retention": {
      "type": "object",
      "properties": {
        "days": { "type": "integer" },
        "intervalSeconds": { "type": "integer" },
        "weekly": { "type": "boolean" }
      }
    },
    "recommend": {
      "type": "object",
      "properties": {
        "cacheTTLSeconds": { "type": "integer" },
        "limit": { "type": "integer" },
        "threshold": { "type": "number" },
        "kind": { "type": "string" }
      }
    },
    "observability": {
      "type": "object",
      "properties": {
        "listenAddress": { "type": "string" },
        "metrics": { "type": "boolean" },
        "healthz": { "type": "boolean" }
      }
    },
    "watch": { "type": "boolean" }
  },
  "$defs": {
    "stringList": { "type": "array", "items": { "type": "string" } },
    "record": {
      "type": "object",
      "properties": {
        "id": { "type": "string" },
        "name": { "type": "string" },
        "displayName": { "type": "string" },
        "description": { "type": "string" },
        "category": { "type": "string" },
        "tags": { "$ref": "#/$defs/stringList" },
        "requiredPermissions": { "$ref": "#/$defs/stringList" },
        "riskLevel": { "type": "integer", "minimum": 0 },
        "enabled": { "type": "boolean" },
        "tools": { "$ref": "#/$defs/stringList" },
        "usageCount": { "type": "integer", "minimum": 0 },
        "successCount": { "type": "integer", "minimum": 0 }
      }
    }
  }
}`

var (
	catalogSchemaOnce sync.Once
	catalogSchema     *jsonschema.Resolved
	catalogSchemaErr  error
)

func resolvedCatalogSchema() (*jsonschema.Resolved, error) {
	catalogSchemaOnce.Do(func() {
		var schema jsonschema.Schema
		if err := json.Unmarshal([]byte(catalogSchemaJSON), &schema); err != nil {
			catalogSchemaErr = fmt.Errorf("parse catalog schema: %w", err)
			return
		}
		catalogSchema, catalogSchemaErr = schema.Resolve(nil)
	})
	return catalogSchema, catalogSchemaErr
}

// validateCatalogSchema checks the document shape before decoding, so a
// scalar where a list of records belongs fails loudly instead of decoding
// to an empty catalog.
func validateCatalogSchema(expanded string) error {
	var doc any
	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	// Round-trip through JSON so the validator sees JSON-native types.
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config must be a mapping with string keys: %w", err)
	}
	var instance any
	if err := json.Unmarshal(payload, &instance); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	resolved, err := resolvedCatalogSchema()
	if err != nil {
		return err
	}
	if err := resolved.Validate(instance); err != nil {
		return errors.Join(errors.New("config does not match catalog schema"), err)
	}
	return nil
}
