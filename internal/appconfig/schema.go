package appconfig

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// configSchema types the known configuration keys. Unknown keys pass through.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "hosts": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "url"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "url": {"type": "string", "minLength": 1},
          "type": {"type": "string", "enum": ["", "ollama", "llama.cpp", "llamacpp", "llama-cpp"]},
          "models": {"type": ["array", "null"], "items": {"type": "string"}},
          "parameters": {"type": ["object", "null"]},
          "parameterTemplate": {"type": "string"}
        }
      }
    },
    "generationHost": {"type": "string"},
    "generationModel": {"type": "string", "minLength": 1},
    "numCtx": {"type": "integer", "minimum": 0},
    "seed": {"type": ["integer", "null"]},
    "embeddingHost": {"type": "string"},
    "embeddingModel": {"type": "string", "minLength": 1},
    "indexPath": {"type": "string"},
    "chunkSize": {"type": "integer", "minimum": 1},
    "chunkOverlap": {"type": "integer", "minimum": 0},
    "topK": {"type": "integer", "minimum": 1},
    "generationPromptTemplate": {"type": "string"},
    "evaluationPromptTemplate": {"type": "string"},
    "locationPromptTemplate": {"type": "string"},
    "listenAddr": {"type": "string"},
    "corsOrigins": {"type": "string"},
    "uploadLimitMB": {"type": "integer", "minimum": 1},
    "timeout": {"type": "integer", "minimum": 0},
    "logFile": {"type": "string"},
    "debug": {"type": "boolean"},
    "metrics": {"type": "boolean"}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(configSchema)

// ValidateDocument checks a configuration document against the config schema.
func ValidateDocument(doc map[string]any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
