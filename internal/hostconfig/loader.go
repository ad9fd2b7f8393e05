package hostconfig

import (
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.yaml.in/yaml/v3"
)

// schema validates the shape of the host configuration document before it
// is decoded into the Config struct.
const schema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["version", "binding_name"],
	"properties": {
		"version": {"type": "integer", "minimum": 1},
		"binding_name": {"type": "string", "minLength": 1},
		"model_name": {"type": "string"},
		"seed": {"type": "integer"},
		"paths": {
			"type": "object",
			"properties": {
				"personal": {"type": "string"},
				"models": {"type": "string"},
				"bindings_zoo": {"type": "string"},
				"models_zoo": {"type": "string"}
			},
			"additionalProperties": false
		},
		"generation": {
			"type": "object",
			"properties": {
				"n_predict": {"type": "integer", "minimum": 1},
				"temperature": {"type": "number", "minimum": 0},
				"top_k": {"type": "integer", "minimum": 0},
				"top_p": {"type": "number", "minimum": 0, "maximum": 1},
				"repeat_penalty": {"type": "number", "minimum": 0}
			},
			"additionalProperties": false
		}
	},
	"additionalProperties": false
}`

var compiledSchema = jsonschema.MustCompileString("hostconfig.schema.json", schema)

// LoadAndValidate loads and validates the host configuration.
func LoadAndValidate(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hostconfig: failed to read config: %w", err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("hostconfig: invalid YAML: %w", err)
	}

	if err := compiledSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("hostconfig: config validation failed: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("hostconfig: failed to unmarshal into Config struct: %w", err)
	}

	return config, nil
}

// Save writes the configuration document to path.
func Save(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("hostconfig: failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("hostconfig: failed to write config: %w", err)
	}

	return nil
}
