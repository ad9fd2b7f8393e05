// Package hostconfig holds the main configuration of the binding host:
// which binding is active, which model it should load, and where the
// filesystem conventions are rooted.
package hostconfig

import "math"

// Config is the main host configuration document.
type Config struct {
	Version     int              `json:"version"                yaml:"version"`
	BindingName string           `json:"binding_name"           yaml:"binding_name"`
	ModelName   string           `json:"model_name,omitempty"   yaml:"model_name,omitempty"`
	Seed        int64            `json:"seed,omitempty"         yaml:"seed,omitempty"`
	Paths       PathsConfig      `json:"paths,omitempty"        yaml:"paths,omitempty"`
	Generation  GenerationConfig `json:"generation,omitempty"   yaml:"generation,omitempty"`
}

// PathsConfig overrides the default filesystem layout.
type PathsConfig struct {
	Personal    string `json:"personal,omitempty"     yaml:"personal,omitempty"`
	Models      string `json:"models,omitempty"       yaml:"models,omitempty"`
	BindingsZoo string `json:"bindings_zoo,omitempty" yaml:"bindings_zoo,omitempty"`
	ModelsZoo   string `json:"models_zoo,omitempty"   yaml:"models_zoo,omitempty"`
}

// GenerationConfig holds host-wide generation defaults passed to bindings.
type GenerationConfig struct {
	NPredict      int     `json:"n_predict,omitempty"      yaml:"n_predict,omitempty"`
	Temperature   float64 `json:"temperature,omitempty"    yaml:"temperature,omitempty"`
	TopK          int     `json:"top_k,omitempty"          yaml:"top_k,omitempty"`
	TopP          float64 `json:"top_p,omitempty"          yaml:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty" yaml:"repeat_penalty,omitempty"`
}

// Default returns a config with the host-wide defaults applied.
func Default() *Config {
	return &Config{
		Version: 1,
		Seed:    -1,
		Generation: GenerationConfig{
			NPredict:      128,
			Temperature:   0.8,
			TopK:          40,
			TopP:          0.95,
			RepeatPenalty: 1.1,
		},
	}
}

// RandomSeed reports whether the seed requests nondeterministic sampling.
func (c *Config) RandomSeed() bool {
	return c.Seed < 0 || c.Seed == math.MaxInt64
}
