package hostconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, `
version: 1
binding_name: llamacpp
model_name: mistral-7b-instruct-v0.2.Q4_K_M.gguf
seed: 42
generation:
  n_predict: 256
  temperature: 0.7
`)

	cfg, err := LoadAndValidate(path)
	require.NoError(t, err)

	assert.Equal(t, "llamacpp", cfg.BindingName)
	assert.Equal(t, "mistral-7b-instruct-v0.2.Q4_K_M.gguf", cfg.ModelName)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 256, cfg.Generation.NPredict)
	assert.InDelta(t, 0.7, cfg.Generation.Temperature, 1e-9)
	// Defaults survive for keys the document does not set.
	assert.Equal(t, 40, cfg.Generation.TopK)
	assert.False(t, cfg.RandomSeed())
}

func TestLoadAndValidate_DefaultSeedIsRandom(t *testing.T) {
	path := writeConfig(t, "version: 1\nbinding_name: llamacpp\n")

	cfg, err := LoadAndValidate(path)
	require.NoError(t, err)
	assert.True(t, cfg.RandomSeed())
}

func TestLoadAndValidate_MissingBindingName(t *testing.T) {
	path := writeConfig(t, "version: 1\n")

	_, err := LoadAndValidate(path)
	assert.ErrorContains(t, err, "validation failed")
}

func TestLoadAndValidate_UnknownKey(t *testing.T) {
	path := writeConfig(t, "version: 1\nbinding_name: llamacpp\nbogus: true\n")

	_, err := LoadAndValidate(path)
	assert.Error(t, err)
}

func TestLoadAndValidate_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "{version: [broken")

	_, err := LoadAndValidate(path)
	assert.ErrorContains(t, err, "invalid YAML")
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.BindingName = "llamacpp"
	cfg.ModelName = "tinyllama-1.1b-chat-v1.0.Q4_K_M.gguf"

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Save(cfg, path))

	loaded, err := LoadAndValidate(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
