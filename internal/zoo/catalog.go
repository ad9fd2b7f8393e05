// Package zoo reads the catalog and manifest documents that organize
// installable bindings and their model listings.
package zoo

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ModelCard is one model metadata record inside a models-zoo catalog.
type ModelCard struct {
	Name        string `json:"name"            yaml:"name"`
	Filename    string `json:"filename"        yaml:"filename"`
	Type        string `json:"type,omitempty"  yaml:"type,omitempty"`
	Owner       string `json:"owner,omitempty" yaml:"owner,omitempty"`
	License     string `json:"license,omitempty"     yaml:"license,omitempty"`
	Quantizer   string `json:"quantizer,omitempty"   yaml:"quantizer,omitempty"`
	ServerURL   string `json:"server,omitempty"      yaml:"server,omitempty"`
	DownloadURL string `json:"download,omitempty"    yaml:"download,omitempty"`
	SHA256      string `json:"sha256,omitempty"      yaml:"sha256,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Rank        int    `json:"rank,omitempty"        yaml:"rank,omitempty"`
}

// LoadCatalog reads the catalog document for one models directory name from
// the models zoo. The document is a flat YAML list of model cards.
func LoadCatalog(modelsZooPath, dirName string) ([]ModelCard, error) {
	path := filepath.Join(modelsZooPath, dirName+".yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("zoo: failed to read catalog %s: %w", path, err)
	}

	var cards []ModelCard
	if err := yaml.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("zoo: invalid catalog %s: %w", path, err)
	}

	return cards, nil
}

// Manifest describes one installable binding inside the bindings zoo.
type Manifest struct {
	// Name is the human readable binding title.
	Name string `json:"name" yaml:"name"`

	// Binding is the identifier resolved against the factory registry.
	Binding string `json:"binding_name" yaml:"binding_name"`

	Author      string `json:"author,omitempty"      yaml:"author,omitempty"`
	Version     string `json:"version,omitempty"     yaml:"version,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// manifestFilename is the per-binding manifest inside its zoo directory.
const manifestFilename = "binding.yaml"

// LoadManifest reads the manifest of a binding directory.
func LoadManifest(bindingDir string) (*Manifest, error) {
	path := filepath.Join(bindingDir, manifestFilename)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("zoo: failed to read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("zoo: invalid manifest %s: %w", path, err)
	}

	if m.Binding == "" {
		return nil, fmt.Errorf("zoo: manifest %s declares no binding name", path)
	}

	return &m, nil
}

// ListBindings returns the names of all binding directories carrying a
// manifest under the bindings zoo path.
func ListBindings(bindingsZooPath string) ([]string, error) {
	entries, err := os.ReadDir(bindingsZooPath)
	if err != nil {
		return nil, fmt.Errorf("zoo: failed to read bindings zoo %s: %w", bindingsZooPath, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(bindingsZooPath, entry.Name(), manifestFilename)); err == nil {
			names = append(names, entry.Name())
		}
	}

	return names, nil
}
