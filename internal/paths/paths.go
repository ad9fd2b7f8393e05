// Package paths centralizes the filesystem conventions of the binding host:
// where per-binding configuration lives, where model files are stored, and
// where the bindings and models zoos are located.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ekisa-team/bindery/internal/envvar"
	"github.com/ekisa-team/bindery/internal/xfs"
)

// Paths holds the resolved directory layout for a host installation.
type Paths struct {
	// PersonalConfiguration holds per-binding configuration documents,
	// one subdirectory per binding under "bindings/".
	PersonalConfiguration string

	// PersonalModels is the root under which model directories
	// (one per format convention, e.g. "gguf") are created.
	PersonalModels string

	// BindingsZoo holds one manifest directory per installable binding.
	BindingsZoo string

	// ModelsZoo holds one catalog document per models directory name.
	ModelsZoo string
}

// Default returns the conventional layout rooted at the per-OS data
// directories, honoring environment variable overrides.
func Default() Paths {
	personal := os.Getenv(envvar.BinderyPersonalPath)
	if personal == "" {
		personal = defaultPersonalPath()
	}
	personal = xfs.ExpandTilde(personal)

	models := os.Getenv(envvar.BinderyModelsPath)
	if models == "" {
		models = filepath.Join(personal, "models")
	}

	zoo := os.Getenv(envvar.BinderyZooPath)
	if zoo == "" {
		zoo = filepath.Join(personal, "bindings_zoo")
	}

	return Paths{
		PersonalConfiguration: filepath.Join(personal, "configs"),
		PersonalModels:        xfs.ExpandTilde(models),
		BindingsZoo:           xfs.ExpandTilde(zoo),
		ModelsZoo:             filepath.Join(personal, "models_zoo"),
	}
}

// Resolve applies explicit overrides on top of the default layout. Empty
// overrides keep the defaults.
func Resolve(personal, models, bindingsZoo, modelsZoo string) Paths {
	p := Default()

	if personal != "" {
		root := xfs.ExpandTilde(personal)
		p.PersonalConfiguration = filepath.Join(root, "configs")
		p.PersonalModels = filepath.Join(root, "models")
		p.BindingsZoo = filepath.Join(root, "bindings_zoo")
		p.ModelsZoo = filepath.Join(root, "models_zoo")
	}
	if models != "" {
		p.PersonalModels = xfs.ExpandTilde(models)
	}
	if bindingsZoo != "" {
		p.BindingsZoo = xfs.ExpandTilde(bindingsZoo)
	}
	if modelsZoo != "" {
		p.ModelsZoo = xfs.ExpandTilde(modelsZoo)
	}

	return p
}

// BindingConfigPath returns the configuration file path for the named binding.
func (p Paths) BindingConfigPath(bindingName string) string {
	return filepath.Join(p.PersonalConfiguration, "bindings", bindingName, "config.yaml")
}

// EnsureDirs creates the base directories if they do not exist yet.
func (p Paths) EnsureDirs() error {
	for _, dir := range []string{
		p.PersonalConfiguration,
		p.PersonalModels,
		p.BindingsZoo,
		p.ModelsZoo,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("paths: failed to create %s: %w", dir, err)
		}
	}

	return nil
}

// defaultPersonalPath returns the per-OS default personal data directory.
func defaultPersonalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "bindery")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "bindery")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "bindery")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "bindery")
		}
		return filepath.Join(home, ".local", "share", "bindery")
	}
}
