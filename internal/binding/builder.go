package binding

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ekisa-team/bindery/internal/hostconfig"
	"github.com/ekisa-team/bindery/internal/paths"
	"github.com/ekisa-team/bindery/internal/zoo"
)

// Builder resolves the configured binding name to a zoo manifest and
// instantiates the backend through the factory registry.
type Builder struct {
	registry *Registry
	paths    paths.Paths
}

// NewBuilder creates a builder over the given registry and layout.
func NewBuilder(registry *Registry, p paths.Paths) *Builder {
	return &Builder{
		registry: registry,
		paths:    p,
	}
}

// Build resolves and constructs the binding named by the host config.
// A binding name containing a path separator is treated as a manifest
// directory itself; otherwise the name is looked up in the bindings zoo.
func (b *Builder) Build(ctx context.Context, config *hostconfig.Config, opt InstallOption, notifier Notifier) (Binding, error) {
	bindingDir := config.BindingName
	if !strings.ContainsRune(bindingDir, '/') && !strings.ContainsRune(bindingDir, filepath.Separator) {
		bindingDir = filepath.Join(b.paths.BindingsZoo, config.BindingName)
	}

	manifest, err := zoo.LoadManifest(bindingDir)
	if err != nil {
		return nil, fmt.Errorf("binding: failed to resolve %q: %w", config.BindingName, err)
	}

	factory, ok := b.registry.Get(manifest.Binding)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, manifest.Binding)
	}

	instance, err := factory(ctx, FactoryEnv{
		Config:        config,
		Paths:         b.paths,
		InstallOption: opt,
		Notifier:      notifier,
	})
	if err != nil {
		return nil, fmt.Errorf("binding: failed to construct %s: %w", manifest.Binding, err)
	}

	return instance, nil
}

// ModelBuilder asks a binding to construct its model and holds the result.
type ModelBuilder struct {
	binding Binding
	model   any
}

// NewModelBuilder builds the model immediately.
func NewModelBuilder(ctx context.Context, b Binding) (*ModelBuilder, error) {
	model, err := b.BuildModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("binding: failed to build model: %w", err)
	}

	return &ModelBuilder{
		binding: b,
		model:   model,
	}, nil
}

// Model returns the built model object.
func (mb *ModelBuilder) Model() any {
	return mb.model
}

// Binding returns the binding that built the model.
func (mb *ModelBuilder) Binding() Binding {
	return mb.binding
}
