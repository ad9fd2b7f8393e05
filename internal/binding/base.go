package binding

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/ekisa-team/bindery/internal/hostconfig"
	"github.com/ekisa-team/bindery/internal/paths"
	"github.com/ekisa-team/bindery/internal/zoo"
)

// referenceSuffix marks a model entry that redirects to another on-disk path.
const referenceSuffix = ".reference"

// quantFolders are the models directory names carrying quantized single-file
// models, matched by a prefix heuristic before the format marker.
var quantFolders = map[string]string{
	"ggml": "-GGML",
	"gguf": "-GGUF",
}

// BaseOptions configures the shared part of a binding.
type BaseOptions struct {
	// Name is the binding identifier, also its directory name under the
	// personal configuration and (by default) under the models root.
	Name string

	// Kind declares the supported modalities.
	Kind Kind

	// Paths is the host filesystem layout.
	Paths paths.Paths

	// Host is the main host configuration (active model, seed, defaults).
	Host *hostconfig.Config

	// Defaults is the settings template for this binding.
	Defaults map[string]any

	// InstallOption selects the lifecycle branch on construction.
	InstallOption InstallOption

	// ModelsDirNames lists the model directories this binding searches,
	// in priority order. Defaults to the binding name.
	ModelsDirNames []string

	// SupportedExtensions lists model file extensions for listing.
	// Defaults to ".bin".
	SupportedExtensions []string

	// Notifier receives user-facing notifications. May be nil.
	Notifier Notifier

	// InstallHook runs when the lifecycle decides installation is needed.
	// May be nil.
	InstallHook func(ctx context.Context) error
}

// Base carries the shared state and utilities of a binding. Concrete
// bindings embed it and override the contract methods they support.
type Base struct {
	name                string
	kind                Kind
	paths               paths.Paths
	host                *hostconfig.Config
	settings            *Settings
	modelsDirNames      []string
	modelsFolders       []string
	supportedExtensions []string
	notifier            Notifier
}

// NewBase builds the shared binding state and runs the settings lifecycle:
// when no settings document exists (or a reinstall is forced) and
// installation is not disabled, the install hook runs and defaults are
// persisted; otherwise the existing document is loaded and reconciled.
func NewBase(ctx context.Context, opts BaseOptions) (*Base, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("binding: name is required")
	}
	if opts.Host == nil {
		return nil, fmt.Errorf("binding: host configuration is required")
	}

	dirNames := opts.ModelsDirNames
	if len(dirNames) == 0 {
		dirNames = []string{opts.Name}
	}

	extensions := opts.SupportedExtensions
	if len(extensions) == 0 {
		extensions = []string{".bin"}
	}

	settingsPath := opts.Paths.BindingConfigPath(opts.Name)
	if err := os.MkdirAll(filepath.Dir(settingsPath), 0o755); err != nil {
		return nil, fmt.Errorf("binding: failed to create settings directory: %w", err)
	}

	b := &Base{
		name:                opts.Name,
		kind:                opts.Kind,
		paths:               opts.Paths,
		host:                opts.Host,
		settings:            NewSettings(settingsPath, opts.Defaults),
		modelsDirNames:      dirNames,
		supportedExtensions: extensions,
		notifier:            opts.Notifier,
	}

	if (!b.settings.Exists() || opts.InstallOption == ForceInstall) && opts.InstallOption != NeverInstall {
		if opts.InstallHook != nil {
			if err := opts.InstallHook(ctx); err != nil {
				return nil, fmt.Errorf("binding: install hook failed: %w", err)
			}
		}
		if err := b.settings.Save(); err != nil {
			return nil, err
		}
	} else if err := b.settings.Load(); err != nil {
		return nil, err
	}

	for _, dirName := range dirNames {
		folder := filepath.Join(opts.Paths.PersonalModels, dirName)
		if err := os.MkdirAll(folder, 0o755); err != nil {
			return nil, fmt.Errorf("binding: failed to create models folder %s: %w", folder, err)
		}
		b.modelsFolders = append(b.modelsFolders, folder)
	}

	return b, nil
}

// Name returns the binding identifier.
func (b *Base) Name() string {
	return b.name
}

// Kind returns the supported modalities.
func (b *Base) Kind() Kind {
	return b.kind
}

// Settings returns the binding settings document.
func (b *Base) Settings() *Settings {
	return b.settings
}

// Host returns the main host configuration.
func (b *Base) Host() *hostconfig.Config {
	return b.host
}

// ModelsFolders returns the model directories searched by this binding,
// in priority order.
func (b *Base) ModelsFolders() []string {
	return b.modelsFolders
}

// Seed returns the configured sampling seed.
func (b *Base) Seed() int64 {
	return b.host.Seed
}

// Notify forwards a notification to the host, if a notifier is attached.
func (b *Base) Notify(content string, ok bool) {
	if b.notifier != nil {
		b.notifier(content, ok)
	}
}

// SearchModelParentFolder returns the models directory a model name belongs
// to. An explicit model type matching a directory name wins; otherwise the
// first directory whose name occurs in the lowercased model name is chosen,
// falling back to the first configured directory.
func (b *Base) SearchModelParentFolder(modelName, modelType string) string {
	if modelType != "" {
		for _, folder := range b.modelsFolders {
			if strings.EqualFold(filepath.Base(folder), modelType) {
				return folder
			}
		}
	}

	lower := strings.ToLower(modelName)
	for _, folder := range b.modelsFolders {
		if strings.Contains(lower, filepath.Base(folder)) {
			return folder
		}
	}

	return b.modelsFolders[0]
}

// SearchModelPath resolves a model name to a path under the configured
// model directories. Quantized-format directories filter their files by the
// model name prefix before the format marker; everything else appends the
// name to the matched directory. Unmatched names land in the first
// configured directory.
func (b *Base) SearchModelPath(modelName string) string {
	lower := strings.ToLower(modelName)

	for _, folder := range b.modelsFolders {
		dirName := filepath.Base(folder)
		if !strings.Contains(lower, dirName) {
			continue
		}

		if marker, ok := quantFolders[dirName]; ok {
			if idx := strings.Index(strings.ToUpper(modelName), marker); idx >= 0 {
				prefix := lower[:idx]
				if match := firstFileWithPrefix(folder, prefix); match != "" {
					return filepath.Join(folder, match)
				}
			}
		}

		return filepath.Join(folder, modelName)
	}

	return filepath.Join(b.modelsFolders[0], modelName)
}

// firstFileWithPrefix returns the first directory entry containing prefix
// in its lowercased name.
func firstFileWithPrefix(folder, prefix string) string {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return ""
	}

	for _, entry := range entries {
		if strings.Contains(strings.ToLower(entry.Name()), prefix) {
			return entry.Name()
		}
	}

	return ""
}

// ModelPath resolves the active model's on-disk path. A name ending in
// ".reference" is a one-level redirection: the referenced path is read from
// the file and returned verbatim.
func (b *Base) ModelPath() (string, error) {
	modelName := b.host.ModelName
	if modelName == "" {
		return "", ErrNoModelSelected
	}

	if strings.HasSuffix(modelName, referenceSuffix) {
		refPath := b.SearchModelPath(modelName)
		data, err := os.ReadFile(refPath)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrReferenceMissing, refPath)
		}

		target := strings.TrimSpace(string(data))
		slog.Info("Resolved reference model", "name", modelName, "target", target)
		return target, nil
	}

	return b.SearchModelPath(modelName), nil
}

// ListModels lists the models available on disk. Quantized-format
// directories list files by supported extension; other directories list
// non-hidden subdirectories. Reference entries are always included.
func (b *Base) ListModels() ([]string, error) {
	var models []string

	for _, folder := range b.modelsFolders {
		entries, err := os.ReadDir(folder)
		if err != nil {
			return nil, fmt.Errorf("binding: failed to read models folder %s: %w", folder, err)
		}

		_, quantized := quantFolders[filepath.Base(folder)]
		for _, entry := range entries {
			name := entry.Name()
			if strings.HasSuffix(name, referenceSuffix) {
				models = append(models, name)
				continue
			}

			if quantized {
				if !entry.IsDir() && b.supportsExtension(filepath.Ext(name)) {
					models = append(models, name)
				}
			} else if entry.IsDir() && !strings.HasPrefix(name, ".") {
				models = append(models, name)
			}
		}
	}

	return models, nil
}

func (b *Base) supportsExtension(ext string) bool {
	for _, supported := range b.supportedExtensions {
		if strings.EqualFold(ext, supported) {
			return true
		}
	}
	return false
}

// AvailableModels reads the models-zoo catalogs for every configured models
// directory name and concatenates their records.
func (b *Base) AvailableModels() ([]zoo.ModelCard, error) {
	var cards []zoo.ModelCard

	for _, dirName := range b.modelsDirNames {
		dirCards, err := zoo.LoadCatalog(b.paths.ModelsZoo, dirName)
		if err != nil {
			return nil, err
		}
		cards = append(cards, dirCards...)
	}

	return cards, nil
}

// --- Default contract implementations ---

// Install logs the installation banner. Concrete bindings override this.
func (b *Base) Install(ctx context.Context) error {
	slog.Info("Installing binding", "name", b.name)
	return nil
}

// Uninstall logs the removal banner. Concrete bindings override this.
func (b *Base) Uninstall(ctx context.Context) error {
	slog.Info("Uninstalling binding", "name", b.name)
	return nil
}

// SettingsUpdated is a no-op by default.
func (b *Base) SettingsUpdated() error {
	return nil
}

// HandleRequest acknowledges the request. Concrete bindings override this
// to expose backend-specific commands.
func (b *Base) HandleRequest(ctx context.Context, data []byte) ([]byte, error) {
	var req map[string]any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("binding: invalid request: %w", err)
		}
	}

	return json.Marshal(map[string]any{"status": true})
}

// BuildModel is not implemented on the base.
func (b *Base) BuildModel(ctx context.Context) (any, error) {
	return nil, ErrNotImplemented
}

// DestroyModel is a no-op by default.
func (b *Base) DestroyModel() error {
	return nil
}

// Generate is not implemented on the base.
func (b *Base) Generate(ctx context.Context, prompt string, opts GenerateOptions, callback StreamCallback) (string, error) {
	return "", ErrNotImplemented
}

// GenerateWithImages is not implemented on the base.
func (b *Base) GenerateWithImages(ctx context.Context, prompt string, images []string, opts GenerateOptions, callback StreamCallback) (string, error) {
	return "", ErrNotImplemented
}

// Tokenize splits the prompt on whitespace. Concrete bindings replace this
// with the model's tokenizer.
func (b *Base) Tokenize(prompt string) ([]string, error) {
	return strings.Fields(prompt), nil
}

// Detokenize joins tokens with spaces.
func (b *Base) Detokenize(tokens []string) (string, error) {
	return strings.Join(tokens, " "), nil
}

// Embed is not implemented on the base.
func (b *Base) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, ErrNotImplemented
}

// String renders the binding as "binding(model)".
func (b *Base) String() string {
	return fmt.Sprintf("%s(%s)", b.name, b.host.ModelName)
}

var _ Binding = (*Base)(nil)
