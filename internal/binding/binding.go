// Package binding defines the contract every model-execution backend
// implements, plus the shared plumbing (settings lifecycle, model path
// resolution, zoo catalogs) those backends build on.
package binding

import "context"

// Kind describes the modalities a binding supports.
type Kind int

const (
	// KindTextOnly bindings only support text.
	KindTextOnly Kind = iota

	// KindTextImage bindings support text and image.
	KindTextImage

	// KindTextImageVideo bindings support text, image and video.
	KindTextImageVideo

	// KindTextAudio bindings support text and audio.
	KindTextAudio
)

// String returns the kind identifier.
func (k Kind) String() string {
	switch k {
	case KindTextOnly:
		return "text"
	case KindTextImage:
		return "text+image"
	case KindTextImageVideo:
		return "text+image+video"
	case KindTextAudio:
		return "text+audio"
	default:
		return "unknown"
	}
}

// InstallOption controls the installation branch of the binding lifecycle.
type InstallOption int

const (
	// InstallIfNecessary runs the install hook only when no settings
	// document exists yet.
	InstallIfNecessary InstallOption = iota

	// ForceInstall always reruns the install hook.
	ForceInstall

	// NeverInstall skips installation even when settings are missing.
	NeverInstall
)

// MessageType tags a streamed generation chunk.
type MessageType int

const (
	// MessageTypeChunk is an incremental piece of the generated text.
	MessageTypeChunk MessageType = iota

	// MessageTypeFull replaces everything streamed so far.
	MessageTypeFull
)

// StreamCallback receives generated chunks as they are produced.
// Returning false cancels generation.
type StreamCallback func(chunk string, kind MessageType) bool

// Notifier forwards user-facing notifications from a binding to its host.
type Notifier func(content string, ok bool)

// GenerateOptions carries per-call generation parameters.
type GenerateOptions struct {
	NPredict      int
	Temperature   float64
	TopK          int
	TopP          float64
	RepeatPenalty float64
	Seed          int64
	Verbose       bool

	// Extra holds backend-specific parameters.
	Extra map[string]any
}

// Binding is the uniform contract for pluggable model-execution backends.
type Binding interface {
	// Name returns the binding identifier.
	Name() string

	// Kind returns the modalities this binding supports.
	Kind() Kind

	// Install prepares the backend (fetches engines, writes defaults).
	Install(ctx context.Context) error

	// Uninstall removes what Install put in place.
	Uninstall(ctx context.Context) error

	// SettingsUpdated is invoked after the binding settings change.
	SettingsUpdated() error

	// HandleRequest answers a backend-specific client request.
	HandleRequest(ctx context.Context, data []byte) ([]byte, error)

	// BuildModel constructs the backend's model object.
	BuildModel(ctx context.Context) (any, error)

	// DestroyModel releases the current model.
	DestroyModel() error

	// Generate produces text from a prompt, streaming chunks through the
	// callback. The callback returning false stops generation.
	Generate(ctx context.Context, prompt string, opts GenerateOptions, callback StreamCallback) (string, error)

	// GenerateWithImages produces text from a prompt and a set of images.
	GenerateWithImages(ctx context.Context, prompt string, images []string, opts GenerateOptions, callback StreamCallback) (string, error)

	// Tokenize splits the prompt with the model's tokenizer.
	Tokenize(prompt string) ([]string, error)

	// Detokenize joins tokens back into text.
	Detokenize(tokens []string) (string, error)

	// Embed computes a text embedding.
	Embed(ctx context.Context, text string) ([]float64, error)
}
