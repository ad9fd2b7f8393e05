// Package llamacpp is a binding that drives the llama.cpp command line
// tools as a subprocess backend.
package llamacpp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ekisa-team/bindery/internal/binding"
	"github.com/ekisa-team/bindery/internal/execx"
)

// BindingName is the identifier resolved through the factory registry.
const BindingName = "llamacpp"

const inferTimeout = 5 * time.Minute

// defaults is the settings template of this binding.
func defaults() map[string]any {
	return map[string]any{
		"bin_path":           "llama-cli",
		"embedding_bin_path": "llama-embedding",
		"n_ctx":              4096,
		"n_gpu_layers":       20,
		"threads":            0,
	}
}

// Binding runs llama.cpp binaries through the execx runner seam.
type Binding struct {
	*binding.Base

	runner    execx.CommandRunner
	notifier  binding.Notifier
	modelPath string
}

// Register adds the llamacpp factory to a registry.
func Register(registry *binding.Registry) error {
	return registry.Register(BindingName, New)
}

// New constructs the binding, running the settings lifecycle.
func New(ctx context.Context, env binding.FactoryEnv) (binding.Binding, error) {
	b := &Binding{
		runner:   execx.ExecCommandRunner{},
		notifier: env.Notifier,
	}

	base, err := binding.NewBase(ctx, binding.BaseOptions{
		Name:                BindingName,
		Kind:                binding.KindTextImage,
		Paths:               env.Paths,
		Host:                env.Config,
		Defaults:            defaults(),
		InstallOption:       env.InstallOption,
		ModelsDirNames:      []string{"gguf", "ggml"},
		SupportedExtensions: []string{".gguf", ".bin"},
		Notifier:            env.Notifier,
		InstallHook:         b.install,
	})
	if err != nil {
		return nil, err
	}

	b.Base = base
	return b, nil
}

// install probes for the llama.cpp binaries and reports what it found.
// It runs from the base lifecycle before the embedded base is attached,
// so notifications go through the captured notifier.
func (b *Binding) install(ctx context.Context) error {
	slog.Info("Installing binding", "name", BindingName)

	// The binaries are provisioned outside the host; installation only
	// verifies they are reachable so misconfiguration surfaces early.
	stdout, _, err := b.runner.Run(ctx, "llama-cli", []string{"--version"}, nil)
	if err != nil {
		slog.Warn("llama-cli not found, set bin_path in the binding settings", "error", err)
		b.notify("llama.cpp binaries not found", false)
		return nil
	}

	slog.Info("Found llama.cpp", "version", strings.TrimSpace(string(stdout)))
	b.notify("llama.cpp binding installed", true)
	return nil
}

func (b *Binding) notify(content string, ok bool) {
	if b.notifier != nil {
		b.notifier(content, ok)
	}
}

// BuildModel resolves the active model path and checks it exists.
func (b *Binding) BuildModel(ctx context.Context) (any, error) {
	path, err := b.ModelPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("llamacpp: model file not found: %w", err)
	}

	b.modelPath = path
	slog.Info("Model ready", "path", path)
	return path, nil
}

// DestroyModel forgets the built model path.
func (b *Binding) DestroyModel() error {
	b.modelPath = ""
	return nil
}

// Generate produces text from a prompt, streaming filtered chunks through
// the callback. The callback returning false stops the subprocess.
func (b *Binding) Generate(ctx context.Context, prompt string, opts binding.GenerateOptions, callback binding.StreamCallback) (string, error) {
	return b.generate(ctx, prompt, nil, opts, callback)
}

// GenerateWithImages produces text from a prompt and a set of image paths.
func (b *Binding) GenerateWithImages(ctx context.Context, prompt string, images []string, opts binding.GenerateOptions, callback binding.StreamCallback) (string, error) {
	return b.generate(ctx, prompt, images, opts, callback)
}

func (b *Binding) generate(ctx context.Context, prompt string, images []string, opts binding.GenerateOptions, callback binding.StreamCallback) (string, error) {
	modelPath := b.modelPath
	if modelPath == "" {
		path, err := b.ModelPath()
		if err != nil {
			return "", err
		}
		modelPath = path
	}

	args := b.buildArgs(modelPath, images, opts)
	args = append(args, "--prompt", prompt)

	executor := execx.NewExecutorWithRunner(b.Settings().GetString("bin_path", "llama-cli"), inferTimeout, b.runner)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := executor.Stream(ctx, args, nil)
	if err != nil {
		return "", fmt.Errorf("llamacpp: %w", err)
	}

	var out strings.Builder
	for chunk := range ch {
		if chunk.Error != nil {
			return out.String(), fmt.Errorf("llamacpp: generation failed: %w", chunk.Error)
		}

		if len(chunk.Data) > 0 {
			line := string(chunk.Data)
			if isDebugLine(line) {
				continue
			}

			out.WriteString(line)
			if callback != nil && !callback(line, binding.MessageTypeChunk) {
				cancel()
				break
			}
		}

		if chunk.Done {
			break
		}
	}

	return strings.TrimSpace(out.String()), nil
}

// buildArgs builds the llama.cpp command line from settings and options.
func (b *Binding) buildArgs(modelPath string, images []string, opts binding.GenerateOptions) []string {
	s := b.Settings()
	args := []string{"--model", modelPath}

	if nCtx := s.GetInt("n_ctx", 0); nCtx > 0 {
		args = append(args, "--ctx-size", strconv.Itoa(nCtx))
	}

	if ngl := s.GetInt("n_gpu_layers", 0); ngl > 0 {
		args = append(args, "-ngl", strconv.Itoa(ngl))
	}

	if threads := s.GetInt("threads", 0); threads > 0 {
		args = append(args, "-t", strconv.Itoa(threads))
	}

	nPredict := opts.NPredict
	if nPredict <= 0 {
		nPredict = 128
	}
	args = append(args, "-n", strconv.Itoa(nPredict))

	if opts.Temperature > 0 {
		args = append(args, "--temp", fmt.Sprintf("%.2f", opts.Temperature))
	}

	if opts.TopK > 0 {
		args = append(args, "--top-k", strconv.Itoa(opts.TopK))
	}

	if opts.TopP > 0 {
		args = append(args, "--top-p", fmt.Sprintf("%.2f", opts.TopP))
	}

	repeatPenalty := opts.RepeatPenalty
	if repeatPenalty <= 0 {
		repeatPenalty = 1.1
	}
	args = append(args, "--repeat-penalty", fmt.Sprintf("%.2f", repeatPenalty))

	if opts.Seed >= 0 {
		args = append(args, "--seed", strconv.FormatInt(opts.Seed, 10))
	}

	for _, image := range images {
		args = append(args, "--image", image)
	}

	args = append(args, "--no-warmup")
	args = append(args, "--no-display-prompt")
	args = append(args, "--simple-io")
	args = append(args, "--no-conversation")

	return args
}

// isDebugLine reports whether a line is llama.cpp loader noise rather than
// generated text.
func isDebugLine(line string) bool {
	for _, prefix := range []string{
		"system_info:",
		"llama_",
		"ggml_",
		"print_info:",
		"load:",
		"main:",
		"sampler",
		"generate:",
	} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// Embed computes a text embedding through the llama-embedding tool.
func (b *Binding) Embed(ctx context.Context, text string) ([]float64, error) {
	modelPath := b.modelPath
	if modelPath == "" {
		path, err := b.ModelPath()
		if err != nil {
			return nil, err
		}
		modelPath = path
	}

	args := []string{"--model", modelPath, "--prompt", text}

	ctx, cancel := context.WithTimeout(ctx, inferTimeout)
	defer cancel()

	stdout, stderr, err := b.runner.Run(ctx, b.Settings().GetString("embedding_bin_path", "llama-embedding"), args, nil)
	if err != nil {
		return nil, fmt.Errorf("llamacpp: embedding failed: %w\nstderr: %s", err, stderr)
	}

	return parseEmbedding(string(stdout))
}

// parseEmbedding extracts the vector from llama-embedding output: the last
// non-empty line of whitespace-separated floats.
func parseEmbedding(output string) ([]float64, error) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		fields := strings.Fields(lines[i])
		if len(fields) == 0 {
			continue
		}

		vector := make([]float64, 0, len(fields))
		ok := true
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				ok = false
				break
			}
			vector = append(vector, v)
		}

		if ok {
			return vector, nil
		}
	}

	return nil, fmt.Errorf("llamacpp: no embedding vector in output")
}
