package llamacpp

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/bindery/internal/binding"
	"github.com/ekisa-team/bindery/internal/hostconfig"
	"github.com/ekisa-team/bindery/internal/paths"
)

// fakeRunner scripts subprocess behavior for tests.
type fakeRunner struct {
	stdout   string
	stderr   string
	err      error
	lastName string
	lastArgs []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, []byte, error) {
	f.lastName, f.lastArgs = name, args
	return []byte(f.stdout), []byte(f.stderr), f.err
}

func (f *fakeRunner) Start(ctx context.Context, name string, args []string, stdin io.Reader) (io.ReadCloser, io.ReadCloser, func() error, error) {
	f.lastName, f.lastArgs = name, args
	return io.NopCloser(strings.NewReader(f.stdout)),
		io.NopCloser(strings.NewReader(f.stderr)),
		func() error { return f.err },
		nil
}

func testBinding(t *testing.T, runner *fakeRunner, modelName string) *Binding {
	t.Helper()

	root := t.TempDir()
	p := paths.Paths{
		PersonalConfiguration: filepath.Join(root, "configs"),
		PersonalModels:        filepath.Join(root, "models"),
		BindingsZoo:           filepath.Join(root, "bindings_zoo"),
		ModelsZoo:             filepath.Join(root, "models_zoo"),
	}
	require.NoError(t, p.EnsureDirs())

	host := hostconfig.Default()
	host.BindingName = BindingName
	host.ModelName = modelName

	b := &Binding{runner: runner}
	base, err := binding.NewBase(context.Background(), binding.BaseOptions{
		Name:                BindingName,
		Kind:                binding.KindTextImage,
		Paths:               p,
		Host:                host,
		Defaults:            defaults(),
		InstallOption:       binding.NeverInstall,
		ModelsDirNames:      []string{"gguf", "ggml"},
		SupportedExtensions: []string{".gguf", ".bin"},
	})
	require.NoError(t, err)
	b.Base = base

	return b
}

func writeModel(t *testing.T, b *Binding, name string) string {
	t.Helper()

	path := filepath.Join(b.ModelsFolders()[0], name)
	require.NoError(t, os.WriteFile(path, []byte("GGUF"), 0o644))
	return path
}

func TestBuildModel(t *testing.T) {
	runner := &fakeRunner{}
	b := testBinding(t, runner, "tiny-GGUF")
	path := writeModel(t, b, "tiny-GGUF")

	model, err := b.BuildModel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, model)

	require.NoError(t, b.DestroyModel())
	assert.Empty(t, b.modelPath)
}

func TestBuildModel_MissingFile(t *testing.T) {
	b := testBinding(t, &fakeRunner{}, "tiny-GGUF")

	_, err := b.BuildModel(context.Background())
	assert.Error(t, err)
}

func TestBuildArgs(t *testing.T) {
	b := testBinding(t, &fakeRunner{}, "tiny-GGUF")

	args := b.buildArgs("/m/tiny.gguf", []string{"/img/cat.png"}, binding.GenerateOptions{
		NPredict:    256,
		Temperature: 0.7,
		TopK:        40,
		TopP:        0.9,
		Seed:        42,
	})

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "--model /m/tiny.gguf")
	assert.Contains(t, joined, "--ctx-size 4096")
	assert.Contains(t, joined, "-ngl 20")
	assert.Contains(t, joined, "-n 256")
	assert.Contains(t, joined, "--temp 0.70")
	assert.Contains(t, joined, "--top-k 40")
	assert.Contains(t, joined, "--top-p 0.90")
	assert.Contains(t, joined, "--repeat-penalty 1.10")
	assert.Contains(t, joined, "--seed 42")
	assert.Contains(t, joined, "--image /img/cat.png")
	assert.Contains(t, joined, "--no-display-prompt")
}

func TestBuildArgs_Defaults(t *testing.T) {
	b := testBinding(t, &fakeRunner{}, "tiny-GGUF")

	args := b.buildArgs("/m/tiny.gguf", nil, binding.GenerateOptions{})
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "-n 128")
	assert.Contains(t, joined, "--repeat-penalty 1.10")
	assert.NotContains(t, joined, "--image")
	assert.NotContains(t, joined, "--temp")
}

func TestGenerate_StreamsAndFilters(t *testing.T) {
	runner := &fakeRunner{stdout: strings.Join([]string{
		"llama_model_loader: loaded meta data",
		"main: starting generation",
		"Once upon a time",
		"there was a binding.",
	}, "\n") + "\n"}

	b := testBinding(t, runner, "tiny-GGUF")
	writeModel(t, b, "tiny-GGUF")

	var chunks []string
	out, err := b.Generate(context.Background(), "tell me a story", binding.GenerateOptions{}, func(chunk string, kind binding.MessageType) bool {
		assert.Equal(t, binding.MessageTypeChunk, kind)
		chunks = append(chunks, chunk)
		return true
	})

	require.NoError(t, err)
	assert.Equal(t, "Once upon a time\nthere was a binding.", out)
	assert.Len(t, chunks, 2, "debug lines are not streamed to the callback")

	assert.Contains(t, strings.Join(runner.lastArgs, " "), "--prompt tell me a story")
}

func TestGenerate_CallbackCancels(t *testing.T) {
	runner := &fakeRunner{stdout: "first line\nsecond line\nthird line\n"}

	b := testBinding(t, runner, "tiny-GGUF")
	writeModel(t, b, "tiny-GGUF")

	out, err := b.Generate(context.Background(), "go", binding.GenerateOptions{}, func(chunk string, kind binding.MessageType) bool {
		return false
	})

	require.NoError(t, err)
	assert.Equal(t, "first line", out)
}

func TestGenerate_CancelDoesNotLeakStreamGoroutine(t *testing.T) {
	runner := &fakeRunner{stdout: strings.Repeat("a line of output\n", 60)}

	b := testBinding(t, runner, "tiny-GGUF")
	writeModel(t, b, "tiny-GGUF")

	before := runtime.NumGoroutine()

	_, err := b.Generate(context.Background(), "go", binding.GenerateOptions{}, func(chunk string, kind binding.MessageType) bool {
		return false
	})
	require.NoError(t, err)

	// Cancelling mid-stream must not strand the executor's producer on a
	// full channel. Poll from this goroutine: Eventually spawns one per
	// tick, which inflates the count it is checking.
	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before {
		if time.Now().After(deadline) {
			t.Fatalf("goroutine count never returned to baseline: %d > %d", runtime.NumGoroutine(), before)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGenerate_SubprocessFailure(t *testing.T) {
	runner := &fakeRunner{stdout: "", err: errors.New("exit status 1")}

	b := testBinding(t, runner, "tiny-GGUF")
	writeModel(t, b, "tiny-GGUF")

	_, err := b.Generate(context.Background(), "go", binding.GenerateOptions{}, nil)
	assert.ErrorContains(t, err, "generation failed")
}

func TestGenerateWithImages_PassesImageArgs(t *testing.T) {
	runner := &fakeRunner{stdout: "a cat\n"}

	b := testBinding(t, runner, "tiny-GGUF")
	writeModel(t, b, "tiny-GGUF")

	out, err := b.GenerateWithImages(context.Background(), "describe", []string{"/img/a.png", "/img/b.png"}, binding.GenerateOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "a cat", out)

	joined := strings.Join(runner.lastArgs, " ")
	assert.Contains(t, joined, "--image /img/a.png")
	assert.Contains(t, joined, "--image /img/b.png")
}

func TestEmbed(t *testing.T) {
	runner := &fakeRunner{stdout: "load: tokenizer ready\n0.125 -0.5 0.75\n"}

	b := testBinding(t, runner, "tiny-GGUF")
	writeModel(t, b, "tiny-GGUF")

	vector, err := b.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.125, -0.5, 0.75}, vector)
	assert.Equal(t, "llama-embedding", runner.lastName)
}

func TestParseEmbedding_NoVector(t *testing.T) {
	_, err := parseEmbedding("no numbers here\n")
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	registry := binding.NewRegistry()
	require.NoError(t, Register(registry))

	_, ok := registry.Get(BindingName)
	assert.True(t, ok)
}
