package execx

import (
	"context"
	"errors"
	"io"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRunner struct {
	stdout  string
	stderr  string
	waitErr error
}

func (s *scriptedRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, []byte, error) {
	return []byte(s.stdout), []byte(s.stderr), s.waitErr
}

func (s *scriptedRunner) Start(ctx context.Context, name string, args []string, stdin io.Reader) (io.ReadCloser, io.ReadCloser, func() error, error) {
	return io.NopCloser(strings.NewReader(s.stdout)),
		io.NopCloser(strings.NewReader(s.stderr)),
		func() error { return s.waitErr },
		nil
}

func TestExecutor_Execute(t *testing.T) {
	runner := &scriptedRunner{stdout: "out", stderr: "err"}
	e := NewExecutorWithRunner("/usr/bin/tool", time.Second, runner)

	stdout, stderr, err := e.Execute(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "out", string(stdout))
	assert.Equal(t, "err", string(stderr))
}

func TestExecutor_StreamLines(t *testing.T) {
	runner := &scriptedRunner{stdout: "one\ntwo\nthree\n"}
	e := NewExecutorWithRunner("/usr/bin/tool", time.Second, runner)

	ch, err := e.Stream(context.Background(), nil, nil)
	require.NoError(t, err)

	var lines []string
	var done bool
	for chunk := range ch {
		require.NoError(t, chunk.Error)
		if len(chunk.Data) > 0 {
			lines = append(lines, strings.TrimSuffix(string(chunk.Data), "\n"))
		}
		done = chunk.Done
	}

	assert.Equal(t, []string{"one", "two", "three"}, lines)
	assert.True(t, done)
}

func TestExecutor_StreamConsumerCancels(t *testing.T) {
	runner := &scriptedRunner{stdout: strings.Repeat("line\n", 100)}
	e := NewExecutorWithRunner("/usr/bin/tool", time.Second, runner)

	before := runtime.NumGoroutine()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := e.Stream(ctx, nil, nil)
	require.NoError(t, err)

	<-ch
	cancel()

	// The producer must exit on its own even though the channel is never
	// drained after cancellation. Poll from this goroutine: Eventually
	// spawns one per tick, which inflates the count it is checking.
	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before {
		if time.Now().After(deadline) {
			t.Fatalf("goroutine count never returned to baseline: %d > %d", runtime.NumGoroutine(), before)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestExecutor_StreamSurfacesStderrOnFailure(t *testing.T) {
	runner := &scriptedRunner{stderr: "model load failed", waitErr: errors.New("exit status 1")}
	e := NewExecutorWithRunner("/usr/bin/tool", time.Second, runner)

	ch, err := e.Stream(context.Background(), nil, nil)
	require.NoError(t, err)

	var last Chunk
	for chunk := range ch {
		last = chunk
	}

	require.Error(t, last.Error)
	assert.Contains(t, last.Error.Error(), "model load failed")
	assert.True(t, last.Done)
}

func TestNewExecutor_MissingBinary(t *testing.T) {
	_, err := NewExecutor("/nonexistent/bin/tool", time.Second)
	assert.Error(t, err)
}
