package gpu

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// --- Mock types ---

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, []byte, error) {
	called := m.Called(ctx, name, args, stdin)
	var stdout, stderr []byte
	if b, ok := called.Get(0).([]byte); ok {
		stdout = b
	}
	if b, ok := called.Get(1).([]byte); ok {
		stderr = b
	}
	return stdout, stderr, called.Error(2)
}

func (m *MockRunner) Start(ctx context.Context, name string, args []string, stdin io.Reader) (io.ReadCloser, io.ReadCloser, func() error, error) {
	called := m.Called(ctx, name, args, stdin)
	return nil, nil, nil, called.Error(3)
}

// --- Tests ---

func TestVRAMUsage_ParsesDevices(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, smiBinary, smiArgs, nil).
		Return([]byte("24576, 1024, NVIDIA GeForce RTX 4090\n8192, 512, NVIDIA GeForce RTX 3070\n"), []byte(nil), nil)

	report := NewProberWithRunner(runner).VRAMUsage(context.Background())

	assert.Equal(t, 2, report.NBGPUs)
	assert.Equal(t, "NVIDIA GeForce RTX 4090", report.Devices[0].Model)
	assert.Equal(t, uint64(24576)*1024*1024, report.Devices[0].TotalVRAM)
	assert.Equal(t, uint64(1024)*1024*1024, report.Devices[0].UsedVRAM)
	assert.Equal(t, "NVIDIA GeForce RTX 3070", report.Devices[1].Model)

	runner.AssertExpectations(t)
}

func TestVRAMUsage_ToolMissing(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, smiBinary, smiArgs, nil).
		Return([]byte(nil), []byte(nil), errors.New("executable file not found in $PATH"))

	report := NewProberWithRunner(runner).VRAMUsage(context.Background())

	assert.Equal(t, 0, report.NBGPUs)
	assert.Empty(t, report.Devices)

	runner.AssertExpectations(t)
}

func TestParseSMIOutput_SkipsMalformedRows(t *testing.T) {
	report := parseSMIOutput("garbage\n1024, 256, Tesla T4\nnot,a,number\n")

	assert.Equal(t, 1, report.NBGPUs)
	assert.Equal(t, "Tesla T4", report.Devices[0].Model)
}

func TestParseSMIOutput_Empty(t *testing.T) {
	report := parseSMIOutput("")

	assert.Equal(t, 0, report.NBGPUs)
}
