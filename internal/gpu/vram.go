// Package gpu reports GPU memory usage by querying the nvidia-smi tool.
package gpu

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ekisa-team/bindery/internal/execx"
)

const (
	smiBinary  = "nvidia-smi"
	smiTimeout = 10 * time.Second
)

var smiArgs = []string{
	"--query-gpu=memory.total,memory.used,gpu_name",
	"--format=csv,nounits,noheader",
}

// Device describes the memory state of a single GPU.
type Device struct {
	Model     string `json:"model"`
	TotalVRAM uint64 `json:"total_vram"`
	UsedVRAM  uint64 `json:"used_vram"`
}

// Report is a snapshot of GPU memory usage across all visible devices.
type Report struct {
	NBGPUs  int      `json:"nb_gpus"`
	Devices []Device `json:"devices,omitempty"`
}

// Prober queries GPU memory usage.
type Prober struct {
	runner execx.CommandRunner
}

// NewProber creates a prober backed by os/exec.
func NewProber() *Prober {
	return &Prober{runner: execx.ExecCommandRunner{}}
}

// NewProberWithRunner creates a prober with a custom runner.
func NewProberWithRunner(runner execx.CommandRunner) *Prober {
	return &Prober{runner: runner}
}

// VRAMUsage queries nvidia-smi and parses its CSV output. A missing tool or
// a failing invocation yields a zero-GPU report rather than an error.
func (p *Prober) VRAMUsage(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, smiTimeout)
	defer cancel()

	stdout, _, err := p.runner.Run(ctx, smiBinary, smiArgs, nil)
	if err != nil {
		return Report{NBGPUs: 0}
	}

	return parseSMIOutput(string(stdout))
}

// parseSMIOutput parses rows of "total, used, name" with memory in MiB.
func parseSMIOutput(output string) Report {
	var report Report

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		fields := strings.SplitN(line, ",", 3)
		if len(fields) != 3 {
			continue
		}

		total, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			continue
		}

		used, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 64)
		if err != nil {
			continue
		}

		report.Devices = append(report.Devices, Device{
			Model:     strings.TrimSpace(fields[2]),
			TotalVRAM: total * 1024 * 1024,
			UsedVRAM:  used * 1024 * 1024,
		})
	}

	report.NBGPUs = len(report.Devices)
	return report
}
