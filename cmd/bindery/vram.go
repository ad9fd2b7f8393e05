package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ekisa-team/bindery/internal/gpu"
)

func newVRAMCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "vram",
		Short: "Report GPU memory usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := gpu.NewProber().VRAMUsage(cmd.Context())

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(report)
			}

			fmt.Printf("GPUs: %d\n", report.NBGPUs)
			for i, device := range report.Devices {
				fmt.Printf("  gpu %d: %s  %d / %d MiB used\n",
					i, device.Model, device.UsedVRAM/(1024*1024), device.TotalVRAM/(1024*1024))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")

	return cmd
}
