package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekisa-team/bindery/internal/binding"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		nPredict int
		images   []string
	)

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate text with the configured binding and model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, cfg, err := a.buildBinding(cmd, binding.InstallIfNecessary)
			if err != nil {
				return err
			}

			if _, err := b.BuildModel(cmd.Context()); err != nil {
				return err
			}
			defer b.DestroyModel()

			opts := generateOptions(cfg)
			if nPredict > 0 {
				opts.NPredict = nPredict
			}

			stream := func(chunk string, kind binding.MessageType) bool {
				fmt.Print(chunk)
				return true
			}

			if len(images) > 0 {
				_, err = b.GenerateWithImages(cmd.Context(), args[0], images, opts, stream)
			} else {
				_, err = b.Generate(cmd.Context(), args[0], opts, stream)
			}
			if err != nil {
				return err
			}

			fmt.Println()
			return nil
		},
	}

	cmd.Flags().IntVarP(&nPredict, "n-predict", "n", 0, "Maximum number of tokens to produce")
	cmd.Flags().StringSliceVar(&images, "image", nil, "Image file to interpret (repeatable)")

	return cmd
}
