package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ekisa-team/bindery/internal/binding"
	"github.com/ekisa-team/bindery/internal/download"
	"github.com/ekisa-team/bindery/internal/zoo"
)

func newModelsCmd(a *app) *cobra.Command {
	var (
		available bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models on disk, or the zoo catalog with --available",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, err := a.buildBinding(cmd, binding.InstallIfNecessary)
			if err != nil {
				return err
			}

			lister, ok := b.(interface {
				ListModels() ([]string, error)
				AvailableModels() ([]zoo.ModelCard, error)
			})
			if !ok {
				return fmt.Errorf("binding %s does not expose model listings", b.Name())
			}

			if available {
				cards, err := lister.AvailableModels()
				if err != nil {
					return err
				}

				if asJSON {
					return json.NewEncoder(os.Stdout).Encode(cards)
				}
				for _, card := range cards {
					fmt.Printf("%s\t%s\n", card.Name, card.Filename)
				}
				return nil
			}

			models, err := lister.ListModels()
			if err != nil {
				return err
			}

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(models)
			}
			for _, model := range models {
				fmt.Println(model)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&available, "available", false, "List the zoo catalog instead of on-disk models")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")

	cmd.AddCommand(newModelsInstallCmd(a))

	return cmd
}

func newModelsInstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install <model name>",
		Short: "Download a model from the zoo catalog into the binding's models folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, err := a.buildBinding(cmd, binding.InstallIfNecessary)
			if err != nil {
				return err
			}

			base, ok := b.(interface {
				AvailableModels() ([]zoo.ModelCard, error)
				SearchModelParentFolder(modelName, modelType string) string
			})
			if !ok {
				return fmt.Errorf("binding %s does not expose the models zoo", b.Name())
			}

			cards, err := base.AvailableModels()
			if err != nil {
				return err
			}

			var card *zoo.ModelCard
			for i := range cards {
				if cards[i].Name == args[0] || cards[i].Filename == args[0] {
					card = &cards[i]
					break
				}
			}
			if card == nil {
				return fmt.Errorf("model %q is not in the zoo catalog", args[0])
			}

			url := card.DownloadURL
			if url == "" {
				url = card.ServerURL + card.Filename
			}

			client := download.NewClient()
			if size, err := client.FileSize(cmd.Context(), url); err == nil && size > 0 {
				slog.Info("Downloading model", "name", card.Name, "size_bytes", size)
			}

			destDir := base.SearchModelParentFolder(card.Filename, card.Type)
			path, err := client.Fetch(cmd.Context(), url, destDir)
			if err != nil {
				return err
			}

			slog.Info("Model installed", "name", card.Name, "path", path)
			return nil
		},
	}
}
