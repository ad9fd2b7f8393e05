package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ekisa-team/bindery/internal/binding"
	"github.com/ekisa-team/bindery/internal/hostconfig"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Build the configured binding and keep it alive, reloading on config changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, cfg, err := a.buildBinding(cmd, binding.InstallIfNecessary)
			if err != nil {
				return err
			}

			if _, err := binding.NewModelBuilder(cmd.Context(), b); err != nil {
				return err
			}
			slog.Info("Model built", "binding", b.Name(), "model", cfg.ModelName)

			watcher, err := hostconfig.NewWatcher(a.configPath, func(newCfg *hostconfig.Config, err error) {
				if err != nil {
					slog.Error("Failed to reload config", "error", err)
					return
				}

				*cfg = *newCfg
				if err := b.SettingsUpdated(); err != nil {
					slog.Error("Binding rejected updated settings", "error", err)
				}
			})
			if err != nil {
				return err
			}

			slog.Info("Host running", "binding", b.Name(), "config", a.configPath, "reloads", watcher.ReloadCount())

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop

			slog.Info("Shutting down")
			return b.DestroyModel()
		},
	}
}
