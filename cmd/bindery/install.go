package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ekisa-team/bindery/internal/binding"
)

func newInstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Reinstall the configured binding and reset its settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, err := a.buildBinding(cmd, binding.ForceInstall)
			if err != nil {
				return err
			}

			slog.Info("Binding installed", "name", b.Name())
			return nil
		},
	}
}

func newUninstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Run the configured binding's uninstall hook",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, err := a.buildBinding(cmd, binding.NeverInstall)
			if err != nil {
				return err
			}

			if err := b.Uninstall(cmd.Context()); err != nil {
				return err
			}

			slog.Info("Binding uninstalled", "name", b.Name())
			return nil
		},
	}
}
