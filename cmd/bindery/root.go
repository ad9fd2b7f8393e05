package main

import (
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ekisa-team/bindery/internal/binding"
	"github.com/ekisa-team/bindery/internal/binding/llamacpp"
	"github.com/ekisa-team/bindery/internal/hostconfig"
	"github.com/ekisa-team/bindery/internal/logger"
	"github.com/ekisa-team/bindery/internal/paths"
)

// app carries the flags and lazily built state shared by all commands.
type app struct {
	configPath string
	logToFile  bool
	logFile    string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "bindery",
		Short:         "Host for pluggable LLM bindings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logger.New(
				logger.WithLogToFile(a.logToFile),
				logger.WithLogFile(a.logFile),
			))
		},
	}

	defaultConfig := filepath.Join(paths.Default().PersonalConfiguration, "config.yaml")
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfig, "Path to the host config file")
	root.PersistentFlags().BoolVar(&a.logToFile, "log-to-file", false, "Mirror logs to a rotated file")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "logs/bindery.log", "Log file path when file logging is enabled")

	root.AddCommand(
		newRunCmd(a),
		newGenerateCmd(a),
		newModelsCmd(a),
		newVRAMCmd(a),
		newInstallCmd(a),
		newUninstallCmd(a),
	)

	return root
}

// registry returns the factory registry with all built-in bindings.
func (a *app) registry() (*binding.Registry, error) {
	reg := binding.NewRegistry()
	if err := llamacpp.Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// load reads the host config and resolves the filesystem layout.
func (a *app) load() (*hostconfig.Config, paths.Paths, error) {
	cfg, err := hostconfig.LoadAndValidate(a.configPath)
	if err != nil {
		return nil, paths.Paths{}, err
	}

	p := paths.Resolve(cfg.Paths.Personal, cfg.Paths.Models, cfg.Paths.BindingsZoo, cfg.Paths.ModelsZoo)
	if err := p.EnsureDirs(); err != nil {
		return nil, paths.Paths{}, err
	}

	return cfg, p, nil
}

// buildBinding assembles the active binding from the host config.
func (a *app) buildBinding(cmd *cobra.Command, opt binding.InstallOption) (binding.Binding, *hostconfig.Config, error) {
	cfg, p, err := a.load()
	if err != nil {
		return nil, nil, err
	}

	reg, err := a.registry()
	if err != nil {
		return nil, nil, err
	}

	notifier := func(content string, ok bool) {
		if ok {
			slog.Info(content)
		} else {
			slog.Warn(content)
		}
	}

	b, err := binding.NewBuilder(reg, p).Build(cmd.Context(), cfg, opt, notifier)
	if err != nil {
		return nil, nil, err
	}

	return b, cfg, nil
}

// generateOptions maps host config defaults to per-call options.
func generateOptions(cfg *hostconfig.Config) binding.GenerateOptions {
	return binding.GenerateOptions{
		NPredict:      cfg.Generation.NPredict,
		Temperature:   cfg.Generation.Temperature,
		TopK:          cfg.Generation.TopK,
		TopP:          cfg.Generation.TopP,
		RepeatPenalty: cfg.Generation.RepeatPenalty,
		Seed:          cfg.Seed,
	}
}
