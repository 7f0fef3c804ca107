package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"entrysummary/internal/config"
	"entrysummary/internal/extraction"
	"entrysummary/internal/logger"
	"entrysummary/internal/pipeline"
)

type rootFlags struct {
	logLevel string
	logJSON  bool
	dataDir  string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "esnorm",
		Short:         "Normalize CBP Form 7501 extraction results into the 80-column entry summary sheet",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logger.Setup(flags.logLevel, flags.logJSON)
		},
	}
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "Emit logs as JSON")
	cmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "Data directory (overrides config.toml)")

	cmd.AddCommand(newConvertCommand(flags))
	cmd.AddCommand(newInspectCommand())
	cmd.AddCommand(newExtractCommand(flags))
	cmd.AddCommand(newColumnsCommand())
	return cmd
}

// loadOptions 读取配置并组装流水线；配置缺失时使用默认值
func loadOptions(flags *rootFlags) (pipeline.Options, *extraction.Client, error) {
	cfg, _, err := config.LoadConfigWithInfo()
	if err != nil {
		logger.Warn("load config failed, using defaults", "err", err)
		cfg = config.DefaultConfig()
	}
	if flags.dataDir != "" {
		cfg.Data.DataDir = flags.dataDir
	}
	dir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return pipeline.Options{}, nil, fmt.Errorf("data dir: %w", err)
	}
	opts, client, err := pipeline.FromConfig(cfg, dir)
	if err != nil {
		return pipeline.Options{}, nil, err
	}
	return opts, client, nil
}
