package main

import (
	"github.com/spf13/cobra"
)

type cliOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "nexa",
		Short:         "AI search assistant with web, Wikipedia and arXiv tools",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: nexa.toml or ~/.config/nexa/nexa.toml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(opts),
		newAskCmd(opts),
		newModelsCmd(opts),
		newToolsCmd(opts),
	)
	return root
}
