package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/holdex/internal/config"
	logpkg "github.com/kailas-cloud/holdex/internal/logger"
	"github.com/kailas-cloud/holdex/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "holdexctl",
		Short:         "Admin tool for the holdex holdings API",
		Version:       fmt.Sprintf("%s (%s, %s)", version.Version, version.Commit, version.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: config/<ENV>.yaml)")

	root.AddCommand(
		newLoadCmd(&configPath),
		newSnapshotCmd(&configPath),
		newUsageCmd(&configPath),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the --config file, or the ENV-selected one.
func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load(config.GetEnv())
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	logger, err := logpkg.NewLogger(config.GetEnv(), cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "holdexctl %s\ncommit: %s\nbuilt:  %s\n",
				version.Version, version.Commit, version.Date)
		},
	}
}
