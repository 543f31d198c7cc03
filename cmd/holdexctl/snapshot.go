package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/holdex/internal/repository/fallback"
	holdingsrepo "github.com/kailas-cloud/holdex/internal/repository/holdings"
	holdingsuc "github.com/kailas-cloud/holdex/internal/usecase/holdings"
	"github.com/kailas-cloud/holdex/internal/usecase/snapshot"
)

func newSnapshotCmd(configPath *string) *cobra.Command {
	var (
		dir     string
		tickers []string
		list    bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Regenerate or list the static fallback snapshots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if dir == "" {
				dir = cfg.Fallback.Dir
			}
			static := fallback.New(dir, logger)

			if list {
				keys, err := static.Keys()
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				return nil
			}

			store, err := holdingsrepo.Open(cfg.Holdings.Path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var opts []snapshot.Option
			if len(tickers) > 0 {
				opts = append(opts, snapshot.WithTickers(tickers))
			}
			gen := snapshot.New(holdingsuc.NewLoader(store), static, logger, opts...)

			manifest, err := gen.Run(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d snapshots to %s (%d empty, %d failed)\n",
				len(manifest.Files), dir, len(manifest.Empty), len(manifest.Failed))
			return err
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "snapshot directory (default: fallback.dir from config)")
	cmd.Flags().StringSliceVar(&tickers, "tickers", nil, "tickers to pre-render (default: popular tickers)")
	cmd.Flags().BoolVar(&list, "list", false, "list existing snapshot keys instead of regenerating")
	return cmd
}
