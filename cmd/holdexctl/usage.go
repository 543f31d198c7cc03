package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	dbRedis "github.com/kailas-cloud/holdex/internal/db/redis"
	"github.com/kailas-cloud/holdex/internal/domain/quota"
	budgetrepo "github.com/kailas-cloud/holdex/internal/repository/budget"
)

// counterReader reads persisted usage counters.
type counterReader interface {
	GetMany(ctx context.Context, keys []string) ([]int64, error)
}

func newUsageCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show persisted quota usage for the current periods",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if !cfg.RemoteCache.Enabled() {
				return errors.New("usage counters live in the remote cache; remote_cache.addrs is empty")
			}
			specs, err := cfg.QuotaSpecs()
			if err != nil {
				return err
			}

			store, err := dbRedis.NewStore(dbRedis.Config{
				Addrs:    cfg.RemoteCache.Addrs,
				Username: cfg.RemoteCache.Username,
				Password: cfg.RemoteCache.Password,
				TLS:      cfg.RemoteCache.TLS,
			})
			if err != nil {
				return fmt.Errorf("connect %s: %w", cfg.RemoteCache.Driver, err)
			}
			defer store.Close()

			counters := budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour)
			return printUsage(cmd.Context(), cmd.OutOrStdout(), counters, specs, time.Now())
		},
	}
}

// printUsage renders one row per quota for the period containing now.
func printUsage(ctx context.Context, out io.Writer, counters counterReader, specs []quota.Spec, now time.Time) error {
	keys := make([]string, len(specs))
	for i, s := range specs {
		keys[i] = budgetrepo.Key(s.Service(), s.Metric(), quota.PeriodStart(s.Metric(), now))
	}
	values, err := counters.GetMany(ctx, keys)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tMETRIC\tUSED\tLIMIT\tPERCENT\tSTATUS\tRESETS")
	for i, s := range specs {
		pct := 0.0
		if s.Limit() > 0 {
			pct = float64(values[i]) / float64(s.Limit()) * 100
		}
		start := quota.PeriodStart(s.Metric(), now)
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.1f%%\t%s\t%s\n",
			s.Service(), s.Metric(), values[i], s.Limit(), pct,
			quota.StatusFor(pct), quota.PeriodEnd(s.Metric(), start).Format(time.RFC3339))
	}
	return w.Flush()
}
