package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/holdex/internal/domain"
	holdingsrepo "github.com/kailas-cloud/holdex/internal/repository/holdings"
	"github.com/kailas-cloud/holdex/internal/usecase/ingest"
)

func newLoadCmd(configPath *string) *cobra.Command {
	var (
		fund string
		name string
		asOf string
	)

	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Import a fund's holdings from a JSON or CSV file",
		Long: `Replaces one fund's holdings in the holdings store.

JSON files carry the fund themselves: {"fund": {...}, "as_of": ..., "holdings": [...]}.
CSV files need --fund and a header row with at least ticker and company_name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			batch, err := readBatch(args[0], fund, name, asOf, cfg.Catalogue())
			if err != nil {
				return err
			}

			store, err := holdingsrepo.Open(cfg.Holdings.Path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := ingest.New(store, logger).Load(cmd.Context(), batch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d holdings into %s\n", n, strings.ToUpper(batch.Fund.Symbol))
			return nil
		},
	}

	cmd.Flags().StringVar(&fund, "fund", "", "fund symbol (required for CSV)")
	cmd.Flags().StringVar(&name, "name", "", "fund name (CSV; default from the catalogue)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "holdings date, YYYY-MM-DD (CSV; default today)")
	return cmd
}

// readBatch decodes path by extension. CSV funds take their metadata from
// the catalogue unless --name overrides it.
func readBatch(path, fund, name, asOf string, catalogue []domain.Fund) (ingest.Batch, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return ingest.Batch{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ingest.DecodeJSON(f)
	case ".csv":
		meta := domain.Fund{Symbol: strings.ToUpper(fund)}
		for _, c := range catalogue {
			if c.Symbol == meta.Symbol {
				meta = c
				break
			}
		}
		if name != "" {
			meta.Name = name
		}
		var date time.Time
		if asOf != "" {
			date, err = time.Parse(time.DateOnly, asOf)
			if err != nil {
				return ingest.Batch{}, fmt.Errorf("invalid --as-of %q: %w", asOf, err)
			}
		}
		return ingest.DecodeCSV(f, meta, date)
	default:
		return ingest.Batch{}, fmt.Errorf("unsupported file type %q (want .json or .csv)", filepath.Ext(path))
	}
}
