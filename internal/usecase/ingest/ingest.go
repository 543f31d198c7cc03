// Package ingest loads scraped fund holdings into the holdings store.
package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/holdex/internal/domain"
)

// ErrMalformed is returned for input that cannot be decoded into a batch.
var ErrMalformed = errors.New("malformed holdings file")

// Writer is what ingestion needs from the holdings store (ISP).
type Writer interface {
	UpsertFund(ctx context.Context, f domain.Fund) error
	ReplaceHoldings(ctx context.Context, fund string, hs []domain.Holding, asOf time.Time) error
}

// Batch is one fund's full holdings as of a date.
type Batch struct {
	Fund     domain.Fund      `json:"fund"`
	AsOf     time.Time        `json:"as_of"`
	Holdings []domain.Holding `json:"holdings"`
}

// DecodeJSON reads a batch in the
// {"fund": {...}, "as_of": "...", "holdings": [...]} layout.
func DecodeJSON(r io.Reader) (Batch, error) {
	var b Batch
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return Batch{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if strings.TrimSpace(b.Fund.Symbol) == "" {
		return Batch{}, fmt.Errorf("%w: fund.fund_symbol is required", ErrMalformed)
	}
	return b, nil
}

// DecodeCSV reads holdings rows for fund. The header row names the columns;
// ticker and company_name are required, the rest are optional.
func DecodeCSV(r io.Reader, fund domain.Fund, asOf time.Time) (Batch, error) {
	if strings.TrimSpace(fund.Symbol) == "" {
		return Batch{}, fmt.Errorf("%w: fund symbol is required", ErrMalformed)
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return Batch{}, fmt.Errorf("%w: read header: %w", ErrMalformed, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"ticker", "company_name"} {
		if _, ok := cols[required]; !ok {
			return Batch{}, fmt.Errorf("%w: missing column %q", ErrMalformed, required)
		}
	}

	b := Batch{Fund: fund, AsOf: asOf}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Batch{}, fmt.Errorf("%w: line %d: %w", ErrMalformed, line, err)
		}
		h, err := rowToHolding(rec, cols)
		if err != nil {
			return Batch{}, fmt.Errorf("%w: line %d: %w", ErrMalformed, line, err)
		}
		b.Holdings = append(b.Holdings, h)
	}
	return b, nil
}

func rowToHolding(rec []string, cols map[string]int) (domain.Holding, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	num := func(name string) (float64, error) {
		s := strings.NewReplacer(",", "", "%", "", "$", "").Replace(field(name))
		if s == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}

	pct, err := num("percentage")
	if err != nil {
		return domain.Holding{}, err
	}
	mv, err := num("market_value")
	if err != nil {
		return domain.Holding{}, err
	}
	shares, err := num("shares")
	if err != nil {
		return domain.Holding{}, err
	}

	return domain.Holding{
		Sedol:        field("sedol"),
		CompanyName:  field("company_name"),
		Ticker:       strings.ToUpper(field("ticker")),
		Percentage:   pct,
		SubIndustry:  field("sub_industry"),
		Country:      field("country"),
		SecurityType: field("security_type"),
		MarketValue:  mv,
		Shares:       int64(shares),
	}, nil
}

// Loader writes batches to the store.
type Loader struct {
	store  Writer
	now    func() time.Time
	logger *zap.Logger
}

// New creates a Loader.
func New(store Writer, logger *zap.Logger) *Loader {
	return &Loader{store: store, now: time.Now, logger: logger}
}

// Load upserts the fund and replaces its holdings. Rows without a ticker are
// skipped; a zero AsOf means now.
func (l *Loader) Load(ctx context.Context, b Batch) (int, error) {
	fund := b.Fund
	fund.Symbol = strings.ToUpper(strings.TrimSpace(fund.Symbol))
	if fund.Symbol == "" {
		return 0, fmt.Errorf("%w: fund symbol is required", ErrMalformed)
	}
	if fund.Name == "" {
		fund.Name = fund.Symbol
	}

	asOf := b.AsOf
	if asOf.IsZero() {
		asOf = l.now()
	}

	rows := make([]domain.Holding, 0, len(b.Holdings))
	skipped := 0
	for _, h := range b.Holdings {
		h.Ticker = strings.ToUpper(strings.TrimSpace(h.Ticker))
		if h.Ticker == "" {
			skipped++
			continue
		}
		h.FundSymbol = fund.Symbol
		rows = append(rows, h)
	}

	if err := l.store.UpsertFund(ctx, fund); err != nil {
		return 0, fmt.Errorf("load %s: %w", fund.Symbol, err)
	}
	if err := l.store.ReplaceHoldings(ctx, fund.Symbol, rows, asOf); err != nil {
		return 0, fmt.Errorf("load %s: %w", fund.Symbol, err)
	}

	l.logger.Info("Holdings loaded",
		zap.String("fund", fund.Symbol),
		zap.Int("rows", len(rows)),
		zap.Int("skipped", skipped),
		zap.Time("as_of", asOf),
	)
	return len(rows), nil
}
