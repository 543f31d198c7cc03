package holdings

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/holdex/internal/domain"
)

const holdingColumns = `h.fund_symbol, h.sedol, h.company_name, h.ticker, h.percentage,
	h.sub_industry, h.country, h.security_type, h.market_value, h.shares`

// Repo is the SQLite-backed holdings store.
type Repo struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Repo, error) {
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create holdings db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open holdings db: %w", err)
	}
	// One writer; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate holdings db: %w", err)
	}
	return &Repo{db: db}, nil
}

// Close releases the database.
func (r *Repo) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close holdings db: %w", err)
	}
	return nil
}

// Ping checks the database is usable.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping holdings db: %w", err)
	}
	return nil
}

// UpsertFund inserts or updates fund metadata. LastUpdated and
// HoldingsCount are ignored; ReplaceHoldings owns them.
func (r *Repo) UpsertFund(ctx context.Context, f domain.Fund) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO funds (symbol, name, description, expense_ratio) VALUES (?, ?, ?, ?)
		 ON CONFLICT(symbol) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expense_ratio = excluded.expense_ratio`,
		strings.ToUpper(f.Symbol), f.Name, f.Description, f.ExpenseRatio,
	)
	if err != nil {
		return fmt.Errorf("upsert fund %s: %w", f.Symbol, err)
	}
	return nil
}

// ReplaceHoldings swaps a fund's holdings for hs in one transaction and
// stamps the fund as updated at asOf.
func (r *Repo) ReplaceHoldings(ctx context.Context, fund string, hs []domain.Holding, asOf time.Time) error {
	fund = strings.ToUpper(fund)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM holdings WHERE fund_symbol = ?`, fund); err != nil {
		return fmt.Errorf("clear holdings %s: %w", fund, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO holdings (fund_symbol, sedol, company_name, ticker, percentage,
			sub_industry, country, security_type, market_value, shares, date_added)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	ts := asOf.UTC().Unix()
	for _, h := range hs {
		if _, err := stmt.ExecContext(ctx, fund, h.Sedol, h.CompanyName, strings.ToUpper(h.Ticker),
			h.Percentage, h.SubIndustry, h.Country, h.SecurityType, h.MarketValue, h.Shares, ts); err != nil {
			return fmt.Errorf("insert holding %s/%s: %w", fund, h.Ticker, err)
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE funds SET last_updated = ? WHERE symbol = ?`, ts, fund)
	if err != nil {
		return fmt.Errorf("stamp fund %s: %w", fund, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("stamp fund %s: %w", fund, domain.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Search finds holdings by exact ticker or company name substring across all
// funds, highest weight first.
func (r *Repo) Search(ctx context.Context, query string) ([]domain.HoldingMatch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+holdingColumns+`, f.name
		 FROM holdings h JOIN funds f ON f.symbol = h.fund_symbol
		 WHERE h.ticker = ? OR h.company_name LIKE ? ESCAPE '\'
		 ORDER BY h.percentage DESC`,
		strings.ToUpper(query), containsPattern(query),
	)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return scanMatches(rows)
}

// SearchInFund is Search restricted to one fund.
func (r *Repo) SearchInFund(ctx context.Context, query, fund string) ([]domain.HoldingMatch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+holdingColumns+`, f.name
		 FROM holdings h JOIN funds f ON f.symbol = h.fund_symbol
		 WHERE h.fund_symbol = ? AND (h.ticker = ? OR h.company_name LIKE ? ESCAPE '\')
		 ORDER BY h.percentage DESC`,
		strings.ToUpper(fund), strings.ToUpper(query), containsPattern(query),
	)
	if err != nil {
		return nil, fmt.Errorf("search %q in %s: %w", query, fund, err)
	}
	return scanMatches(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern is a LIKE pattern matching query literally anywhere.
func containsPattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}

// TopHoldings returns a fund's limit largest positions.
func (r *Repo) TopHoldings(ctx context.Context, fund string, limit int) ([]domain.Holding, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+holdingColumns+` FROM holdings h
		 WHERE h.fund_symbol = ? ORDER BY h.percentage DESC LIMIT ?`,
		strings.ToUpper(fund), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top holdings %s: %w", fund, err)
	}
	return scanHoldings(rows)
}

// AllHoldings returns every position of a fund, highest weight first.
func (r *Repo) AllHoldings(ctx context.Context, fund string) ([]domain.Holding, error) {
	return r.TopHoldings(ctx, fund, -1)
}

// FundsContaining returns every fund holding ticker, highest weight first.
func (r *Repo) FundsContaining(ctx context.Context, ticker string) ([]domain.FundPosition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT h.fund_symbol, f.name, h.percentage, h.shares, h.market_value
		 FROM holdings h JOIN funds f ON f.symbol = h.fund_symbol
		 WHERE h.ticker = ? ORDER BY h.percentage DESC`,
		strings.ToUpper(ticker),
	)
	if err != nil {
		return nil, fmt.Errorf("funds containing %s: %w", ticker, err)
	}
	defer rows.Close()

	var out []domain.FundPosition
	for rows.Next() {
		var p domain.FundPosition
		if err := rows.Scan(&p.FundSymbol, &p.FundName, &p.Percentage, &p.Shares, &p.MarketValue); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}
	return out, nil
}

// Funds lists every fund with its holdings count.
func (r *Repo) Funds(ctx context.Context) ([]domain.Fund, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT f.symbol, f.name, f.description, f.expense_ratio, f.last_updated, COUNT(h.id)
		 FROM funds f LEFT JOIN holdings h ON h.fund_symbol = f.symbol
		 GROUP BY f.symbol ORDER BY f.symbol`)
	if err != nil {
		return nil, fmt.Errorf("list funds: %w", err)
	}
	defer rows.Close()

	var out []domain.Fund
	for rows.Next() {
		var (
			f       domain.Fund
			updated int64
		)
		if err := rows.Scan(&f.Symbol, &f.Name, &f.Description, &f.ExpenseRatio, &updated, &f.HoldingsCount); err != nil {
			return nil, fmt.Errorf("scan fund: %w", err)
		}
		f.LastUpdated = unixTime(updated)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate funds: %w", err)
	}
	return out, nil
}

// Stats summarizes the store.
func (r *Repo) Stats(ctx context.Context) (domain.Stats, error) {
	var (
		s      domain.Stats
		latest int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(DISTINCT ticker) FROM holdings),
		        (SELECT COUNT(*) FROM funds),
		        (SELECT COALESCE(MAX(last_updated), 0) FROM funds)`,
	).Scan(&s.UniqueStocks, &s.TotalFunds, &latest)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("stats: %w", err)
	}
	s.LatestUpdate = unixTime(latest)

	funds, err := r.Funds(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	for _, f := range funds {
		s.Funds = append(s.Funds, domain.FundStat{FundSymbol: f.Symbol, FundName: f.Name, HoldingsCount: f.HoldingsCount})
	}
	return s, nil
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func scanHoldings(rows *sql.Rows) ([]domain.Holding, error) {
	defer rows.Close()

	var out []domain.Holding
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.FundSymbol, &h.Sedol, &h.CompanyName, &h.Ticker, &h.Percentage,
			&h.SubIndustry, &h.Country, &h.SecurityType, &h.MarketValue, &h.Shares); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holdings: %w", err)
	}
	return out, nil
}

func scanMatches(rows *sql.Rows) ([]domain.HoldingMatch, error) {
	defer rows.Close()

	var out []domain.HoldingMatch
	for rows.Next() {
		var m domain.HoldingMatch
		if err := rows.Scan(&m.FundSymbol, &m.Sedol, &m.CompanyName, &m.Ticker, &m.Percentage,
			&m.SubIndustry, &m.Country, &m.SecurityType, &m.MarketValue, &m.Shares, &m.FundName); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return out, nil
}
