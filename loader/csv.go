/*
Package loader ingests quarterly filing files into the fact table.

PURPOSE:
  Filings arrive as semicolon-separated CSV files, one file per period,
  with decimal-comma amounts. The loader parses and validates a file
  fully before touching the store, then hands the rows to the store's
  atomic per-period load.

FILE FORMAT:
  company;period;sub_line;account;amount
  0001;202501;101;1.01.01;12345,67

  - company: numeric code, left-padded to four digits on load
  - period: YYYYQQ, identical on every row of one file
  - sub_line: product category code, empty for company-grain accounts
  - account: chart-of-accounts code
  - amount: signed, decimal comma or dot, stored in minor units

LOAD RULES:
  - A malformed period fails the whole file before any table access.
  - Zero amounts are dropped; the fact table keeps only real balances.
  - A period that is already loaded is skipped, unless Replace is set,
    in which case the old rows are removed first.

SEE ALSO:
  - watcher.go: inbox directory watcher feeding this loader
  - ledger/store.go: the LoadPeriod contract
*/
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/insmag/filings-engine/ledger"
)

// expected CSV header, lowercase, in column order.
var header = []string{"company", "period", "sub_line", "account", "amount"}

// Options control how an already loaded period is handled.
type Options struct {
	// Replace removes a previously loaded period before loading.
	Replace bool
}

// Result summarizes one file load.
type Result struct {
	Path        string
	Period      ledger.Period
	Entries     int
	Companies   int
	DroppedZero int
	Skipped     bool
	Replaced    bool
}

// Parsed is the outcome of parsing one filing file, before storage.
type Parsed struct {
	Period      ledger.Period
	Entries     []ledger.Entry
	DroppedZero int
}

// Loader parses filing files and loads them into a store.
type Loader struct {
	store ledger.Store
	log   *zap.Logger
}

func New(store ledger.Store, log *zap.Logger) *Loader {
	return &Loader{store: store, log: log}
}

// LoadFile parses one filing file and loads it. An already loaded
// period yields Skipped without error unless opts.Replace is set.
func (l *Loader) LoadFile(ctx context.Context, path string, opts Options) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{Path: path}, fmt.Errorf("failed to open filing: %w", err)
	}
	defer f.Close()

	parsed, err := Parse(f)
	if err != nil {
		return Result{Path: path}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	result := Result{
		Path:        path,
		Period:      parsed.Period,
		Entries:     len(parsed.Entries),
		Companies:   countCompanies(parsed.Entries),
		DroppedZero: parsed.DroppedZero,
	}

	if opts.Replace {
		loaded, err := l.store.HasPeriod(ctx, parsed.Period)
		if err != nil {
			return result, err
		}
		if loaded {
			if err := l.store.RemovePeriod(ctx, parsed.Period); err != nil {
				return result, err
			}
			result.Replaced = true
		}
	}

	err = l.store.LoadPeriod(ctx, parsed.Period, parsed.Entries)
	if errors.Is(err, ledger.ErrPeriodLoaded) {
		result.Skipped = true
		l.log.Info("period already loaded, skipping",
			zap.String("file", filepath.Base(path)),
			zap.String("period", parsed.Period.String()),
		)
		return result, nil
	}
	if err != nil {
		return result, err
	}

	l.log.Info("period loaded",
		zap.String("file", filepath.Base(path)),
		zap.String("period", parsed.Period.String()),
		zap.Int("entries", result.Entries),
		zap.Int("companies", result.Companies),
		zap.Int("dropped_zero", result.DroppedZero),
		zap.Bool("replaced", result.Replaced),
	)
	return result, nil
}

// LoadDir loads every *.csv file under dir in name order. Per-file
// failures do not stop the sweep; they are joined into the returned
// error alongside the successful results.
func (l *Loader) LoadDir(ctx context.Context, dir string, opts Options) ([]Result, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var (
		results []Result
		errs    error
	)
	for _, path := range paths {
		if ctx.Err() != nil {
			return results, errors.Join(errs, ctx.Err())
		}
		result, err := l.LoadFile(ctx, path, opts)
		if err != nil {
			l.log.Warn("filing rejected",
				zap.String("file", filepath.Base(path)),
				zap.Error(err),
			)
			errs = errors.Join(errs, err)
			continue
		}
		results = append(results, result)
	}
	return results, errs
}

// =============================================================================
// PARSING
// =============================================================================

// Parse reads one filing file. The whole file is validated before any
// row is returned: bad header, malformed period, period mixing, or an
// unparseable amount each fail the file as a unit.
func Parse(r io.Reader) (*Parsed, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("empty file")
	}

	if err := checkHeader(records[0]); err != nil {
		return nil, err
	}

	parsed := &Parsed{}
	for i, record := range records[1:] {
		line := i + 2 // 1-based, after the header

		if len(record) != len(header) {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", line, len(header), len(record))
		}

		period, err := ledger.ParsePeriod(record[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if parsed.Period.IsZero() {
			parsed.Period = period
		} else if period != parsed.Period {
			return nil, fmt.Errorf("line %d: period %s differs from file period %s", line, period, parsed.Period)
		}

		account := strings.TrimSpace(record[3])
		if account == "" {
			return nil, fmt.Errorf("line %d: empty account code", line)
		}

		amount, err := parseAmount(record[4])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if amount == 0 {
			parsed.DroppedZero++
			continue
		}

		parsed.Entries = append(parsed.Entries, ledger.Entry{
			Company: ledger.NormalizeCompanyCode(record[0]),
			Period:  period,
			SubLine: ledger.SubLineCode(strings.TrimSpace(record[2])),
			Account: ledger.AccountCode(account),
			Amount:  amount,
		})
	}

	if parsed.Period.IsZero() {
		return nil, errors.New("no data rows")
	}
	return parsed, nil
}

func checkHeader(record []string) error {
	if len(record) != len(header) {
		return fmt.Errorf("bad header: expected %d columns, got %d", len(header), len(record))
	}
	for i, want := range header {
		got := strings.ToLower(strings.TrimSpace(record[i]))
		if got != want {
			return fmt.Errorf("bad header: column %d is %q, want %q", i+1, record[i], want)
		}
	}
	return nil
}

// parseAmount converts a decimal-comma or decimal-dot amount string to
// currency minor units.
func parseAmount(s string) (int64, error) {
	raw := strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if raw == "" {
		return 0, errors.New("empty amount")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("bad amount %q: %w", s, err)
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

func countCompanies(entries []ledger.Entry) int {
	companies := make(map[ledger.CompanyCode]bool)
	for _, e := range entries {
		companies[e.Company] = true
	}
	return len(companies)
}
