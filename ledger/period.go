package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// PERIOD - Six-digit fiscal period code (YYYYQQ)
// =============================================================================

// Period identifies a fiscal year and quarter as a single integer in
// YYYYQQ form, e.g. 202501 = first quarter (March close) of 2025.
// Integer ordering matches chronological ordering, so periods compare
// and sort with the native < and > operators.
//
// The zero Period is "unset" and means "no floor" where a range start
// is optional. It never validates.
type Period int

// Quarter is the quarter index inside a period code.
// Filing quarters follow the regulator's closing months:
// 01=March, 02=June, 03=September, 04=December.
type Quarter int

const (
	QMar Quarter = 1
	QJun Quarter = 2
	QSep Quarter = 3
	QDec Quarter = 4
)

// Year bounds accepted by validation. Filings outside this range are
// assumed to be typos rather than genuine data.
const (
	MinYear = 2020
	MaxYear = 2030
)

// PeriodOf builds a period code from a year and quarter without
// validating; callers constructing periods from already-validated
// inputs use this directly.
func PeriodOf(year int, q Quarter) Period {
	return Period(year*100 + int(q))
}

// ParsePeriod accepts the canonical six-digit form ("202501") and the
// dashed file notation ("2025-1", "2025-01") used by period-named
// filing archives. The result is validated.
func ParsePeriod(s string) (Period, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, &PeriodError{Input: raw, Reason: "empty value"}
	}

	if year, quarter, ok := strings.Cut(raw, "-"); ok {
		y, err := strconv.Atoi(year)
		if err != nil {
			return 0, &PeriodError{Input: raw, Reason: "year is not numeric"}
		}
		q, err := strconv.Atoi(quarter)
		if err != nil {
			return 0, &PeriodError{Input: raw, Reason: "quarter is not numeric"}
		}
		p := PeriodOf(y, Quarter(q))
		if err := p.Validate(); err != nil {
			return 0, err
		}
		return p, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &PeriodError{Input: raw, Reason: "not numeric"}
	}
	if len(raw) != 6 {
		return 0, &PeriodError{Input: raw, Reason: "must be six digits (YYYYQQ)"}
	}
	p := Period(n)
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return p, nil
}

// Validate checks the YYYYQQ shape: quarter 1-4, year within the
// accepted bounds. Every entry point that receives a period from the
// outside validates before touching any table.
func (p Period) Validate() error {
	y, q := p.Year(), p.Quarter()
	if q < QMar || q > QDec {
		return &PeriodError{Input: p.String(), Reason: fmt.Sprintf("quarter %02d outside 1-4", int(q))}
	}
	if y < MinYear || y > MaxYear {
		return &PeriodError{Input: p.String(), Reason: fmt.Sprintf("year %d outside %d-%d", y, MinYear, MaxYear)}
	}
	return nil
}

// Valid reports whether Validate would pass.
func (p Period) Valid() bool { return p.Validate() == nil }

// IsZero reports the unset period.
func (p Period) IsZero() bool { return p == 0 }

func (p Period) Year() int        { return int(p) / 100 }
func (p Period) Quarter() Quarter { return Quarter(int(p) % 100) }

// YearsBack returns the same quarter n years earlier.
func (p Period) YearsBack(n int) Period {
	return PeriodOf(p.Year()-n, p.Quarter())
}

// WithQuarter returns the same year at a different quarter.
func (p Period) WithQuarter(q Quarter) Period {
	return PeriodOf(p.Year(), q)
}

// String renders the canonical six-digit code.
func (p Period) String() string {
	return fmt.Sprintf("%04d%02d", p.Year(), int(p.Quarter()))
}

// Label renders the human form used in reports, e.g. "2025Q1".
func (p Period) Label() string {
	return fmt.Sprintf("%04d%s", p.Year(), p.Quarter())
}

func (q Quarter) Valid() bool { return q >= QMar && q <= QDec }

func (q Quarter) String() string {
	return "Q" + strconv.Itoa(int(q))
}

// ClosingMonth returns the calendar month the quarter's filing closes.
func (q Quarter) ClosingMonth() string {
	switch q {
	case QMar:
		return "march"
	case QJun:
		return "june"
	case QSep:
		return "september"
	case QDec:
		return "december"
	default:
		return "unknown"
	}
}
