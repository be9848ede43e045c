/*
errors.go - Centralized error types for the filings pipeline

PURPOSE:
  All error types in one place for consistency and discoverability.
  Stage packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Validation errors - malformed input, rejected before any table access
  2. Store errors - fact-table lifecycle violations
  3. Reference errors - missing or malformed catalog data

USAGE:
  Callers match with errors.Is:

    if errors.Is(err, ledger.ErrBadPeriod) {
        // report the offending value and abort, nothing was written
    }

SEE ALSO:
  - period.go: PeriodError construction sites
  - store.go: Store methods returning these errors
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrBadPeriod is returned for a malformed period code (wrong digit
	// count, quarter outside 1-4, year out of bounds, non-numeric).
	// Always raised before any table access.
	ErrBadPeriod = errors.New("invalid period")

	// ErrPeriodLoaded is returned when loading a period that is already
	// present in the fact table. Loads are atomic per period; callers
	// either skip or remove-and-reload.
	ErrPeriodLoaded = errors.New("period already loaded")

	// ErrNoCatalog is returned when a stage needs the concept catalog
	// and the reference table is empty. The catalog is seeded once at
	// setup time, so an empty catalog is a deployment mistake.
	ErrNoCatalog = errors.New("concept catalog is empty")

	// ErrBadCatalog is returned for a catalog document that fails
	// structural validation (bad sign, duplicate account, mixed grain).
	ErrBadCatalog = errors.New("invalid concept catalog")

	// ErrBadCompanyKind is returned when a company record carries a
	// kind outside the closed enum.
	ErrBadCompanyKind = errors.New("invalid company kind")

	// ErrUnknownTable is returned by export/inspection lookups for a
	// table name the store does not expose.
	ErrUnknownTable = errors.New("unknown table")
)

// =============================================================================
// STRUCTURED ERRORS - Carry the offending value
// =============================================================================

// PeriodError reports a malformed period together with the raw input,
// so operators can see exactly what was rejected.
type PeriodError struct {
	Input  string
	Reason string
}

func (e *PeriodError) Error() string {
	return fmt.Sprintf("invalid period %q: %s", e.Input, e.Reason)
}

func (e *PeriodError) Unwrap() error { return ErrBadPeriod }

// CatalogError reports which concept definition failed validation.
type CatalogError struct {
	Concept string
	Reason  string
}

func (e *CatalogError) Error() string {
	if e.Concept == "" {
		return fmt.Sprintf("invalid concept catalog: %s", e.Reason)
	}
	return fmt.Sprintf("invalid concept %q: %s", e.Concept, e.Reason)
}

func (e *CatalogError) Unwrap() error { return ErrBadCatalog }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation reports whether the error is caller input that was
// rejected before any table was touched.
func IsValidation(err error) bool {
	return errors.Is(err, ErrBadPeriod) ||
		errors.Is(err, ErrBadCatalog) ||
		errors.Is(err, ErrBadCompanyKind)
}
