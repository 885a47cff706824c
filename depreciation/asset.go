/*
Package depreciation computes the book value of fixed assets over time.

PURPOSE:
  Payroll's sibling engine: same money model, same validated-constructor
  style, no I/O. Given an asset and an as-of date it reports how much
  value has been written off and what remains on the books.

KEY CONCEPTS:
  - Asset: Cost, salvage value, useful life, purchase date, method
  - Method: How accumulated depreciation grows with elapsed months
  - Engine: Method registry + Compute / Schedule

ELAPSED TIME:
  Whole calendar months from the purchase date. A month only counts once
  the as-of day reaches the purchase day: bought 2023-01-15, on
  2024-01-14 that is 11 months, on 2024-01-15 it is 12.

SEE ALSO:
  - method.go: Straight-line
  - engine.go: Compute and Schedule
*/
package depreciation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/warp/payroll-engine/money"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrInvalidAsset = errors.New("invalid asset")

	ErrUnsupportedMethod = errors.New("unsupported depreciation method")

	ErrAssetNotFound = errors.New("asset not found")
)

// AssetError carries the field that failed validation.
type AssetError struct {
	AssetID string
	Field   string
	Message string
	Err     error
}

func (e *AssetError) Error() string {
	if e.AssetID != "" {
		return fmt.Sprintf("asset %s: %s %s: %v", e.AssetID, e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Field, e.Message, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }

// =============================================================================
// ASSET
// =============================================================================

const StraightLine = "straight_line"

type Asset struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Category        string       `json:"category,omitempty"`
	PurchaseCost    money.Amount `json:"purchase_cost"`
	SalvageValue    money.Amount `json:"salvage_value"`
	UsefulLifeYears int          `json:"useful_life_years"`
	PurchaseDate    time.Time    `json:"purchase_date"`
	Method          string       `json:"method"`
}

// NewAsset normalizes and validates a. An empty method means straight-line.
func NewAsset(a Asset) (Asset, error) {
	a.Name = strings.TrimSpace(a.Name)
	a.Method = strings.ToLower(strings.TrimSpace(a.Method))
	if a.Method == "" {
		a.Method = StraightLine
	}
	if !a.PurchaseDate.IsZero() {
		u := a.PurchaseDate.UTC()
		a.PurchaseDate = time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	}
	if err := a.Validate(); err != nil {
		return Asset{}, err
	}
	return a, nil
}

// Validate checks the asset's own invariants. Method support is checked
// by the Engine that computes it.
func (a Asset) Validate() error {
	invalid := func(field, msg string) error {
		return &AssetError{AssetID: a.ID, Field: field, Message: msg, Err: ErrInvalidAsset}
	}
	switch {
	case a.Name == "":
		return invalid("name", "is required")
	case !a.PurchaseCost.IsPositive():
		return invalid("purchase_cost", "must be greater than zero")
	case a.SalvageValue.IsNegative():
		return invalid("salvage_value", "must not be negative")
	case a.SalvageValue > a.PurchaseCost:
		return invalid("salvage_value", "must not exceed purchase cost")
	case a.UsefulLifeYears <= 0:
		return invalid("useful_life_years", "must be greater than zero")
	case a.PurchaseDate.IsZero():
		return invalid("purchase_date", "is required")
	}
	return nil
}

// DepreciableBase is cost minus salvage.
func (a Asset) DepreciableBase() money.Amount {
	return a.PurchaseCost - a.SalvageValue
}

// LifeMonths is the useful life in months.
func (a Asset) LifeMonths() int { return a.UsefulLifeYears * 12 }

// MonthsElapsed counts whole calendar months from purchase to asOf,
// clamped to [0, LifeMonths].
func (a Asset) MonthsElapsed(asOf time.Time) int {
	p := a.PurchaseDate.UTC()
	t := asOf.UTC()
	months := (t.Year()-p.Year())*12 + int(t.Month()) - int(p.Month())
	if t.Day() < p.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	if life := a.LifeMonths(); months > life {
		return life
	}
	return months
}
