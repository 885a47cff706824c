/*
engine.go - Depreciation computation over a method registry

PURPOSE:
  Engine.Compute answers "what is this asset worth on the books today";
  Engine.Schedule lays out the same computation year by year.

FORMULAS:
  annual             = round_half_up(base / life)
  accumulated        = method(asset, monthsElapsed), capped at base
  bookValue          = cost - accumulated   (>= salvage)
  yearsElapsed       = monthsElapsed / 12, 2 dp
  percentDepreciated = accumulated / base * 100, 2 dp (0 when base = 0)

EXAMPLE:
  engine := depreciation.NewEngine()
  res, err := engine.Compute(asset, time.Now())
  fmt.Println(res.BookValue.Format(2))

SEE ALSO:
  - method.go: Method interface and straight-line
*/
package depreciation

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/money"
)

var (
	twelve  = decimal.NewFromInt(12)
	hundred = decimal.NewFromInt(100)
)

// Result is the depreciation state of an asset at AsOf.
type Result struct {
	AssetID            string          `json:"asset_id"`
	AsOf               time.Time       `json:"as_of"`
	Method             string          `json:"method"`
	MonthsElapsed      int             `json:"months_elapsed"`
	YearsElapsed       decimal.Decimal `json:"years_elapsed"`
	Annual             money.Amount    `json:"annual_depreciation"`
	Accumulated        money.Amount    `json:"accumulated_depreciation"`
	BookValue          money.Amount    `json:"current_book_value"`
	PercentDepreciated decimal.Decimal `json:"percent_depreciated"`
	FullyDepreciated   bool            `json:"fully_depreciated"`
}

// ScheduleRow is one year of the depreciation schedule.
type ScheduleRow struct {
	Year         int          `json:"year"`
	Opening      money.Amount `json:"opening_book_value"`
	Depreciation money.Amount `json:"depreciation"`
	Accumulated  money.Amount `json:"accumulated_depreciation"`
	Closing      money.Amount `json:"closing_book_value"`
}

// Engine holds the available methods. Safe for concurrent use.
type Engine struct {
	mu      sync.RWMutex
	methods map[string]Method
}

// NewEngine returns an engine with straight-line registered.
func NewEngine() *Engine {
	e := &Engine{methods: make(map[string]Method)}
	e.Register(StraightLineMethod{})
	return e
}

// Register adds or replaces a method under m.Name().
func (e *Engine) Register(m Method) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.methods[m.Name()] = m
}

// Methods lists registered method names, sorted.
func (e *Engine) Methods() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.methods))
	for name := range e.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) method(a Asset) (Method, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	m, ok := e.methods[a.Method]
	e.mu.RUnlock()
	if !ok {
		return nil, &AssetError{AssetID: a.ID, Field: "method", Message: fmt.Sprintf("%q is not registered", a.Method), Err: ErrUnsupportedMethod}
	}
	return m, nil
}

// Supports reports whether a's method is registered.
func (e *Engine) Supports(a Asset) error {
	_, err := e.method(a)
	return err
}

// Compute returns the depreciation state of a at asOf.
func (e *Engine) Compute(a Asset, asOf time.Time) (Result, error) {
	m, err := e.method(a)
	if err != nil {
		return Result{}, err
	}

	base := a.DepreciableBase()
	months := a.MonthsElapsed(asOf)
	accumulated := m.Accumulated(a, months).Min(base).Max(0)

	res := Result{
		AssetID:            a.ID,
		AsOf:               asOf,
		Method:             a.Method,
		MonthsElapsed:      months,
		YearsElapsed:       decimal.NewFromInt(int64(months)).DivRound(twelve, 2),
		Annual:             money.FromDecimal(base.Decimal().Div(decimal.NewFromInt(int64(a.UsefulLifeYears)))),
		Accumulated:        accumulated,
		BookValue:          a.PurchaseCost - accumulated,
		PercentDepreciated: decimal.Zero,
		FullyDepreciated:   accumulated == base,
	}
	if base.IsPositive() {
		res.PercentDepreciated = accumulated.Decimal().Mul(hundred).DivRound(base.Decimal(), 2)
	}
	return res, nil
}

// Schedule returns one row per year of useful life. The last row closes
// at exactly the salvage value.
func (e *Engine) Schedule(a Asset) ([]ScheduleRow, error) {
	m, err := e.method(a)
	if err != nil {
		return nil, err
	}

	base := a.DepreciableBase()
	rows := make([]ScheduleRow, 0, a.UsefulLifeYears)
	var prev money.Amount
	for year := 1; year <= a.UsefulLifeYears; year++ {
		acc := m.Accumulated(a, year*12).Min(base).Max(prev)
		rows = append(rows, ScheduleRow{
			Year:         year,
			Opening:      a.PurchaseCost - prev,
			Depreciation: acc - prev,
			Accumulated:  acc,
			Closing:      a.PurchaseCost - acc,
		})
		prev = acc
	}
	return rows, nil
}
