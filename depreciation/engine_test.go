package depreciation_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/depreciation"
	"github.com/warp/payroll-engine/money"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func laptopFleet(t *testing.T) depreciation.Asset {
	t.Helper()
	a, err := depreciation.NewAsset(depreciation.Asset{
		ID:              "asset-1",
		Name:            "Laptop fleet",
		PurchaseCost:    1_200_000,
		SalvageValue:    50_000,
		UsefulLifeYears: 5,
		PurchaseDate:    date(2023, time.January, 15),
	})
	require.NoError(t, err)
	return a
}

// =============================================================================
// COMPUTE
// =============================================================================

func TestEngine_OneYearStraightLine(t *testing.T) {
	// GIVEN: Cost 1,200,000, salvage 50,000, 5 years, bought 2023-01-15
	// WHEN: Computing at 2024-01-15
	// THEN: One year elapsed, 230,000 written off, book value 970,000

	res, err := depreciation.NewEngine().Compute(laptopFleet(t), date(2024, time.January, 15))

	require.NoError(t, err)
	assert.Equal(t, 12, res.MonthsElapsed)
	assert.True(t, decimal.NewFromInt(1).Equal(res.YearsElapsed), res.YearsElapsed.String())
	assert.Equal(t, money.Amount(230_000), res.Annual)
	assert.Equal(t, money.Amount(230_000), res.Accumulated)
	assert.Equal(t, money.Amount(970_000), res.BookValue)
	assert.Equal(t, "20", res.PercentDepreciated.String())
	assert.False(t, res.FullyDepreciated)
}

func TestEngine_PartialMonthNotCounted(t *testing.T) {
	res, err := depreciation.NewEngine().Compute(laptopFleet(t), date(2024, time.January, 14))

	require.NoError(t, err)
	assert.Equal(t, 11, res.MonthsElapsed)
	// 1,150,000 * 11 / 60 = 210,833.33
	assert.Equal(t, money.Amount(210_833), res.Accumulated)
	assert.Equal(t, "0.92", res.YearsElapsed.StringFixed(2))
}

func TestEngine_BeforePurchaseIsZero(t *testing.T) {
	res, err := depreciation.NewEngine().Compute(laptopFleet(t), date(2022, time.June, 1))

	require.NoError(t, err)
	assert.Equal(t, 0, res.MonthsElapsed)
	assert.Equal(t, money.Zero, res.Accumulated)
	assert.Equal(t, money.Amount(1_200_000), res.BookValue)
}

func TestEngine_SalvageExactlyAtEndOfLife(t *testing.T) {
	engine := depreciation.NewEngine()
	asset := laptopFleet(t)

	atEnd, err := engine.Compute(asset, date(2028, time.January, 15))
	require.NoError(t, err)
	wayAfter, err := engine.Compute(asset, date(2040, time.January, 1))
	require.NoError(t, err)

	for _, res := range []depreciation.Result{atEnd, wayAfter} {
		assert.Equal(t, asset.SalvageValue, res.BookValue)
		assert.True(t, res.FullyDepreciated)
		assert.Equal(t, "100", res.PercentDepreciated.String())
		assert.True(t, decimal.NewFromInt(5).Equal(res.YearsElapsed))
	}
}

func TestEngine_BookValueMonotone(t *testing.T) {
	// GIVEN: An awkward base that doesn't divide evenly
	// WHEN: Stepping month by month past end of life
	// THEN: Book value never increases and never drops below salvage

	engine := depreciation.NewEngine()
	asset, err := depreciation.NewAsset(depreciation.Asset{
		Name:            "Van",
		PurchaseCost:    1_000_003,
		SalvageValue:    7,
		UsefulLifeYears: 3,
		PurchaseDate:    date(2024, time.February, 29),
	})
	require.NoError(t, err)

	prev := asset.PurchaseCost
	for m := 0; m <= 40; m++ {
		res, err := engine.Compute(asset, date(2024, time.March, 1).AddDate(0, m, 0))
		require.NoError(t, err)
		assert.LessOrEqual(t, int64(res.BookValue), int64(prev), "month %d", m)
		assert.GreaterOrEqual(t, int64(res.BookValue), int64(asset.SalvageValue), "month %d", m)
		prev = res.BookValue
	}
	assert.Equal(t, asset.SalvageValue, prev)
}

func TestEngine_ZeroBase(t *testing.T) {
	asset, err := depreciation.NewAsset(depreciation.Asset{
		Name: "Land", PurchaseCost: 500_000, SalvageValue: 500_000,
		UsefulLifeYears: 10, PurchaseDate: date(2020, time.January, 1),
	})
	require.NoError(t, err)

	res, err := depreciation.NewEngine().Compute(asset, date(2024, time.January, 1))

	require.NoError(t, err)
	assert.True(t, res.PercentDepreciated.IsZero())
	assert.Equal(t, asset.PurchaseCost, res.BookValue)
}

// =============================================================================
// SCHEDULE
// =============================================================================

func TestEngine_Schedule(t *testing.T) {
	rows, err := depreciation.NewEngine().Schedule(laptopFleet(t))

	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, money.Amount(1_200_000), rows[0].Opening)
	var total money.Amount
	for i, r := range rows {
		assert.Equal(t, i+1, r.Year)
		assert.Equal(t, money.Amount(230_000), r.Depreciation)
		assert.Equal(t, r.Opening-r.Depreciation, r.Closing)
		total += r.Depreciation
	}
	assert.Equal(t, money.Amount(50_000), rows[4].Closing)
	assert.Equal(t, money.Amount(1_150_000), total)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestNewAsset_Rejects(t *testing.T) {
	valid := depreciation.Asset{
		Name: "Desk", PurchaseCost: 100, SalvageValue: 10,
		UsefulLifeYears: 2, PurchaseDate: date(2024, time.January, 1),
	}
	tests := []struct {
		name   string
		mutate func(*depreciation.Asset)
		field  string
	}{
		{"no name", func(a *depreciation.Asset) { a.Name = "  " }, "name"},
		{"zero cost", func(a *depreciation.Asset) { a.PurchaseCost = 0 }, "purchase_cost"},
		{"negative salvage", func(a *depreciation.Asset) { a.SalvageValue = -1 }, "salvage_value"},
		{"salvage above cost", func(a *depreciation.Asset) { a.SalvageValue = 101 }, "salvage_value"},
		{"zero life", func(a *depreciation.Asset) { a.UsefulLifeYears = 0 }, "useful_life_years"},
		{"no purchase date", func(a *depreciation.Asset) { a.PurchaseDate = time.Time{} }, "purchase_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid
			tt.mutate(&a)

			_, err := depreciation.NewAsset(a)

			assert.ErrorIs(t, err, depreciation.ErrInvalidAsset)
			var aerr *depreciation.AssetError
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, tt.field, aerr.Field)
		})
	}
}

func TestEngine_UnknownMethod(t *testing.T) {
	asset := laptopFleet(t)
	asset.Method = "double_declining"
	engine := depreciation.NewEngine()

	_, err := engine.Compute(asset, date(2024, time.January, 15))

	assert.ErrorIs(t, err, depreciation.ErrUnsupportedMethod)
	assert.Equal(t, []string{depreciation.StraightLine}, engine.Methods())
}
