package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/money"
)

func TestPercent_RoundsHalfUp(t *testing.T) {
	// GIVEN: A base whose percentage lands exactly on a half unit
	// WHEN: Taking 15% of 10 (1.5) and 12.5% of 4 (0.5)
	// THEN: Both round up
	assert.Equal(t, money.Amount(2), money.Percent(10, decimal.NewFromInt(15)))
	assert.Equal(t, money.Amount(1), money.Percent(4, decimal.RequireFromString("12.5")))
	assert.Equal(t, money.Amount(180_000), money.Percent(1_200_000, decimal.NewFromInt(15)))
}

func TestPercent_BelowHalfRoundsDown(t *testing.T) {
	assert.Equal(t, money.Amount(1), money.Percent(7, decimal.NewFromInt(20))) // 1.4
}

func TestFormatAndParse(t *testing.T) {
	assert.Equal(t, "1234.56", money.Amount(123456).Format(2))
	assert.Equal(t, "1200000", money.Amount(1_200_000).Format(0))

	a, err := money.Parse("1234.565", 2)
	require.NoError(t, err)
	assert.Equal(t, money.Amount(123457), a)

	_, err = money.Parse("twelve", 2)
	assert.Error(t, err)
}

func TestSumMinMax(t *testing.T) {
	assert.Equal(t, money.Amount(60), money.Sum(10, 20, 30))
	assert.Equal(t, money.Amount(10), money.Amount(10).Min(20))
	assert.Equal(t, money.Amount(20), money.Amount(10).Max(20))
}

func TestFromDecimalChecked_RejectsOutOfRange(t *testing.T) {
	// GIVEN: Values just inside and far outside the int64 range
	// WHEN: Converting with the checked variant
	// THEN: In-range values round half-up, out-of-range values report false

	a, ok := money.FromDecimalChecked(decimal.RequireFromString("1234.5"))
	require.True(t, ok)
	assert.Equal(t, money.Amount(1235), a)

	a, ok = money.FromDecimalChecked(decimal.RequireFromString("9223372036854775807"))
	require.True(t, ok)
	assert.Equal(t, money.Amount(9223372036854775807), a)

	_, ok = money.FromDecimalChecked(decimal.RequireFromString("120000000000000000000000000"))
	assert.False(t, ok)

	_, ok = money.FromDecimalChecked(decimal.RequireFromString("-9223372036854775809"))
	assert.False(t, ok)
}
