package depreciation

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/money"
)

// Method computes accumulated depreciation after a number of whole
// months. Implementations must return 0 at month 0, the full
// DepreciableBase at LifeMonths, and never decrease in between.
type Method interface {
	Name() string
	Accumulated(a Asset, months int) money.Amount
}

// StraightLineMethod writes the base off evenly per month:
//
//	accumulated = round_half_up(base * months / (life * 12))
type StraightLineMethod struct{}

func (StraightLineMethod) Name() string { return StraightLine }

func (StraightLineMethod) Accumulated(a Asset, months int) money.Amount {
	base := a.DepreciableBase()
	life := a.LifeMonths()
	if months >= life {
		return base
	}
	if months <= 0 {
		return 0
	}
	acc := base.Decimal().Mul(decimal.NewFromInt(int64(months))).Div(decimal.NewFromInt(int64(life)))
	return money.FromDecimal(acc).Min(base)
}
