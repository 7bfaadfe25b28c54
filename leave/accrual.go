package leave

import (
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

var monthsPerYear = decimal.NewFromInt(12)

// AccruedBy returns how much of the yearly amount has been earned in year
// by asOf. Lump-sum and yearly accruals grant everything on 1 January;
// monthly accruals grant a twelfth on the first of each month.
func (a Accrual) AccruedBy(year int, asOf generic.TimePoint) decimal.Decimal {
	if asOf.Before(generic.StartOfYear(year)) {
		return decimal.Zero
	}
	if asOf.After(generic.EndOfYear(year)) {
		return a.Amount
	}
	switch a.Period {
	case AccrualMonthly:
		months := decimal.NewFromInt(int64(asOf.Month()))
		return a.Amount.Mul(months).Div(monthsPerYear).Round(2)
	default:
		return a.Amount
	}
}
