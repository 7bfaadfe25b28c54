/*
Package generic provides the domain-agnostic primitives of the leave engine.

PURPOSE:
  This package contains the value types every balance computation is built
  from. Whether the engine is counting vacation days, sick days or lieu time,
  the same amount arithmetic, calendar dates and error types apply.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity of days (half days are common, so never float64)
  - Allowance: A bounded Amount, or Unlimited
  - DateSet / WeekdaySet: Lookup sets used by the day weigher

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so 0.5 + 0.5 is exactly 1
  2. Explicit unlimited: Unlimited is a variant, not a magic large number
  3. Immutability: All operations return new values

USAGE:
  used := generic.NewAmount(3.5, generic.UnitDays)
  total := generic.Limited(generic.NewAmountFromInt(20, generic.UnitDays))
  remaining, ok := total.Remaining(used) // 16.5, true

SEE ALSO:
  - time.go: Calendar dates (TimePoint) and parsing
  - period.go: Date ranges
  - errors.go: Sentinel and structured errors
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit (always days for leave)
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays  Unit = "days"
	UnitHours Unit = "hours"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

// Days wraps a decimal as a day amount.
func Days(d decimal.Decimal) Amount {
	return Amount{Value: d, Unit: UnitDays}
}

// ZeroDays is the additive identity for day amounts.
func ZeroDays() Amount {
	return Amount{Value: decimal.Zero, Unit: UnitDays}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Div(s decimal.Decimal) Amount { return Amount{Value: a.Value.Div(s), Unit: a.Unit} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) String() string               { return a.Value.String() }

func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

func (a Amount) Max(b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// ClampZero returns the amount, or zero if it is negative.
func (a Amount) ClampZero() Amount {
	if a.IsNegative() {
		return a.Zero()
	}
	return a
}

// Float returns the value as float64 for display purposes only.
func (a Amount) Float() float64 {
	f, _ := a.Value.Float64()
	return f
}

// =============================================================================
// ALLOWANCE - Bounded amount or unlimited
// =============================================================================

// Allowance is the total number of days available for a period.
// An unlimited allowance carries no amount and never participates
// in carry-over arithmetic.
type Allowance struct {
	Amount    Amount
	Unlimited bool
}

// Limited returns a bounded allowance.
func Limited(a Amount) Allowance { return Allowance{Amount: a} }

// Unlimited returns the unlimited allowance.
func Unlimited() Allowance { return Allowance{Amount: ZeroDays(), Unlimited: true} }

// Add sums two allowances. Unlimited absorbs everything.
func (al Allowance) Add(b Allowance) Allowance {
	if al.Unlimited || b.Unlimited {
		return Unlimited()
	}
	return Limited(al.Amount.Add(b.Amount))
}

// Remaining returns allowance minus used. ok is false for unlimited allowances.
func (al Allowance) Remaining(used Amount) (Amount, bool) {
	if al.Unlimited {
		return Amount{}, false
	}
	return al.Amount.Sub(used), true
}

func (al Allowance) Equal(b Allowance) bool {
	if al.Unlimited || b.Unlimited {
		return al.Unlimited == b.Unlimited
	}
	return al.Amount.Equal(b.Amount)
}

func (al Allowance) String() string {
	if al.Unlimited {
		return "unlimited"
	}
	return al.Amount.String()
}

// =============================================================================
// LOOKUP SETS
// =============================================================================

// DateSet is a set of calendar dates keyed by their ISO string.
type DateSet map[string]struct{}

func NewDateSet(dates ...TimePoint) DateSet {
	s := make(DateSet, len(dates))
	for _, d := range dates {
		s.Add(d)
	}
	return s
}

func (s DateSet) Add(d TimePoint)           { s[d.String()] = struct{}{} }
func (s DateSet) Contains(d TimePoint) bool { _, ok := s[d.String()]; return ok }
func (s DateSet) Len() int                  { return len(s) }

// Union adds every date of o to s.
func (s DateSet) Union(o DateSet) DateSet {
	for k := range o {
		s[k] = struct{}{}
	}
	return s
}

// WeekdaySet is a set of weekdays considered working days.
type WeekdaySet uint8

// MondayToFriday is the default working week.
var MondayToFriday = NewWeekdaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s
}

func (s WeekdaySet) Contains(d time.Weekday) bool { return s&(1<<uint(d)) != 0 }
func (s WeekdaySet) IsEmpty() bool                { return s == 0 }

// Weekdays lists the set members from Sunday to Saturday.
func (s WeekdaySet) Weekdays() []time.Weekday {
	var out []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Contains(d) {
			out = append(out, d)
		}
	}
	return out
}
