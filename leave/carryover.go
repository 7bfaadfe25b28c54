package leave

import (
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// CARRY-OVER RESOLVER
// =============================================================================

// ResolveCarryOver returns the days policy rolls out of its year:
// min(max(0, total-used), MaxDays). Disabled rules and unlimited
// allowances roll nothing.
func ResolveCarryOver(policy UserPolicy, total generic.Allowance, used decimal.Decimal) decimal.Decimal {
	rule := policy.CarryOver
	if !rule.Enabled || total.Unlimited {
		return decimal.Zero
	}
	unused := total.Amount.Value.Sub(used)
	if unused.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(unused, rule.MaxDays)
}

// ExpiryOutcome splits carried days into what survives and what is forfeited.
type ExpiryOutcome struct {
	Retained  decimal.Decimal
	Expired   decimal.Decimal
	ExpiresAt generic.TimePoint
	HasExpiry bool
}

// ApplyExpiry enforces the rule's expiry on days carried into targetYear.
// Once asOf reaches the expiry date only the carried days consumed before
// it are retained. A zero asOf never enforces.
func ApplyExpiry(rule CarryOverRule, carried, usedBeforeExpiry decimal.Decimal, targetYear int, asOf generic.TimePoint) (ExpiryOutcome, error) {
	out := ExpiryOutcome{Retained: carried, Expired: decimal.Zero}
	at, ok, err := rule.ExpiresAt(targetYear)
	if err != nil {
		return out, err
	}
	if !ok {
		return out, nil
	}
	out.ExpiresAt, out.HasExpiry = at, true
	if asOf.IsZero() || asOf.Before(at) {
		return out, nil
	}

	consumed := usedBeforeExpiry
	if consumed.IsNegative() {
		consumed = decimal.Zero
	}
	out.Retained = decimal.Min(carried, consumed)
	out.Expired = carried.Sub(out.Retained)
	return out, nil
}
