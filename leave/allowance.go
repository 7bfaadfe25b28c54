package leave

import (
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// ALLOWANCE CALCULATOR
// =============================================================================

// DefaultMaxDepth bounds how many years a carry-over chain is followed back.
const DefaultMaxDepth = 5

// Breakdown explains where an allowance comes from.
type Breakdown struct {
	Base      generic.Amount
	CarryOver generic.Amount
	// LieuBase replaces Base for lieu entitlements.
	LieuBase           generic.Amount
	CarryOverExpired   generic.Amount
	CarryOverExpiresAt *generic.TimePoint
	AccruedToDate      *generic.Amount
}

func emptyBreakdown() Breakdown {
	return Breakdown{
		Base:             generic.ZeroDays(),
		CarryOver:        generic.ZeroDays(),
		LieuBase:         generic.ZeroDays(),
		CarryOverExpired: generic.ZeroDays(),
	}
}

type allowanceResult struct {
	total     generic.Allowance
	breakdown Breakdown
	// warnings raised while computing this result, replayed on cache hits.
	warnings []error
}

type usageResult struct {
	days     decimal.Decimal
	warnings []error
}

// memoKey includes the depth because the depth guard cuts a chain at
// maxDepth-depth further years: the same year reached at two depths can
// have two different allowances.
type memoKey struct {
	policyKey
	depth int
}

// Calculator computes allowances over one dataset. Results are memoised per
// (user, entitlement, year, depth); a Calculator must not be shared between
// goroutines.
type Calculator struct {
	ix       *index
	maxDepth int
	asOf     generic.TimePoint
	warnings *WarningLog

	allowances map[memoKey]allowanceResult
	usage      map[policyKey]usageResult
	weighers   map[UserID]*CalendarWeigher
}

// NewCalculator indexes ds. maxDepth <= 0 selects DefaultMaxDepth; a zero
// asOf disables carry-over expiry enforcement.
func NewCalculator(ds *Dataset, maxDepth int, asOf generic.TimePoint, warnings *WarningLog) (*Calculator, error) {
	ix, err := newIndex(ds)
	if err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Calculator{
		ix:         ix,
		maxDepth:   maxDepth,
		asOf:       asOf,
		warnings:   warnings,
		allowances: make(map[memoKey]allowanceResult),
		usage:      make(map[policyKey]usageResult),
		weighers:   make(map[UserID]*CalendarWeigher),
	}, nil
}

// TotalAllowance returns the allowance of entitlement for user in year:
// the base accrual plus carry-over received from the previous year. depth
// is the number of carry-over hops already followed; callers start at 0.
func (c *Calculator) TotalAllowance(user UserID, entitlement EntitlementID, year, depth int) (generic.Allowance, error) {
	res, err := c.allowance(policyKey{user: user, entitlement: entitlement, year: year}, depth)
	if err != nil {
		return generic.Allowance{}, err
	}
	return res.total, nil
}

// Used returns the days charged to entitlement for user in year.
func (c *Calculator) Used(user UserID, entitlement EntitlementID, year int) (decimal.Decimal, error) {
	k := policyKey{user: user, entitlement: entitlement, year: year}
	if r, ok := c.usage[k]; ok {
		c.warnings.replay(r.warnings)
		return r.days, nil
	}
	mark := c.warnings.mark()
	v, err := c.usedWithin(user, entitlement, year, generic.YearPeriod(year))
	if err != nil {
		return decimal.Zero, err
	}
	c.usage[k] = usageResult{days: v, warnings: c.warnings.trace(mark)}
	return v, nil
}

func (c *Calculator) usedWithin(user UserID, entitlement EntitlementID, year int, window generic.Period) (decimal.Decimal, error) {
	agg := UsageAggregator{
		Weigher:  c.weigher(user),
		Warnings: c.warnings,
		Known:    c.ix.knownEntitlement,
	}
	return agg.AggregateWithin(c.ix.trips[user], entitlement, year, window)
}

func (c *Calculator) weigher(id UserID) *CalendarWeigher {
	if w, ok := c.weighers[id]; ok {
		return w
	}
	w := NewCalendarWeigher(c.ix.ds.HolidayConfigs, c.ix.users[id], c.ix.ds.Settings)
	c.weighers[id] = w
	return w
}

// Resolve returns the effective policy for the key.
func (c *Calculator) Resolve(user UserID, ent EntitlementType, year int) ResolvedPolicy {
	var pp *UserPolicy
	if p, ok := c.ix.policy(user, ent.ID, year); ok {
		pp = &p
	}
	return ResolvePolicy(ent, pp, user, year)
}

func (c *Calculator) allowance(k policyKey, depth int) (allowanceResult, error) {
	mk := memoKey{policyKey: k, depth: depth}
	if r, ok := c.allowances[mk]; ok {
		c.warnings.replay(r.warnings)
		return r, nil
	}
	mark := c.warnings.mark()
	r, err := c.compute(k, depth)
	if err != nil {
		return allowanceResult{}, err
	}
	r.warnings = c.warnings.trace(mark)
	c.allowances[mk] = r
	return r, nil
}

func (c *Calculator) compute(k policyKey, depth int) (allowanceResult, error) {
	zero := allowanceResult{total: generic.Limited(generic.ZeroDays()), breakdown: emptyBreakdown()}

	ent, ok := c.ix.entitlements[k.entitlement]
	if !ok {
		c.warnings.Add(&DanglingReferenceWarning{Kind: "entitlement", ID: string(k.entitlement), Referrer: "user " + string(k.user)})
		return zero, nil
	}
	user, ok := c.ix.users[k.user]
	if !ok {
		c.warnings.Add(&DanglingReferenceWarning{Kind: "user", ID: string(k.user), Referrer: "entitlement " + string(k.entitlement)})
		return zero, nil
	}

	rp := c.Resolve(k.user, ent, k.year)
	if rp.Unlimited {
		return allowanceResult{total: generic.Unlimited(), breakdown: emptyBreakdown()}, nil
	}

	if depth > c.maxDepth {
		c.warnings.Add(&CycleAbortedWarning{UserID: k.user, EntitlementID: k.entitlement, Year: k.year, MaxDepth: c.maxDepth})
		return zero, nil
	}

	bd := emptyBreakdown()
	if ent.Category == CategoryLieu {
		lieuDays := ResolveHolidays(c.ix.ds.HolidayConfigs, user, k.year).LieuDays
		bd.LieuBase = generic.Days(user.LieuBalance.Add(decimal.NewFromInt(int64(lieuDays))))
	} else {
		bd.Base = generic.Days(rp.EffectiveAccrual().Amount)
	}

	in, err := c.inbound(k, depth)
	if err != nil {
		return allowanceResult{}, err
	}
	bd.CarryOver = generic.Days(in.carried)
	bd.CarryOverExpired = generic.Days(in.expired)
	bd.CarryOverExpiresAt = in.expiresAt

	total := bd.Base.Add(bd.LieuBase).Add(bd.CarryOver)
	return allowanceResult{total: generic.Limited(total), breakdown: bd}, nil
}

type inboundCarryOver struct {
	carried   decimal.Decimal
	expired   decimal.Decimal
	expiresAt *generic.TimePoint
}

// inbound sums carry-over from every active prior-year policy whose rule
// targets k.entitlement. Sources are visited in entitlement id order so
// that usage before expiry is attributed deterministically.
func (c *Calculator) inbound(k policyKey, depth int) (inboundCarryOver, error) {
	in := inboundCarryOver{carried: decimal.Zero, expired: decimal.Zero}
	consumed := decimal.Zero

	for _, p := range c.ix.byUserYear[k.user][k.year-1] {
		if !p.IsActive || !p.CarryOver.Enabled || p.CarryOver.Target(p.EntitlementID) != k.entitlement {
			continue
		}

		prior, err := c.allowance(policyKey{user: k.user, entitlement: p.EntitlementID, year: k.year - 1}, depth+1)
		if err != nil {
			return in, err
		}

		used, err := c.Used(k.user, p.EntitlementID, k.year-1)
		if err != nil {
			return in, err
		}
		carried := ResolveCarryOver(p, prior.total, used)
		if !carried.IsPositive() {
			continue
		}

		usedBefore, err := c.usedBeforeExpiry(k, p.CarryOver)
		if err != nil {
			return in, err
		}
		out, err := ApplyExpiry(p.CarryOver, carried, usedBefore.Sub(consumed), k.year, c.asOf)
		if err != nil {
			return in, err
		}
		if out.HasExpiry {
			consumed = consumed.Add(out.Retained)
			if in.expiresAt == nil || out.ExpiresAt.Before(*in.expiresAt) {
				at := out.ExpiresAt
				in.expiresAt = &at
			}
		}
		in.carried = in.carried.Add(out.Retained)
		in.expired = in.expired.Add(out.Expired)
	}
	return in, nil
}

// usedBeforeExpiry is the usage of k.entitlement in k.year strictly before
// the rule's expiry date. It is only computed when expiry is enforced.
func (c *Calculator) usedBeforeExpiry(k policyKey, rule CarryOverRule) (decimal.Decimal, error) {
	at, ok, err := rule.ExpiresAt(k.year)
	if err != nil || !ok || c.asOf.IsZero() || c.asOf.Before(at) {
		return decimal.Zero, err
	}
	window, err := generic.NewPeriod(generic.StartOfYear(k.year), at.AddDays(-1))
	if err != nil {
		// Expired on or before 1 January: nothing could be consumed.
		return decimal.Zero, nil
	}
	if y := generic.YearPeriod(k.year); window.End.After(y.End) {
		window.End = y.End
	}
	return c.usedWithin(k.user, k.entitlement, k.year, window)
}
