package leave

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// ENGINE - Entry point for balance queries
// =============================================================================

// Engine answers balance queries. It holds no dataset state: every call
// indexes the dataset it is given, so one Engine can serve concurrent
// requests.
type Engine struct {
	MaxDepth int
	// AsOf pins the date used for carry-over expiry and accrued-to-date
	// reporting. When zero, Now is read on every call; when both are unset
	// expiry is not enforced.
	AsOf   generic.TimePoint
	Now    func() generic.TimePoint
	Logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{MaxDepth: DefaultMaxDepth, Logger: logger}
}

// Balance is the computed position of one entitlement for one user and year.
type Balance struct {
	UserID        UserID
	EntitlementID EntitlementID
	Name          string
	Category      Category
	Color         Color
	Year          int
	Used          generic.Amount
	Allowance     generic.Allowance
	// Remaining is nil for unlimited allowances and may be negative.
	Remaining *generic.Amount
	Breakdown Breakdown
	Warnings  []error
}

// Report holds every balance of a user for one year.
type Report struct {
	UserID   UserID
	Year     int
	Balances []Balance
	Warnings []error
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Today returns the reference date for the next computation.
func (e *Engine) Today() generic.TimePoint {
	if !e.AsOf.IsZero() || e.Now == nil {
		return e.AsOf
	}
	return e.Now()
}

func (e *Engine) calculator(ds *Dataset, log *WarningLog) (*Calculator, error) {
	return NewCalculator(ds, e.MaxDepth, e.Today(), log)
}

// Balances computes a balance for every entitlement type, sorted by id.
// Each balance lists every warning its computation hit; the report lists
// them all once.
func (e *Engine) Balances(ds *Dataset, userID UserID, year int) (*Report, error) {
	log := NewWarningLog(e.logger().With("user", string(userID), "year", year))
	calc, err := e.calculator(ds, log)
	if err != nil {
		return nil, err
	}
	user, ok := calc.ix.users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}
	calc.ix.danglingReferences(user, log)

	ents := make([]EntitlementType, len(ds.Entitlements))
	copy(ents, ds.Entitlements)
	sort.Slice(ents, func(i, j int) bool { return ents[i].ID < ents[j].ID })

	report := &Report{UserID: userID, Year: year}
	for _, ent := range ents {
		mark := log.mark()
		b, err := calc.balance(user, ent, year)
		if err != nil {
			return nil, err
		}
		b.Warnings = log.Since(mark)
		report.Balances = append(report.Balances, b)
	}
	report.Warnings = log.List()
	return report, nil
}

// Balance computes one entitlement's balance.
func (e *Engine) Balance(ds *Dataset, userID UserID, entitlementID EntitlementID, year int) (Balance, error) {
	log := NewWarningLog(e.logger().With("user", string(userID), "year", year))
	calc, err := e.calculator(ds, log)
	if err != nil {
		return Balance{}, err
	}
	user, ok := calc.ix.users[userID]
	if !ok {
		return Balance{}, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}
	ent, ok := calc.ix.entitlements[entitlementID]
	if !ok {
		return Balance{}, fmt.Errorf("entitlement %s: %w", entitlementID, generic.ErrNotFound)
	}
	b, err := calc.balance(user, ent, year)
	if err != nil {
		return Balance{}, err
	}
	b.Warnings = log.List()
	return b, nil
}

// Holidays resolves the user's holiday calendar for year.
func (e *Engine) Holidays(ds *Dataset, userID UserID, year int) (HolidayResolution, error) {
	for _, u := range ds.Users {
		if u.ID == userID {
			return ResolveHolidays(ds.HolidayConfigs, u, year), nil
		}
	}
	return HolidayResolution{}, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
}

func (c *Calculator) balance(user User, ent EntitlementType, year int) (Balance, error) {
	res, err := c.allowance(policyKey{user: user.ID, entitlement: ent.ID, year: year}, 0)
	if err != nil {
		return Balance{}, err
	}
	used, err := c.Used(user.ID, ent.ID, year)
	if err != nil {
		return Balance{}, err
	}

	b := Balance{
		UserID:        user.ID,
		EntitlementID: ent.ID,
		Name:          ent.Name,
		Category:      ent.Category,
		Color:         ent.Color,
		Year:          year,
		Used:          generic.Days(used),
		Allowance:     res.total,
		Breakdown:     res.breakdown,
	}
	if rem, ok := res.total.Remaining(b.Used); ok {
		b.Remaining = &rem
	}
	if !c.asOf.IsZero() && !res.total.Unlimited && ent.Category != CategoryLieu {
		accrued := generic.Days(c.Resolve(user.ID, ent, year).EffectiveAccrual().AccruedBy(year, c.asOf))
		b.Breakdown.AccruedToDate = &accrued
	}
	return b, nil
}
