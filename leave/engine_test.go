package leave_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

func newTestEngine() (*leave.Engine, *bytes.Buffer) {
	var buf bytes.Buffer
	return leave.NewEngine(slog.New(slog.NewTextHandler(&buf, nil))), &buf
}

// =============================================================================
// END-TO-END SCENARIOS
// =============================================================================

func TestEngine_ChristmasWeekTrip(t *testing.T) {
	// GIVEN: Trip 2024-12-23..27 with Christmas on Wednesday
	// THEN: 4 days used

	ds := &leave.Dataset{
		Entitlements:   []leave.EntitlementType{leave.VacationEntitlement("vacation", "Vacation", d(25), d(0))},
		Users:          []leave.User{alice(leave.WeekendRuleMonday)},
		HolidayConfigs: []leave.HolidayConfig{ukConfig(holiday("xmas", "Christmas Day", "2024-12-25"))},
		Trips:          []leave.Trip{fullTrip("xmas-week", "2024-12-23", "2024-12-27", "vacation")},
	}
	engine, _ := newTestEngine()

	b, err := engine.Balance(ds, "alice", "vacation", 2024)

	require.NoError(t, err)
	assertAmount(t, 4, b.Used)
	require.NotNil(t, b.Remaining)
	assertAmount(t, 21, *b.Remaining)
}

func TestEngine_ObservedHolidayFromPreviousYear_NotCharged(t *testing.T) {
	ds := &leave.Dataset{
		Entitlements:   []leave.EntitlementType{vacation()},
		Users:          []leave.User{alice(leave.WeekendRuleMonday)},
		HolidayConfigs: []leave.HolidayConfig{ukConfig(holiday("nye", "New Year's Eve", "2023-12-31"))},
		Trips:          []leave.Trip{fullTrip("jan", "2024-01-01", "2024-01-02", "vacation")},
	}
	engine, _ := newTestEngine()

	b, err := engine.Balance(ds, "alice", "vacation", 2024)

	require.NoError(t, err)
	assertAmount(t, 1, b.Used)
}

func TestEngine_CarryOverBalance(t *testing.T) {
	engine, _ := newTestEngine()

	b, err := engine.Balance(scenarioD(), "alice", "vacation", 2025)

	require.NoError(t, err)
	assertAmount(t, 25, b.Allowance.Amount)
	assertAmount(t, 22, b.Breakdown.Base)
	assertAmount(t, 3, b.Breakdown.CarryOver)
	assert.Nil(t, b.Breakdown.CarryOverExpiresAt)
	assertAmount(t, 0, b.Used)
}

func TestEngine_UnlimitedBalance_NoRemaining(t *testing.T) {
	ds := &leave.Dataset{
		Entitlements: []leave.EntitlementType{leave.UnlimitedEntitlement("wfh", "Remote")},
		Users:        []leave.User{alice(leave.WeekendRuleNone)},
		Trips:        []leave.Trip{fullTrip("t", "2025-03-03", "2025-03-04", "wfh")},
	}
	engine, _ := newTestEngine()

	b, err := engine.Balance(ds, "alice", "wfh", 2025)

	require.NoError(t, err)
	assert.True(t, b.Allowance.Unlimited)
	assert.Nil(t, b.Remaining)
	assertAmount(t, 2, b.Used)
}

// =============================================================================
// EXPIRY AND ACCRUAL
// =============================================================================

// expiringCarryOver: 5 days carried into 2025, expiring after 31 March,
// 2 days taken in February and 3 in May.
func expiringCarryOver() *leave.Dataset {
	rule := leave.CarryOverRule{Enabled: true, MaxDays: d(5), ExpiryType: leave.ExpiryFixedDate, ExpiryValue: "03-31"}
	return &leave.Dataset{
		Entitlements: []leave.EntitlementType{vacation()},
		Users:        []leave.User{alice(leave.WeekendRuleNone)},
		Policies: []leave.UserPolicy{
			policy("vacation", 2024, 5, &rule),
			policy("vacation", 2025, 20, nil),
		},
		Trips: []leave.Trip{
			fullTrip("feb", "2025-02-03", "2025-02-04", "vacation"),
			fullTrip("may", "2025-05-05", "2025-05-07", "vacation"),
		},
	}
}

func TestEngine_CarryOverExpiry(t *testing.T) {
	// GIVEN: Carry-over expiring after 31 March
	// WHEN: Querying on 1 June 2025
	// THEN: Only the 2 days used before expiry survive

	ds := expiringCarryOver()
	engine, _ := newTestEngine()
	engine.AsOf = date("2025-06-01")

	b, err := engine.Balance(ds, "alice", "vacation", 2025)

	require.NoError(t, err)
	assertAmount(t, 2, b.Breakdown.CarryOver)
	assertAmount(t, 3, b.Breakdown.CarryOverExpired)
	require.NotNil(t, b.Breakdown.CarryOverExpiresAt)
	assert.Equal(t, "2025-04-01", b.Breakdown.CarryOverExpiresAt.String())
	assertAmount(t, 22, b.Allowance.Amount)
	assertAmount(t, 5, b.Used)
	assertAmount(t, 17, *b.Remaining)

	engine.AsOf = date("2025-03-15")
	early, err := engine.Balance(ds, "alice", "vacation", 2025)
	require.NoError(t, err)
	assertAmount(t, 5, early.Breakdown.CarryOver)
	assertAmount(t, 25, early.Allowance.Amount)
}

func TestEngine_ClockReadOnEveryCall(t *testing.T) {
	// GIVEN: One engine whose clock moves past the expiry date
	// WHEN: Querying before and after
	// THEN: Expiry applies from the second call on, unless AsOf is pinned

	ds := expiringCarryOver()
	engine, _ := newTestEngine()
	today := date("2025-03-30")
	engine.Now = func() generic.TimePoint { return today }

	before, err := engine.Balance(ds, "alice", "vacation", 2025)
	require.NoError(t, err)
	assertAmount(t, 5, before.Breakdown.CarryOver)

	today = date("2025-04-01")
	after, err := engine.Balance(ds, "alice", "vacation", 2025)
	require.NoError(t, err)
	assertAmount(t, 2, after.Breakdown.CarryOver)
	assertAmount(t, 3, after.Breakdown.CarryOverExpired)

	engine.AsOf = date("2025-03-15")
	pinned, err := engine.Balance(ds, "alice", "vacation", 2025)
	require.NoError(t, err)
	assertAmount(t, 5, pinned.Breakdown.CarryOver)
	assert.Equal(t, "2025-03-15", engine.Today().String())
}

func TestEngine_AccruedToDate(t *testing.T) {
	p := policy("vacation", 2025, 24, nil)
	p.Accrual.Period = leave.AccrualMonthly
	ds := &leave.Dataset{
		Entitlements: []leave.EntitlementType{vacation()},
		Users:        []leave.User{alice(leave.WeekendRuleNone)},
		Policies:     []leave.UserPolicy{p},
	}
	engine, _ := newTestEngine()

	b, err := engine.Balance(ds, "alice", "vacation", 2025)
	require.NoError(t, err)
	assert.Nil(t, b.Breakdown.AccruedToDate)

	engine.AsOf = date("2025-03-10")
	b, err = engine.Balance(ds, "alice", "vacation", 2025)
	require.NoError(t, err)
	require.NotNil(t, b.Breakdown.AccruedToDate)
	assertAmount(t, 6, *b.Breakdown.AccruedToDate)
	assertAmount(t, 24, b.Allowance.Amount)
}

// =============================================================================
// REPORTS AND WARNINGS
// =============================================================================

func TestEngine_Balances_AllEntitlementsSorted(t *testing.T) {
	ds := scenarioD()
	ds.Entitlements = append(ds.Entitlements,
		leave.SickEntitlement("sick", "Sick", d(10)),
		leave.LieuEntitlement("lieu", "Lieu"))
	engine, _ := newTestEngine()

	report, err := engine.Balances(ds, "alice", 2025)

	require.NoError(t, err)
	require.Len(t, report.Balances, 3)
	assert.Equal(t, leave.EntitlementID("lieu"), report.Balances[0].EntitlementID)
	assert.Equal(t, leave.EntitlementID("sick"), report.Balances[1].EntitlementID)
	assert.Equal(t, leave.EntitlementID("vacation"), report.Balances[2].EntitlementID)
	assertAmount(t, 10, report.Balances[1].Allowance.Amount)
	assert.Empty(t, report.Warnings)
}

func TestEngine_Balances_ReportsDanglingReferences(t *testing.T) {
	ds := scenarioD()
	ds.Policies = append(ds.Policies, policy("retired-type", 2025, 5, nil))
	ds.Trips = append(ds.Trips, fullTrip("orphan", "2025-03-03", "2025-03-03", "retired-type"))
	ds.Users[0].HolidayConfigIDs = []string{"nowhere"}
	engine, logs := newTestEngine()

	report, err := engine.Balances(ds, "alice", 2025)

	require.NoError(t, err)
	require.Len(t, report.Balances, 1)
	assert.Len(t, report.Warnings, 3)
	for _, w := range report.Warnings {
		assert.True(t, errors.Is(w, leave.ErrDanglingReference))
	}
	assert.Contains(t, logs.String(), "retired-type")
}

func TestEngine_Balances_SharedWarningOnEveryBalance(t *testing.T) {
	// GIVEN: A trip allocation to a missing entitlement
	// WHEN: Computing all balances
	// THEN: Each balance carries the warning; the report lists it once

	trip := fullTrip("x", "2025-03-03", "2025-03-03", "")
	trip.Allocations = []leave.Allocation{{EntitlementID: "ghost", Days: d(1), TargetYear: year(2025)}}
	ds := &leave.Dataset{
		Entitlements: []leave.EntitlementType{
			leave.VacationEntitlement("vacation", "Vacation", d(20), d(0)),
			leave.SickEntitlement("sick", "Sick", d(10)),
		},
		Users:          []leave.User{alice(leave.WeekendRuleNone)},
		HolidayConfigs: []leave.HolidayConfig{ukConfig()},
		Trips:          []leave.Trip{trip},
	}
	engine, _ := newTestEngine()

	report, err := engine.Balances(ds, "alice", 2025)

	require.NoError(t, err)
	require.Len(t, report.Balances, 2)
	for _, b := range report.Balances {
		require.Len(t, b.Warnings, 1, b.EntitlementID)
		var dangling *leave.DanglingReferenceWarning
		require.ErrorAs(t, b.Warnings[0], &dangling)
		assert.Equal(t, "ghost", dangling.ID)
	}
	assert.Len(t, report.Warnings, 1)
}

func TestEngine_UnknownUser(t *testing.T) {
	engine, _ := newTestEngine()

	_, err := engine.Balances(scenarioD(), "bob", 2025)
	assert.True(t, errors.Is(err, leave.ErrUnknownUser))

	_, err = engine.Holidays(scenarioD(), "bob", 2025)
	assert.True(t, errors.Is(err, leave.ErrUnknownUser))
}

func TestEngine_UnknownEntitlement_NotFound(t *testing.T) {
	engine, _ := newTestEngine()

	_, err := engine.Balance(scenarioD(), "alice", "nope", 2025)

	assert.True(t, generic.IsNotFound(err))
}

func TestEngine_InvalidTripDate_Surfaces(t *testing.T) {
	ds := scenarioD()
	ds.Trips = append(ds.Trips, fullTrip("bad", "2024-06-31", "2024-07-01", "vacation"))
	engine, _ := newTestEngine()

	_, err := engine.Balance(ds, "alice", "vacation", 2025)

	assert.True(t, generic.IsClientError(err))
}
