package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store"
	"github.com/warp/leave-engine/store/sqlite"
)

var _ store.Repository = (*sqlite.Store)(nil)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDataset() *leave.Dataset {
	y := 2025
	vacation := leave.VacationEntitlement("vacation", "Vacation", decimal.NewFromInt(20), decimal.NewFromInt(5))
	vacation.DefaultCarryOver.ExpiryType = leave.ExpiryFixedDate
	vacation.DefaultCarryOver.ExpiryValue = "03-31"

	settings, _ := leave.NewWorkspaceSettings(1, 2, 3, 4, 5)
	return &leave.Dataset{
		Entitlements: []leave.EntitlementType{
			leave.LieuEntitlement("lieu", "Lieu"),
			vacation,
		},
		Users: []leave.User{{
			ID: "alice", Name: "Alice", HolidayConfigIDs: []string{"uk", "team"},
			HolidayWeekendRule: leave.WeekendRuleLieu, LieuBalance: decimal.RequireFromString("1.5"),
		}},
		Policies: []leave.UserPolicy{{
			UserID: "alice", EntitlementID: "vacation", Year: 2025, IsActive: true,
			Accrual:   leave.Accrual{Period: leave.AccrualMonthly, Amount: decimal.NewFromInt(24)},
			CarryOver: leave.CarryOverRule{Enabled: true, MaxDays: decimal.NewFromInt(3), ExpiryType: leave.ExpiryNone},
		}},
		HolidayConfigs: []leave.HolidayConfig{{
			ID: "uk", Name: "United Kingdom", Jurisdiction: "GB",
			Holidays: []leave.PublicHoliday{
				{ID: "xmas", Name: "Christmas Day", Date: generic.MustParseDate("2025-12-25"), Jurisdiction: "GB", IsIncluded: true, ConfigID: "uk"},
				{ID: "custom-1", Name: "Team day", Date: generic.MustParseDate("2025-06-14"), IsIncluded: false, ConfigID: "uk"},
			},
		}},
		Trips: []leave.Trip{{
			ID: "t1", UserID: "alice", Name: "Spring", StartDate: "2025-12-29", EndDate: "2026-01-02",
			Status: leave.StatusApproved, DurationMode: leave.DurationCustom,
			StartPortion: leave.PortionPM, ExcludedDates: []string{"2025-12-31"},
			Allocations: []leave.Allocation{
				{EntitlementID: "vacation", Days: decimal.NewFromInt(2), TargetYear: &y},
				{EntitlementID: "vacation", Days: decimal.RequireFromString("1.5")},
			},
		}},
		Settings: settings,
	}
}

func TestImportAndLoad_RoundTrip(t *testing.T) {
	// GIVEN: A dataset touching every table
	// WHEN: Importing then loading
	// THEN: Every collection comes back intact
	s := newStore(t)
	ctx := context.Background()
	want := sampleDataset()

	require.NoError(t, s.ImportDataset(ctx, want))
	got, err := s.LoadDataset(ctx)
	require.NoError(t, err)

	require.Len(t, got.Entitlements, 2)
	assert.Equal(t, leave.EntitlementID("lieu"), got.Entitlements[0].ID)
	vac := got.Entitlements[1]
	assert.Equal(t, leave.ColorBlue, vac.Color)
	assert.Equal(t, leave.ExpiryFixedDate, vac.DefaultCarryOver.ExpiryType)
	assert.Equal(t, "03-31", vac.DefaultCarryOver.ExpiryValue)
	assert.True(t, vac.DefaultAccrual.Amount.Equal(decimal.NewFromInt(20)))

	require.Len(t, got.Users, 1)
	assert.Equal(t, []string{"uk", "team"}, got.Users[0].HolidayConfigIDs)
	assert.Equal(t, leave.WeekendRuleLieu, got.Users[0].HolidayWeekendRule)
	assert.Equal(t, "1.5", got.Users[0].LieuBalance.String())

	require.Len(t, got.Policies, 1)
	assert.Equal(t, leave.AccrualMonthly, got.Policies[0].Accrual.Period)
	assert.True(t, got.Policies[0].CarryOver.MaxDays.Equal(decimal.NewFromInt(3)))

	require.Len(t, got.HolidayConfigs, 1)
	holidays := got.HolidayConfigs[0].Holidays
	require.Len(t, holidays, 2)
	assert.Equal(t, "custom-1", holidays[0].ID)
	assert.True(t, holidays[0].IsWeekend)
	assert.False(t, holidays[0].IsIncluded)
	assert.True(t, holidays[1].Date.Equal(generic.MustParseDate("2025-12-25")))

	require.Len(t, got.Trips, 1)
	trip := got.Trips[0]
	assert.Equal(t, []string{"2025-12-31"}, trip.ExcludedDates)
	assert.Equal(t, leave.PortionPM, trip.StartPortion)
	require.Len(t, trip.Allocations, 2)
	assert.Equal(t, 2025, *trip.Allocations[0].TargetYear)
	assert.Nil(t, trip.Allocations[1].TargetYear)

	assert.Equal(t, want.Settings, got.Settings)
}

func TestImportDataset_ReplacesEverything(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.ImportDataset(ctx, sampleDataset()))

	require.NoError(t, s.ImportDataset(ctx, &leave.Dataset{
		Users: []leave.User{{ID: "bob", HolidayWeekendRule: leave.WeekendRuleNone}},
	}))

	got, err := s.LoadDataset(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Entitlements)
	assert.Empty(t, got.Trips)
	require.Len(t, got.Users, 1)
	assert.Equal(t, leave.UserID("bob"), got.Users[0].ID)
}

func TestImportDataset_RejectsDuplicatePolicies(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	ds := sampleDataset()
	ds.Policies = append(ds.Policies, ds.Policies[0])

	err := s.ImportDataset(ctx, ds)

	assert.True(t, errors.Is(err, leave.ErrDuplicatePolicy))
}

func TestCreatePolicies_DuplicateAbortsBatch(t *testing.T) {
	// GIVEN: A stored 2025 policy
	// WHEN: Creating a batch where the second policy collides
	// THEN: ErrDuplicatePolicy and the first policy is rolled back
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.ImportDataset(ctx, sampleDataset()))

	fresh := leave.UserPolicy{UserID: "alice", EntitlementID: "lieu", Year: 2025, IsActive: true,
		Accrual: leave.Accrual{Period: leave.AccrualYearly, Amount: decimal.Zero}}
	dup := sampleDataset().Policies[0]

	err := s.CreatePolicies(ctx, []leave.UserPolicy{fresh, dup})
	assert.True(t, errors.Is(err, leave.ErrDuplicatePolicy))

	policies, err := s.ListPolicies(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, policies, 1)
}

func TestSavePolicy_Upserts(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.ImportDataset(ctx, sampleDataset()))

	p := sampleDataset().Policies[0]
	p.IsActive = false
	p.Accrual.Amount = decimal.NewFromInt(10)
	require.NoError(t, s.SavePolicy(ctx, p))

	policies, err := s.ListPolicies(ctx, "")
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.False(t, policies[0].IsActive)
	assert.True(t, policies[0].Accrual.Amount.Equal(decimal.NewFromInt(10)))
}

func TestDeleteEntitlement_KeepsReferences(t *testing.T) {
	// GIVEN: Policies and trips referencing vacation
	// WHEN: Deleting the vacation entitlement
	// THEN: The references stay, and the engine reports them as dangling
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.ImportDataset(ctx, sampleDataset()))

	require.NoError(t, s.DeleteEntitlement(ctx, "vacation"))
	assert.True(t, errors.Is(s.DeleteEntitlement(ctx, "vacation"), generic.ErrNotFound))

	ds, err := s.LoadDataset(ctx)
	require.NoError(t, err)
	assert.Len(t, ds.Policies, 1)
	assert.Len(t, ds.Trips, 1)

	report, err := leave.NewEngine(nil).Balances(ds, "alice", 2025)
	require.NoError(t, err)
	assert.NotEmpty(t, report.Warnings)
}

func TestSaveHolidayConfig_ReplacesHolidays(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.ImportDataset(ctx, sampleDataset()))

	require.NoError(t, s.SaveHolidayConfig(ctx, leave.HolidayConfig{
		ID: "uk", Name: "UK", Holidays: []leave.PublicHoliday{
			{ID: "boxing", Name: "Boxing Day", Date: generic.MustParseDate("2025-12-26"), IsIncluded: true},
		},
	}))

	configs, err := s.ListHolidayConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "UK", configs[0].Name)
	require.Len(t, configs[0].Holidays, 1)
	assert.Equal(t, "boxing", configs[0].Holidays[0].ID)
	assert.Equal(t, "uk", configs[0].Holidays[0].ConfigID)
}

func TestSaveUserAndTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveUser(ctx, leave.User{ID: "carol", HolidayConfigIDs: []string{"fr"}, HolidayWeekendRule: leave.WeekendRuleMonday}))
	require.NoError(t, s.SaveUser(ctx, leave.User{ID: "carol", Name: "Carol", HolidayWeekendRule: leave.WeekendRuleNone}))

	u, err := s.GetUser(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, "Carol", u.Name)
	assert.Empty(t, u.HolidayConfigIDs)

	_, err = s.GetUser(ctx, "nobody")
	assert.True(t, errors.Is(err, generic.ErrNotFound))

	trip := leave.Trip{ID: "t9", UserID: "carol", StartDate: "2025-02-03", EndDate: "2025-02-04",
		Status: leave.StatusPending, DurationMode: leave.DurationAllFull, EntitlementID: "vacation"}
	require.NoError(t, s.SaveTrip(ctx, trip))
	trip.Status = leave.StatusCancelled
	require.NoError(t, s.SaveTrip(ctx, trip))

	trips, err := s.ListTrips(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.True(t, trips[0].Status.IsCancelled())
	assert.Empty(t, trips[0].Allocations)

	require.NoError(t, s.DeleteTrip(ctx, "t9"))
	trips, err = s.ListTrips(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, trips)
}

func TestReset(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.ImportDataset(ctx, sampleDataset()))

	require.NoError(t, s.Reset(ctx))

	ds, err := s.LoadDataset(ctx)
	require.NoError(t, err)
	assert.Empty(t, ds.Users)
	assert.Empty(t, ds.HolidayConfigs)
	assert.True(t, ds.Settings.WorkingDays.IsEmpty())
}
