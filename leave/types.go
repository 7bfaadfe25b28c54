// Package leave implements the leave entitlement balance engine.
// It consumes snapshots of entitlement types, per-user yearly policies,
// holiday calendars and trips, and derives allowance, usage and carry-over
// per entitlement and year. Nothing it computes is ever stored.
package leave

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type EntitlementID string

// CustomHolidayPrefix marks user-added holidays.
const CustomHolidayPrefix = "custom-"

// =============================================================================
// ENTITLEMENT TYPE - A leave category
// =============================================================================

// Category is the closed set of entitlement categories.
type Category string

const (
	CategoryOrdinary Category = "ordinary"
	CategoryLieu     Category = "lieu"
	CategoryCustom   Category = "custom"
)

// ParseCategory accepts any casing; empty means ordinary.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ordinary":
		return CategoryOrdinary, nil
	case "lieu":
		return CategoryLieu, nil
	case "custom":
		return CategoryCustom, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Color is the closed palette used by the presentation layer.
type Color string

const (
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorRed    Color = "red"
	ColorOrange Color = "orange"
	ColorPurple Color = "purple"
	ColorTeal   Color = "teal"
	ColorPink   Color = "pink"
	ColorGray   Color = "gray"
)

var palette = map[Color]bool{
	ColorBlue: true, ColorGreen: true, ColorRed: true, ColorOrange: true,
	ColorPurple: true, ColorTeal: true, ColorPink: true, ColorGray: true,
}

// ParseColor accepts any casing; empty means gray.
func ParseColor(s string) (Color, error) {
	c := Color(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return ColorGray, nil
	}
	if c == "grey" {
		return ColorGray, nil
	}
	if !palette[c] {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return c, nil
}

// EntitlementType is a leave category such as Vacation, Sick or Lieu.
type EntitlementType struct {
	ID               EntitlementID
	Name             string
	Category         Category
	Color            Color
	IsUnlimited      bool
	DefaultAccrual   Accrual
	DefaultCarryOver CarryOverRule
}

// NewEntitlementType validates the enum fields and returns an entitlement
// type with no accrual and carry-over disabled.
func NewEntitlementType(id EntitlementID, name, category, color string) (EntitlementType, error) {
	if id == "" {
		return EntitlementType{}, fmt.Errorf("entitlement type: empty id")
	}
	cat, err := ParseCategory(category)
	if err != nil {
		return EntitlementType{}, err
	}
	col, err := ParseColor(color)
	if err != nil {
		return EntitlementType{}, err
	}
	return EntitlementType{
		ID:             id,
		Name:           name,
		Category:       cat,
		Color:          col,
		DefaultAccrual: Accrual{Period: AccrualYearly, Amount: decimal.Zero},
	}, nil
}

// Validate checks enum membership and amount signs.
func (e EntitlementType) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("entitlement type: empty id")
	}
	if _, err := ParseCategory(string(e.Category)); err != nil {
		return fmt.Errorf("entitlement %s: %w", e.ID, err)
	}
	if _, err := ParseColor(string(e.Color)); err != nil {
		return fmt.Errorf("entitlement %s: %w", e.ID, err)
	}
	if err := e.DefaultAccrual.Validate(); err != nil {
		return fmt.Errorf("entitlement %s: %w", e.ID, err)
	}
	if err := e.DefaultCarryOver.Validate(); err != nil {
		return fmt.Errorf("entitlement %s: %w", e.ID, err)
	}
	return nil
}

// =============================================================================
// ACCRUAL
// =============================================================================

type AccrualPeriod string

const (
	AccrualLumpSum AccrualPeriod = "lump_sum"
	AccrualYearly  AccrualPeriod = "yearly"
	AccrualMonthly AccrualPeriod = "monthly"
)

// Accrual generates the base allowance for a year. Amount is the yearly
// total; Period only controls how fast it is earned (see AccruedBy).
type Accrual struct {
	Period AccrualPeriod
	Amount decimal.Decimal
}

func (a Accrual) Validate() error {
	switch a.Period {
	case "", AccrualLumpSum, AccrualYearly, AccrualMonthly:
	default:
		return fmt.Errorf("unknown accrual period %q", a.Period)
	}
	if a.Amount.IsNegative() {
		return fmt.Errorf("negative accrual amount %s", a.Amount)
	}
	return nil
}

// =============================================================================
// CARRY-OVER RULE
// =============================================================================

type ExpiryType string

const (
	ExpiryNone      ExpiryType = "none"
	ExpiryMonths    ExpiryType = "months"
	ExpiryFixedDate ExpiryType = "fixed_date"
)

// CarryOverRule controls how unused days roll into the following year.
//
// ExpiryValue depends on ExpiryType:
//   - months: number of months after 1 January of the receiving year
//   - fixed_date: last valid day, "MM-DD" in the receiving year or a full ISO date
type CarryOverRule struct {
	Enabled             bool
	MaxDays             decimal.Decimal
	ExpiryType          ExpiryType
	ExpiryValue         string
	TargetEntitlementID EntitlementID
}

// Target returns the entitlement receiving the carry-over.
func (r CarryOverRule) Target(own EntitlementID) EntitlementID {
	if r.TargetEntitlementID == "" {
		return own
	}
	return r.TargetEntitlementID
}

// ExpiresAt returns the first date on which days carried into targetYear
// are forfeited. ok is false when the rule never expires.
func (r CarryOverRule) ExpiresAt(targetYear int) (at generic.TimePoint, ok bool, err error) {
	switch r.ExpiryType {
	case "", ExpiryNone:
		return generic.TimePoint{}, false, nil
	case ExpiryMonths:
		n, err := strconv.Atoi(strings.TrimSpace(r.ExpiryValue))
		if err != nil || n < 0 {
			return generic.TimePoint{}, false, fmt.Errorf("%w: months expiry %q", ErrInvalidExpiry, r.ExpiryValue)
		}
		return generic.StartOfYear(targetYear).AddMonths(n), true, nil
	case ExpiryFixedDate:
		v := strings.TrimSpace(r.ExpiryValue)
		if len(v) == len("01-02") {
			v = fmt.Sprintf("%04d-%s", targetYear, v)
		}
		last, err := generic.ParseDate(v)
		if err != nil {
			return generic.TimePoint{}, false, fmt.Errorf("%w: fixed date expiry %q", ErrInvalidExpiry, r.ExpiryValue)
		}
		return last.AddDays(1), true, nil
	}
	return generic.TimePoint{}, false, fmt.Errorf("%w: unknown expiry type %q", ErrInvalidExpiry, r.ExpiryType)
}

func (r CarryOverRule) Validate() error {
	if r.MaxDays.IsNegative() {
		return fmt.Errorf("negative carry-over max %s", r.MaxDays)
	}
	if _, _, err := r.ExpiresAt(2000); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// USER POLICY - Per user, entitlement and year override
// =============================================================================

// UserPolicy overrides the entitlement defaults for one user and year.
// At most one policy exists per (UserID, EntitlementID, Year).
type UserPolicy struct {
	UserID        UserID
	EntitlementID EntitlementID
	Year          int
	IsActive      bool
	IsUnlimited   bool
	Accrual       Accrual
	CarryOver     CarryOverRule
}

type policyKey struct {
	user        UserID
	entitlement EntitlementID
	year        int
}

func (p UserPolicy) key() policyKey {
	return policyKey{user: p.UserID, entitlement: p.EntitlementID, year: p.Year}
}

// =============================================================================
// USERS & HOLIDAYS
// =============================================================================

// WeekendRule decides what happens to a holiday that falls on a weekend.
type WeekendRule string

const (
	WeekendRuleNone   WeekendRule = "none"   // holiday is simply lost
	WeekendRuleMonday WeekendRule = "monday" // shift the calendar to the next weekday
	WeekendRuleLieu   WeekendRule = "lieu"   // credit the lieu balance instead
)

type User struct {
	ID                 UserID
	Name               string
	HolidayConfigIDs   []string
	HolidayWeekendRule WeekendRule
	// LieuBalance is the manually maintained lieu counter.
	LieuBalance decimal.Decimal
}

func (u User) subscribes(configID string) bool {
	for _, id := range u.HolidayConfigIDs {
		if id == configID {
			return true
		}
	}
	return false
}

// PublicHoliday is a calendar date tagged to a jurisdiction.
type PublicHoliday struct {
	ID           string
	Name         string
	Date         generic.TimePoint
	Jurisdiction string
	IsIncluded   bool
	IsWeekend    bool
	ConfigID     string
}

// IsCustom reports a user-added holiday.
func (h PublicHoliday) IsCustom() bool {
	return strings.HasPrefix(h.ID, CustomHolidayPrefix)
}

// HolidayConfig is a holiday calendar users can subscribe to.
type HolidayConfig struct {
	ID           string
	Name         string
	Jurisdiction string
	Holidays     []PublicHoliday
}

// =============================================================================
// TRIP - A leave request
// =============================================================================

type TripStatus string

const (
	StatusPlanned   TripStatus = "planned"
	StatusPending   TripStatus = "pending"
	StatusApproved  TripStatus = "approved"
	StatusCancelled TripStatus = "cancelled"
)

// IsCancelled accepts both spellings in any casing.
func (s TripStatus) IsCancelled() bool {
	return strings.EqualFold(string(s), "cancelled") || strings.EqualFold(string(s), "canceled")
}

type DurationMode string

const (
	DurationAllFull  DurationMode = "all_full"
	DurationAllAM    DurationMode = "all_am"
	DurationAllPM    DurationMode = "all_pm"
	DurationSingleAM DurationMode = "single_am"
	DurationSinglePM DurationMode = "single_pm"
	DurationCustom   DurationMode = "custom"
)

// IsHalfDay reports modes where every chargeable day weighs 0.5.
func (m DurationMode) IsHalfDay() bool {
	switch m {
	case DurationAllAM, DurationAllPM, DurationSingleAM, DurationSinglePM:
		return true
	}
	return false
}

type Portion string

const (
	PortionAM Portion = "am"
	PortionPM Portion = "pm"
)

// Allocation charges a fixed number of days of a trip to an entitlement.
// TargetYear nil is the legacy year-agnostic form.
type Allocation struct {
	EntitlementID EntitlementID
	Days          decimal.Decimal
	TargetYear    *int
}

// Trip is a leave request. StartDate and EndDate are inclusive ISO dates.
type Trip struct {
	ID            string
	UserID        UserID
	Name          string
	StartDate     string
	EndDate       string
	Status        TripStatus
	DurationMode  DurationMode
	StartPortion  Portion
	EndPortion    Portion
	ExcludedDates []string
	EntitlementID EntitlementID
	Allocations   []Allocation
}

// Period parses the trip's date range.
func (t Trip) Period() (generic.Period, error) {
	p, err := generic.ParsePeriod(t.StartDate, t.EndDate)
	if err != nil {
		return generic.Period{}, fmt.Errorf("trip %s: %w", t.ID, err)
	}
	return p, nil
}

func (t Trip) excluded() (generic.DateSet, error) {
	set := generic.NewDateSet()
	for _, s := range t.ExcludedDates {
		d, err := generic.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("trip %s excluded date: %w", t.ID, err)
		}
		set.Add(d)
	}
	return set, nil
}

// =============================================================================
// WORKSPACE
// =============================================================================

// WorkspaceSettings is shared, read-only configuration.
type WorkspaceSettings struct {
	WorkingDays generic.WeekdaySet
}

// Working returns the configured working days, Monday to Friday if unset.
func (s WorkspaceSettings) Working() generic.WeekdaySet {
	if s.WorkingDays.IsEmpty() {
		return generic.MondayToFriday
	}
	return s.WorkingDays
}

// NewWorkspaceSettings builds settings from weekday indices (0 = Sunday).
func NewWorkspaceSettings(indices ...int) (WorkspaceSettings, error) {
	days := make([]time.Weekday, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i > 6 {
			return WorkspaceSettings{}, fmt.Errorf("weekday index %d out of range", i)
		}
		days = append(days, time.Weekday(i))
	}
	return WorkspaceSettings{WorkingDays: generic.NewWeekdaySet(days...)}, nil
}
