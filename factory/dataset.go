/*
Package factory converts dataset documents into leave.Dataset values.

PURPOSE:
  Entitlement types, policies, holiday calendars, users and trips arrive as
  JSON (admin UI, API) or YAML (seed files, fixtures). The factory decodes
  either format into one document shape, validates it, and builds the
  typed dataset the engine consumes.

DOCUMENT SCHEMA (JSON shown, YAML uses the same keys):
  {
    "settings": {"working_days": [1, 2, 3, 4, 5]},
    "entitlements": [
      {"id": "vacation", "name": "Vacation", "category": "ordinary", "color": "blue",
       "accrual": {"period": "yearly", "amount": 25},
       "carry_over": {"enabled": true, "max_days": 5, "expiry_type": "fixed_date", "expiry_value": "03-31"}}
    ],
    "users": [{"id": "alice", "holiday_config_ids": ["uk"], "holiday_weekend_rule": "monday"}],
    "policies": [{"user_id": "alice", "entitlement_id": "vacation", "year": 2025, "is_active": true,
                  "accrual": {"period": "yearly", "amount": 22}}],
    "holiday_configs": [{"id": "uk", "name": "UK", "holidays": [{"name": "Christmas Day", "date": "2025-12-25"}]}],
    "trips": [{"user_id": "alice", "start_date": "2025-03-03", "end_date": "2025-03-07",
               "duration_mode": "all_full", "entitlement_id": "vacation"}]
  }

KEY FEATURES:
  - Struct tag validation (go-playground/validator)
  - Missing ids are generated (google/uuid); custom holidays keep the
    "custom-" prefix
  - Enum fields go through leave.ParseCategory / leave.ParseColor
  - ToDocument is the inverse, used for export

USAGE:
  f := factory.NewDatasetFactory()
  ds, err := f.Parse(body, factory.FormatYAML)

SEE ALSO:
  - leave/types.go: Target types
  - api/handlers.go: Import and export endpoints
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDataset wraps every decoding and validation failure.
var ErrInvalidDataset = errors.New("invalid dataset")

// ValidationError lists failing fields and the rule each one broke.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidDataset }

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

type Document struct {
	Settings       SettingsDoc        `json:"settings" yaml:"settings"`
	Entitlements   []EntitlementDoc   `json:"entitlements" yaml:"entitlements" validate:"dive"`
	Users          []UserDoc          `json:"users" yaml:"users" validate:"dive"`
	Policies       []PolicyDoc        `json:"policies" yaml:"policies" validate:"dive"`
	HolidayConfigs []HolidayConfigDoc `json:"holiday_configs" yaml:"holiday_configs" validate:"dive"`
	Trips          []TripDoc          `json:"trips" yaml:"trips" validate:"dive"`
}

type SettingsDoc struct {
	// WorkingDays are weekday indices, 0 = Sunday.
	WorkingDays []int `json:"working_days,omitempty" yaml:"working_days,omitempty" validate:"dive,min=0,max=6"`
}

type AccrualDoc struct {
	Period string  `json:"period" yaml:"period" validate:"omitempty,oneof=lump_sum yearly monthly"`
	Amount float64 `json:"amount" yaml:"amount" validate:"gte=0"`
}

type CarryOverDoc struct {
	Enabled             bool    `json:"enabled" yaml:"enabled"`
	MaxDays             float64 `json:"max_days" yaml:"max_days" validate:"gte=0"`
	ExpiryType          string  `json:"expiry_type,omitempty" yaml:"expiry_type,omitempty" validate:"omitempty,oneof=none months fixed_date"`
	ExpiryValue         string  `json:"expiry_value,omitempty" yaml:"expiry_value,omitempty"`
	TargetEntitlementID string  `json:"target_entitlement_id,omitempty" yaml:"target_entitlement_id,omitempty"`
}

type EntitlementDoc struct {
	ID          string        `json:"id" yaml:"id" validate:"required"`
	Name        string        `json:"name" yaml:"name" validate:"required"`
	Category    string        `json:"category,omitempty" yaml:"category,omitempty"`
	Color       string        `json:"color,omitempty" yaml:"color,omitempty"`
	IsUnlimited bool          `json:"is_unlimited,omitempty" yaml:"is_unlimited,omitempty"`
	Accrual     *AccrualDoc   `json:"accrual,omitempty" yaml:"accrual,omitempty"`
	CarryOver   *CarryOverDoc `json:"carry_over,omitempty" yaml:"carry_over,omitempty"`
}

type UserDoc struct {
	ID                 string   `json:"id" yaml:"id" validate:"required"`
	Name               string   `json:"name,omitempty" yaml:"name,omitempty"`
	HolidayConfigIDs   []string `json:"holiday_config_ids,omitempty" yaml:"holiday_config_ids,omitempty"`
	HolidayWeekendRule string   `json:"holiday_weekend_rule,omitempty" yaml:"holiday_weekend_rule,omitempty" validate:"omitempty,oneof=none monday lieu"`
	LieuBalance        float64  `json:"lieu_balance,omitempty" yaml:"lieu_balance,omitempty"`
}

type PolicyDoc struct {
	UserID        string        `json:"user_id" yaml:"user_id" validate:"required"`
	EntitlementID string        `json:"entitlement_id" yaml:"entitlement_id" validate:"required"`
	Year          int           `json:"year" yaml:"year" validate:"required,min=1900,max=9999"`
	IsActive      *bool         `json:"is_active,omitempty" yaml:"is_active,omitempty"`
	IsUnlimited   bool          `json:"is_unlimited,omitempty" yaml:"is_unlimited,omitempty"`
	Accrual       AccrualDoc    `json:"accrual" yaml:"accrual"`
	CarryOver     *CarryOverDoc `json:"carry_over,omitempty" yaml:"carry_over,omitempty"`
}

type HolidayDoc struct {
	ID           string `json:"id,omitempty" yaml:"id,omitempty"`
	Name         string `json:"name" yaml:"name" validate:"required"`
	Date         string `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	Jurisdiction string `json:"jurisdiction,omitempty" yaml:"jurisdiction,omitempty"`
	IsIncluded   *bool  `json:"is_included,omitempty" yaml:"is_included,omitempty"`
	Custom       bool   `json:"custom,omitempty" yaml:"custom,omitempty"`
}

type HolidayConfigDoc struct {
	ID           string       `json:"id,omitempty" yaml:"id,omitempty"`
	Name         string       `json:"name" yaml:"name" validate:"required"`
	Jurisdiction string       `json:"jurisdiction,omitempty" yaml:"jurisdiction,omitempty"`
	Holidays     []HolidayDoc `json:"holidays" yaml:"holidays" validate:"dive"`
}

type AllocationDoc struct {
	EntitlementID string  `json:"entitlement_id" yaml:"entitlement_id" validate:"required"`
	Days          float64 `json:"days" yaml:"days" validate:"gte=0"`
	TargetYear    *int    `json:"target_year,omitempty" yaml:"target_year,omitempty"`
}

type TripDoc struct {
	ID            string          `json:"id,omitempty" yaml:"id,omitempty"`
	UserID        string          `json:"user_id" yaml:"user_id" validate:"required"`
	Name          string          `json:"name,omitempty" yaml:"name,omitempty"`
	StartDate     string          `json:"start_date" yaml:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string          `json:"end_date" yaml:"end_date" validate:"required,datetime=2006-01-02"`
	Status        string          `json:"status,omitempty" yaml:"status,omitempty"`
	DurationMode  string          `json:"duration_mode,omitempty" yaml:"duration_mode,omitempty" validate:"omitempty,oneof=all_full all_am all_pm single_am single_pm custom"`
	StartPortion  string          `json:"start_portion,omitempty" yaml:"start_portion,omitempty" validate:"omitempty,oneof=am pm"`
	EndPortion    string          `json:"end_portion,omitempty" yaml:"end_portion,omitempty" validate:"omitempty,oneof=am pm"`
	ExcludedDates []string        `json:"excluded_dates,omitempty" yaml:"excluded_dates,omitempty" validate:"dive,datetime=2006-01-02"`
	EntitlementID string          `json:"entitlement_id,omitempty" yaml:"entitlement_id,omitempty"`
	Allocations   []AllocationDoc `json:"allocations,omitempty" yaml:"allocations,omitempty" validate:"dive"`
}

// =============================================================================
// DATASET FACTORY
// =============================================================================

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromContentType maps a Content-Type header to a format.
// Anything that is not YAML is treated as JSON.
func FormatFromContentType(contentType string) Format {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "yaml") || strings.Contains(ct, "yml") {
		return FormatYAML
	}
	return FormatJSON
}

// DatasetFactory decodes and validates dataset documents.
type DatasetFactory struct {
	validate *validator.Validate
}

func NewDatasetFactory() *DatasetFactory {
	return &DatasetFactory{validate: validator.New()}
}

// Parse decodes data in the given format and builds the dataset.
func (f *DatasetFactory) Parse(data []byte, format Format) (*leave.Dataset, error) {
	doc, err := f.Decode(data, format)
	if err != nil {
		return nil, err
	}
	return f.FromDocument(doc)
}

// Decode decodes and validates a document without building it.
func (f *DatasetFactory) Decode(data []byte, format Format) (Document, error) {
	var doc Document
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return Document{}, fmt.Errorf("%w: decode %s: %v", ErrInvalidDataset, format, err)
	}
	if err := f.Validate(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Validate runs the struct tag rules over the document.
func (f *DatasetFactory) Validate(v interface{}) error {
	err := f.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[fe.Namespace()] = rule
	}
	return &ValidationError{Fields: fields}
}

// FromDocument builds a leave.Dataset and checks its invariants.
func (f *DatasetFactory) FromDocument(doc Document) (*leave.Dataset, error) {
	ds := &leave.Dataset{}

	settings, err := leave.NewWorkspaceSettings(doc.Settings.WorkingDays...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	ds.Settings = settings

	for _, ed := range doc.Entitlements {
		ent, err := f.Entitlement(ed)
		if err != nil {
			return nil, err
		}
		ds.Entitlements = append(ds.Entitlements, ent)
	}
	for _, ud := range doc.Users {
		ds.Users = append(ds.Users, userFromDoc(ud))
	}
	for _, pd := range doc.Policies {
		ds.Policies = append(ds.Policies, policyFromDoc(pd))
	}
	for _, cd := range doc.HolidayConfigs {
		cfg, err := holidayConfigFromDoc(cd)
		if err != nil {
			return nil, err
		}
		ds.HolidayConfigs = append(ds.HolidayConfigs, cfg)
	}
	for _, td := range doc.Trips {
		ds.Trips = append(ds.Trips, tripFromDoc(td))
	}

	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	return ds, nil
}

// Entitlement builds one entitlement type from its document form.
func (f *DatasetFactory) Entitlement(ed EntitlementDoc) (leave.EntitlementType, error) {
	if err := f.Validate(ed); err != nil {
		return leave.EntitlementType{}, err
	}
	ent, err := leave.NewEntitlementType(leave.EntitlementID(ed.ID), ed.Name, ed.Category, ed.Color)
	if err != nil {
		return leave.EntitlementType{}, fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	ent.IsUnlimited = ed.IsUnlimited
	if ed.Accrual != nil {
		ent.DefaultAccrual = accrualFromDoc(*ed.Accrual)
	}
	if ed.CarryOver != nil {
		ent.DefaultCarryOver = carryOverFromDoc(*ed.CarryOver)
	}
	if err := ent.Validate(); err != nil {
		return leave.EntitlementType{}, fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	return ent, nil
}

// Policy builds one user policy from its document form.
func (f *DatasetFactory) Policy(pd PolicyDoc) (leave.UserPolicy, error) {
	if err := f.Validate(pd); err != nil {
		return leave.UserPolicy{}, err
	}
	p := policyFromDoc(pd)
	if err := p.Accrual.Validate(); err != nil {
		return leave.UserPolicy{}, fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	if err := p.CarryOver.Validate(); err != nil {
		return leave.UserPolicy{}, fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	return p, nil
}

func (f *DatasetFactory) User(ud UserDoc) (leave.User, error) {
	if err := f.Validate(ud); err != nil {
		return leave.User{}, err
	}
	return userFromDoc(ud), nil
}

// HolidayConfig builds a calendar, generating missing ids.
func (f *DatasetFactory) HolidayConfig(cd HolidayConfigDoc) (leave.HolidayConfig, error) {
	if err := f.Validate(cd); err != nil {
		return leave.HolidayConfig{}, err
	}
	return holidayConfigFromDoc(cd)
}

// Trip builds one trip from its document form, generating an id if missing.
func (f *DatasetFactory) Trip(td TripDoc) (leave.Trip, error) {
	if err := f.Validate(td); err != nil {
		return leave.Trip{}, err
	}
	t := tripFromDoc(td)
	if _, err := t.Period(); err != nil {
		return leave.Trip{}, fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	return t, nil
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func accrualFromDoc(ad AccrualDoc) leave.Accrual {
	period := leave.AccrualPeriod(ad.Period)
	if period == "" {
		period = leave.AccrualYearly
	}
	return leave.Accrual{Period: period, Amount: decimal.NewFromFloat(ad.Amount)}
}

func carryOverFromDoc(cd CarryOverDoc) leave.CarryOverRule {
	expiry := leave.ExpiryType(cd.ExpiryType)
	if expiry == "" {
		expiry = leave.ExpiryNone
	}
	return leave.CarryOverRule{
		Enabled:             cd.Enabled,
		MaxDays:             decimal.NewFromFloat(cd.MaxDays),
		ExpiryType:          expiry,
		ExpiryValue:         cd.ExpiryValue,
		TargetEntitlementID: leave.EntitlementID(cd.TargetEntitlementID),
	}
}

func userFromDoc(ud UserDoc) leave.User {
	rule := leave.WeekendRule(ud.HolidayWeekendRule)
	if rule == "" {
		rule = leave.WeekendRuleNone
	}
	return leave.User{
		ID:                 leave.UserID(ud.ID),
		Name:               ud.Name,
		HolidayConfigIDs:   ud.HolidayConfigIDs,
		HolidayWeekendRule: rule,
		LieuBalance:        decimal.NewFromFloat(ud.LieuBalance),
	}
}

func policyFromDoc(pd PolicyDoc) leave.UserPolicy {
	p := leave.UserPolicy{
		UserID:        leave.UserID(pd.UserID),
		EntitlementID: leave.EntitlementID(pd.EntitlementID),
		Year:          pd.Year,
		IsActive:      pd.IsActive == nil || *pd.IsActive,
		IsUnlimited:   pd.IsUnlimited,
		Accrual:       accrualFromDoc(pd.Accrual),
		CarryOver:     leave.CarryOverRule{ExpiryType: leave.ExpiryNone},
	}
	if pd.CarryOver != nil {
		p.CarryOver = carryOverFromDoc(*pd.CarryOver)
	}
	return p
}

func holidayConfigFromDoc(cd HolidayConfigDoc) (leave.HolidayConfig, error) {
	cfg := leave.HolidayConfig{ID: cd.ID, Name: cd.Name, Jurisdiction: cd.Jurisdiction}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	for _, hd := range cd.Holidays {
		date, err := generic.ParseDate(hd.Date)
		if err != nil {
			return leave.HolidayConfig{}, fmt.Errorf("%w: holiday %q: %w", ErrInvalidDataset, hd.Name, err)
		}
		h := leave.PublicHoliday{
			ID:           hd.ID,
			Name:         hd.Name,
			Date:         date,
			Jurisdiction: hd.Jurisdiction,
			IsIncluded:   hd.IsIncluded == nil || *hd.IsIncluded,
			IsWeekend:    date.IsWeekend(),
			ConfigID:     cfg.ID,
		}
		if h.Jurisdiction == "" {
			h.Jurisdiction = cfg.Jurisdiction
		}
		if h.ID == "" {
			h.ID = NewHolidayID(hd.Custom)
		}
		cfg.Holidays = append(cfg.Holidays, h)
	}
	return cfg, nil
}

// NewHolidayID returns a fresh holiday id, prefixed for custom holidays.
func NewHolidayID(custom bool) string {
	if custom {
		return leave.CustomHolidayPrefix + uuid.NewString()
	}
	return uuid.NewString()
}

func tripFromDoc(td TripDoc) leave.Trip {
	t := leave.Trip{
		ID:            td.ID,
		UserID:        leave.UserID(td.UserID),
		Name:          td.Name,
		StartDate:     td.StartDate,
		EndDate:       td.EndDate,
		Status:        leave.TripStatus(td.Status),
		DurationMode:  leave.DurationMode(td.DurationMode),
		StartPortion:  leave.Portion(td.StartPortion),
		EndPortion:    leave.Portion(td.EndPortion),
		ExcludedDates: td.ExcludedDates,
		EntitlementID: leave.EntitlementID(td.EntitlementID),
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = leave.StatusApproved
	}
	if t.DurationMode == "" {
		t.DurationMode = leave.DurationAllFull
	}
	for _, ad := range td.Allocations {
		t.Allocations = append(t.Allocations, leave.Allocation{
			EntitlementID: leave.EntitlementID(ad.EntitlementID),
			Days:          decimal.NewFromFloat(ad.Days),
			TargetYear:    ad.TargetYear,
		})
	}
	return t
}
