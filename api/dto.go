/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Computed balances are
  flattened to plain numbers; input documents reuse the factory types so
  the HTTP body and a dataset file share one schema.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Balance:
    BalanceDTO, BreakdownDTO, BalanceReportDTO

  Holidays:
    HolidaysDTO, DefaultHolidaysRequest

  Policies:
    InitializeYearResponse

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

SEE ALSO:
  - handlers.go: Uses these types
  - factory/dataset.go: Document types for entitlements and datasets
*/
package api

import (
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// BALANCE TYPES
// =============================================================================

// BreakdownDTO shows where an allowance comes from.
type BreakdownDTO struct {
	Base               float64  `json:"base"`
	CarryOver          float64  `json:"carry_over"`
	LieuBase           float64  `json:"lieu_base"`
	CarryOverExpired   float64  `json:"carry_over_expired"`
	CarryOverExpiresAt string   `json:"carry_over_expires_at,omitempty"`
	AccruedToDate      *float64 `json:"accrued_to_date,omitempty"`
}

// BalanceDTO is one entitlement's position for a year.
// Allowance and Remaining are null when Unlimited is true.
type BalanceDTO struct {
	EntitlementID string       `json:"entitlement_id"`
	Name          string       `json:"name"`
	Category      string       `json:"category"`
	Color         string       `json:"color"`
	Year          int          `json:"year"`
	Used          float64      `json:"used"`
	Allowance     *float64     `json:"allowance"`
	Unlimited     bool         `json:"unlimited"`
	Remaining     *float64     `json:"remaining"`
	Breakdown     BreakdownDTO `json:"breakdown"`
	Warnings      []string     `json:"warnings,omitempty"`
}

// BalanceReportDTO holds every balance of a user for one year.
type BalanceReportDTO struct {
	UserID   string       `json:"user_id"`
	Year     int          `json:"year"`
	Balances []BalanceDTO `json:"balances"`
	Warnings []string     `json:"warnings"`
}

// =============================================================================
// HOLIDAY TYPES
// =============================================================================

// HolidaysDTO is the resolved calendar of a user. Keys are ISO dates.
type HolidaysDTO struct {
	UserID   string              `json:"user_id"`
	Year     int                 `json:"year"`
	Actual   map[string][]string `json:"actual"`
	Observed map[string][]string `json:"observed"`
	LieuDays int                 `json:"lieu_days"`
}

// DefaultHolidaysRequest seeds a holiday config with US federal holidays.
type DefaultHolidaysRequest struct {
	ConfigID     string `json:"config_id"`
	Name         string `json:"name"`
	Jurisdiction string `json:"jurisdiction"`
	Year         int    `json:"year" validate:"required,min=1900,max=9999"`
	// UserIDs are subscribed to the config after it is saved.
	UserIDs []string `json:"user_ids,omitempty"`
}

// =============================================================================
// POLICY TYPES
// =============================================================================

// InitializeYearResponse lists the policies created for the year.
type InitializeYearResponse struct {
	UserID  string              `json:"user_id"`
	Year    int                 `json:"year"`
	Mode    string              `json:"mode"`
	Created []factory.PolicyDoc `json:"created"`
}

// =============================================================================
// SCENARIO TYPES
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// UserID and Year point at the balance the scenario demonstrates.
	UserID string `json:"user_id"`
	Year   int    `json:"year"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse represents an error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toBalanceDTO(b leave.Balance) BalanceDTO {
	dto := BalanceDTO{
		EntitlementID: string(b.EntitlementID),
		Name:          b.Name,
		Category:      string(b.Category),
		Color:         string(b.Color),
		Year:          b.Year,
		Used:          b.Used.Float(),
		Unlimited:     b.Allowance.Unlimited,
		Breakdown: BreakdownDTO{
			Base:             b.Breakdown.Base.Float(),
			CarryOver:        b.Breakdown.CarryOver.Float(),
			LieuBase:         b.Breakdown.LieuBase.Float(),
			CarryOverExpired: b.Breakdown.CarryOverExpired.Float(),
		},
		Warnings: warningStrings(b.Warnings),
	}
	if !b.Allowance.Unlimited {
		dto.Allowance = floatPtr(b.Allowance.Amount)
	}
	if b.Remaining != nil {
		dto.Remaining = floatPtr(*b.Remaining)
	}
	if b.Breakdown.CarryOverExpiresAt != nil {
		dto.Breakdown.CarryOverExpiresAt = b.Breakdown.CarryOverExpiresAt.String()
	}
	if b.Breakdown.AccruedToDate != nil {
		dto.Breakdown.AccruedToDate = floatPtr(*b.Breakdown.AccruedToDate)
	}
	return dto
}

func toReportDTO(r *leave.Report) BalanceReportDTO {
	dto := BalanceReportDTO{
		UserID:   string(r.UserID),
		Year:     r.Year,
		Balances: make([]BalanceDTO, 0, len(r.Balances)),
		Warnings: warningStrings(r.Warnings),
	}
	for _, b := range r.Balances {
		dto.Balances = append(dto.Balances, toBalanceDTO(b))
	}
	if dto.Warnings == nil {
		dto.Warnings = []string{}
	}
	return dto
}

func toHolidaysDTO(userID string, res leave.HolidayResolution) HolidaysDTO {
	return HolidaysDTO{
		UserID:   userID,
		Year:     res.Year,
		Actual:   res.Actual,
		Observed: res.Observed,
		LieuDays: res.LieuDays,
	}
}

func warningStrings(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}

func floatPtr(a generic.Amount) *float64 {
	f := a.Float()
	return &f
}
