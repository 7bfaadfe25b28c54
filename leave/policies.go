/*
policies.go - Preset entitlement types and yearly policy initialisation

PURPOSE:
  Ready-made entitlement types for the common leave categories, and the
  step that creates a user's policies when a new year opens.

KEY CONCEPTS:
  Policies are never regenerated. InitializeYear only fills gaps, so an
  admin override made for a year survives re-initialisation.

  InitCopy: copy last year's policy for the same entitlement, or fall back
            to the entitlement defaults when there is none.
  InitDefault: always start from the entitlement defaults.

SEE ALSO:
  - policy.go: ResolvePolicy merges policies over defaults at query time
*/
package leave

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PRESETS
// =============================================================================

// VacationEntitlement accrues annualDays per year and carries up to
// maxCarryOver days into the next year.
func VacationEntitlement(id EntitlementID, name string, annualDays, maxCarryOver decimal.Decimal) EntitlementType {
	return EntitlementType{
		ID:             id,
		Name:           name,
		Category:       CategoryOrdinary,
		Color:          ColorBlue,
		DefaultAccrual: Accrual{Period: AccrualYearly, Amount: annualDays},
		DefaultCarryOver: CarryOverRule{
			Enabled:    maxCarryOver.IsPositive(),
			MaxDays:    maxCarryOver,
			ExpiryType: ExpiryNone,
		},
	}
}

// SickEntitlement grants annualDays as a lump sum with no carry-over.
func SickEntitlement(id EntitlementID, name string, annualDays decimal.Decimal) EntitlementType {
	return EntitlementType{
		ID:               id,
		Name:             name,
		Category:         CategoryOrdinary,
		Color:            ColorRed,
		DefaultAccrual:   Accrual{Period: AccrualLumpSum, Amount: annualDays},
		DefaultCarryOver: CarryOverRule{ExpiryType: ExpiryNone},
	}
}

// LieuEntitlement draws on the user's lieu counter and weekend holidays.
func LieuEntitlement(id EntitlementID, name string) EntitlementType {
	return EntitlementType{
		ID:               id,
		Name:             name,
		Category:         CategoryLieu,
		Color:            ColorPurple,
		DefaultAccrual:   Accrual{Period: AccrualLumpSum, Amount: decimal.Zero},
		DefaultCarryOver: CarryOverRule{ExpiryType: ExpiryNone},
	}
}

// UnlimitedEntitlement has no cap and never carries over.
func UnlimitedEntitlement(id EntitlementID, name string) EntitlementType {
	return EntitlementType{
		ID:               id,
		Name:             name,
		Category:         CategoryCustom,
		Color:            ColorGreen,
		IsUnlimited:      true,
		DefaultAccrual:   Accrual{Period: AccrualLumpSum, Amount: decimal.Zero},
		DefaultCarryOver: CarryOverRule{ExpiryType: ExpiryNone},
	}
}

// =============================================================================
// YEAR INITIALISATION
// =============================================================================

type InitMode string

const (
	InitCopy    InitMode = "copy"
	InitDefault InitMode = "default"
)

func ParseInitMode(s string) (InitMode, error) {
	switch InitMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", InitCopy:
		return InitCopy, nil
	case InitDefault:
		return InitDefault, nil
	}
	return "", fmt.Errorf("unknown init mode %q", s)
}

// InitializeYear returns the policies missing for user in year, one per
// entitlement type. Existing policies are left untouched and not returned.
func InitializeYear(ds *Dataset, userID UserID, year int, mode InitMode) ([]UserPolicy, error) {
	ix, err := newIndex(ds)
	if err != nil {
		return nil, err
	}
	if _, ok := ix.users[userID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}

	var created []UserPolicy
	for _, ent := range ds.Entitlements {
		if _, exists := ix.policy(userID, ent.ID, year); exists {
			continue
		}
		if mode == InitCopy {
			if prev, ok := ix.policy(userID, ent.ID, year-1); ok {
				prev.Year = year
				created = append(created, prev)
				continue
			}
		}
		created = append(created, UserPolicy{
			UserID:        userID,
			EntitlementID: ent.ID,
			Year:          year,
			IsActive:      true,
			IsUnlimited:   ent.IsUnlimited,
			Accrual:       ent.DefaultAccrual,
			CarryOver:     ent.DefaultCarryOver,
		})
	}
	return created, nil
}
