/*
Package store defines the persistence boundary of the leave engine.

PURPOSE:
  The engine never stores what it computes. Repositories persist only the
  source collections (entitlement types, user policies, holiday configs,
  users, trips and workspace settings) and hand them back as one
  leave.Dataset snapshot per request.

IMPLEMENTATIONS:
  store/sqlite: SQLite, used by the server
  store/memory: In-process maps, used by tests and demos

INVARIANTS:
  - At most one policy per (user, entitlement, year). CreatePolicies fails
    with leave.ErrDuplicatePolicy instead of overwriting.
  - Deleting an entitlement type does not cascade. Policies and trips that
    still reference it surface as dangling-reference warnings.
*/
package store

import (
	"context"

	"github.com/warp/leave-engine/leave"
)

// Repository persists the source collections.
type Repository interface {
	// LoadDataset returns a consistent snapshot of everything stored.
	LoadDataset(ctx context.Context) (*leave.Dataset, error)
	// ImportDataset replaces all stored data with ds.
	ImportDataset(ctx context.Context, ds *leave.Dataset) error

	SaveEntitlement(ctx context.Context, e leave.EntitlementType) error
	ListEntitlements(ctx context.Context) ([]leave.EntitlementType, error)
	DeleteEntitlement(ctx context.Context, id leave.EntitlementID) error

	// CreatePolicies inserts new policies atomically.
	CreatePolicies(ctx context.Context, policies []leave.UserPolicy) error
	// SavePolicy inserts or replaces one policy.
	SavePolicy(ctx context.Context, p leave.UserPolicy) error

	SaveHolidayConfig(ctx context.Context, cfg leave.HolidayConfig) error
	SaveUser(ctx context.Context, u leave.User) error
	SaveTrip(ctx context.Context, t leave.Trip) error

	Reset(ctx context.Context) error
}
