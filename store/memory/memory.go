// Package memory provides an in-memory store.Repository for tests and demos.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu             sync.RWMutex
	entitlements   map[leave.EntitlementID]leave.EntitlementType
	policies       map[policyKey]leave.UserPolicy
	holidayConfigs map[string]leave.HolidayConfig
	users          map[leave.UserID]leave.User
	trips          map[string]leave.Trip
	settings       leave.WorkspaceSettings
}

type policyKey struct {
	UserID        leave.UserID
	EntitlementID leave.EntitlementID
	Year          int
}

func keyOf(p leave.UserPolicy) policyKey {
	return policyKey{UserID: p.UserID, EntitlementID: p.EntitlementID, Year: p.Year}
}

func New() *Memory {
	m := &Memory{}
	m.resetLocked()
	return m
}

func (m *Memory) resetLocked() {
	m.entitlements = make(map[leave.EntitlementID]leave.EntitlementType)
	m.policies = make(map[policyKey]leave.UserPolicy)
	m.holidayConfigs = make(map[string]leave.HolidayConfig)
	m.users = make(map[leave.UserID]leave.User)
	m.trips = make(map[string]leave.Trip)
	m.settings = leave.WorkspaceSettings{}
}

// LoadDataset returns a snapshot with every collection sorted by id.
func (m *Memory) LoadDataset(_ context.Context) (*leave.Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ds := &leave.Dataset{Settings: m.settings}
	for _, e := range m.entitlements {
		ds.Entitlements = append(ds.Entitlements, e)
	}
	sort.Slice(ds.Entitlements, func(i, j int) bool { return ds.Entitlements[i].ID < ds.Entitlements[j].ID })

	for _, p := range m.policies {
		ds.Policies = append(ds.Policies, p)
	}
	sort.Slice(ds.Policies, func(i, j int) bool {
		a, b := ds.Policies[i], ds.Policies[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.EntitlementID < b.EntitlementID
	})

	for _, c := range m.holidayConfigs {
		ds.HolidayConfigs = append(ds.HolidayConfigs, c)
	}
	sort.Slice(ds.HolidayConfigs, func(i, j int) bool { return ds.HolidayConfigs[i].ID < ds.HolidayConfigs[j].ID })

	for _, u := range m.users {
		ds.Users = append(ds.Users, u)
	}
	sort.Slice(ds.Users, func(i, j int) bool { return ds.Users[i].ID < ds.Users[j].ID })

	for _, t := range m.trips {
		ds.Trips = append(ds.Trips, t)
	}
	sort.Slice(ds.Trips, func(i, j int) bool { return ds.Trips[i].ID < ds.Trips[j].ID })

	return ds, nil
}

// ImportDataset replaces all data with ds.
func (m *Memory) ImportDataset(_ context.Context, ds *leave.Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetLocked()
	for _, e := range ds.Entitlements {
		m.entitlements[e.ID] = e
	}
	for _, p := range ds.Policies {
		m.policies[keyOf(p)] = p
	}
	for _, c := range ds.HolidayConfigs {
		m.holidayConfigs[c.ID] = withConfigID(c)
	}
	for _, u := range ds.Users {
		m.users[u.ID] = u
	}
	for _, t := range ds.Trips {
		m.trips[t.ID] = t
	}
	m.settings = ds.Settings
	return nil
}

func (m *Memory) SaveEntitlement(_ context.Context, e leave.EntitlementType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entitlements[e.ID] = e
	return nil
}

func (m *Memory) ListEntitlements(ctx context.Context) ([]leave.EntitlementType, error) {
	ds, err := m.LoadDataset(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Entitlements, nil
}

// DeleteEntitlement removes an entitlement type. References to it are kept.
func (m *Memory) DeleteEntitlement(_ context.Context, id leave.EntitlementID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entitlements[id]; !ok {
		return fmt.Errorf("entitlement %s: %w", id, generic.ErrNotFound)
	}
	delete(m.entitlements, id)
	return nil
}

// CreatePolicies adds policies atomically.
func (m *Memory) CreatePolicies(_ context.Context, policies []leave.UserPolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all keys first (atomic check)
	batch := make(map[policyKey]bool, len(policies))
	for _, p := range policies {
		k := keyOf(p)
		if _, exists := m.policies[k]; exists || batch[k] {
			return fmt.Errorf("%w: user %s, entitlement %s, year %d",
				leave.ErrDuplicatePolicy, p.UserID, p.EntitlementID, p.Year)
		}
		batch[k] = true
	}

	for _, p := range policies {
		m.policies[keyOf(p)] = p
	}
	return nil
}

func (m *Memory) SavePolicy(_ context.Context, p leave.UserPolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[keyOf(p)] = p
	return nil
}

func (m *Memory) SaveHolidayConfig(_ context.Context, cfg leave.HolidayConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidayConfigs[cfg.ID] = withConfigID(cfg)
	return nil
}

func (m *Memory) SaveUser(_ context.Context, u leave.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *Memory) SaveTrip(_ context.Context, t leave.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[t.ID] = t
	return nil
}

// Reset clears all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	return nil
}

// withConfigID copies the holidays and stamps them with their calendar.
func withConfigID(cfg leave.HolidayConfig) leave.HolidayConfig {
	holidays := make([]leave.PublicHoliday, len(cfg.Holidays))
	for i, h := range cfg.Holidays {
		h.ConfigID = cfg.ID
		holidays[i] = h
	}
	cfg.Holidays = holidays
	return cfg
}
