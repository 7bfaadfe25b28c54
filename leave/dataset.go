package leave

import (
	"fmt"
	"sort"
)

// Dataset is the full read-only input of a balance computation.
type Dataset struct {
	Entitlements   []EntitlementType
	Policies       []UserPolicy
	Trips          []Trip
	HolidayConfigs []HolidayConfig
	Users          []User
	Settings       WorkspaceSettings
}

// Validate checks the structural invariants. Dangling references are not
// errors; they are reported as warnings during computation.
func (d *Dataset) Validate() error {
	seen := make(map[policyKey]bool, len(d.Policies))
	for _, p := range d.Policies {
		if seen[p.key()] {
			return fmt.Errorf("%w: user %s, entitlement %s, year %d",
				ErrDuplicatePolicy, p.UserID, p.EntitlementID, p.Year)
		}
		seen[p.key()] = true
		if err := p.Accrual.Validate(); err != nil {
			return fmt.Errorf("policy %s/%s/%d: %w", p.UserID, p.EntitlementID, p.Year, err)
		}
		if err := p.CarryOver.Validate(); err != nil {
			return fmt.Errorf("policy %s/%s/%d: %w", p.UserID, p.EntitlementID, p.Year, err)
		}
	}
	for _, e := range d.Entitlements {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// INDEX - Lookup tables built once per computation
// =============================================================================

type index struct {
	ds           *Dataset
	users        map[UserID]User
	entitlements map[EntitlementID]EntitlementType
	policies     map[policyKey]UserPolicy
	// byUserYear lists policies sorted by entitlement id.
	byUserYear map[UserID]map[int][]UserPolicy
	trips      map[UserID][]Trip
}

func newIndex(ds *Dataset) (*index, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	ix := &index{
		ds:           ds,
		users:        make(map[UserID]User, len(ds.Users)),
		entitlements: make(map[EntitlementID]EntitlementType, len(ds.Entitlements)),
		policies:     make(map[policyKey]UserPolicy, len(ds.Policies)),
		byUserYear:   make(map[UserID]map[int][]UserPolicy),
		trips:        make(map[UserID][]Trip),
	}
	for _, u := range ds.Users {
		ix.users[u.ID] = u
	}
	for _, e := range ds.Entitlements {
		ix.entitlements[e.ID] = e
	}
	for _, p := range ds.Policies {
		ix.policies[p.key()] = p
		years, ok := ix.byUserYear[p.UserID]
		if !ok {
			years = make(map[int][]UserPolicy)
			ix.byUserYear[p.UserID] = years
		}
		years[p.Year] = append(years[p.Year], p)
	}
	for _, years := range ix.byUserYear {
		for _, ps := range years {
			sort.Slice(ps, func(i, j int) bool { return ps[i].EntitlementID < ps[j].EntitlementID })
		}
	}
	for _, t := range ds.Trips {
		ix.trips[t.UserID] = append(ix.trips[t.UserID], t)
	}
	return ix, nil
}

func (ix *index) knownEntitlement(id EntitlementID) bool {
	_, ok := ix.entitlements[id]
	return ok
}

func (ix *index) policy(user UserID, ent EntitlementID, year int) (UserPolicy, bool) {
	p, ok := ix.policies[policyKey{user: user, entitlement: ent, year: year}]
	return p, ok
}

// danglingReferences reports references from the user's records to
// entitlements or holiday configs that do not exist.
func (ix *index) danglingReferences(user User, log *WarningLog) {
	configs := make(map[string]bool, len(ix.ds.HolidayConfigs))
	for _, c := range ix.ds.HolidayConfigs {
		configs[c.ID] = true
	}
	for _, id := range user.HolidayConfigIDs {
		if !configs[id] {
			log.Add(&DanglingReferenceWarning{Kind: "holiday_config", ID: id, Referrer: "user " + string(user.ID)})
		}
	}
	for _, years := range ix.byUserYear[user.ID] {
		for _, p := range years {
			referrer := fmt.Sprintf("policy %s/%d", p.EntitlementID, p.Year)
			if !ix.knownEntitlement(p.EntitlementID) {
				log.Add(&DanglingReferenceWarning{Kind: "entitlement", ID: string(p.EntitlementID), Referrer: referrer})
			}
			if t := p.CarryOver.TargetEntitlementID; t != "" && !ix.knownEntitlement(t) {
				log.Add(&DanglingReferenceWarning{Kind: "entitlement", ID: string(t), Referrer: referrer + " carry-over"})
			}
		}
	}
	for _, t := range ix.trips[user.ID] {
		if t.Status.IsCancelled() || len(t.Allocations) > 0 || t.EntitlementID == "" {
			continue
		}
		if !ix.knownEntitlement(t.EntitlementID) {
			log.Add(&DanglingReferenceWarning{Kind: "entitlement", ID: string(t.EntitlementID), Referrer: "trip " + t.ID})
		}
	}
}
