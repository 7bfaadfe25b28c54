package leave

// =============================================================================
// RESOLVED POLICY - Policy merged over entitlement defaults
// =============================================================================

// ResolvedPolicy is the effective configuration of one entitlement for one
// user and year. An explicit UserPolicy overrides the entitlement defaults.
type ResolvedPolicy struct {
	UserID      UserID
	Year        int
	Entitlement EntitlementType
	// Explicit is true when a UserPolicy exists for the key.
	Explicit  bool
	Active    bool
	Unlimited bool
	Accrual   Accrual
	CarryOver CarryOverRule
}

// ResolvePolicy merges policy (nil when none exists) over ent's defaults.
// An unlimited entitlement type stays unlimited whatever the policy says.
// An inactive policy grants nothing and rolls nothing forward.
func ResolvePolicy(ent EntitlementType, policy *UserPolicy, user UserID, year int) ResolvedPolicy {
	rp := ResolvedPolicy{
		UserID:      user,
		Year:        year,
		Entitlement: ent,
		Active:      true,
		Unlimited:   ent.IsUnlimited,
		Accrual:     ent.DefaultAccrual,
		CarryOver:   ent.DefaultCarryOver,
	}
	if policy == nil {
		return rp
	}
	rp.Explicit = true
	rp.Active = policy.IsActive
	rp.Accrual = policy.Accrual
	rp.CarryOver = policy.CarryOver
	if policy.IsActive && policy.IsUnlimited {
		rp.Unlimited = true
	}
	if !policy.IsActive {
		rp.CarryOver.Enabled = false
	}
	return rp
}

// EffectiveAccrual is the accrual actually granted. Inactive policies grant nothing.
func (rp ResolvedPolicy) EffectiveAccrual() Accrual {
	if !rp.Active {
		return Accrual{Period: rp.Accrual.Period}
	}
	return rp.Accrual
}
