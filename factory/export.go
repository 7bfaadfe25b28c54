package factory

import (
	"encoding/json"

	"github.com/warp/leave-engine/leave"
	"gopkg.in/yaml.v3"
)

// ToDocument converts a dataset back to its document form.
func ToDocument(ds *leave.Dataset) Document {
	doc := Document{}
	for _, wd := range ds.Settings.WorkingDays.Weekdays() {
		doc.Settings.WorkingDays = append(doc.Settings.WorkingDays, int(wd))
	}
	for _, e := range ds.Entitlements {
		accrual := accrualToDoc(e.DefaultAccrual)
		carry := carryOverToDoc(e.DefaultCarryOver)
		doc.Entitlements = append(doc.Entitlements, EntitlementDoc{
			ID:          string(e.ID),
			Name:        e.Name,
			Category:    string(e.Category),
			Color:       string(e.Color),
			IsUnlimited: e.IsUnlimited,
			Accrual:     &accrual,
			CarryOver:   &carry,
		})
	}
	for _, u := range ds.Users {
		lieu, _ := u.LieuBalance.Float64()
		doc.Users = append(doc.Users, UserDoc{
			ID:                 string(u.ID),
			Name:               u.Name,
			HolidayConfigIDs:   u.HolidayConfigIDs,
			HolidayWeekendRule: string(u.HolidayWeekendRule),
			LieuBalance:        lieu,
		})
	}
	for _, p := range ds.Policies {
		active := p.IsActive
		carry := carryOverToDoc(p.CarryOver)
		doc.Policies = append(doc.Policies, PolicyDoc{
			UserID:        string(p.UserID),
			EntitlementID: string(p.EntitlementID),
			Year:          p.Year,
			IsActive:      &active,
			IsUnlimited:   p.IsUnlimited,
			Accrual:       accrualToDoc(p.Accrual),
			CarryOver:     &carry,
		})
	}
	for _, c := range ds.HolidayConfigs {
		cd := HolidayConfigDoc{ID: c.ID, Name: c.Name, Jurisdiction: c.Jurisdiction}
		for _, h := range c.Holidays {
			included := h.IsIncluded
			cd.Holidays = append(cd.Holidays, HolidayDoc{
				ID:           h.ID,
				Name:         h.Name,
				Date:         h.Date.String(),
				Jurisdiction: h.Jurisdiction,
				IsIncluded:   &included,
				Custom:       h.IsCustom(),
			})
		}
		doc.HolidayConfigs = append(doc.HolidayConfigs, cd)
	}
	for _, t := range ds.Trips {
		td := TripDoc{
			ID:            t.ID,
			UserID:        string(t.UserID),
			Name:          t.Name,
			StartDate:     t.StartDate,
			EndDate:       t.EndDate,
			Status:        string(t.Status),
			DurationMode:  string(t.DurationMode),
			StartPortion:  string(t.StartPortion),
			EndPortion:    string(t.EndPortion),
			ExcludedDates: t.ExcludedDates,
			EntitlementID: string(t.EntitlementID),
		}
		for _, a := range t.Allocations {
			days, _ := a.Days.Float64()
			td.Allocations = append(td.Allocations, AllocationDoc{
				EntitlementID: string(a.EntitlementID),
				Days:          days,
				TargetYear:    a.TargetYear,
			})
		}
		doc.Trips = append(doc.Trips, td)
	}
	return doc
}

// Encode serialises a dataset in the given format.
func Encode(ds *leave.Dataset, format Format) ([]byte, error) {
	doc := ToDocument(ds)
	if format == FormatYAML {
		return yaml.Marshal(doc)
	}
	return json.MarshalIndent(doc, "", "  ")
}

func accrualToDoc(a leave.Accrual) AccrualDoc {
	amount, _ := a.Amount.Float64()
	return AccrualDoc{Period: string(a.Period), Amount: amount}
}

func carryOverToDoc(r leave.CarryOverRule) CarryOverDoc {
	max, _ := r.MaxDays.Float64()
	return CarryOverDoc{
		Enabled:             r.Enabled,
		MaxDays:             max,
		ExpiryType:          string(r.ExpiryType),
		ExpiryValue:         r.ExpiryValue,
		TargetEntitlementID: string(r.TargetEntitlementID),
	}
}
