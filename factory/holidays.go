package factory

import (
	"fmt"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// usFederal is the default calendar seeded by POST /api/holidays/defaults.
var usFederal = []*cal.Holiday{
	us.NewYear,
	us.MlkDay,
	us.PresidentsDay,
	us.MemorialDay,
	us.Juneteenth,
	us.IndependenceDay,
	us.LaborDay,
	us.ColumbusDay,
	us.VeteransDay,
	us.ThanksgivingDay,
	us.ChristmasDay,
}

// USHolidayConfig builds a calendar of US federal holidays for year.
// Holidays keep their actual date; weekend shifting is left to each user's
// weekend rule.
func USHolidayConfig(id, name string, year int) leave.HolidayConfig {
	if id == "" {
		id = fmt.Sprintf("us-%d", year)
	}
	if name == "" {
		name = "United States"
	}
	cfg := leave.HolidayConfig{ID: id, Name: name, Jurisdiction: "US"}
	for _, h := range usFederal {
		actual, _ := h.Calc(year)
		if actual.IsZero() {
			continue
		}
		date := generic.FromTime(actual)
		cfg.Holidays = append(cfg.Holidays, leave.PublicHoliday{
			ID:           NewHolidayID(false),
			Name:         h.Name,
			Date:         date,
			Jurisdiction: cfg.Jurisdiction,
			IsIncluded:   true,
			IsWeekend:    date.IsWeekend(),
			ConfigID:     cfg.ID,
		})
	}
	return cfg
}
