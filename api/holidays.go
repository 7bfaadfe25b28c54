package api

import (
	"encoding/json"
	"net/http"

	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// HOLIDAY CONFIG ENDPOINTS
// =============================================================================

// ListHolidayConfigs returns every holiday calendar.
// GET /api/holidays/configs
func (h *Handler) ListHolidayConfigs(w http.ResponseWriter, r *http.Request) {
	ds, err := h.Repo.LoadDataset(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load dataset", err)
		return
	}
	doc := factory.ToDocument(&leave.Dataset{HolidayConfigs: ds.HolidayConfigs})
	if doc.HolidayConfigs == nil {
		doc.HolidayConfigs = []factory.HolidayConfigDoc{}
	}
	writeJSON(w, http.StatusOK, doc.HolidayConfigs)
}

// SaveHolidayConfig creates or replaces a holiday calendar.
// POST /api/holidays/configs
func (h *Handler) SaveHolidayConfig(w http.ResponseWriter, r *http.Request) {
	var doc factory.HolidayConfigDoc
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, err := h.Factory.HolidayConfig(doc)
	if err != nil {
		writeError(w, statusFor(err), "Invalid holiday config", err)
		return
	}
	if err := h.Repo.SaveHolidayConfig(r.Context(), cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday config", err)
		return
	}

	writeJSON(w, http.StatusCreated, factory.ToDocument(&leave.Dataset{HolidayConfigs: []leave.HolidayConfig{cfg}}).HolidayConfigs[0])
}

// AddDefaultHolidays seeds a calendar with the US federal holidays of a
// year and optionally subscribes users to it.
// POST /api/holidays/defaults
func (h *Handler) AddDefaultHolidays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req DefaultHolidaysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Factory.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	cfg := factory.USHolidayConfig(req.ConfigID, req.Name, req.Year)
	if req.Jurisdiction != "" {
		cfg.Jurisdiction = req.Jurisdiction
	}
	if err := h.Repo.SaveHolidayConfig(ctx, cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday config", err)
		return
	}

	if len(req.UserIDs) > 0 {
		ds, err := h.Repo.LoadDataset(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load dataset", err)
			return
		}
		for _, id := range req.UserIDs {
			user, ok := findUser(ds, leave.UserID(id))
			if !ok {
				writeError(w, http.StatusNotFound, "Unknown user", leave.ErrUnknownUser)
				return
			}
			if !contains(user.HolidayConfigIDs, cfg.ID) {
				user.HolidayConfigIDs = append(append([]string(nil), user.HolidayConfigIDs...), cfg.ID)
			}
			if err := h.Repo.SaveUser(ctx, user); err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to subscribe user", err)
				return
			}
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":    "created",
		"config_id": cfg.ID,
		"count":     len(cfg.Holidays),
	})
}

func findUser(ds *leave.Dataset, id leave.UserID) (leave.User, bool) {
	for _, u := range ds.Users {
		if u.ID == id {
			return u, true
		}
	}
	return leave.User{}, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
