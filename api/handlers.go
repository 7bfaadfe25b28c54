/*
handlers.go - HTTP API handlers for the leave balance engine

PURPOSE:
  Exposes the balance engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine. Balances are never
  stored: every balance request loads a fresh dataset snapshot from the
  repository and recomputes.

ENDPOINTS:
  Balances:
    GET    /api/users/{id}/balances?year=                  All balances
    GET    /api/users/{id}/balances/{entitlementId}?year=  One balance
    GET    /api/users/{id}/holidays?year=                  Actual/observed calendar

  Users & policies:
    GET    /api/users                                      List users
    PUT    /api/users/{id}                                 Create or update user
    PUT    /api/users/{id}/policies                        Create or replace a policy
    POST   /api/users/{id}/years/{year}/initialize?mode=   Fill missing policies
    POST   /api/users/{id}/trips                           Record a trip

  Entitlements:
    GET    /api/entitlements                               List entitlement types
    POST   /api/entitlements                               Create or update one
    DELETE /api/entitlements/{id}                          Delete (references kept)

  Dataset:
    GET    /api/dataset?format=json|yaml                   Export
    POST   /api/dataset                                    Import (replaces everything)

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Repo: Source collections (store/sqlite or store/memory)
  - Engine: Stateless balance computation
  - Factory: Document decoding and validation

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid dates, bad query parameters
  - 404: Unknown user or entitlement
  - 409: Duplicate policy
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - holidays.go: Holiday config and default-holiday endpoints
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store"
)

// maxBodyBytes caps dataset uploads.
const maxBodyBytes = 4 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Repo    store.Repository
	Engine  *leave.Engine
	Factory *factory.DatasetFactory
	Logger  *slog.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler over repo.
func NewHandler(repo store.Repository, engine *leave.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = leave.NewEngine(logger)
	}
	return &Handler{
		Repo:    repo,
		Engine:  engine,
		Factory: factory.NewDatasetFactory(),
		Logger:  logger,
	}
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// GetBalances returns every entitlement balance of a user for a year.
// GET /api/users/{id}/balances?year=2025
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	year, err := h.yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	ds, err := h.Repo.LoadDataset(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load dataset", err)
		return
	}

	report, err := h.Engine.Balances(ds, leave.UserID(userID), year)
	if err != nil {
		writeError(w, statusFor(err), "Failed to compute balances", err)
		return
	}

	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// GetBalance returns one entitlement balance.
// GET /api/users/{id}/balances/{entitlementId}?year=2025
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	entID := chi.URLParam(r, "entitlementId")
	year, err := h.yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	ds, err := h.Repo.LoadDataset(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load dataset", err)
		return
	}

	b, err := h.Engine.Balance(ds, leave.UserID(userID), leave.EntitlementID(entID), year)
	if err != nil {
		writeError(w, statusFor(err), "Failed to compute balance", err)
		return
	}

	writeJSON(w, http.StatusOK, toBalanceDTO(b))
}

// GetHolidays returns the resolved holiday calendar of a user.
// GET /api/users/{id}/holidays?year=2025
func (h *Handler) GetHolidays(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	year, err := h.yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	ds, err := h.Repo.LoadDataset(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load dataset", err)
		return
	}

	res, err := h.Engine.Holidays(ds, leave.UserID(userID), year)
	if err != nil {
		writeError(w, statusFor(err), "Failed to resolve holidays", err)
		return
	}

	writeJSON(w, http.StatusOK, toHolidaysDTO(userID, res))
}

// =============================================================================
// USER & POLICY HANDLERS
// =============================================================================

// ListUsers returns all users.
// GET /api/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ds, err := h.Repo.LoadDataset(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load dataset", err)
		return
	}
	doc := factory.ToDocument(&leave.Dataset{Users: ds.Users})
	if doc.Users == nil {
		doc.Users = []factory.UserDoc{}
	}
	writeJSON(w, http.StatusOK, doc.Users)
}

// SaveUser creates or updates a user.
// PUT /api/users/{id}
func (h *Handler) SaveUser(w http.ResponseWriter, r *http.Request) {
	var doc factory.UserDoc
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	doc.ID = chi.URLParam(r, "id")

	user, err := h.Factory.User(doc)
	if err != nil {
		writeError(w, statusFor(err), "Invalid user", err)
		return
	}
	if err := h.Repo.SaveUser(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save user", err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// SavePolicy creates or replaces the policy of a user for one entitlement
// and year.
// PUT /api/users/{id}/policies
func (h *Handler) SavePolicy(w http.ResponseWriter, r *http.Request) {
	var doc factory.PolicyDoc
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	doc.UserID = chi.URLParam(r, "id")

	p, err := h.Factory.Policy(doc)
	if err != nil {
		writeError(w, statusFor(err), "Invalid policy", err)
		return
	}
	if err := h.Repo.SavePolicy(r.Context(), p); err != nil {
		writeError(w, statusFor(err), "Failed to save policy", err)
		return
	}

	writeJSON(w, http.StatusOK, factory.ToDocument(&leave.Dataset{Policies: []leave.UserPolicy{p}}).Policies[0])
}

// InitializeYear creates the policies a user is missing for a year.
// POST /api/users/{id}/years/{year}/initialize?mode=copy|default
func (h *Handler) InitializeYear(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	mode, err := leave.ParseInitMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid mode", err)
		return
	}

	ctx := r.Context()
	ds, err := h.Repo.LoadDataset(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load dataset", err)
		return
	}

	created, err := leave.InitializeYear(ds, leave.UserID(userID), year, mode)
	if err != nil {
		writeError(w, statusFor(err), "Failed to initialize year", err)
		return
	}
	if err := h.Repo.CreatePolicies(ctx, created); err != nil {
		writeError(w, statusFor(err), "Failed to save policies", err)
		return
	}

	h.Logger.Info("year initialized", "user", userID, "year", year, "mode", string(mode), "created", len(created))

	resp := InitializeYearResponse{
		UserID:  userID,
		Year:    year,
		Mode:    string(mode),
		Created: factory.ToDocument(&leave.Dataset{Policies: created}).Policies,
	}
	if resp.Created == nil {
		resp.Created = []factory.PolicyDoc{}
	}
	writeJSON(w, http.StatusCreated, resp)
}

// CreateTrip records a trip for a user.
// POST /api/users/{id}/trips
func (h *Handler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var doc factory.TripDoc
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	doc.UserID = chi.URLParam(r, "id")

	trip, err := h.Factory.Trip(doc)
	if err != nil {
		writeError(w, statusFor(err), "Invalid trip", err)
		return
	}
	if err := h.Repo.SaveTrip(r.Context(), trip); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save trip", err)
		return
	}

	writeJSON(w, http.StatusCreated, factory.ToDocument(&leave.Dataset{Trips: []leave.Trip{trip}}).Trips[0])
}

// =============================================================================
// ENTITLEMENT HANDLERS
// =============================================================================

// ListEntitlements returns all entitlement types.
// GET /api/entitlements
func (h *Handler) ListEntitlements(w http.ResponseWriter, r *http.Request) {
	ents, err := h.Repo.ListEntitlements(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list entitlements", err)
		return
	}
	doc := factory.ToDocument(&leave.Dataset{Entitlements: ents})
	if doc.Entitlements == nil {
		doc.Entitlements = []factory.EntitlementDoc{}
	}
	writeJSON(w, http.StatusOK, doc.Entitlements)
}

// CreateEntitlement creates or updates an entitlement type.
// POST /api/entitlements
func (h *Handler) CreateEntitlement(w http.ResponseWriter, r *http.Request) {
	var doc factory.EntitlementDoc
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ent, err := h.Factory.Entitlement(doc)
	if err != nil {
		writeError(w, statusFor(err), "Invalid entitlement", err)
		return
	}
	if err := h.Repo.SaveEntitlement(r.Context(), ent); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save entitlement", err)
		return
	}

	writeJSON(w, http.StatusCreated, factory.ToDocument(&leave.Dataset{Entitlements: []leave.EntitlementType{ent}}).Entitlements[0])
}

// DeleteEntitlement removes an entitlement type. Policies and trips that
// still reference it become dangling-reference warnings.
// DELETE /api/entitlements/{id}
func (h *Handler) DeleteEntitlement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Repo.DeleteEntitlement(r.Context(), leave.EntitlementID(id)); err != nil {
		writeError(w, statusFor(err), "Failed to delete entitlement", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// DATASET HANDLERS
// =============================================================================

// ImportDataset replaces all stored data with the posted dataset.
// The body is YAML when Content-Type mentions yaml, JSON otherwise.
// POST /api/dataset
func (h *Handler) ImportDataset(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}

	ds, err := h.Factory.Parse(body, factory.FormatFromContentType(r.Header.Get("Content-Type")))
	if err != nil {
		writeError(w, statusFor(err), "Invalid dataset", err)
		return
	}
	if err := h.Repo.ImportDataset(r.Context(), ds); err != nil {
		writeError(w, statusFor(err), "Failed to import dataset", err)
		return
	}

	h.setCurrentScenario("")
	h.Logger.Info("dataset imported",
		"entitlements", len(ds.Entitlements),
		"users", len(ds.Users),
		"policies", len(ds.Policies),
		"trips", len(ds.Trips))

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":       "imported",
		"entitlements": len(ds.Entitlements),
		"users":        len(ds.Users),
		"policies":     len(ds.Policies),
		"trips":        len(ds.Trips),
	})
}

// ExportDataset returns everything stored as JSON or YAML.
// GET /api/dataset?format=yaml
func (h *Handler) ExportDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.Repo.LoadDataset(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load dataset", err)
		return
	}

	format := factory.FormatJSON
	contentType := "application/json"
	if r.URL.Query().Get("format") == string(factory.FormatYAML) {
		format = factory.FormatYAML
		contentType = "application/x-yaml"
	}

	data, err := factory.Encode(ds, format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode dataset", err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.setCurrentScenario("")

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// yearParam reads ?year=, defaulting to the engine's as-of year or today.
func (h *Handler) yearParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		if today := h.Engine.Today(); !today.IsZero() {
			return today.Year(), nil
		}
		return generic.Today().Year(), nil
	}
	return strconv.Atoi(raw)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, leave.ErrUnknownUser), generic.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, leave.ErrDuplicatePolicy):
		return http.StatusConflict
	case generic.IsClientError(err),
		errors.Is(err, factory.ErrInvalidDataset),
		errors.Is(err, leave.ErrInvalidCategory),
		errors.Is(err, leave.ErrInvalidColor),
		errors.Is(err, leave.ErrInvalidExpiry):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
