/*
Package sqlite provides a SQLite-backed implementation of store.Repository.

PURPOSE:
  Persists the source collections of the leave engine. Balances are never
  stored; every query recomputes them from LoadDataset.

KEY TABLES:
  entitlement_types:     Leave categories with their defaults
  users:                 Users, weekend rule and lieu counter
  user_holiday_configs:  Holiday calendar subscriptions
  user_policies:         Per user, entitlement and year overrides
  holiday_configs:       Holiday calendars
  holidays:              Holiday dates, cascade-deleted with their config
  trips:                 Leave requests, allocations as JSON
  settings:              Workspace key/value settings

INDEXES:
  - idx_user_policies_unique: one policy per (user, entitlement, year)
  - idx_holidays_config_date: holiday lookups by calendar
  - idx_trips_user: trips per user

Policies and trips deliberately have no foreign key to entitlement_types.
A deleted entitlement leaves dangling references the engine reports.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety; LoadDataset reads under one lock so
  the snapshot is consistent.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ds, err := store.LoadDataset(ctx)

SEE ALSO:
  - store/store.go: Repository interface
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// Store implements store.Repository using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entitlement_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		color TEXT NOT NULL,
		is_unlimited BOOLEAN NOT NULL DEFAULT FALSE,
		accrual_period TEXT NOT NULL,
		accrual_amount TEXT NOT NULL,
		carry_over_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		holiday_weekend_rule TEXT NOT NULL DEFAULT 'none',
		lieu_balance TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_holiday_configs (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		config_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (user_id, config_id)
	);

	CREATE TABLE IF NOT EXISTS user_policies (
		user_id TEXT NOT NULL,
		entitlement_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_unlimited BOOLEAN NOT NULL DEFAULT FALSE,
		accrual_period TEXT NOT NULL,
		accrual_amount TEXT NOT NULL,
		carry_over_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: one policy per user, entitlement and year
	CREATE UNIQUE INDEX IF NOT EXISTS idx_user_policies_unique
		ON user_policies(user_id, entitlement_id, year);

	CREATE TABLE IF NOT EXISTS holiday_configs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		jurisdiction TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		config_id TEXT NOT NULL REFERENCES holiday_configs(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		date TEXT NOT NULL,
		jurisdiction TEXT NOT NULL DEFAULT '',
		is_included BOOLEAN NOT NULL DEFAULT TRUE,
		is_weekend BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_config_date
		ON holidays(config_id, date);

	CREATE TABLE IF NOT EXISTS trips (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL,
		duration_mode TEXT NOT NULL,
		start_portion TEXT NOT NULL DEFAULT '',
		end_portion TEXT NOT NULL DEFAULT '',
		excluded_dates_json TEXT NOT NULL DEFAULT '[]',
		entitlement_id TEXT NOT NULL DEFAULT '',
		allocations_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trips_user
		ON trips(user_id, start_date);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// =============================================================================
// ENTITLEMENT TYPES
// =============================================================================

// carryOverRow is the JSON column form of a carry-over rule.
type carryOverRow struct {
	Enabled     bool   `json:"enabled"`
	MaxDays     string `json:"max_days"`
	ExpiryType  string `json:"expiry_type"`
	ExpiryValue string `json:"expiry_value,omitempty"`
	Target      string `json:"target_entitlement_id,omitempty"`
}

func encodeCarryOver(r leave.CarryOverRule) string {
	data, _ := json.Marshal(carryOverRow{
		Enabled:     r.Enabled,
		MaxDays:     r.MaxDays.String(),
		ExpiryType:  string(r.ExpiryType),
		ExpiryValue: r.ExpiryValue,
		Target:      string(r.TargetEntitlementID),
	})
	return string(data)
}

func decodeCarryOver(s string) (leave.CarryOverRule, error) {
	var row carryOverRow
	if err := json.Unmarshal([]byte(s), &row); err != nil {
		return leave.CarryOverRule{}, fmt.Errorf("failed to decode carry-over: %w", err)
	}
	return leave.CarryOverRule{
		Enabled:             row.Enabled,
		MaxDays:             parseDecimal(row.MaxDays),
		ExpiryType:          leave.ExpiryType(row.ExpiryType),
		ExpiryValue:         row.ExpiryValue,
		TargetEntitlementID: leave.EntitlementID(row.Target),
	}, nil
}

// SaveEntitlement inserts or updates an entitlement type.
func (s *Store) SaveEntitlement(ctx context.Context, e leave.EntitlementType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveEntitlement(ctx, s.db, e)
}

func saveEntitlement(ctx context.Context, db execer, e leave.EntitlementType) error {
	query := `
		INSERT INTO entitlement_types
		(id, name, category, color, is_unlimited, accrual_period, accrual_amount, carry_over_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			color = excluded.color,
			is_unlimited = excluded.is_unlimited,
			accrual_period = excluded.accrual_period,
			accrual_amount = excluded.accrual_amount,
			carry_over_json = excluded.carry_over_json
	`
	_, err := db.ExecContext(ctx, query,
		e.ID, e.Name, e.Category, e.Color, e.IsUnlimited,
		e.DefaultAccrual.Period, e.DefaultAccrual.Amount.String(),
		encodeCarryOver(e.DefaultCarryOver), now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save entitlement %s: %w", e.ID, err)
	}
	return nil
}

// ListEntitlements returns all entitlement types ordered by id.
func (s *Store) ListEntitlements(ctx context.Context) ([]leave.EntitlementType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return listEntitlements(ctx, s.db)
}

func listEntitlements(ctx context.Context, db querier) ([]leave.EntitlementType, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, category, color, is_unlimited, accrual_period, accrual_amount, carry_over_json
		FROM entitlement_types ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query entitlements: %w", err)
	}
	defer rows.Close()

	var out []leave.EntitlementType
	for rows.Next() {
		var (
			e             leave.EntitlementType
			period        string
			amount, carry string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Category, &e.Color, &e.IsUnlimited, &period, &amount, &carry); err != nil {
			return nil, fmt.Errorf("failed to scan entitlement: %w", err)
		}
		e.DefaultAccrual = leave.Accrual{Period: leave.AccrualPeriod(period), Amount: parseDecimal(amount)}
		if e.DefaultCarryOver, err = decodeCarryOver(carry); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteEntitlement removes an entitlement type. References to it are kept.
func (s *Store) DeleteEntitlement(ctx context.Context, id leave.EntitlementID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM entitlement_types WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("entitlement %s: %w", id, generic.ErrNotFound)
	}
	return nil
}

// =============================================================================
// USER POLICIES
// =============================================================================

// CreatePolicies inserts policies in one transaction. Any existing
// (user, entitlement, year) aborts the batch with leave.ErrDuplicatePolicy.
func (s *Store) CreatePolicies(ctx context.Context, policies []leave.UserPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, p := range policies {
		if err := insertPolicy(ctx, sqlTx, p, false); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

// SavePolicy inserts or replaces one policy.
func (s *Store) SavePolicy(ctx context.Context, p leave.UserPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return insertPolicy(ctx, s.db, p, true)
}

func insertPolicy(ctx context.Context, db execer, p leave.UserPolicy, upsert bool) error {
	query := `
		INSERT INTO user_policies
		(user_id, entitlement_id, year, is_active, is_unlimited, accrual_period, accrual_amount,
		 carry_over_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if upsert {
		query += `
		ON CONFLICT(user_id, entitlement_id, year) DO UPDATE SET
			is_active = excluded.is_active,
			is_unlimited = excluded.is_unlimited,
			accrual_period = excluded.accrual_period,
			accrual_amount = excluded.accrual_amount,
			carry_over_json = excluded.carry_over_json,
			updated_at = excluded.updated_at
		`
	}
	ts := now()
	_, err := db.ExecContext(ctx, query,
		p.UserID, p.EntitlementID, p.Year, p.IsActive, p.IsUnlimited,
		p.Accrual.Period, p.Accrual.Amount.String(), encodeCarryOver(p.CarryOver), ts, ts,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: user %s, entitlement %s, year %d",
				leave.ErrDuplicatePolicy, p.UserID, p.EntitlementID, p.Year)
		}
		return fmt.Errorf("failed to save policy: %w", err)
	}
	return nil
}

// ListPolicies returns the policies of one user, or of everyone when
// userID is empty.
func (s *Store) ListPolicies(ctx context.Context, userID leave.UserID) ([]leave.UserPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return listPolicies(ctx, s.db, userID)
}

func listPolicies(ctx context.Context, db querier, userID leave.UserID) ([]leave.UserPolicy, error) {
	query := `
		SELECT user_id, entitlement_id, year, is_active, is_unlimited, accrual_period, accrual_amount, carry_over_json
		FROM user_policies
		WHERE ? = '' OR user_id = ?
		ORDER BY user_id, year, entitlement_id
	`
	rows, err := db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	var out []leave.UserPolicy
	for rows.Next() {
		var (
			p             leave.UserPolicy
			period        string
			amount, carry string
		)
		if err := rows.Scan(&p.UserID, &p.EntitlementID, &p.Year, &p.IsActive, &p.IsUnlimited, &period, &amount, &carry); err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		p.Accrual = leave.Accrual{Period: leave.AccrualPeriod(period), Amount: parseDecimal(amount)}
		if p.CarryOver, err = decodeCarryOver(carry); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// HOLIDAY CONFIGS
// =============================================================================

// SaveHolidayConfig stores a calendar and replaces its holidays.
func (s *Store) SaveHolidayConfig(ctx context.Context, cfg leave.HolidayConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := saveHolidayConfig(ctx, sqlTx, cfg); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func saveHolidayConfig(ctx context.Context, db execer, cfg leave.HolidayConfig) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO holiday_configs (id, name, jurisdiction, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			jurisdiction = excluded.jurisdiction
	`, cfg.ID, cfg.Name, cfg.Jurisdiction, now())
	if err != nil {
		return fmt.Errorf("failed to save holiday config %s: %w", cfg.ID, err)
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM holidays WHERE config_id = ?", cfg.ID); err != nil {
		return fmt.Errorf("failed to clear holidays of %s: %w", cfg.ID, err)
	}
	for _, h := range cfg.Holidays {
		_, err := db.ExecContext(ctx, `
			INSERT INTO holidays (id, config_id, name, date, jurisdiction, is_included, is_weekend)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, h.ID, cfg.ID, h.Name, h.Date.String(), h.Jurisdiction, h.IsIncluded, h.Date.IsWeekend())
		if err != nil {
			return fmt.Errorf("failed to save holiday %s: %w", h.ID, err)
		}
	}
	return nil
}

// ListHolidayConfigs returns every calendar with its holidays in date order.
func (s *Store) ListHolidayConfigs(ctx context.Context) ([]leave.HolidayConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return listHolidayConfigs(ctx, s.db)
}

func listHolidayConfigs(ctx context.Context, db querier) ([]leave.HolidayConfig, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, name, jurisdiction FROM holiday_configs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query holiday configs: %w", err)
	}
	var configs []leave.HolidayConfig
	index := make(map[string]int)
	for rows.Next() {
		var c leave.HolidayConfig
		if err := rows.Scan(&c.ID, &c.Name, &c.Jurisdiction); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan holiday config: %w", err)
		}
		index[c.ID] = len(configs)
		configs = append(configs, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hrows, err := db.QueryContext(ctx, `
		SELECT id, config_id, name, date, jurisdiction, is_included, is_weekend
		FROM holidays ORDER BY config_id, date, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer hrows.Close()

	for hrows.Next() {
		var (
			h       leave.PublicHoliday
			dateStr string
		)
		if err := hrows.Scan(&h.ID, &h.ConfigID, &h.Name, &dateStr, &h.Jurisdiction, &h.IsIncluded, &h.IsWeekend); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		if h.Date, err = generic.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("holiday %s: %w", h.ID, err)
		}
		if i, ok := index[h.ConfigID]; ok {
			configs[i].Holidays = append(configs[i].Holidays, h)
		}
	}
	return configs, hrows.Err()
}

// =============================================================================
// USERS
// =============================================================================

// SaveUser inserts or updates a user and replaces its subscriptions.
func (s *Store) SaveUser(ctx context.Context, u leave.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := saveUser(ctx, sqlTx, u); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func saveUser(ctx context.Context, db execer, u leave.User) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, name, holiday_weekend_rule, lieu_balance, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			holiday_weekend_rule = excluded.holiday_weekend_rule,
			lieu_balance = excluded.lieu_balance
	`, u.ID, u.Name, u.HolidayWeekendRule, u.LieuBalance.String(), now())
	if err != nil {
		return fmt.Errorf("failed to save user %s: %w", u.ID, err)
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM user_holiday_configs WHERE user_id = ?", u.ID); err != nil {
		return fmt.Errorf("failed to clear subscriptions of %s: %w", u.ID, err)
	}
	for i, cfgID := range u.HolidayConfigIDs {
		if _, err := db.ExecContext(ctx,
			"INSERT OR IGNORE INTO user_holiday_configs (user_id, config_id, position) VALUES (?, ?, ?)",
			u.ID, cfgID, i,
		); err != nil {
			return fmt.Errorf("failed to subscribe %s to %s: %w", u.ID, cfgID, err)
		}
	}
	return nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id leave.UserID) (*leave.User, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", id, generic.ErrNotFound)
}

// ListUsers returns all users ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]leave.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return listUsers(ctx, s.db)
}

func listUsers(ctx context.Context, db querier) ([]leave.User, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, name, holiday_weekend_rule, lieu_balance FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	var users []leave.User
	index := make(map[leave.UserID]int)
	for rows.Next() {
		var (
			u    leave.User
			lieu string
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.HolidayWeekendRule, &lieu); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.LieuBalance = parseDecimal(lieu)
		index[u.ID] = len(users)
		users = append(users, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	srows, err := db.QueryContext(ctx, "SELECT user_id, config_id FROM user_holiday_configs ORDER BY user_id, position")
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer srows.Close()
	for srows.Next() {
		var userID leave.UserID
		var cfgID string
		if err := srows.Scan(&userID, &cfgID); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		if i, ok := index[userID]; ok {
			users[i].HolidayConfigIDs = append(users[i].HolidayConfigIDs, cfgID)
		}
	}
	return users, srows.Err()
}

// =============================================================================
// TRIPS
// =============================================================================

type allocationRow struct {
	EntitlementID string `json:"entitlement_id"`
	Days          string `json:"days"`
	TargetYear    *int   `json:"target_year,omitempty"`
}

// SaveTrip inserts or replaces a trip.
func (s *Store) SaveTrip(ctx context.Context, t leave.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveTrip(ctx, s.db, t)
}

func saveTrip(ctx context.Context, db execer, t leave.Trip) error {
	excluded, _ := json.Marshal(nonNil(t.ExcludedDates))
	allocs := make([]allocationRow, 0, len(t.Allocations))
	for _, a := range t.Allocations {
		allocs = append(allocs, allocationRow{EntitlementID: string(a.EntitlementID), Days: a.Days.String(), TargetYear: a.TargetYear})
	}
	allocJSON, _ := json.Marshal(allocs)

	_, err := db.ExecContext(ctx, `
		INSERT INTO trips
		(id, user_id, name, start_date, end_date, status, duration_mode, start_portion, end_portion,
		 excluded_dates_json, entitlement_id, allocations_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			status = excluded.status,
			duration_mode = excluded.duration_mode,
			start_portion = excluded.start_portion,
			end_portion = excluded.end_portion,
			excluded_dates_json = excluded.excluded_dates_json,
			entitlement_id = excluded.entitlement_id,
			allocations_json = excluded.allocations_json
	`,
		t.ID, t.UserID, t.Name, t.StartDate, t.EndDate, t.Status, t.DurationMode,
		t.StartPortion, t.EndPortion, string(excluded), t.EntitlementID, string(allocJSON), now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save trip %s: %w", t.ID, err)
	}
	return nil
}

// ListTrips returns the trips of one user, or of everyone when userID is empty.
func (s *Store) ListTrips(ctx context.Context, userID leave.UserID) ([]leave.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return listTrips(ctx, s.db, userID)
}

func listTrips(ctx context.Context, db querier, userID leave.UserID) ([]leave.Trip, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, name, start_date, end_date, status, duration_mode, start_portion, end_portion,
		       excluded_dates_json, entitlement_id, allocations_json
		FROM trips
		WHERE ? = '' OR user_id = ?
		ORDER BY user_id, start_date, id
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	var trips []leave.Trip
	for rows.Next() {
		var (
			t                   leave.Trip
			excluded, allocJSON string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.StartDate, &t.EndDate, &t.Status, &t.DurationMode,
			&t.StartPortion, &t.EndPortion, &excluded, &t.EntitlementID, &allocJSON); err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		if err := json.Unmarshal([]byte(excluded), &t.ExcludedDates); err != nil {
			return nil, fmt.Errorf("trip %s excluded dates: %w", t.ID, err)
		}
		var allocs []allocationRow
		if err := json.Unmarshal([]byte(allocJSON), &allocs); err != nil {
			return nil, fmt.Errorf("trip %s allocations: %w", t.ID, err)
		}
		for _, a := range allocs {
			t.Allocations = append(t.Allocations, leave.Allocation{
				EntitlementID: leave.EntitlementID(a.EntitlementID),
				Days:          parseDecimal(a.Days),
				TargetYear:    a.TargetYear,
			})
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// DeleteTrip removes a trip.
func (s *Store) DeleteTrip(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM trips WHERE id = ?", id)
	return err
}

// =============================================================================
// SETTINGS
// =============================================================================

const workingDaysKey = "working_days"

// SaveSettings stores the workspace settings.
func (s *Store) SaveSettings(ctx context.Context, settings leave.WorkspaceSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveSettings(ctx, s.db, settings)
}

func saveSettings(ctx context.Context, db execer, settings leave.WorkspaceSettings) error {
	days := make([]string, 0, 7)
	for _, wd := range settings.WorkingDays.Weekdays() {
		days = append(days, strconv.Itoa(int(wd)))
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, workingDaysKey, strings.Join(days, ","))
	return err
}

func loadSettings(ctx context.Context, db querier) (leave.WorkspaceSettings, error) {
	rows, err := db.QueryContext(ctx, "SELECT value FROM settings WHERE key = ?", workingDaysKey)
	if err != nil {
		return leave.WorkspaceSettings{}, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	var value string
	if rows.Next() {
		if err := rows.Scan(&value); err != nil {
			return leave.WorkspaceSettings{}, err
		}
	}
	var indices []int
	for _, part := range strings.Split(value, ",") {
		if part == "" {
			continue
		}
		i, err := strconv.Atoi(part)
		if err != nil {
			return leave.WorkspaceSettings{}, fmt.Errorf("bad working day %q: %w", part, err)
		}
		indices = append(indices, i)
	}
	return leave.NewWorkspaceSettings(indices...)
}

// =============================================================================
// DATASET
// =============================================================================

// LoadDataset reads every collection under one read lock.
func (s *Store) LoadDataset(ctx context.Context) (*leave.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		ds  leave.Dataset
		err error
	)
	if ds.Entitlements, err = listEntitlements(ctx, s.db); err != nil {
		return nil, err
	}
	if ds.Users, err = listUsers(ctx, s.db); err != nil {
		return nil, err
	}
	if ds.Policies, err = listPolicies(ctx, s.db, ""); err != nil {
		return nil, err
	}
	if ds.HolidayConfigs, err = listHolidayConfigs(ctx, s.db); err != nil {
		return nil, err
	}
	if ds.Trips, err = listTrips(ctx, s.db, ""); err != nil {
		return nil, err
	}
	if ds.Settings, err = loadSettings(ctx, s.db); err != nil {
		return nil, err
	}
	return &ds, nil
}

// ImportDataset replaces all data with ds in one transaction.
func (s *Store) ImportDataset(ctx context.Context, ds *leave.Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := reset(ctx, sqlTx); err != nil {
		return err
	}
	for _, e := range ds.Entitlements {
		if err := saveEntitlement(ctx, sqlTx, e); err != nil {
			return err
		}
	}
	for _, c := range ds.HolidayConfigs {
		if err := saveHolidayConfig(ctx, sqlTx, c); err != nil {
			return err
		}
	}
	for _, u := range ds.Users {
		if err := saveUser(ctx, sqlTx, u); err != nil {
			return err
		}
	}
	for _, p := range ds.Policies {
		if err := insertPolicy(ctx, sqlTx, p, false); err != nil {
			return err
		}
	}
	for _, t := range ds.Trips {
		if err := saveTrip(ctx, sqlTx, t); err != nil {
			return err
		}
	}
	if err := saveSettings(ctx, sqlTx, ds.Settings); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return reset(ctx, s.db)
}

func reset(ctx context.Context, db execer) error {
	tables := []string{
		"trips", "user_policies", "user_holiday_configs", "users",
		"holidays", "holiday_configs", "entitlement_types", "settings",
	}
	for _, table := range tables {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func parseDecimal(s string) decimal.Decimal {
	return generic.MustParseDecimal(s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
