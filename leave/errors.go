package leave

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	ErrInvalidCategory = errors.New("invalid entitlement category")
	ErrInvalidColor    = errors.New("invalid entitlement color")
	ErrInvalidExpiry   = errors.New("invalid carry-over expiry")

	// ErrDuplicatePolicy breaks the one-policy-per-(user, entitlement, year) invariant.
	ErrDuplicatePolicy = errors.New("duplicate policy")

	// ErrUnknownUser is returned when a balance is requested for a user
	// that is not part of the dataset.
	ErrUnknownUser = errors.New("unknown user")

	// Recoverable conditions. They never abort a computation.
	ErrDanglingReference    = errors.New("dangling reference")
	ErrCycleAborted         = errors.New("carry-over chain aborted")
	ErrDeprecatedAllocation = errors.New("year-agnostic allocation")
)

// =============================================================================
// WARNINGS - Recovered where detected, contribution degrades to zero
// =============================================================================

// DanglingReferenceWarning reports a record pointing at something that no
// longer exists. The reference contributes nothing.
type DanglingReferenceWarning struct {
	Kind     string // "entitlement", "user", "holiday_config"
	ID       string
	Referrer string
}

func (w *DanglingReferenceWarning) Error() string {
	return fmt.Sprintf("dangling %s reference %q from %s", w.Kind, w.ID, w.Referrer)
}

func (w *DanglingReferenceWarning) Unwrap() error { return ErrDanglingReference }

// CycleAbortedWarning reports a carry-over chain cut at the depth limit.
type CycleAbortedWarning struct {
	UserID        UserID
	EntitlementID EntitlementID
	Year          int
	MaxDepth      int
}

func (w *CycleAbortedWarning) Error() string {
	return fmt.Sprintf("carry-over chain for %s/%s/%d exceeded depth %d",
		w.UserID, w.EntitlementID, w.Year, w.MaxDepth)
}

func (w *CycleAbortedWarning) Unwrap() error { return ErrCycleAborted }

// DeprecatedAllocationWarning reports use of the year-agnostic allocation
// fallback, which double counts trips spanning two years.
type DeprecatedAllocationWarning struct {
	TripID        string
	EntitlementID EntitlementID
	Year          int
}

func (w *DeprecatedAllocationWarning) Error() string {
	return fmt.Sprintf("trip %s: year-agnostic allocation to %s applied in %d",
		w.TripID, w.EntitlementID, w.Year)
}

func (w *DeprecatedAllocationWarning) Unwrap() error { return ErrDeprecatedAllocation }

// =============================================================================
// WARNING LOG
// =============================================================================

// WarningLog collects warnings for one computation and logs each once.
// Every Add is also kept in order, so a caller can ask which warnings a
// single step raised even when an earlier step already raised them.
// A nil *WarningLog discards everything.
type WarningLog struct {
	logger *slog.Logger
	seen   map[string]bool
	list   []error
	events []error
}

func NewWarningLog(logger *slog.Logger) *WarningLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &WarningLog{logger: logger, seen: make(map[string]bool)}
}

func (l *WarningLog) Add(w error) {
	if l == nil || w == nil {
		return
	}
	l.events = append(l.events, w)
	msg := w.Error()
	if l.seen[msg] {
		return
	}
	l.seen[msg] = true
	l.list = append(l.list, w)
	l.logger.Warn("balance degraded", "warning", msg)
}

// List returns the distinct warnings sorted by message.
func (l *WarningLog) List() []error {
	if l == nil {
		return nil
	}
	return distinct(l.list)
}

// Since returns the distinct warnings added after mark, sorted by message.
func (l *WarningLog) Since(mark int) []error {
	if l == nil {
		return nil
	}
	return distinct(l.events[mark:])
}

func (l *WarningLog) mark() int {
	if l == nil {
		return 0
	}
	return len(l.events)
}

// trace returns a copy of every warning added after mark.
func (l *WarningLog) trace(mark int) []error {
	if l == nil || len(l.events) == mark {
		return nil
	}
	return append([]error(nil), l.events[mark:]...)
}

func (l *WarningLog) replay(ws []error) {
	for _, w := range ws {
		l.Add(w)
	}
}

func distinct(ws []error) []error {
	seen := make(map[string]bool, len(ws))
	out := make([]error, 0, len(ws))
	for _, w := range ws {
		if msg := w.Error(); !seen[msg] {
			seen[msg] = true
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Error() < out[j].Error() })
	return out
}
