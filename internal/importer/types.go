package importer

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lindale-isd/districtops/internal/mapper"
)

// Strategy is the duplicate-handling policy for an import run.
type Strategy string

const (
	// StrategySkip inserts rows and counts natural-key collisions as
	// skipped rather than errors.
	StrategySkip Strategy = "skip"

	// StrategyUpsert updates the existing record in place on a natural-key
	// collision. No row is ever skipped under this strategy.
	StrategyUpsert Strategy = "upsert"
)

// ValidStrategy reports whether s is a recognized duplicate strategy.
func ValidStrategy(s Strategy) bool {
	return s == StrategySkip || s == StrategyUpsert
}

// Phase indicates the current stage of an import run.
type Phase string

const (
	PhaseUploading  Phase = "uploading"
	PhaseMapping    Phase = "mapping"
	PhaseValidating Phase = "validating"
	PhaseIngesting  Phase = "ingesting"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// FieldError is a single validation message for one field of one row.
type FieldError struct {
	Field    string        `json:"field,omitempty"`
	Value    string        `json:"value,omitempty"`
	Message  string        `json:"message"`
	Category ErrorCategory `json:"category,omitempty"`
}

func (e FieldError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// RowResult is the outcome of validating one parsed row. A row is exactly
// one of valid (no Errors), warned (valid with Warnings), or errored.
type RowResult struct {
	// Line is the 1-indexed file line, with the header-row offset applied:
	// the first data row is line 2.
	Line int

	// Record is the typed, parsed record. Nil when the row errored.
	Record Record

	// Raw is the original row as read from the file, kept for error export.
	Raw []string

	Errors   []FieldError
	Warnings []FieldError
}

// Valid reports whether the row passed validation with a parsed record.
func (r RowResult) Valid() bool {
	return len(r.Errors) == 0 && r.Record != nil
}

// ValidationSummary is the immutable result of one validation pass.
// Valid and Errors are disjoint; Warned is the subset of Valid carrying
// advisory messages.
type ValidationSummary struct {
	Valid  []RowResult
	Errors []RowResult
	Warned []RowResult
	Total  int // parseable data rows examined
}

// ErrorCategory classifies a per-row import failure for the ledger.
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryReference  ErrorCategory = "unresolved_reference"
	CategoryConflict   ErrorCategory = "uniqueness_conflict"
	CategoryWrite      ErrorCategory = "batch_write"
)

// RowFailure is one failed or errored row, recorded on the session ledger
// with its original raw data for later CSV re-export.
type RowFailure struct {
	Line     int
	Category ErrorCategory
	Messages []string
	Raw      []string
}

// IngestResult is the aggregate outcome of an ingestion run.
type IngestResult struct {
	SuccessCount int
	ErrorCount   int
	SkippedCount int
	Errors       []RowFailure
}

// ProgressFunc is called after each batch with rows attempted so far and
// the total. Values are monotonically increasing and capped at total.
type ProgressFunc func(done, total int)

// SessionStatus is the lifecycle status of an import session. Transitions
// are monotonic; the three completion states are terminal.
type SessionStatus string

const (
	StatusProcessing SessionStatus = "processing"
	StatusCompleted  SessionStatus = "completed"
	StatusPartial    SessionStatus = "partial"
	StatusFailed     SessionStatus = "failed"
)

// CloseStatus derives the terminal status for a finished run.
func CloseStatus(successCount, errorCount int) SessionStatus {
	switch {
	case errorCount == 0:
		return StatusCompleted
	case successCount > 0:
		return StatusPartial
	default:
		return StatusFailed
	}
}

// Session is one audit record per import run.
type Session struct {
	ID           string               `json:"id"`
	EntityType   string               `json:"entityType"`
	FileName     string               `json:"fileName"`
	Strategy     Strategy             `json:"strategy"`
	Mapping      mapper.ColumnMapping `json:"mapping"`
	TotalRows    int                  `json:"totalRows"`
	SuccessCount int                  `json:"successCount"`
	ErrorCount   int                  `json:"errorCount"`
	SkippedCount int                  `json:"skippedCount"`
	Status       SessionStatus        `json:"status"`
	CreatedAt    time.Time            `json:"createdAt"`
	CompletedAt  *time.Time           `json:"completedAt,omitempty"`
}

// SessionError is one persisted ImportError row.
type SessionError struct {
	SessionID string        `json:"sessionId"`
	Line      int           `json:"line"`
	Category  ErrorCategory `json:"category"`
	Message   string        `json:"message"`
	Raw       []string      `json:"raw"`
}

// Context is the read-only reference-data snapshot one import session
// validates against. It is fetched once at validation start and never
// refreshed mid-run; long imports may see slightly stale data, which is
// accepted.
type Context struct {
	// CampusIDByName maps normalized campus names to internal ids.
	CampusIDByName map[string]pgtype.UUID

	// StudentIDByNumber maps local student ID numbers to internal ids.
	StudentIDByNumber map[string]pgtype.UUID

	// PlacementKeys holds the natural keys of existing placements
	// ("student|type|YYYY-MM-DD") for soft duplicate detection.
	PlacementKeys map[string]struct{}
}

// NormalizeName lower-cases and trims a natural-key name for lookups.
func NormalizeName(s string) string {
	return normalizeKey(s)
}
