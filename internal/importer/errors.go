package importer

// errors.go defines the import error taxonomy and the mapping from internal
// errors to user-facing messages with support codes.
//
// Fatal categories (abort the run):
//   - FileParseError: the file is unreadable or empty; no session is opened.
//   - MissingColumnsError: the foreign-feed fast path found none of its key
//     columns.
//   - LedgerError: the audit record itself could not be written; the run
//     aborts before touching data so no write goes unaudited.
//
// Everything else is per-row and non-fatal: the run imports what is valid
// and reports what is not.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// FileParseError indicates the uploaded file could not be parsed at all.
// Fatal: the run aborts before any session is opened.
type FileParseError struct {
	Reason string
}

func (e *FileParseError) Error() string {
	return "file parse: " + e.Reason
}

// MissingColumnsError indicates required columns are entirely absent from a
// file whose layout is fixed (the foreign reconciliation feed).
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

// LedgerError indicates the session ledger itself failed. Fatal.
type LedgerError struct {
	Op  string
	Err error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("session ledger %s: %v", e.Op, e.Err)
}

func (e *LedgerError) Unwrap() error { return e.Err }

// uniqueViolationCode is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation. This classification decides whether a failed batch degrades to
// per-row insertion or fails outright.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return false
}

// UserMessage is a user-friendly error with a support code.
type UserMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// messagePattern maps an error-substring pattern to a user message.
// Checked in order; first match wins.
type messagePattern struct {
	substr string
	msg    UserMessage
}

var messagePatterns = []messagePattern{
	{"duplicate key", UserMessage{"DB001", "A record with this key already exists", "Choose the update-duplicates strategy or remove the duplicate rows"}},
	{"violates unique", UserMessage{"DB002", "This value must be unique but already exists", "Check for duplicate entries in your file"}},
	{"violates foreign key", UserMessage{"DB003", "A referenced record does not exist", "Import parent records (campuses, students) first"}},
	{"connection refused", UserMessage{"DB004", "Unable to reach the database", "Please try again in a few moments"}},
	{"unknown entity type", UserMessage{"TPL001", "No import template exists for this record type", "Check the template list for supported types"}},
	{"missing required columns", UserMessage{"VAL001", "Required columns are missing from the file", "Compare your file against the downloadable template"}},
	{"empty file", UserMessage{"FILE002", "The uploaded file has no data rows", "Upload a file with at least one data row below the header"}},
	{"file parse", UserMessage{"FILE001", "The file could not be read", "Upload a CSV or XLSX export with a header row"}},
	{"session ledger", UserMessage{"SES001", "The import session record could not be created", "No data was changed; please try again"}},
	{"context canceled", UserMessage{"RUN001", "The import was cancelled", "Rows already written were kept; start a new import when ready"}},
	{"context deadline exceeded", UserMessage{"RUN002", "The import timed out", "Try a smaller file or raise the import timeout"}},
}

// MapError converts an internal error to a user-facing message.
// Unrecognized errors get a generic message with code GEN001.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{Code: "GEN000", Message: "OK"}
	}

	text := strings.ToLower(err.Error())
	for _, p := range messagePatterns {
		if strings.Contains(text, p.substr) {
			return p.msg
		}
	}

	return UserMessage{
		Code:    "GEN001",
		Message: "An unexpected error occurred",
		Action:  "Please try again; quote code GEN001 if the problem persists",
	}
}
