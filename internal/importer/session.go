package importer

// session.go defines the audit ledger contract. Every ingestion run opens
// a session before the first write and closes it with final counts; a run
// that cannot be audited does not happen.

import (
	"context"
)

// Ledger records import sessions and their per-row failures.
type Ledger interface {
	// Open creates a session in the processing state and returns it with
	// its assigned ID. Called before any data write; failure aborts the
	// run.
	Open(ctx context.Context, s Session) (Session, error)

	// Close finalizes a session with its counts and terminal status.
	Close(ctx context.Context, sessionID string, successCount, errorCount, skippedCount int, status SessionStatus) error

	// RecordFailures persists the failed rows of a session, including
	// their original raw data for later re-export.
	RecordFailures(ctx context.Context, sessionID string, failures []RowFailure) error
}

// openSession wraps Ledger.Open failures as fatal LedgerErrors.
func openSession(ctx context.Context, ledger Ledger, s Session) (Session, error) {
	opened, err := ledger.Open(ctx, s)
	if err != nil {
		return Session{}, &LedgerError{Op: "open", Err: err}
	}
	return opened, nil
}
