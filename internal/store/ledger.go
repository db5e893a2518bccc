package store

// ledger.go implements the import session ledger on import_sessions and
// import_errors. Status transitions are guarded in SQL: a session only
// moves out of processing once, and the terminal states never change.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lindale-isd/districtops/internal/importer"
	"github.com/lindale-isd/districtops/internal/sheet"
)

// Open creates a session row in the processing state.
func (s *Store) Open(ctx context.Context, session importer.Session) (importer.Session, error) {
	session.ID = uuid.NewString()
	session.Status = importer.StatusProcessing

	mapping, err := json.Marshal(session.Mapping)
	if err != nil {
		return importer.Session{}, fmt.Errorf("encoding mapping snapshot: %w", err)
	}

	const sql = `
		INSERT INTO import_sessions (
			id, entity_type, file_name, strategy, mapping, total_rows, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING created_at`
	err = s.db.QueryRow(ctx, sql,
		session.ID, session.EntityType, session.FileName,
		string(session.Strategy), mapping, session.TotalRows, string(session.Status),
	).Scan(&session.CreatedAt)
	if err != nil {
		return importer.Session{}, fmt.Errorf("opening session: %w", err)
	}
	return session, nil
}

// Close finalizes a processing session with its counts and terminal
// status. Closing an already-terminal session is a no-op.
func (s *Store) Close(ctx context.Context, sessionID string, successCount, errorCount, skippedCount int, status importer.SessionStatus) error {
	const sql = `
		UPDATE import_sessions SET
			success_count = $2,
			error_count = $3,
			skipped_count = $4,
			status = $5,
			completed_at = now()
		WHERE id = $1 AND status = 'processing'`
	if _, err := s.db.Exec(ctx, sql, sessionID, successCount, errorCount, skippedCount, string(status)); err != nil {
		return fmt.Errorf("closing session %s: %w", sessionID, err)
	}
	return nil
}

// RecordFailures persists a session's failed rows with their raw data.
func (s *Store) RecordFailures(ctx context.Context, sessionID string, failures []importer.RowFailure) error {
	if len(failures) == 0 {
		return nil
	}

	const cols = 5
	args := make([]any, 0, len(failures)*cols)
	for _, f := range failures {
		raw, err := json.Marshal(f.Raw)
		if err != nil {
			return fmt.Errorf("encoding raw row %d: %w", f.Line, err)
		}
		args = append(args, sessionID, f.Line, string(f.Category), sheet.JoinMessages(f.Messages), raw)
	}

	sql := `
		INSERT INTO import_errors (session_id, line, category, message, raw)
		VALUES ` + valuesClause(len(failures), cols)
	if _, err := s.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("recording %d failures for session %s: %w", len(failures), sessionID, err)
	}
	return nil
}

// ListSessions returns recent sessions, newest first, optionally
// filtered by entity type.
func (s *Store) ListSessions(ctx context.Context, entityType string, limit int) ([]importer.Session, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	const sql = `
		SELECT id, entity_type, file_name, strategy, mapping,
		       total_rows, success_count, error_count, skipped_count,
		       status, created_at, completed_at
		FROM import_sessions
		WHERE ($1 = '' OR entity_type = $1)
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := s.db.Query(ctx, sql, entityType, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []importer.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// GetSession fetches one session by id.
func (s *Store) GetSession(ctx context.Context, sessionID string) (importer.Session, error) {
	const sql = `
		SELECT id, entity_type, file_name, strategy, mapping,
		       total_rows, success_count, error_count, skipped_count,
		       status, created_at, completed_at
		FROM import_sessions
		WHERE id = $1`
	session, err := scanSession(s.db.QueryRow(ctx, sql, sessionID))
	if err != nil {
		return importer.Session{}, fmt.Errorf("fetching session %s: %w", sessionID, err)
	}
	return session, nil
}

// ListErrors returns a session's failed rows ordered by line number.
func (s *Store) ListErrors(ctx context.Context, sessionID string) ([]importer.SessionError, error) {
	const sql = `
		SELECT session_id, line, category, message, raw
		FROM import_errors
		WHERE session_id = $1
		ORDER BY line`
	rows, err := s.db.Query(ctx, sql, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing errors for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []importer.SessionError
	for rows.Next() {
		var (
			e        importer.SessionError
			category string
			raw      []byte
		)
		if err := rows.Scan(&e.SessionID, &e.Line, &category, &e.Message, &raw); err != nil {
			return nil, fmt.Errorf("scanning error row: %w", err)
		}
		e.Category = importer.ErrorCategory(category)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Raw); err != nil {
				return nil, fmt.Errorf("decoding raw row at line %d: %w", e.Line, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanSession(row pgx.Row) (importer.Session, error) {
	var (
		session  importer.Session
		strategy string
		status   string
		mapping  []byte
	)
	err := row.Scan(
		&session.ID, &session.EntityType, &session.FileName, &strategy, &mapping,
		&session.TotalRows, &session.SuccessCount, &session.ErrorCount, &session.SkippedCount,
		&status, &session.CreatedAt, &session.CompletedAt,
	)
	if err != nil {
		return importer.Session{}, err
	}
	session.Strategy = importer.Strategy(strategy)
	session.Status = importer.SessionStatus(status)
	if len(mapping) > 0 {
		if err := json.Unmarshal(mapping, &session.Mapping); err != nil {
			return importer.Session{}, fmt.Errorf("decoding mapping snapshot: %w", err)
		}
	}
	return session, nil
}
