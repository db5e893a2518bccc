package store

// context.go loads the read-only reference snapshots the validator and
// the reconciliation adapter resolve against. Each snapshot is fetched
// once per run and never refreshed mid-run.

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lindale-isd/districtops/internal/importer"
	"github.com/lindale-isd/districtops/internal/recon"
)

// LoadContext fetches the validation snapshot for an import run. Only
// the maps the entity type validates against are populated.
func (s *Store) LoadContext(ctx context.Context, entityType string) (*importer.Context, error) {
	vctx := &importer.Context{
		CampusIDByName:    map[string]pgtype.UUID{},
		StudentIDByNumber: map[string]pgtype.UUID{},
		PlacementKeys:     map[string]struct{}{},
	}

	if err := s.loadCampusMap(ctx, vctx.CampusIDByName); err != nil {
		return nil, err
	}

	switch entityType {
	case "students":
		if err := s.loadStudentMap(ctx, vctx.StudentIDByNumber); err != nil {
			return nil, err
		}
	case "placements":
		if err := s.loadStudentMap(ctx, vctx.StudentIDByNumber); err != nil {
			return nil, err
		}
		if err := s.loadPlacementKeys(ctx, vctx.PlacementKeys); err != nil {
			return nil, err
		}
	}

	return vctx, nil
}

// LoadSnapshot fetches the reconciliation adapter's reference data.
func (s *Store) LoadSnapshot(ctx context.Context) (*recon.Snapshot, error) {
	snap := &recon.Snapshot{
		StudentIDByName:   map[string]pgtype.UUID{},
		CampusIDByName:    map[string]pgtype.UUID{},
		CaseIDByForeignID: map[string]pgtype.UUID{},
	}

	if err := s.loadCampusMap(ctx, snap.CampusIDByName); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `SELECT id, first_name, last_name FROM students`)
	if err != nil {
		return nil, fmt.Errorf("loading student names: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id          pgtype.UUID
			first, last string
		)
		if err := rows.Scan(&id, &first, &last); err != nil {
			return nil, fmt.Errorf("scanning student name: %w", err)
		}
		snap.StudentIDByName[recon.StudentNameKey(last, first)] = id
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	linkRows, err := s.db.Query(ctx, `SELECT foreign_instance_id, case_id FROM external_case_links`)
	if err != nil {
		return nil, fmt.Errorf("loading case links: %w", err)
	}
	defer linkRows.Close()
	for linkRows.Next() {
		var (
			foreignID string
			caseID    pgtype.UUID
		)
		if err := linkRows.Scan(&foreignID, &caseID); err != nil {
			return nil, fmt.Errorf("scanning case link: %w", err)
		}
		snap.CaseIDByForeignID[foreignID] = caseID
	}
	return snap, linkRows.Err()
}

func (s *Store) loadCampusMap(ctx context.Context, m map[string]pgtype.UUID) error {
	rows, err := s.db.Query(ctx, `SELECT id, campus_name FROM campuses`)
	if err != nil {
		return fmt.Errorf("loading campuses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   pgtype.UUID
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("scanning campus: %w", err)
		}
		m[importer.NormalizeName(name)] = id
	}
	return rows.Err()
}

func (s *Store) loadStudentMap(ctx context.Context, m map[string]pgtype.UUID) error {
	rows, err := s.db.Query(ctx, `SELECT id, student_id_number FROM students`)
	if err != nil {
		return fmt.Errorf("loading students: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id     pgtype.UUID
			number string
		)
		if err := rows.Scan(&id, &number); err != nil {
			return fmt.Errorf("scanning student: %w", err)
		}
		m[importer.NormalizeName(number)] = id
	}
	return rows.Err()
}

func (s *Store) loadPlacementKeys(ctx context.Context, keys map[string]struct{}) error {
	const sql = `
		SELECT p.placement_type, p.start_date, st.student_id_number
		FROM placements p
		JOIN students st ON st.id = p.student_id`
	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return fmt.Errorf("loading placement keys: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			placementType string
			startDate     pgtype.Date
			number        string
		)
		if err := rows.Scan(&placementType, &startDate, &number); err != nil {
			return fmt.Errorf("scanning placement key: %w", err)
		}
		keys[importer.PlacementKey(number, placementType, startDate)] = struct{}{}
	}
	return rows.Err()
}
