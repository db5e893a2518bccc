package store

// writer.go implements the batch ingestor's Writer contract. Batches are
// written as single multi-row INSERT statements, so a unique violation
// anywhere in the batch fails it atomically and the ingestor can degrade
// to per-row writes.

import (
	"context"
	"fmt"

	"github.com/lindale-isd/districtops/internal/importer"
)

// InsertBatch inserts records of one entity type in a single statement.
func (s *Store) InsertBatch(ctx context.Context, recs []importer.Record) error {
	return s.writeBatch(ctx, recs, false)
}

// UpsertBatch inserts records, updating existing rows on natural-key
// collision.
func (s *Store) UpsertBatch(ctx context.Context, recs []importer.Record) error {
	return s.writeBatch(ctx, recs, true)
}

// InsertOne inserts a single record, surfacing a unique violation for
// the ingestor's skip counting.
func (s *Store) InsertOne(ctx context.Context, rec importer.Record) error {
	return s.writeBatch(ctx, []importer.Record{rec}, false)
}

func (s *Store) writeBatch(ctx context.Context, recs []importer.Record, upsert bool) error {
	if len(recs) == 0 {
		return nil
	}

	switch recs[0].(type) {
	case *importer.StudentRecord:
		return s.writeStudents(ctx, recs, upsert)
	case *importer.CampusRecord:
		return s.writeCampuses(ctx, recs, upsert)
	case *importer.PlacementRecord:
		return s.writePlacements(ctx, recs, upsert)
	default:
		return fmt.Errorf("unsupported record type %T", recs[0])
	}
}

const studentCols = 11

func (s *Store) writeStudents(ctx context.Context, recs []importer.Record, upsert bool) error {
	args := make([]any, 0, len(recs)*studentCols)
	for _, rec := range recs {
		r, ok := rec.(*importer.StudentRecord)
		if !ok {
			return fmt.Errorf("mixed record types in batch: %T", rec)
		}
		args = append(args,
			r.StudentIDNumber, r.FirstName, r.LastName, r.DateOfBirth,
			r.GradeLevel, r.CampusID, r.Gender, r.SpecialEducation,
			r.EligibilityCode, r.ParentName, r.ParentPhone,
		)
	}

	sql := `
		INSERT INTO students (
			student_id_number, first_name, last_name, date_of_birth,
			grade_level, campus_id, gender, special_education,
			eligibility_code, parent_name, parent_phone
		) VALUES ` + valuesClause(len(recs), studentCols)
	if upsert {
		sql += `
		ON CONFLICT (student_id_number) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			date_of_birth = EXCLUDED.date_of_birth,
			grade_level = EXCLUDED.grade_level,
			campus_id = COALESCE(EXCLUDED.campus_id, students.campus_id),
			gender = COALESCE(EXCLUDED.gender, students.gender),
			special_education = COALESCE(EXCLUDED.special_education, students.special_education),
			eligibility_code = COALESCE(EXCLUDED.eligibility_code, students.eligibility_code),
			parent_name = COALESCE(EXCLUDED.parent_name, students.parent_name),
			parent_phone = COALESCE(EXCLUDED.parent_phone, students.parent_phone),
			updated_at = now()`
	}

	if _, err := s.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("writing %d students: %w", len(recs), err)
	}
	return nil
}

const campusCols = 6

func (s *Store) writeCampuses(ctx context.Context, recs []importer.Record, upsert bool) error {
	args := make([]any, 0, len(recs)*campusCols)
	for _, rec := range recs {
		r, ok := rec.(*importer.CampusRecord)
		if !ok {
			return fmt.Errorf("mixed record types in batch: %T", rec)
		}
		args = append(args,
			r.CampusName, r.CampusNumber, r.DistrictCode,
			r.CampusType, r.PrincipalName, r.Phone,
		)
	}

	sql := `
		INSERT INTO campuses (
			campus_name, campus_number, district_code,
			campus_type, principal_name, phone
		) VALUES ` + valuesClause(len(recs), campusCols)
	if upsert {
		sql += `
		ON CONFLICT (campus_name) DO UPDATE SET
			campus_number = EXCLUDED.campus_number,
			district_code = COALESCE(EXCLUDED.district_code, campuses.district_code),
			campus_type = COALESCE(EXCLUDED.campus_type, campuses.campus_type),
			principal_name = COALESCE(EXCLUDED.principal_name, campuses.principal_name),
			phone = COALESCE(EXCLUDED.phone, campuses.phone),
			updated_at = now()`
	}

	if _, err := s.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("writing %d campuses: %w", len(recs), err)
	}
	return nil
}

const placementCols = 9

func (s *Store) writePlacements(ctx context.Context, recs []importer.Record, upsert bool) error {
	args := make([]any, 0, len(recs)*placementCols)
	for _, rec := range recs {
		r, ok := rec.(*importer.PlacementRecord)
		if !ok {
			return fmt.Errorf("mixed record types in batch: %T", rec)
		}
		args = append(args,
			r.StudentID, r.StudentIDNumber, r.PlacementType, r.StartDate,
			r.DaysAssigned, r.IncidentDate, r.OffenseCode, r.CampusID, r.Notes,
		)
	}

	sql := `
		INSERT INTO placements (
			student_id, student_id_number, placement_type, start_date,
			days_assigned, incident_date, offense_code, campus_id, notes
		) VALUES ` + valuesClause(len(recs), placementCols)
	if upsert {
		sql += `
		ON CONFLICT (student_id, placement_type, start_date) DO UPDATE SET
			days_assigned = COALESCE(EXCLUDED.days_assigned, placements.days_assigned),
			incident_date = COALESCE(EXCLUDED.incident_date, placements.incident_date),
			offense_code = COALESCE(EXCLUDED.offense_code, placements.offense_code),
			campus_id = COALESCE(EXCLUDED.campus_id, placements.campus_id),
			notes = COALESCE(EXCLUDED.notes, placements.notes),
			updated_at = now()`
	}

	if _, err := s.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("writing %d placements: %w", len(recs), err)
	}
	return nil
}
