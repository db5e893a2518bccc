package store

// cases.go persists reconciled disciplinary cases and their vendor
// links. The link table is the idempotency anchor: one foreign instance
// id maps to at most one case for the lifetime of the district.

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lindale-isd/districtops/internal/importer"
	"github.com/lindale-isd/districtops/internal/recon"
)

// CreateStudent inserts a student fabricated from the vendor feed.
func (s *Store) CreateStudent(ctx context.Context, rec *importer.StudentRecord) (pgtype.UUID, error) {
	var id pgtype.UUID
	const sql = `
		INSERT INTO students (
			student_id_number, first_name, last_name, date_of_birth,
			grade_level, campus_id, gender, special_education,
			eligibility_code, parent_name, parent_phone
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (student_id_number) DO UPDATE SET updated_at = now()
		RETURNING id`
	err := s.db.QueryRow(ctx, sql,
		rec.StudentIDNumber, rec.FirstName, rec.LastName, rec.DateOfBirth,
		rec.GradeLevel, rec.CampusID, rec.Gender, rec.SpecialEducation,
		rec.EligibilityCode, rec.ParentName, rec.ParentPhone,
	).Scan(&id)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("creating student %s: %w", rec.StudentIDNumber, err)
	}
	return id, nil
}

// InsertCase inserts a new case and its vendor link in one atomic
// statement, returning the case id. The link insert carries no conflict
// clause on purpose: if a concurrent run linked the instance id first,
// the whole statement fails and no orphaned case is left behind.
func (s *Store) InsertCase(ctx context.Context, c recon.Case) (pgtype.UUID, error) {
	var id pgtype.UUID
	const sql = `
		WITH new_case AS (
			INSERT INTO cases (
				id, student_id, status, placement_type,
				raw_status, raw_step, raw_stage,
				violation_date, referral_date, days_assigned,
				first_day_iss, first_day_oss, last_daep_date
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id
		)
		INSERT INTO external_case_links (foreign_instance_id, case_id)
		SELECT $14, id FROM new_case
		RETURNING case_id`
	err := s.db.QueryRow(ctx, sql,
		uuid.NewString(), c.StudentID, string(c.Status), c.PlacementType,
		c.RawStatus, c.RawStep, c.RawStage,
		c.ViolationDate, c.ReferralDate, c.DaysAssigned,
		c.FirstDayISS, c.FirstDayOSS, c.LastDAEPDate,
		c.ForeignInstanceID,
	).Scan(&id)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("inserting case %s: %w", c.ForeignInstanceID, err)
	}
	return id, nil
}

// UpdateCase updates a previously linked case in place.
func (s *Store) UpdateCase(ctx context.Context, caseID pgtype.UUID, c recon.Case) error {
	const sql = `
		UPDATE cases SET
			student_id = $2,
			status = $3,
			placement_type = $4,
			raw_status = $5,
			raw_step = $6,
			raw_stage = $7,
			violation_date = $8,
			referral_date = $9,
			days_assigned = $10,
			first_day_iss = $11,
			first_day_oss = $12,
			last_daep_date = $13,
			updated_at = now()
		WHERE id = $1`
	if _, err := s.db.Exec(ctx, sql,
		caseID, c.StudentID, string(c.Status), c.PlacementType,
		c.RawStatus, c.RawStep, c.RawStage,
		c.ViolationDate, c.ReferralDate, c.DaysAssigned,
		c.FirstDayISS, c.FirstDayOSS, c.LastDAEPDate,
	); err != nil {
		return fmt.Errorf("updating case %s: %w", c.ForeignInstanceID, err)
	}
	return nil
}
