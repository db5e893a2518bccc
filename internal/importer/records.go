package importer

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// Record is a typed, validated row ready for ingestion. Only the validator
// produces records; raw untyped maps never reach the ingestor.
type Record interface {
	// EntityType returns the registry entity type the record belongs to.
	EntityType() string

	// NaturalKey returns the record's natural unique key, used for
	// duplicate detection and error attribution.
	NaturalKey() string
}

// StudentRecord is a validated roster row.
type StudentRecord struct {
	StudentIDNumber  string
	FirstName        string
	LastName         string
	DateOfBirth      pgtype.Date
	GradeLevel       int
	CampusID         pgtype.UUID
	Gender           pgtype.Text
	SpecialEducation pgtype.Bool
	EligibilityCode  pgtype.Text
	ParentName       pgtype.Text
	ParentPhone      pgtype.Text
}

func (r *StudentRecord) EntityType() string { return "students" }
func (r *StudentRecord) NaturalKey() string { return r.StudentIDNumber }

// CampusRecord is a validated facility row.
type CampusRecord struct {
	CampusName    string
	CampusNumber  int
	DistrictCode  pgtype.Text
	CampusType    pgtype.Text
	PrincipalName pgtype.Text
	Phone         pgtype.Text
}

func (r *CampusRecord) EntityType() string { return "campuses" }
func (r *CampusRecord) NaturalKey() string { return normalizeKey(r.CampusName) }

// PlacementRecord is a validated disciplinary placement row.
type PlacementRecord struct {
	StudentID       pgtype.UUID // resolved from StudentIDNumber
	StudentIDNumber string
	PlacementType   string
	StartDate       pgtype.Date
	DaysAssigned    pgtype.Int4
	IncidentDate    pgtype.Date
	OffenseCode     pgtype.Text
	CampusID        pgtype.UUID
	Notes           pgtype.Text
}

func (r *PlacementRecord) EntityType() string { return "placements" }

// NaturalKey is (student, type, start date), matching the store's unique
// constraint.
func (r *PlacementRecord) NaturalKey() string {
	return PlacementKey(r.StudentIDNumber, r.PlacementType, r.StartDate)
}

// PlacementKey builds the placement natural key string used both by the
// validator's duplicate check and the validation-context loader.
func PlacementKey(studentIDNumber, placementType string, startDate pgtype.Date) string {
	day := ""
	if startDate.Valid {
		day = startDate.Time.Format("2006-01-02")
	}
	return fmt.Sprintf("%s|%s|%s", normalizeKey(studentIDNumber), normalizeKey(placementType), day)
}
