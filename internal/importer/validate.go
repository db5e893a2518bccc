package importer

// validate.go applies a confirmed column mapping to raw rows and runs the
// per-entity validation rules against the reference-data snapshot.
//
// Every check for a row runs even after the first failure, so the user sees
// all problems at once. A row with zero blocking errors produces a typed
// record and lands in Valid (possibly with warnings); any blocking error
// routes it to Errors and excludes it from ingestion. A row is never in
// both sets.

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lindale-isd/districtops/internal/mapper"
	"github.com/lindale-isd/districtops/internal/registry"
)

// GradeLevelMin and GradeLevelMax bound grade_level; -1 is pre-K.
const (
	GradeLevelMin = -1
	GradeLevelMax = 12
)

// DaysAssignedMax caps a placement length in school days.
const DaysAssignedMax = 180

// fieldReader resolves target-field values for one row through the
// confirmed mapping.
type fieldReader struct {
	row []string
	pos map[string]int // target field -> column index, -1 when unmapped
}

// newFieldPositions precomputes target field -> column index from the
// mapping and the file's header row.
func newFieldPositions(tpl registry.ImportTemplate, headers []string, mapping mapper.ColumnMapping) map[string]int {
	headerIdx := MakeHeaderIndex(headers)
	pos := make(map[string]int, len(tpl.Fields))
	for _, f := range tpl.Fields {
		pos[f.Name] = -1
		src := mapping.Mapped(f.Name)
		if src == "" {
			continue
		}
		if i, ok := headerIdx[normalizeKey(CleanCell(src))]; ok {
			pos[f.Name] = i
		}
	}
	return pos
}

// value returns the cleaned cell for a target field, or "" when the field
// is unmapped or the row is short.
func (fr fieldReader) value(field string) string {
	i, ok := fr.pos[field]
	if !ok || i < 0 || i >= len(fr.row) {
		return ""
	}
	return CleanCell(fr.row[i])
}

// Validate maps and validates raw data rows for one entity type.
// headers is the file's header row; rows are the data rows that follow it.
func Validate(tpl registry.ImportTemplate, headers []string, rows [][]string, mapping mapper.ColumnMapping, vctx *Context) ValidationSummary {
	positions := newFieldPositions(tpl, headers, mapping)

	var summary ValidationSummary
	for i, row := range rows {
		if isEmptyRow(row) {
			continue
		}

		// 1-indexed plus the header row: first data row is line 2.
		line := i + 2
		fr := fieldReader{row: row, pos: positions}

		result := RowResult{Line: line, Raw: row}
		result.Errors, result.Warnings = checkFields(tpl, fr)

		entityErrs, entityWarns, rec := checkEntity(tpl.EntityType, fr, vctx)
		result.Errors = append(result.Errors, entityErrs...)
		result.Warnings = append(result.Warnings, entityWarns...)

		summary.Total++
		if len(result.Errors) > 0 {
			summary.Errors = append(summary.Errors, result)
			continue
		}

		result.Record = rec
		summary.Valid = append(summary.Valid, result)
		if len(result.Warnings) > 0 {
			summary.Warned = append(summary.Warned, result)
		}
	}

	return summary
}

// checkFields runs the generic per-field checks from the template specs:
// required presence, format validation, and enum membership.
func checkFields(tpl registry.ImportTemplate, fr fieldReader) (errs, warns []FieldError) {
	for _, spec := range tpl.Fields {
		raw := fr.value(spec.Name)

		if raw == "" {
			if spec.Required {
				errs = append(errs, FieldError{
					Field:    spec.Name,
					Message:  "required field is empty",
					Category: CategoryValidation,
				})
			}
			continue
		}

		if msg := checkCell(raw, spec); msg != "" {
			errs = append(errs, FieldError{
				Field:    spec.Name,
				Value:    raw,
				Message:  msg,
				Category: CategoryValidation,
			})
		}
	}
	return errs, warns
}

// checkCell validates a non-empty cell against its field spec.
// Returns "" when valid.
func checkCell(value string, spec registry.FieldSpec) string {
	switch spec.Type {
	case registry.FieldDate:
		if !ToPgDate(value).Valid {
			return "invalid date format (use YYYY-MM-DD or similar)"
		}
	case registry.FieldNumeric:
		if _, ok := ParseInt(value); !ok {
			return "invalid number format"
		}
	case registry.FieldBool:
		if !ToPgBool(value).Valid {
			return "must be yes/no, true/false, or 1/0"
		}
	case registry.FieldEnum:
		if len(spec.EnumValues) > 0 && !inEnum(value, spec.EnumValues) {
			return "value must be one of: " + joinEnum(spec.EnumValues)
		}
	}
	return ""
}

// checkEntity runs the entity-specific cross-reference, temporal, range,
// conditional, and soft-duplicate rules, and builds the typed record.
// The record is only meaningful when no errors were collected.
func checkEntity(entityType string, fr fieldReader, vctx *Context) (errs, warns []FieldError, rec Record) {
	switch entityType {
	case "students":
		return checkStudent(fr, vctx)
	case "campuses":
		return checkCampus(fr, vctx)
	case "placements":
		return checkPlacement(fr, vctx)
	default:
		errs = append(errs, FieldError{
			Message:  "unknown entity type: " + entityType,
			Category: CategoryValidation,
		})
		return errs, nil, nil
	}
}

func checkStudent(fr fieldReader, vctx *Context) (errs, warns []FieldError, rec Record) {
	idNumber := fr.value("student_id_number")

	dob := ToPgDate(fr.value("date_of_birth"))
	if dob.Valid && dob.Time.After(time.Now()) {
		errs = append(errs, FieldError{
			Field:    "date_of_birth",
			Value:    fr.value("date_of_birth"),
			Message:  "date of birth cannot be in the future",
			Category: CategoryValidation,
		})
	}

	grade, gradeOK := ParseInt(fr.value("grade_level"))
	if gradeOK && (grade < GradeLevelMin || grade > GradeLevelMax) {
		errs = append(errs, FieldError{
			Field:    "grade_level",
			Value:    fr.value("grade_level"),
			Message:  fmt.Sprintf("grade level must be between %d and %d", GradeLevelMin, GradeLevelMax),
			Category: CategoryValidation,
		})
	}

	campusID, campusErr := resolveCampus(fr.value("campus_name"), vctx)
	if campusErr != nil {
		errs = append(errs, *campusErr)
	}

	// Gender is normalized before checking so common spellings pass.
	gender := normalizeGender(fr.value("gender"))
	if gender != "" && gender != "M" && gender != "F" && gender != "X" {
		errs = append(errs, FieldError{
			Field:    "gender",
			Value:    fr.value("gender"),
			Message:  "gender must be M, F, or X",
			Category: CategoryValidation,
		})
	}

	// eligibility_code is conditionally required: a special education
	// student must carry a primary eligibility code.
	sped := ToPgBool(fr.value("special_education"))
	eligibility := fr.value("eligibility_code")
	if sped.Valid && sped.Bool && eligibility == "" {
		errs = append(errs, FieldError{
			Field:    "eligibility_code",
			Message:  "eligibility_code is required when special_education is yes",
			Category: CategoryValidation,
		})
	}

	if idNumber != "" {
		if _, exists := vctx.StudentIDByNumber[normalizeKey(idNumber)]; exists {
			warns = append(warns, FieldError{
				Field:    "student_id_number",
				Value:    idNumber,
				Message:  "a student with this ID number already exists; the duplicate strategy decides the outcome",
				Category: CategoryConflict,
			})
		}
	}

	if len(errs) > 0 {
		return errs, warns, nil
	}

	return errs, warns, &StudentRecord{
		StudentIDNumber:  idNumber,
		FirstName:        fr.value("first_name"),
		LastName:         fr.value("last_name"),
		DateOfBirth:      dob,
		GradeLevel:       grade,
		CampusID:         campusID,
		Gender:           ToPgText(gender),
		SpecialEducation: sped,
		EligibilityCode:  ToPgText(eligibility),
		ParentName:       ToPgText(fr.value("parent_name")),
		ParentPhone:      ToPgText(fr.value("parent_phone")),
	}
}

func checkCampus(fr fieldReader, vctx *Context) (errs, warns []FieldError, rec Record) {
	name := fr.value("campus_name")
	number, _ := ParseInt(fr.value("campus_number"))

	if name != "" {
		if _, exists := vctx.CampusIDByName[normalizeKey(name)]; exists {
			warns = append(warns, FieldError{
				Field:    "campus_name",
				Value:    name,
				Message:  "a campus with this name already exists; the duplicate strategy decides the outcome",
				Category: CategoryConflict,
			})
		}
	}

	if len(errs) > 0 {
		return errs, warns, nil
	}

	return errs, warns, &CampusRecord{
		CampusName:    name,
		CampusNumber:  number,
		DistrictCode:  ToPgText(fr.value("district_code")),
		CampusType:    ToPgText(normalizeKey(fr.value("campus_type"))),
		PrincipalName: ToPgText(fr.value("principal_name")),
		Phone:         ToPgText(fr.value("phone")),
	}
}

func checkPlacement(fr fieldReader, vctx *Context) (errs, warns []FieldError, rec Record) {
	idNumber := fr.value("student_id_number")
	placementType := normalizeKey(fr.value("placement_type"))

	studentID, found := vctx.StudentIDByNumber[normalizeKey(idNumber)]
	if idNumber != "" && !found {
		errs = append(errs, FieldError{
			Field:    "student_id_number",
			Value:    idNumber,
			Message:  "referenced student not found",
			Category: CategoryReference,
		})
	}

	startDate := ToPgDate(fr.value("start_date"))

	days, daysOK := ParseInt(fr.value("days_assigned"))
	if daysOK && (days < 1 || days > DaysAssignedMax) {
		errs = append(errs, FieldError{
			Field:    "days_assigned",
			Value:    fr.value("days_assigned"),
			Message:  fmt.Sprintf("days assigned must be between 1 and %d", DaysAssignedMax),
			Category: CategoryValidation,
		})
	}

	incident := ToPgDate(fr.value("incident_date"))
	if incident.Valid && incident.Time.After(time.Now()) {
		errs = append(errs, FieldError{
			Field:    "incident_date",
			Value:    fr.value("incident_date"),
			Message:  "incident date cannot be in the future",
			Category: CategoryValidation,
		})
	}

	campusID, campusErr := resolveCampus(fr.value("campus_name"), vctx)
	if campusErr != nil {
		errs = append(errs, *campusErr)
	}

	if idNumber != "" && placementType != "" && startDate.Valid {
		key := PlacementKey(idNumber, placementType, startDate)
		if _, exists := vctx.PlacementKeys[key]; exists {
			warns = append(warns, FieldError{
				Field:    "start_date",
				Message:  "a placement with this student, type, and start date already exists; the duplicate strategy decides the outcome",
				Category: CategoryConflict,
			})
		}
	}

	if len(errs) > 0 {
		return errs, warns, nil
	}

	record := &PlacementRecord{
		StudentID:       studentID,
		StudentIDNumber: idNumber,
		PlacementType:   placementType,
		StartDate:       startDate,
		OffenseCode:     ToPgText(fr.value("offense_code")),
		CampusID:        campusID,
		Notes:           ToPgText(fr.value("notes")),
		IncidentDate:    incident,
	}
	if daysOK {
		record.DaysAssigned.Int32 = int32(days)
		record.DaysAssigned.Valid = true
	}
	return errs, warns, record
}

// resolveCampus looks up an optional campus reference. An unresolved
// non-empty reference is a blocking error.
func resolveCampus(name string, vctx *Context) (id pgtype.UUID, fieldErr *FieldError) {
	if name == "" {
		return id, nil
	}
	resolved, ok := vctx.CampusIDByName[normalizeKey(name)]
	if !ok {
		return id, &FieldError{
			Field:    "campus_name",
			Value:    name,
			Message:  "referenced campus not found",
			Category: CategoryReference,
		}
	}
	return resolved, nil
}

// normalizeGender maps common gender spellings onto the single-letter codes
// the store uses.
func normalizeGender(s string) string {
	switch normalizeKey(s) {
	case "m", "male":
		return "M"
	case "f", "female":
		return "F"
	case "x", "nonbinary", "non-binary":
		return "X"
	default:
		return s
	}
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if CleanCell(v) != "" {
			return false
		}
	}
	return true
}

func inEnum(value string, allowed []string) bool {
	for _, a := range allowed {
		if normalizeKey(value) == normalizeKey(a) {
			return true
		}
	}
	return false
}

func joinEnum(values []string) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ", "
		}
		out += v
	}
	return out
}
