package importer

import (
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lindale-isd/districtops/internal/mapper"
	"github.com/lindale-isd/districtops/internal/registry"
)

var studentHeaders = []string{
	"student_id_number", "first_name", "last_name", "date_of_birth", "grade_level",
	"campus_name", "special_education", "eligibility_code",
}

func studentRow(overrides map[string]string) []string {
	row := []string{"100245", "Maria", "Gonzalez", "2011-04-17", "7", "Lindale Junior High", "", ""}
	for field, value := range overrides {
		for i, h := range studentHeaders {
			if h == field {
				row[i] = value
			}
		}
	}
	return row
}

func identityMapping(tpl registry.ImportTemplate, headers []string) mapper.ColumnMapping {
	return mapper.Propose(headers, tpl)
}

func testContext() *Context {
	campusID := pgtype.UUID{Bytes: [16]byte{1}, Valid: true}
	studentID := pgtype.UUID{Bytes: [16]byte{2}, Valid: true}
	return &Context{
		CampusIDByName: map[string]pgtype.UUID{
			"lindale junior high": campusID,
			"lindale high school": campusID,
		},
		StudentIDByNumber: map[string]pgtype.UUID{
			"100245": studentID,
		},
		PlacementKeys: map[string]struct{}{
			"100245|daep|2024-09-03": {},
		},
	}
}

func mustGet(t *testing.T, entityType string) registry.ImportTemplate {
	t.Helper()
	tpl, err := registry.Get(entityType)
	if err != nil {
		t.Fatal(err)
	}
	return tpl
}

func hasFieldError(errs []FieldError, field, substr string) bool {
	for _, e := range errs {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidate_GradeLevelRange(t *testing.T) {
	tpl := mustGet(t, "students")
	mapping := identityMapping(tpl, studentHeaders)

	t.Run("grade 13 is out of range", func(t *testing.T) {
		rows := [][]string{studentRow(map[string]string{"grade_level": "13", "student_id_number": "200001"})}
		summary := Validate(tpl, studentHeaders, rows, mapping, testContext())

		if len(summary.Errors) != 1 {
			t.Fatalf("errors = %d, want 1", len(summary.Errors))
		}
		if !hasFieldError(summary.Errors[0].Errors, "grade_level", "between -1 and 12") {
			t.Errorf("expected grade range message, got %v", summary.Errors[0].Errors)
		}
	})

	t.Run("grade 9 is valid", func(t *testing.T) {
		rows := [][]string{studentRow(map[string]string{"grade_level": "9", "student_id_number": "200001"})}
		summary := Validate(tpl, studentHeaders, rows, mapping, testContext())

		if len(summary.Valid) != 1 {
			t.Fatalf("valid = %d, want 1 (errors: %+v)", len(summary.Valid), summary.Errors)
		}
	})

	t.Run("grade -1 is valid pre-K", func(t *testing.T) {
		rows := [][]string{studentRow(map[string]string{"grade_level": "-1", "student_id_number": "200001"})}
		summary := Validate(tpl, studentHeaders, rows, mapping, testContext())

		if len(summary.Valid) != 1 {
			t.Fatalf("valid = %d, want 1 (errors: %+v)", len(summary.Valid), summary.Errors)
		}
	})
}

func TestValidate_DisjointAndComplete(t *testing.T) {
	tpl := mustGet(t, "students")
	mapping := identityMapping(tpl, studentHeaders)

	rows := [][]string{
		studentRow(map[string]string{"student_id_number": "200001"}),
		studentRow(map[string]string{"student_id_number": "200002", "grade_level": "14"}),
		studentRow(map[string]string{"student_id_number": "200003", "date_of_birth": ""}),
		{"", "", "", "", "", "", "", ""}, // fully empty, not parseable
		studentRow(map[string]string{"student_id_number": "200004"}),
	}
	summary := Validate(tpl, studentHeaders, rows, mapping, testContext())

	if got := len(summary.Valid) + len(summary.Errors); got != summary.Total {
		t.Errorf("valid+errors = %d, want Total = %d", got, summary.Total)
	}
	if summary.Total != 4 {
		t.Errorf("Total = %d, want 4 (empty row excluded)", summary.Total)
	}

	lines := map[int]bool{}
	for _, r := range summary.Valid {
		lines[r.Line] = true
	}
	for _, r := range summary.Errors {
		if lines[r.Line] {
			t.Errorf("line %d is in both valid and errors", r.Line)
		}
	}
}

func TestValidate_LineNumbers(t *testing.T) {
	tpl := mustGet(t, "students")
	mapping := identityMapping(tpl, studentHeaders)

	rows := [][]string{
		studentRow(map[string]string{"student_id_number": "200001"}),
		studentRow(map[string]string{"student_id_number": "200002", "grade_level": "99"}),
	}
	summary := Validate(tpl, studentHeaders, rows, mapping, testContext())

	// First data row is line 2 (line 1 is the header).
	if len(summary.Valid) != 1 || summary.Valid[0].Line != 2 {
		t.Errorf("valid row line = %v, want 2", summary.Valid)
	}
	if len(summary.Errors) != 1 || summary.Errors[0].Line != 3 {
		t.Errorf("error row line = %v, want 3", summary.Errors)
	}
}

func TestValidate_AllChecksRun(t *testing.T) {
	tpl := mustGet(t, "students")
	mapping := identityMapping(tpl, studentHeaders)

	// Three problems in one row: all must be reported.
	rows := [][]string{studentRow(map[string]string{
		"student_id_number": "200001",
		"grade_level":       "13",
		"date_of_birth":     "not-a-date",
		"campus_name":       "No Such Campus",
	})}
	summary := Validate(tpl, studentHeaders, rows, mapping, testContext())

	if len(summary.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(summary.Errors))
	}
	errs := summary.Errors[0].Errors
	if len(errs) < 3 {
		t.Fatalf("expected at least 3 field errors, got %v", errs)
	}
	if !hasFieldError(errs, "grade_level", "between") {
		t.Error("missing grade_level error")
	}
	if !hasFieldError(errs, "date_of_birth", "invalid date") {
		t.Error("missing date_of_birth error")
	}
	if !hasFieldError(errs, "campus_name", "not found") {
		t.Error("missing campus_name error")
	}
}

func TestValidate_RequiredFieldEmpty(t *testing.T) {
	tpl := mustGet(t, "students")
	mapping := identityMapping(tpl, studentHeaders)

	rows := [][]string{studentRow(map[string]string{"student_id_number": "200001", "first_name": ""})}
	summary := Validate(tpl, studentHeaders, rows, mapping, testContext())

	if len(summary.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(summary.Errors))
	}
	if !hasFieldError(summary.Errors[0].Errors, "first_name", "required") {
		t.Errorf("expected required-field error, got %v", summary.Errors[0].Errors)
	}
}

func TestValidate_EligibilityRequiredForSped(t *testing.T) {
	tpl := mustGet(t, "students")
	mapping := identityMapping(tpl, studentHeaders)

	t.Run("sped without code errors", func(t *testing.T) {
		rows := [][]string{studentRow(map[string]string{
			"student_id_number": "200001",
			"special_education": "yes",
		})}
		summary := Validate(tpl, studentHeaders, rows, mapping, testContext())

		if len(summary.Errors) != 1 {
			t.Fatalf("errors = %d, want 1", len(summary.Errors))
		}
		if !hasFieldError(summary.Errors[0].Errors, "eligibility_code", "required when special_education") {
			t.Errorf("expected conditional requirement error, got %v", summary.Errors[0].Errors)
		}
	})

	t.Run("sped with code passes", func(t *testing.T) {
		rows := [][]string{studentRow(map[string]string{
			"student_id_number": "200001",
			"special_education": "yes",
			"eligibility_code":  "LD",
		})}
		summary := Validate(tpl, studentHeaders, rows, mapping, testContext())

		if len(summary.Valid) != 1 {
			t.Fatalf("valid = %d, want 1 (errors: %+v)", len(summary.Valid), summary.Errors)
		}
	})
}

func TestValidate_DuplicateStudentWarns(t *testing.T) {
	tpl := mustGet(t, "students")
	mapping := identityMapping(tpl, studentHeaders)

	// 100245 already exists in the context; the row stays valid but warns.
	rows := [][]string{studentRow(nil)}
	summary := Validate(tpl, studentHeaders, rows, mapping, testContext())

	if len(summary.Valid) != 1 {
		t.Fatalf("valid = %d, want 1 (errors: %+v)", len(summary.Valid), summary.Errors)
	}
	if len(summary.Warned) != 1 {
		t.Fatalf("warned = %d, want 1", len(summary.Warned))
	}
	if len(summary.Warned[0].Warnings) == 0 {
		t.Fatal("warned row has no warning messages")
	}
}

func TestValidate_TypedRecordOut(t *testing.T) {
	tpl := mustGet(t, "students")
	mapping := identityMapping(tpl, studentHeaders)

	rows := [][]string{studentRow(map[string]string{"student_id_number": "200001"})}
	summary := Validate(tpl, studentHeaders, rows, mapping, testContext())

	if len(summary.Valid) != 1 {
		t.Fatalf("valid = %d, want 1 (errors: %+v)", len(summary.Valid), summary.Errors)
	}
	rec, ok := summary.Valid[0].Record.(*StudentRecord)
	if !ok {
		t.Fatalf("record type = %T, want *StudentRecord", summary.Valid[0].Record)
	}
	if rec.StudentIDNumber != "200001" {
		t.Errorf("StudentIDNumber = %q, want %q", rec.StudentIDNumber, "200001")
	}
	if rec.GradeLevel != 7 {
		t.Errorf("GradeLevel = %d, want 7", rec.GradeLevel)
	}
	if !rec.CampusID.Valid {
		t.Error("CampusID not resolved")
	}
	if rec.NaturalKey() != "200001" {
		t.Errorf("NaturalKey() = %q, want %q", rec.NaturalKey(), "200001")
	}
}

func TestValidate_GenderNormalized(t *testing.T) {
	tpl := mustGet(t, "students")
	headers := append(append([]string{}, studentHeaders...), "gender")
	mapping := identityMapping(tpl, headers)

	row := append(studentRow(map[string]string{"student_id_number": "200001"}), "female")
	summary := Validate(tpl, headers, [][]string{row}, mapping, testContext())

	if len(summary.Valid) != 1 {
		t.Fatalf("valid = %d, want 1 (errors: %+v)", len(summary.Valid), summary.Errors)
	}
	rec := summary.Valid[0].Record.(*StudentRecord)
	if !rec.Gender.Valid || rec.Gender.String != "F" {
		t.Errorf("Gender = %+v, want F", rec.Gender)
	}

	bad := append(studentRow(map[string]string{"student_id_number": "200002"}), "unknown")
	summary = Validate(tpl, headers, [][]string{bad}, mapping, testContext())
	if len(summary.Errors) != 1 || !hasFieldError(summary.Errors[0].Errors, "gender", "M, F, or X") {
		t.Errorf("expected gender error, got %+v", summary)
	}
}

var placementHeaders = []string{
	"student_id_number", "placement_type", "start_date", "days_assigned", "incident_date", "campus_name",
}

func placementRow(overrides map[string]string) []string {
	row := []string{"100245", "daep", "2025-01-10", "30", "2025-01-08", "Lindale High School"}
	for field, value := range overrides {
		for i, h := range placementHeaders {
			if h == field {
				row[i] = value
			}
		}
	}
	return row
}

func TestValidate_PlacementStudentXref(t *testing.T) {
	tpl := mustGet(t, "placements")
	mapping := identityMapping(tpl, placementHeaders)

	t.Run("known student passes", func(t *testing.T) {
		rows := [][]string{placementRow(nil)}
		summary := Validate(tpl, placementHeaders, rows, mapping, testContext())
		if len(summary.Valid) != 1 {
			t.Fatalf("valid = %d, want 1 (errors: %+v)", len(summary.Valid), summary.Errors)
		}
	})

	t.Run("unknown student blocks", func(t *testing.T) {
		rows := [][]string{placementRow(map[string]string{"student_id_number": "999999"})}
		summary := Validate(tpl, placementHeaders, rows, mapping, testContext())

		if len(summary.Errors) != 1 {
			t.Fatalf("errors = %d, want 1", len(summary.Errors))
		}
		if !hasFieldError(summary.Errors[0].Errors, "student_id_number", "referenced student not found") {
			t.Errorf("expected unresolved-reference error, got %v", summary.Errors[0].Errors)
		}
	})
}

func TestValidate_PlacementRules(t *testing.T) {
	tpl := mustGet(t, "placements")
	mapping := identityMapping(tpl, placementHeaders)

	tests := []struct {
		name      string
		overrides map[string]string
		field     string
		substr    string
	}{
		{"days out of range", map[string]string{"days_assigned": "200"}, "days_assigned", "between 1 and 180"},
		{"zero days", map[string]string{"days_assigned": "0"}, "days_assigned", "between 1 and 180"},
		{"future incident", map[string]string{"incident_date": "2999-01-01"}, "incident_date", "future"},
		{"bad placement type", map[string]string{"placement_type": "detention"}, "placement_type", "one of"},
		{"unknown campus", map[string]string{"campus_name": "Nowhere Middle"}, "campus_name", "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := [][]string{placementRow(tt.overrides)}
			summary := Validate(tpl, placementHeaders, rows, mapping, testContext())

			if len(summary.Errors) != 1 {
				t.Fatalf("errors = %d, want 1 (valid: %+v)", len(summary.Errors), summary.Valid)
			}
			if !hasFieldError(summary.Errors[0].Errors, tt.field, tt.substr) {
				t.Errorf("expected %s error containing %q, got %v", tt.field, tt.substr, summary.Errors[0].Errors)
			}
		})
	}
}

func TestValidate_DuplicatePlacementWarns(t *testing.T) {
	tpl := mustGet(t, "placements")
	mapping := identityMapping(tpl, placementHeaders)

	// Matches the existing key 100245|daep|2024-09-03.
	rows := [][]string{placementRow(map[string]string{"start_date": "2024-09-03"})}
	summary := Validate(tpl, placementHeaders, rows, mapping, testContext())

	if len(summary.Valid) != 1 {
		t.Fatalf("valid = %d, want 1 (errors: %+v)", len(summary.Valid), summary.Errors)
	}
	if len(summary.Warned) != 1 {
		t.Fatalf("warned = %d, want 1", len(summary.Warned))
	}
}

func TestValidate_MappedHeadersDiffer(t *testing.T) {
	tpl := mustGet(t, "students")

	// Vendor-style headers resolved through aliases.
	headers := []string{"Student ID", "First Name", "Last Name", "DOB", "Grade"}
	mapping := mapper.Propose(headers, tpl)

	rows := [][]string{{"200001", "Maria", "Gonzalez", "4/17/2011", "7"}}
	summary := Validate(tpl, headers, rows, mapping, testContext())

	if len(summary.Valid) != 1 {
		t.Fatalf("valid = %d, want 1 (errors: %+v)", len(summary.Valid), summary.Errors)
	}
}
