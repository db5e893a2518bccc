package mapper

import (
	"testing"

	"github.com/lindale-isd/districtops/internal/registry"
)

func mustTemplate(t *testing.T, entityType string) registry.ImportTemplate {
	t.Helper()
	tpl, err := registry.Get(entityType)
	if err != nil {
		t.Fatalf("Get(%q) error = %v", entityType, err)
	}
	return tpl
}

func TestPropose_ExactMatch(t *testing.T) {
	tpl := mustTemplate(t, "students")
	headers := []string{"student_id_number", "First_Name", "LAST_NAME", "date_of_birth", "grade_level"}

	m := Propose(headers, tpl)

	tests := []struct {
		field string
		want  string
	}{
		{"student_id_number", "student_id_number"},
		{"first_name", "First_Name"},
		{"last_name", "LAST_NAME"},
		{"date_of_birth", "date_of_birth"},
		{"grade_level", "grade_level"},
	}
	for _, tt := range tests {
		if got := m.Mapped(tt.field); got != tt.want {
			t.Errorf("Mapped(%q) = %q, want %q", tt.field, got, tt.want)
		}
		if got := m.Confidence[tt.field]; got != ConfidenceExact {
			t.Errorf("Confidence[%q] = %q, want exact", tt.field, got)
		}
	}
}

func TestPropose_AliasMatch(t *testing.T) {
	tpl := mustTemplate(t, "students")
	headers := []string{"Student ID", "First Name", "Last Name", "DOB", "Grade", "School"}

	m := Propose(headers, tpl)

	tests := []struct {
		field string
		want  string
	}{
		{"student_id_number", "Student ID"},
		{"first_name", "First Name"},
		{"last_name", "Last Name"},
		{"date_of_birth", "DOB"},
		{"grade_level", "Grade"},
		{"campus_name", "School"},
	}
	for _, tt := range tests {
		if got := m.Mapped(tt.field); got != tt.want {
			t.Errorf("Mapped(%q) = %q, want %q", tt.field, got, tt.want)
		}
		if got := m.Confidence[tt.field]; got != ConfidenceAlias {
			t.Errorf("Confidence[%q] = %q, want alias", tt.field, got)
		}
	}
}

func TestPropose_ExactPreferredOverAlias(t *testing.T) {
	tpl := mustTemplate(t, "students")
	// "DOB" is an alias for date_of_birth, but the exact header is also
	// present and must win.
	headers := []string{"DOB", "date_of_birth"}

	m := Propose(headers, tpl)

	if got := m.Mapped("date_of_birth"); got != "date_of_birth" {
		t.Errorf("Mapped(date_of_birth) = %q, want the exact header", got)
	}
	if got := m.Confidence["date_of_birth"]; got != ConfidenceExact {
		t.Errorf("Confidence[date_of_birth] = %q, want exact", got)
	}
}

func TestPropose_NoDoubleClaim(t *testing.T) {
	tpl := mustTemplate(t, "campuses")
	// "Campus" is an alias for campus_name; campus_number's aliases do
	// not include it, so only one field may claim the header.
	headers := []string{"Campus", "Number"}

	m := Propose(headers, tpl)

	seen := map[string]string{}
	for field, header := range m.Columns {
		if prev, dup := seen[header]; dup {
			t.Fatalf("header %q claimed by both %q and %q", header, prev, field)
		}
		seen[header] = field
	}
}

func TestPropose_UnmappedIsNone(t *testing.T) {
	tpl := mustTemplate(t, "students")
	m := Propose([]string{"completely", "unrelated", "headers"}, tpl)

	if m.MappedCount() != 0 {
		t.Fatalf("MappedCount() = %d, want 0", m.MappedCount())
	}
	for _, f := range tpl.Fields {
		if got := m.Confidence[f.Name]; got != ConfidenceNone {
			t.Errorf("Confidence[%q] = %q, want none", f.Name, got)
		}
	}
}

func TestPropose_FirstClaimedWins(t *testing.T) {
	tpl := mustTemplate(t, "placements")
	// "Student ID" is an alias for student_id_number (first field in
	// template order); no later field may steal it.
	headers := []string{"Student ID"}

	m := Propose(headers, tpl)

	if got := m.Mapped("student_id_number"); got != "Student ID" {
		t.Errorf("Mapped(student_id_number) = %q, want %q", got, "Student ID")
	}
	if m.MappedCount() != 1 {
		t.Errorf("MappedCount() = %d, want 1", m.MappedCount())
	}
}

func TestDetectConfidence(t *testing.T) {
	tpl := mustTemplate(t, "students")

	columns := map[string]string{
		"student_id_number": "STUDENT_ID_NUMBER", // exact, case-insensitive
		"first_name":        "Given Name",        // manual override, not in dictionary
		"date_of_birth":     "DOB",               // dictionary alias
	}

	conf := DetectConfidence(tpl, columns)

	if got := conf["student_id_number"]; got != ConfidenceExact {
		t.Errorf("student_id_number = %q, want exact", got)
	}
	if got := conf["first_name"]; got != ConfidenceAlias {
		t.Errorf("first_name = %q, want alias", got)
	}
	if got := conf["date_of_birth"]; got != ConfidenceAlias {
		t.Errorf("date_of_birth = %q, want alias", got)
	}
	if got := conf["last_name"]; got != ConfidenceNone {
		t.Errorf("last_name = %q, want none", got)
	}
}

func TestMissingRequired(t *testing.T) {
	tpl := mustTemplate(t, "students")

	m := Propose([]string{"Student ID", "First Name", "Last Name"}, tpl)
	missing := MissingRequired(tpl, m)

	want := []string{"date_of_birth", "grade_level"}
	if len(missing) != len(want) {
		t.Fatalf("MissingRequired = %v, want %v", missing, want)
	}
	for i, field := range want {
		if missing[i] != field {
			t.Errorf("missing[%d] = %q, want %q", i, missing[i], field)
		}
	}
}
