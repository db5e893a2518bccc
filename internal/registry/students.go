package registry

// Students is the import template for district roster records.
// grade_level uses the state convention where -1 is pre-K and 0 is
// kindergarten.
var Students = ImportTemplate{
	EntityType: "students",
	Label:      "Students",
	Fields: []FieldSpec{
		{Name: "student_id_number", Type: FieldText, Required: true,
			Description: "District-assigned local student ID", Example: "100245"},
		{Name: "first_name", Type: FieldText, Required: true,
			Description: "Student legal first name", Example: "Maria"},
		{Name: "last_name", Type: FieldText, Required: true,
			Description: "Student legal last name", Example: "Gonzalez"},
		{Name: "date_of_birth", Type: FieldDate, Required: true,
			Description: "Date of birth (YYYY-MM-DD or MM/DD/YYYY)", Example: "2011-04-17"},
		{Name: "grade_level", Type: FieldNumeric, Required: true,
			Description: "Current grade, -1 (pre-K) through 12", Example: "7"},
		{Name: "campus_name", Type: FieldText,
			Description: "Home campus name; must match an existing campus", Example: "Lindale Junior High"},
		{Name: "gender", Type: FieldText,
			Description: "Gender code (M/F/X; common spellings accepted)", Example: "F"},
		{Name: "special_education", Type: FieldBool,
			Description: "Special education indicator (yes/no)", Example: "no"},
		{Name: "eligibility_code", Type: FieldText,
			Description: "Primary eligibility code; required when special_education is yes", Example: "LD"},
		{Name: "parent_name", Type: FieldText,
			Description: "Parent or guardian name", Example: "Ana Gonzalez"},
		{Name: "parent_phone", Type: FieldText,
			Description: "Parent or guardian phone number", Example: "903-555-0142"},
	},
}
