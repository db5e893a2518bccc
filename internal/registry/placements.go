package registry

// Placements is the import template for disciplinary placement case records.
var Placements = ImportTemplate{
	EntityType: "placements",
	Label:      "Placements",
	Fields: []FieldSpec{
		{Name: "student_id_number", Type: FieldText, Required: true,
			Description: "Local ID of an existing student", Example: "100245"},
		{Name: "placement_type", Type: FieldEnum, Required: true,
			EnumValues:  []string{"daep", "iss", "oss", "expulsion"},
			Description: "Consequence type", Example: "daep"},
		{Name: "start_date", Type: FieldDate, Required: true,
			Description: "First day of the placement", Example: "2025-09-02"},
		{Name: "days_assigned", Type: FieldNumeric,
			Description: "Assigned length in school days, 1-180", Example: "30"},
		{Name: "incident_date", Type: FieldDate,
			Description: "Date of the triggering incident; may not be in the future", Example: "2025-08-28"},
		{Name: "offense_code", Type: FieldText,
			Description: "District offense code", Example: "21-F"},
		{Name: "campus_name", Type: FieldText,
			Description: "Sending campus; must match an existing campus", Example: "Lindale Junior High"},
		{Name: "notes", Type: FieldText,
			Description: "Free-form notes", Example: "Board hearing 9/15"},
	},
}
