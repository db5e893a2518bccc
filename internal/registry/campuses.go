package registry

// Campuses is the import template for campus (facility) records.
var Campuses = ImportTemplate{
	EntityType: "campuses",
	Label:      "Campuses",
	Fields: []FieldSpec{
		{Name: "campus_name", Type: FieldText, Required: true,
			Description: "Campus name; unique within the district", Example: "Lindale High School"},
		{Name: "campus_number", Type: FieldNumeric, Required: true,
			Description: "State campus number", Example: "001"},
		{Name: "district_code", Type: FieldText,
			Description: "County-district number", Example: "212-903"},
		{Name: "campus_type", Type: FieldEnum,
			EnumValues:  []string{"elementary", "middle", "high", "alternative"},
			Description: "Campus level", Example: "high"},
		{Name: "principal_name", Type: FieldText,
			Description: "Campus principal", Example: "D. Whitaker"},
		{Name: "phone", Type: FieldText,
			Description: "Main campus phone number", Example: "903-555-0100"},
	},
}
