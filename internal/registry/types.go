// Package registry holds the static catalog of importable entity types.
// Each entity type is described by an ImportTemplate: an ordered list of
// target fields, the required subset, and a dictionary of known header
// aliases used by the column mapper.
package registry

// FieldType represents the expected data type for a target field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldDate
	FieldNumeric
	FieldBool
)

// FieldSpec describes a single target field of an import template.
type FieldSpec struct {
	Name        string    // Target field name (snake_case)
	Type        FieldType // Expected data type
	Required    bool      // Row is rejected when the field is empty
	EnumValues  []string  // Valid values for FieldEnum type
	Description string    // Human-facing description for the template workbook
	Example     string    // Example value for the template workbook

	// Aliases lists known source-system header synonyms, lower-cased.
	// Populated from the embedded alias dictionary at registration time.
	Aliases []string
}

// ImportTemplate describes one importable entity type. Target field order is
// significant: it drives mapping-table presentation and review order.
// Templates are immutable once registered.
type ImportTemplate struct {
	EntityType string // Unique key: "students", "campuses", "placements"
	Label      string // Display name: "Students"
	Fields     []FieldSpec
}

// FieldNames returns the target field names in template order.
func (t ImportTemplate) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// RequiredFields returns the names of all required fields in template order.
func (t ImportTemplate) RequiredFields() []string {
	var names []string
	for _, f := range t.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// Field returns the spec for a target field name.
// Returns false if the template has no such field.
func (t ImportTemplate) Field(name string) (FieldSpec, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// fieldTypeName returns a human-readable name for a field type.
func fieldTypeName(ft FieldType) string {
	switch ft {
	case FieldText:
		return "text"
	case FieldEnum:
		return "enum"
	case FieldDate:
		return "date"
	case FieldNumeric:
		return "numeric"
	case FieldBool:
		return "bool"
	default:
		return "value"
	}
}

// TypeName returns the human-readable type name for the field.
func (f FieldSpec) TypeName() string {
	return fieldTypeName(f.Type)
}
