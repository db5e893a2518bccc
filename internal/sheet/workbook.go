package sheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/lindale-isd/districtops/internal/registry"
)

// Workbook sheet names for the downloadable import template.
const (
	DataSheet  = "Data"
	GuideSheet = "Field Guide"
)

// TemplateWorkbook builds the two-sheet starter workbook for an entity
// type: sheet one carries the target headers plus one example row, sheet
// two documents each field.
func TemplateWorkbook(tpl registry.ImportTemplate) (*excelize.File, error) {
	f := excelize.NewFile()

	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, DataSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(GuideSheet); err != nil {
		return nil, fmt.Errorf("add guide sheet: %w", err)
	}

	if err := writeDataSheet(f, tpl); err != nil {
		return nil, err
	}
	if err := writeGuideSheet(f, tpl); err != nil {
		return nil, err
	}

	return f, nil
}

func writeDataSheet(f *excelize.File, tpl registry.ImportTemplate) error {
	for i, field := range tpl.Fields {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("column name: %w", err)
		}
		if err := f.SetCellValue(DataSheet, col+"1", field.Name); err != nil {
			return fmt.Errorf("write header %q: %w", field.Name, err)
		}
		if err := f.SetCellValue(DataSheet, col+"2", field.Example); err != nil {
			return fmt.Errorf("write example for %q: %w", field.Name, err)
		}
	}
	return nil
}

func writeGuideSheet(f *excelize.File, tpl registry.ImportTemplate) error {
	guide := [][]any{{"Field", "Required", "Type", "Description", "Example"}}
	for _, field := range tpl.Fields {
		required := "optional"
		if field.Required {
			required = "required"
		}
		guide = append(guide, []any{
			field.Name, required, field.TypeName(), field.Description, field.Example,
		})
	}

	for r, rowVals := range guide {
		for c, v := range rowVals {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(GuideSheet, cell, v); err != nil {
				return fmt.Errorf("write guide cell %s: %w", cell, err)
			}
		}
	}
	return nil
}
