package redcap

import (
	"fmt"
	"strings"

	"redcapprep/internal/domain"
	"redcapprep/internal/etl"
)

// VariableMap maps an original field label to its REDCap field name.
type VariableMap map[string]string

// Dictionary is the part of a completed data dictionary that applies to one
// form.
type Dictionary struct {
	FormID      string
	Variables   VariableMap
	ColumnOrder []string // starts with record_id
}

// LoadDictionary reads a completed data dictionary and collects the rename
// map and column order for formID.
//
// The header row and the record_id row are skipped. Every later row whose
// Form Name equals formID contributes its field name to the column order and,
// unless the name ends in "_index", a label → name entry to the map. Missing
// trailing cells read as empty.
func LoadDictionary(path, formID string) (*Dictionary, error) {
	records, err := etl.ReadRecords(path, etl.CSVOptions{})
	if err != nil {
		return nil, err
	}
	if len(records) < domain.DictionaryHeaderRows {
		return nil, domain.NewParse("data dictionary", path,
			fmt.Sprintf("expected at least %d rows, found %d", domain.DictionaryHeaderRows, len(records)))
	}

	d := &Dictionary{
		FormID:      formID,
		Variables:   VariableMap{},
		ColumnOrder: []string{domain.RecordIDField},
	}
	for _, row := range records[domain.DictionaryHeaderRows:] {
		if cell(row, domain.FormNameCol) != formID {
			continue
		}
		name := cell(row, domain.FieldNameCol)
		if !strings.HasSuffix(name, domain.IndexSuffix) {
			d.Variables[cell(row, domain.FieldLabelCol)] = name
		}
		d.ColumnOrder = append(d.ColumnOrder, name)
	}
	return d, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
