package domain

// RecordIDField is the synthetic identity column prepended to every header list
// and placed first in every output table.
const RecordIDField = "record_id"

// IndexSuffix marks a synthetic per-row index column. Dictionary rows whose
// field name ends with it are ordered but never renamed.
const IndexSuffix = "_index"

// DefaultFormID is the form identifier used when none is given, and the one the
// record_id row is pinned to in pinned templates.
const DefaultFormID = "form_1"

// DefaultFieldType is written into the Field Type column of every template row.
const DefaultFieldType = "text"

// DictionaryFields is the fixed column layout of a REDCap data dictionary.
var DictionaryFields = []string{
	"Variable / Field Name",
	"Form Name",
	"Section Header",
	"Field Type",
	"Field Label",
	"Choices, Calculations, OR Slider Labels",
	"Field Note",
	"Text Validation Type OR Show Slider Number",
	"Text Validation Min",
	"Text Validation Max",
	"Identifier?",
	"Branching Logic (Show field only if...)",
	"Required Field?",
	"Custom Alignment",
	"Question Number (surveys only)",
	"Matrix Group Name",
	"Matrix Ranking?",
	"Field Annotation",
}

// Positions of the load-bearing dictionary columns.
const (
	FieldNameCol  = 0
	FormNameCol   = 1
	FieldTypeCol  = 3
	FieldLabelCol = 4
)

// DictionaryHeaderRows is the number of leading rows skipped when a completed
// dictionary is read back: the header row and the record_id row.
const DictionaryHeaderRows = 2
