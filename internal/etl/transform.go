package etl

import (
	"redcapprep/internal/domain"
)

// ── Transformer ────────────────────────────────────────────
// Transformers rewrite a table's columns between source and destination.
// They are composable and never reorder, drop or add rows.

// Transformer rewrites a table. Implementations must not mutate the input.
type Transformer interface {
	Transform(*Table) (*Table, error)
}

// TransformerFunc adapts a plain function to the Transformer interface.
type TransformerFunc func(*Table) (*Table, error)

func (f TransformerFunc) Transform(t *Table) (*Table, error) { return f(t) }

// ── Built-in Transforms ────────────────────────────────────

// IndexTransform sets one column per name to the 0-based row position. A
// column already present under that name is overwritten in place.
type IndexTransform struct {
	Columns []string
}

func (x *IndexTransform) Transform(t *Table) (*Table, error) {
	out := t.Clone()
	positions := RowPositions(out.NumRows())
	for _, name := range x.Columns {
		out.SetColumn(name, positions)
	}
	return out, nil
}

// RenameTransform renames columns. Every column is looked up once against the
// original names, so a mapping a→b, b→c swaps rather than chains.
type RenameTransform struct {
	Mapping map[string]string // oldName → newName
}

func (x *RenameTransform) Transform(t *Table) (*Table, error) {
	out := t.Clone()
	for i, name := range out.Columns {
		if renamed, ok := x.Mapping[name]; ok {
			out.Columns[i] = renamed
		}
	}
	return out, nil
}

// SelectTransform keeps exactly the listed columns, in the listed order.
// A name may be listed more than once. When several columns share a name the
// first one is used. Any absent name fails the whole transform.
type SelectTransform struct {
	Fields []string
}

func (x *SelectTransform) Transform(t *Table) (*Table, error) {
	idx := make([]int, len(x.Fields))
	var missing []string
	for i, f := range x.Fields {
		idx[i] = t.ColumnIndex(f)
		if idx[i] < 0 {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.MissingColumnError{Columns: missing}
	}

	out := &Table{
		Columns: append([]string(nil), x.Fields...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for r, row := range t.Rows {
		selected := make([]string, len(idx))
		for i, c := range idx {
			selected[i] = row[c]
		}
		out.Rows[r] = selected
	}
	return out, nil
}

// ── Helpers ────────────────────────────────────────────────

// ApplyTransformers runs a chain of transformers on a table.
func ApplyTransformers(t *Table, ts []Transformer) (*Table, error) {
	for _, x := range ts {
		var err error
		t, err = x.Transform(t)
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}
