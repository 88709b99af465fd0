package main

import (
	"slices"
	"strings"
)

// DiffKind classifies a table's delta between two snapshots.
type DiffKind int

const (
	DiffIdentical DiffKind = iota
	DiffNew                // present only in source
	DiffRemoved            // present only in target
	DiffModified
)

func (k DiffKind) String() string {
	switch k {
	case DiffNew:
		return "new"
	case DiffRemoved:
		return "removed"
	case DiffModified:
		return "modified"
	default:
		return "identical"
	}
}

// ColumnChange holds both sides of a modified column for display and DDL.
type ColumnChange struct {
	Name string
	Old  Column // target side
	New  Column // source side
}

// IndexChange holds both sides of a modified index.
type IndexChange struct {
	Name string
	Old  Index
	New  Index
}

// ForeignKeyChange holds both sides of a modified foreign key.
type ForeignKeyChange struct {
	Name string
	Old  ForeignKey
	New  ForeignKey
}

// TableDiff is the structural delta for one table name between two
// snapshots. New/Removed tables carry the whole table as new/removed
// sub-lists; Modified tables carry only the differing pieces.
type TableDiff struct {
	Name string
	Kind DiffKind

	NewColumns      []Column
	RemovedColumns  []Column
	ModifiedColumns []ColumnChange

	NewIndexes      []Index
	RemovedIndexes  []Index
	ModifiedIndexes []IndexChange

	NewForeignKeys      []ForeignKey
	RemovedForeignKeys  []ForeignKey
	ModifiedForeignKeys []ForeignKeyChange

	EngineChanged  bool
	CharsetChanged bool

	SourceRows *int64 // nil when the table is absent from the source
	TargetRows *int64 // nil when the table is absent from the target

	// Full table definitions for SQL generation; nil on the absent side.
	Source *Table
	Target *Table
}

// isIdentical reports whether every sub-diff list is empty and both change
// flags are false.
func (d TableDiff) isIdentical() bool {
	return len(d.NewColumns) == 0 && len(d.RemovedColumns) == 0 && len(d.ModifiedColumns) == 0 &&
		len(d.NewIndexes) == 0 && len(d.RemovedIndexes) == 0 && len(d.ModifiedIndexes) == 0 &&
		len(d.NewForeignKeys) == 0 && len(d.RemovedForeignKeys) == 0 && len(d.ModifiedForeignKeys) == 0 &&
		!d.EngineChanged && !d.CharsetChanged
}

// diffSnapshots computes one TableDiff per table name in the union of both
// snapshots, ordered alphabetically. Output is fully deterministic for fixed
// inputs: the union and every sub-diff list are sorted by folded name.
func diffSnapshots(source, target *Snapshot) []TableDiff {
	names := make(map[string]string) // folded -> display name (source wins)
	for _, t := range target.Tables {
		names[foldName(t.Name)] = t.Name
	}
	for _, t := range source.Tables {
		names[foldName(t.Name)] = t.Name
	}

	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	diffs := make([]TableDiff, 0, len(keys))
	for _, k := range keys {
		name := names[k]
		src, inSource := source.table(name)
		tgt, inTarget := target.table(name)

		switch {
		case inSource && !inTarget:
			diffs = append(diffs, newTableDiff(src))
		case !inSource && inTarget:
			diffs = append(diffs, removedTableDiff(tgt))
		default:
			diffs = append(diffs, diffTable(src, tgt))
		}
	}
	return diffs
}

// newTableDiff builds the diff for a table present only in the source:
// the whole table is the diff.
func newTableDiff(src Table) TableDiff {
	rows := src.RowCount
	return TableDiff{
		Name:           src.Name,
		Kind:           DiffNew,
		NewColumns:     sortedColumns(src.Columns),
		NewIndexes:     sortedIndexes(src.Indexes),
		NewForeignKeys: sortedForeignKeys(src.ForeignKeys),
		SourceRows:     &rows,
		Source:         &src,
	}
}

func removedTableDiff(tgt Table) TableDiff {
	rows := tgt.RowCount
	return TableDiff{
		Name:               tgt.Name,
		Kind:               DiffRemoved,
		RemovedColumns:     sortedColumns(tgt.Columns),
		RemovedIndexes:     sortedIndexes(tgt.Indexes),
		RemovedForeignKeys: sortedForeignKeys(tgt.ForeignKeys),
		TargetRows:         &rows,
		Target:             &tgt,
	}
}

// diffTable aligns columns, indexes, and foreign keys by name
// (case-insensitive) and compares every attribute of matched pairs.
func diffTable(src, tgt Table) TableDiff {
	srcRows, tgtRows := src.RowCount, tgt.RowCount
	d := TableDiff{
		Name:       src.Name,
		SourceRows: &srcRows,
		TargetRows: &tgtRows,
		Source:     &src,
		Target:     &tgt,
	}

	for _, c := range src.Columns {
		old, ok := tgt.column(c.Name)
		if !ok {
			d.NewColumns = append(d.NewColumns, c)
			continue
		}
		if !columnEqual(c, old) {
			d.ModifiedColumns = append(d.ModifiedColumns, ColumnChange{Name: c.Name, Old: old, New: c})
		}
	}
	for _, c := range tgt.Columns {
		if _, ok := src.column(c.Name); !ok {
			d.RemovedColumns = append(d.RemovedColumns, c)
		}
	}

	srcIdx := indexByName(src.Indexes)
	tgtIdx := indexByName(tgt.Indexes)
	for _, idx := range src.Indexes {
		old, ok := tgtIdx[foldName(idx.Name)]
		if !ok {
			d.NewIndexes = append(d.NewIndexes, idx)
			continue
		}
		if !indexEqual(idx, old) {
			d.ModifiedIndexes = append(d.ModifiedIndexes, IndexChange{Name: idx.Name, Old: old, New: idx})
		}
	}
	for _, idx := range tgt.Indexes {
		if _, ok := srcIdx[foldName(idx.Name)]; !ok {
			d.RemovedIndexes = append(d.RemovedIndexes, idx)
		}
	}

	srcFK := fkByName(src.ForeignKeys)
	tgtFK := fkByName(tgt.ForeignKeys)
	for _, fk := range src.ForeignKeys {
		old, ok := tgtFK[foldName(fk.Name)]
		if !ok {
			d.NewForeignKeys = append(d.NewForeignKeys, fk)
			continue
		}
		if !foreignKeyEqual(fk, old) {
			d.ModifiedForeignKeys = append(d.ModifiedForeignKeys, ForeignKeyChange{Name: fk.Name, Old: old, New: fk})
		}
	}
	for _, fk := range tgt.ForeignKeys {
		if _, ok := srcFK[foldName(fk.Name)]; !ok {
			d.RemovedForeignKeys = append(d.RemovedForeignKeys, fk)
		}
	}

	d.EngineChanged = !strings.EqualFold(src.Engine, tgt.Engine)
	d.CharsetChanged = !strings.EqualFold(src.Charset, tgt.Charset)

	d.NewColumns = sortedColumns(d.NewColumns)
	d.RemovedColumns = sortedColumns(d.RemovedColumns)
	slices.SortFunc(d.ModifiedColumns, func(a, b ColumnChange) int {
		return strings.Compare(foldName(a.Name), foldName(b.Name))
	})
	d.NewIndexes = sortedIndexes(d.NewIndexes)
	d.RemovedIndexes = sortedIndexes(d.RemovedIndexes)
	slices.SortFunc(d.ModifiedIndexes, func(a, b IndexChange) int {
		return strings.Compare(foldName(a.Name), foldName(b.Name))
	})
	d.NewForeignKeys = sortedForeignKeys(d.NewForeignKeys)
	d.RemovedForeignKeys = sortedForeignKeys(d.RemovedForeignKeys)
	slices.SortFunc(d.ModifiedForeignKeys, func(a, b ForeignKeyChange) int {
		return strings.Compare(foldName(a.Name), foldName(b.Name))
	})

	if d.isIdentical() {
		d.Kind = DiffIdentical
	} else {
		d.Kind = DiffModified
	}
	return d
}

func indexByName(indexes []Index) map[string]Index {
	m := make(map[string]Index, len(indexes))
	for _, idx := range indexes {
		m[foldName(idx.Name)] = idx
	}
	return m
}

func fkByName(fks []ForeignKey) map[string]ForeignKey {
	m := make(map[string]ForeignKey, len(fks))
	for _, fk := range fks {
		m[foldName(fk.Name)] = fk
	}
	return m
}

func sortedColumns(cols []Column) []Column {
	out := slices.Clone(cols)
	slices.SortFunc(out, func(a, b Column) int {
		return strings.Compare(foldName(a.Name), foldName(b.Name))
	})
	return out
}

func sortedIndexes(idxs []Index) []Index {
	out := slices.Clone(idxs)
	slices.SortFunc(out, func(a, b Index) int {
		return strings.Compare(foldName(a.Name), foldName(b.Name))
	})
	return out
}

func sortedForeignKeys(fks []ForeignKey) []ForeignKey {
	out := slices.Clone(fks)
	slices.SortFunc(out, func(a, b ForeignKey) int {
		return strings.Compare(foldName(a.Name), foldName(b.Name))
	})
	return out
}
