package main

import (
	"fmt"
	"slices"
	"strings"
)

// Column is one column definition from INFORMATION_SCHEMA.COLUMNS.
// ColumnType is the full type string, e.g. "varchar(150)" or "int(11) unsigned".
type Column struct {
	Name       string
	OrdinalPos int
	ColumnType string
	Nullable   bool
	Default    *string // nil when the column has no default
	Extra      string  // e.g. "auto_increment", "on update current_timestamp()"
}

// Index is a MariaDB index (may span multiple columns). The primary key is
// the index named "PRIMARY", per MySQL convention.
type Index struct {
	Name    string
	Unique  bool
	Columns []string // ordered by SEQ_IN_INDEX
}

// ForeignKey is a foreign key constraint.
type ForeignKey struct {
	Name       string
	Columns    []string // local columns, ordered by ORDINAL_POSITION
	RefTable   string
	RefColumns []string
	OnUpdate   string // CASCADE, SET NULL, RESTRICT, ...
	OnDelete   string
}

// Table holds the full introspected definition of one table.
// Columns are ordered by ordinal position.
type Table struct {
	Name        string
	Engine      string
	Charset     string
	Collation   string
	RowCount    int64 // approximate, from INFORMATION_SCHEMA.TABLES
	Columns     []Column
	Indexes     []Index
	ForeignKeys []ForeignKey
}

// Snapshot is the immutable schema of one database at introspection time.
type Snapshot struct {
	Name   string
	Tables []Table // sorted by name
}

// MalformedMetadataError marks a table whose introspected metadata is
// internally inconsistent. The table is excluded from its snapshot; the rest
// of the snapshot stays valid.
type MalformedMetadataError struct {
	Table  string
	Reason string
}

func (e *MalformedMetadataError) Error() string {
	return fmt.Sprintf("malformed metadata for table %q: %s", e.Table, e.Reason)
}

// foldName normalizes an identifier for comparison. Identifiers are compared
// case-insensitively, matching default server collation behavior.
func foldName(s string) string {
	return strings.ToLower(s)
}

func sameName(a, b string) bool {
	return strings.EqualFold(a, b)
}

// validateTable checks the table-level invariants: unique column names,
// unique index and FK names, and dense 1..N column ordinals.
func validateTable(t Table) error {
	seen := make(map[string]bool, len(t.Columns))
	ordinals := make([]int, 0, len(t.Columns))
	for _, c := range t.Columns {
		key := foldName(c.Name)
		if seen[key] {
			return &MalformedMetadataError{Table: t.Name, Reason: fmt.Sprintf("duplicate column name %q", c.Name)}
		}
		seen[key] = true
		ordinals = append(ordinals, c.OrdinalPos)
	}
	slices.Sort(ordinals)
	for i, pos := range ordinals {
		if pos != i+1 {
			return &MalformedMetadataError{Table: t.Name, Reason: fmt.Sprintf("column ordinals are not dense 1..%d", len(ordinals))}
		}
	}

	idxSeen := make(map[string]bool, len(t.Indexes))
	for _, idx := range t.Indexes {
		key := foldName(idx.Name)
		if idxSeen[key] {
			return &MalformedMetadataError{Table: t.Name, Reason: fmt.Sprintf("duplicate index name %q", idx.Name)}
		}
		idxSeen[key] = true
	}

	fkSeen := make(map[string]bool, len(t.ForeignKeys))
	for _, fk := range t.ForeignKeys {
		key := foldName(fk.Name)
		if fkSeen[key] {
			return &MalformedMetadataError{Table: t.Name, Reason: fmt.Sprintf("duplicate foreign key name %q", fk.Name)}
		}
		fkSeen[key] = true
	}
	return nil
}

// buildSnapshot validates introspected tables and assembles a Snapshot.
// Tables failing validation are excluded and returned alongside the
// snapshot; the rest of the snapshot remains usable.
func buildSnapshot(name string, tables []Table) (*Snapshot, []*MalformedMetadataError) {
	var excluded []*MalformedMetadataError
	kept := make([]Table, 0, len(tables))
	for _, t := range tables {
		if err := validateTable(t); err != nil {
			excluded = append(excluded, err.(*MalformedMetadataError))
			continue
		}
		kept = append(kept, t)
	}
	slices.SortFunc(kept, func(a, b Table) int {
		return strings.Compare(foldName(a.Name), foldName(b.Name))
	})
	return &Snapshot{Name: name, Tables: kept}, excluded
}

// table looks up a table by name, case-insensitively.
func (s *Snapshot) table(name string) (Table, bool) {
	for _, t := range s.Tables {
		if sameName(t.Name, name) {
			return t, true
		}
	}
	return Table{}, false
}

// column looks up a column by name, case-insensitively.
func (t Table) column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if sameName(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// primaryKey returns the PRIMARY index if the table has one.
func (t Table) primaryKey() (Index, bool) {
	for _, idx := range t.Indexes {
		if sameName(idx.Name, "PRIMARY") {
			return idx, true
		}
	}
	return Index{}, false
}

// columnEqual reports structural equality ignoring ordinal position.
// Position is informational only: a column that moved but is otherwise
// unchanged requires no DDL.
func columnEqual(a, b Column) bool {
	if !sameName(a.Name, b.Name) {
		return false
	}
	if a.ColumnType != b.ColumnType || a.Nullable != b.Nullable || a.Extra != b.Extra {
		return false
	}
	return stringPtrEqual(a.Default, b.Default)
}

func indexEqual(a, b Index) bool {
	if !sameName(a.Name, b.Name) || a.Unique != b.Unique {
		return false
	}
	return foldedSliceEqual(a.Columns, b.Columns)
}

func foreignKeyEqual(a, b ForeignKey) bool {
	if !sameName(a.Name, b.Name) || !sameName(a.RefTable, b.RefTable) {
		return false
	}
	if !strings.EqualFold(a.OnUpdate, b.OnUpdate) || !strings.EqualFold(a.OnDelete, b.OnDelete) {
		return false
	}
	return foldedSliceEqual(a.Columns, b.Columns) && foldedSliceEqual(a.RefColumns, b.RefColumns)
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func foldedSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameName(a[i], b[i]) {
			return false
		}
	}
	return true
}
