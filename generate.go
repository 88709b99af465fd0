package main

import (
	"fmt"
	"slices"
	"strings"
)

// GenerationError marks a table whose DDL could not be produced because the
// diff is structurally inconsistent (e.g. an index or foreign key names a
// column the table does not have). The table is omitted; the run continues.
type GenerationError struct {
	Table  string
	Reason string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("cannot generate DDL for table %q: %s", e.Table, e.Reason)
}

// TableError pairs a table name with the error that excluded it.
type TableError struct {
	Table string
	Err   error
}

// GenerateOptions configures SQL generation.
type GenerateOptions struct {
	SourceDB          string
	TargetDB          string
	RowCountThreshold int64 // inline-vs-bulk data guidance boundary
}

// Script is the generated artifact: an ordered statement list plus advisory
// guidance, never executed by the generator itself.
type Script struct {
	Statements []string
	Guidance   []string

	SkippedByUser    []string // tables left divergent by user choice
	SkippedWithError []TableError
	ReportOnly       []string // removals and other changes never auto-applied
}

// generateScript turns accepted decisions plus diffs into an ordered,
// dependency-safe DDL script and data-migration guidance.
//
// The script never contains DROP TABLE or DROP COLUMN: removals are
// report-only. The trailing SET FOREIGN_KEY_CHECKS = 1 is emitted
// unconditionally so a partially-applied script never leaves constraint
// checking disabled.
func generateScript(diffs []TableDiff, decisions []Decision, opts GenerateOptions) (*Script, error) {
	if opts.TargetDB == "" {
		return nil, fmt.Errorf("generate: target database name is required")
	}
	if opts.RowCountThreshold <= 0 {
		opts.RowCountThreshold = defaultRowCountThreshold
	}

	actions := decisionsByTable(decisions)
	s := &Script{}

	s.Statements = append(s.Statements,
		"-- adjustdb structure synchronization script",
		fmt.Sprintf("-- source: %s, target: %s", opts.SourceDB, opts.TargetDB),
		fmt.Sprintf("USE %s;", mysqlIdent(opts.TargetDB)),
		"SET FOREIGN_KEY_CHECKS = 0;",
	)

	// New tables: accepted ones are validated, then created in dependency
	// order with cyclic FKs deferred past the last CREATE.
	var accepted []Table
	for _, d := range diffs {
		if d.Kind != DiffNew {
			continue
		}
		action, decided := actions[foldName(d.Name)]
		if !decided || action == ActionSkip {
			s.SkippedByUser = append(s.SkippedByUser, d.Name)
			continue
		}
		if err := validateForGeneration(*d.Source); err != nil {
			s.SkippedWithError = append(s.SkippedWithError, TableError{Table: d.Name, Err: err})
			continue
		}
		accepted = append(accepted, *d.Source)
	}

	ordered, deferred := orderNewTables(accepted)
	for _, t := range ordered {
		s.Statements = append(s.Statements, createTableStatement(t, deferredFKNames(deferred, t.Name)))
	}
	for _, d := range deferred {
		s.Statements = append(s.Statements, addForeignKeyStatement(d.Table, d.FK))
	}

	// Modified tables: fixed statement order per table: ADD COLUMN,
	// MODIFY COLUMN, index changes, ADD FOREIGN KEY.
	for _, d := range diffs {
		if d.Kind != DiffModified {
			continue
		}
		action, decided := actions[foldName(d.Name)]
		if !decided || action == ActionSkip {
			s.SkippedByUser = append(s.SkippedByUser, d.Name)
			continue
		}
		stmts, err := alterTableStatements(d)
		if err != nil {
			s.SkippedWithError = append(s.SkippedWithError, TableError{Table: d.Name, Err: err})
			continue
		}
		s.Statements = append(s.Statements, stmts...)
	}

	s.Guidance = dataGuidance(diffs, actions, opts)
	s.ReportOnly = reportOnlyChanges(diffs)

	s.Statements = append(s.Statements, "SET FOREIGN_KEY_CHECKS = 1;")
	return s, nil
}

// validateForGeneration checks that every index and foreign key of a table
// refers to columns the table actually has.
func validateForGeneration(t Table) error {
	for _, idx := range t.Indexes {
		for _, col := range idx.Columns {
			if _, ok := t.column(col); !ok {
				return &GenerationError{Table: t.Name, Reason: fmt.Sprintf("index %q references unknown column %q", idx.Name, col)}
			}
		}
	}
	for _, fk := range t.ForeignKeys {
		for _, col := range fk.Columns {
			if _, ok := t.column(col); !ok {
				return &GenerationError{Table: t.Name, Reason: fmt.Sprintf("foreign key %q references unknown column %q", fk.Name, col)}
			}
		}
	}
	return nil
}

// createTableStatement renders a full CREATE TABLE including columns in
// ordinal order, the primary key, secondary indexes, and all foreign keys
// except the deferred ones.
func createTableStatement(t Table, omitFKs map[string]bool) string {
	var lines []string

	cols := slices.Clone(t.Columns)
	slices.SortFunc(cols, func(a, b Column) int { return a.OrdinalPos - b.OrdinalPos })
	for _, c := range cols {
		lines = append(lines, "  "+columnDefinition(c))
	}

	if pk, ok := t.primaryKey(); ok {
		lines = append(lines, fmt.Sprintf("  PRIMARY KEY (%s)", identList(pk.Columns)))
	}
	for _, idx := range sortedIndexes(t.Indexes) {
		if sameName(idx.Name, "PRIMARY") {
			continue
		}
		kind := "KEY"
		if idx.Unique {
			kind = "UNIQUE KEY"
		}
		lines = append(lines, fmt.Sprintf("  %s %s (%s)", kind, mysqlIdent(idx.Name), identList(idx.Columns)))
	}
	for _, fk := range sortedForeignKeys(t.ForeignKeys) {
		if omitFKs[foldName(fk.Name)] {
			continue
		}
		lines = append(lines, "  "+foreignKeyDefinition(fk))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", mysqlIdent(t.Name))
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n)")
	if t.Engine != "" {
		fmt.Fprintf(&b, " ENGINE=%s", t.Engine)
	}
	if t.Charset != "" {
		fmt.Fprintf(&b, " DEFAULT CHARSET=%s", t.Charset)
	}
	if t.Collation != "" {
		fmt.Fprintf(&b, " COLLATE=%s", t.Collation)
	}
	b.WriteString(";")
	return b.String()
}

// alterTableStatements renders the ALTER statements for one modified table.
// Column and foreign key removals are never emitted; they surface in the
// report instead.
func alterTableStatements(d TableDiff) ([]string, error) {
	var stmts []string
	table := mysqlIdent(d.Name)

	addCols := slices.Clone(d.NewColumns)
	slices.SortFunc(addCols, func(a, b Column) int { return a.OrdinalPos - b.OrdinalPos })
	for _, c := range addCols {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", table, columnDefinition(c)))
	}

	for _, mc := range d.ModifiedColumns {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s;", table, columnDefinition(mc.New)))
	}

	for _, idx := range d.NewIndexes {
		stmt, err := addIndexStatement(d, idx)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	// Changed indexes are rebuilt: dropping an index is non-destructive,
	// unlike dropping a column or table.
	for _, mi := range d.ModifiedIndexes {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP INDEX %s;", table, mysqlIdent(mi.Name)))
		stmt, err := addIndexStatement(d, mi.New)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	for _, idx := range d.RemovedIndexes {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP INDEX %s;", table, mysqlIdent(idx.Name)))
	}

	for _, fk := range d.NewForeignKeys {
		for _, col := range fk.Columns {
			if _, ok := d.Source.column(col); !ok {
				return nil, &GenerationError{Table: d.Name, Reason: fmt.Sprintf("foreign key %q references unknown column %q", fk.Name, col)}
			}
		}
		stmts = append(stmts, addForeignKeyStatement(d.Name, fk))
	}

	return stmts, nil
}

func addIndexStatement(d TableDiff, idx Index) (string, error) {
	for _, col := range idx.Columns {
		if _, ok := d.Source.column(col); !ok {
			return "", &GenerationError{Table: d.Name, Reason: fmt.Sprintf("index %q references unknown column %q", idx.Name, col)}
		}
	}
	kind := "INDEX"
	if idx.Unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("ALTER TABLE %s ADD %s %s (%s);", mysqlIdent(d.Name), kind, mysqlIdent(idx.Name), identList(idx.Columns)), nil
}

func addForeignKeyStatement(table string, fk ForeignKey) string {
	return fmt.Sprintf("ALTER TABLE %s ADD %s;", mysqlIdent(table), foreignKeyDefinition(fk))
}

func foreignKeyDefinition(fk ForeignKey) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		mysqlIdent(fk.Name), identList(fk.Columns), mysqlIdent(fk.RefTable), identList(fk.RefColumns))
	if fk.OnDelete != "" {
		fmt.Fprintf(&b, " ON DELETE %s", strings.ToUpper(fk.OnDelete))
	}
	if fk.OnUpdate != "" {
		fmt.Fprintf(&b, " ON UPDATE %s", strings.ToUpper(fk.OnUpdate))
	}
	return b.String()
}

// columnDefinition renders "`name` type [NOT] NULL [DEFAULT ...] [extra]".
func columnDefinition(c Column) string {
	parts := []string{mysqlIdent(c.Name), c.ColumnType}
	if c.Nullable {
		parts = append(parts, "NULL")
	} else {
		parts = append(parts, "NOT NULL")
	}
	if c.Default != nil {
		parts = append(parts, "DEFAULT "+defaultExpr(*c.Default))
	}
	if c.Extra != "" {
		parts = append(parts, strings.ToUpper(c.Extra))
	}
	return strings.Join(parts, " ")
}

// defaultExpr renders a COLUMN_DEFAULT value as a SQL expression. MariaDB
// 10.2.7+ already stores string defaults quoted and functions as-is; bare
// words that are not numbers, NULL, or a function call get quoted.
func defaultExpr(v string) string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return "''"
	}
	if strings.EqualFold(trimmed, "null") {
		return "NULL"
	}
	if strings.HasPrefix(trimmed, "'") && strings.HasSuffix(trimmed, "'") {
		return trimmed
	}
	if strings.Contains(trimmed, "(") || isNumericLiteral(trimmed) {
		return trimmed
	}
	if strings.EqualFold(trimmed, "current_timestamp") {
		return "CURRENT_TIMESTAMP"
	}
	return "'" + strings.ReplaceAll(trimmed, "'", "''") + "'"
}

func isNumericLiteral(s string) bool {
	if s == "" {
		return false
	}
	dot := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '-' && i == 0:
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return s != "-" && s != "."
}

// dataGuidance produces one advisory line per structure+data table: tables
// above the row threshold get a bulk-export recommendation instead of inline
// row statements, which this tool never generates.
func dataGuidance(diffs []TableDiff, actions map[string]Action, opts GenerateOptions) []string {
	var out []string
	for _, d := range diffs {
		if actions[foldName(d.Name)] != ActionStructureAndData {
			continue
		}
		var rows int64
		if d.SourceRows != nil {
			rows = *d.SourceRows
		}
		if rows > opts.RowCountThreshold {
			out = append(out, fmt.Sprintf(
				"-- table %s: ~%d rows exceeds row_count_threshold (%d); export the data out of band, e.g.: mysqldump %s %s --no-create-info",
				mysqlIdent(d.Name), rows, opts.RowCountThreshold, opts.SourceDB, d.Name))
		} else {
			out = append(out, fmt.Sprintf(
				"-- table %s: ~%d rows; small enough for direct row-level synchronization",
				mysqlIdent(d.Name), rows))
		}
	}
	return out
}

// reportOnlyChanges lists every divergence that is deliberately never turned
// into DDL: removed tables, removed columns, removed foreign keys, and
// engine/charset mismatches.
func reportOnlyChanges(diffs []TableDiff) []string {
	var out []string
	for _, d := range diffs {
		switch d.Kind {
		case DiffRemoved:
			var rows int64
			if d.TargetRows != nil {
				rows = *d.TargetRows
			}
			out = append(out, fmt.Sprintf("table %s exists only in target (~%d rows) (not dropped)", d.Name, rows))
		case DiffModified:
			for _, c := range d.RemovedColumns {
				out = append(out, fmt.Sprintf("table %s: column %s (%s) removed in source (not dropped)", d.Name, c.Name, c.ColumnType))
			}
			for _, fk := range d.RemovedForeignKeys {
				out = append(out, fmt.Sprintf("table %s: foreign key %s removed in source (not dropped)", d.Name, fk.Name))
			}
			if d.EngineChanged {
				out = append(out, fmt.Sprintf("table %s: engine differs (%s vs %s) (review manually)", d.Name, d.Source.Engine, d.Target.Engine))
			}
			if d.CharsetChanged {
				out = append(out, fmt.Sprintf("table %s: charset differs (%s vs %s) (review manually)", d.Name, d.Source.Charset, d.Target.Charset))
			}
		}
	}
	return out
}
