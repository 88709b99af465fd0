package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// terminalPresenter renders diff summaries, detail views, and the final run
// report for an interactive terminal session.
type terminalPresenter struct {
	w io.Writer

	heading *color.Color
	added   *color.Color
	removed *color.Color
	changed *color.Color
	muted   *color.Color
}

func newTerminalPresenter(w io.Writer) *terminalPresenter {
	return &terminalPresenter{
		w:       w,
		heading: color.New(color.FgCyan, color.Bold),
		added:   color.New(color.FgGreen),
		removed: color.New(color.FgRed),
		changed: color.New(color.FgYellow),
		muted:   color.New(color.Faint),
	}
}

// AnalysisSummary prints the bucket counts and a per-table overview before
// the interactive phase starts.
func (p *terminalPresenter) AnalysisSummary(source, target string, c Classification) {
	p.heading.Fprintf(p.w, "\nSchema comparison: %s (source) vs %s (target)\n", source, target)
	fmt.Fprintf(p.w, "  new: %d  removed: %d  modified: %d  identical: %d\n",
		len(c.New), len(c.Removed), len(c.Modified), len(c.Identical))

	if len(c.New) > 0 {
		p.added.Fprintf(p.w, "\nNew tables (only in source):\n")
		for _, d := range c.New {
			fmt.Fprintf(p.w, "  + %s (%s rows)\n", d.Name, rowCount(d.SourceRows))
		}
	}
	if len(c.Removed) > 0 {
		p.removed.Fprintf(p.w, "\nTables only in target (report-only, never dropped):\n")
		for _, d := range c.Removed {
			fmt.Fprintf(p.w, "  - %s (%s rows)\n", d.Name, rowCount(d.TargetRows))
		}
	}
	if len(c.Modified) > 0 {
		p.changed.Fprintf(p.w, "\nModified tables:\n")
		for _, d := range c.Modified {
			fmt.Fprintf(p.w, "  ~ %s (source %s rows, target %s rows)\n",
				d.Name, rowCount(d.SourceRows), rowCount(d.TargetRows))
		}
	}
	if len(c.Identical) > 0 {
		p.muted.Fprintf(p.w, "\nIdentical tables:\n")
		for i, d := range c.Identical {
			if i == 10 {
				p.muted.Fprintf(p.w, "  ... and %d more\n", len(c.Identical)-10)
				break
			}
			p.muted.Fprintf(p.w, "  = %s\n", d.Name)
		}
	}
	fmt.Fprintln(p.w)
}

// TableSummary prints the change counts for one table entering the
// interactive phase.
func (p *terminalPresenter) TableSummary(d TableDiff) {
	p.heading.Fprintf(p.w, "\n%s [%s]\n", d.Name, d.Kind)
	if d.Kind == DiffNew {
		fmt.Fprintf(p.w, "  %d columns, %d indexes, %d foreign keys, %s rows\n",
			len(d.NewColumns), len(d.NewIndexes), len(d.NewForeignKeys), rowCount(d.SourceRows))
		return
	}
	fmt.Fprintf(p.w, "  columns: +%d -%d ~%d  indexes: +%d -%d ~%d  foreign keys: +%d -%d ~%d\n",
		len(d.NewColumns), len(d.RemovedColumns), len(d.ModifiedColumns),
		len(d.NewIndexes), len(d.RemovedIndexes), len(d.ModifiedIndexes),
		len(d.NewForeignKeys), len(d.RemovedForeignKeys), len(d.ModifiedForeignKeys))
	if d.EngineChanged {
		fmt.Fprintf(p.w, "  engine: %s -> %s\n", d.Target.Engine, d.Source.Engine)
	}
	if d.CharsetChanged {
		fmt.Fprintf(p.w, "  charset: %s -> %s\n", d.Target.Charset, d.Source.Charset)
	}
	fmt.Fprintf(p.w, "  rows: source %s, target %s\n", rowCount(d.SourceRows), rowCount(d.TargetRows))
}

// TableDetail prints the full column/index/FK-level diff for one table.
func (p *terminalPresenter) TableDetail(d TableDiff) {
	p.heading.Fprintf(p.w, "\nDetails for %s:\n", d.Name)

	for _, c := range d.NewColumns {
		p.added.Fprintf(p.w, "  + column %s %s\n", c.Name, columnSummary(c))
	}
	for _, c := range d.RemovedColumns {
		p.removed.Fprintf(p.w, "  - column %s %s (report-only)\n", c.Name, columnSummary(c))
	}
	for _, mc := range d.ModifiedColumns {
		p.changed.Fprintf(p.w, "  ~ column %s: %s -> %s\n", mc.Name, columnSummary(mc.Old), columnSummary(mc.New))
	}

	for _, idx := range d.NewIndexes {
		p.added.Fprintf(p.w, "  + index %s (%s)%s\n", idx.Name, identList(idx.Columns), uniqueTag(idx))
	}
	for _, idx := range d.RemovedIndexes {
		p.removed.Fprintf(p.w, "  - index %s (%s)%s\n", idx.Name, identList(idx.Columns), uniqueTag(idx))
	}
	for _, mi := range d.ModifiedIndexes {
		p.changed.Fprintf(p.w, "  ~ index %s: (%s)%s -> (%s)%s\n",
			mi.Name, identList(mi.Old.Columns), uniqueTag(mi.Old), identList(mi.New.Columns), uniqueTag(mi.New))
	}

	for _, fk := range d.NewForeignKeys {
		p.added.Fprintf(p.w, "  + foreign key %s -> %s\n", fk.Name, fk.RefTable)
	}
	for _, fk := range d.RemovedForeignKeys {
		p.removed.Fprintf(p.w, "  - foreign key %s -> %s (report-only)\n", fk.Name, fk.RefTable)
	}
	for _, mf := range d.ModifiedForeignKeys {
		p.changed.Fprintf(p.w, "  ~ foreign key %s: references %s -> %s\n", mf.Name, mf.Old.RefTable, mf.New.RefTable)
	}
}

func (p *terminalPresenter) DecisionRecorded(table string, action Action) {
	fmt.Fprintf(p.w, "  recorded: %s -> %s\n", table, action)
}

func (p *terminalPresenter) InvalidInput(input string) {
	p.removed.Fprintf(p.w, "  invalid choice %q: use 1, 2, s, d, or q\n", input)
}

// RunSummary prints the final accounting: every table that was skipped or
// omitted, by name, with the reason class.
func (p *terminalPresenter) RunSummary(s *Script, excluded []*MalformedMetadataError) {
	p.heading.Fprintf(p.w, "\nRun summary\n")
	fmt.Fprintf(p.w, "  statements: %d, guidance entries: %d\n", len(s.Statements), len(s.Guidance))

	if len(s.SkippedByUser) > 0 {
		fmt.Fprintf(p.w, "\nSkipped by user choice (will remain divergent):\n")
		for _, name := range s.SkippedByUser {
			fmt.Fprintf(p.w, "  %s\n", name)
		}
	}
	if len(s.SkippedWithError) > 0 {
		p.removed.Fprintf(p.w, "\nSkipped due to error:\n")
		for _, te := range s.SkippedWithError {
			fmt.Fprintf(p.w, "  %s: %v\n", te.Table, te.Err)
		}
	}
	if len(s.ReportOnly) > 0 {
		p.changed.Fprintf(p.w, "\nReported but never auto-applied:\n")
		for _, line := range s.ReportOnly {
			fmt.Fprintf(p.w, "  %s\n", line)
		}
	}
	if len(excluded) > 0 {
		p.removed.Fprintf(p.w, "\nExcluded from comparison (malformed metadata):\n")
		for _, e := range excluded {
			fmt.Fprintf(p.w, "  %s: %s\n", e.Table, e.Reason)
		}
	}
}

// StatementPreview prints the first n generated statements.
func (p *terminalPresenter) StatementPreview(stmts []string, n int) {
	p.heading.Fprintf(p.w, "\nGenerated SQL preview (%d statements):\n", len(stmts))
	for i, stmt := range stmts {
		if i == n {
			p.muted.Fprintf(p.w, "... and %d more\n", len(stmts)-n)
			break
		}
		fmt.Fprintln(p.w, stmt)
	}
}

func columnSummary(c Column) string {
	s := c.ColumnType
	if !c.Nullable {
		s += " NOT NULL"
	}
	if c.Default != nil {
		s += " DEFAULT " + defaultExpr(*c.Default)
	}
	if c.Extra != "" {
		s += " " + c.Extra
	}
	return s
}

func uniqueTag(idx Index) string {
	if idx.Unique {
		return " UNIQUE"
	}
	return ""
}

func rowCount(n *int64) string {
	if n == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *n)
}
