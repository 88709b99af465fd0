package main

import (
	"slices"
	"strings"
)

// deferredFK is a foreign key pulled out of its CREATE TABLE statement to
// break a reference cycle; it is added back with ALTER TABLE after all
// tables exist.
type deferredFK struct {
	Table string
	FK    ForeignKey
}

// orderNewTables topologically orders new tables so that referenced tables
// are created before referencing ones. Only references between the given
// tables constrain the order; references to pre-existing tables do not.
//
// Cycles never fail the run. Self-references are deferred immediately, and
// when no progress can be made every foreign key between the still-unordered
// tables is deferred, which breaks all remaining cycles at once. Ties are
// broken alphabetically so output is deterministic.
func orderNewTables(tables []Table) ([]Table, []deferredFK) {
	byName := make(map[string]Table, len(tables))
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		byName[foldName(t.Name)] = t
		names = append(names, foldName(t.Name))
	}
	slices.Sort(names)

	var deferred []deferredFK
	// deps[t] = set of tables that must be created before t
	deps := make(map[string]map[string]bool, len(tables))
	dropFK := make(map[string]map[string]bool) // table -> folded FK names deferred
	for _, name := range names {
		t := byName[name]
		deps[name] = make(map[string]bool)
		for _, fk := range t.ForeignKeys {
			ref := foldName(fk.RefTable)
			if ref == name {
				deferred = append(deferred, deferredFK{Table: t.Name, FK: fk})
				markDeferred(dropFK, name, fk.Name)
				continue
			}
			if _, ok := byName[ref]; ok {
				deps[name][ref] = true
			}
		}
	}

	ordered := make([]Table, 0, len(tables))
	done := make(map[string]bool, len(tables))
	remaining := slices.Clone(names)

	for len(remaining) > 0 {
		progressed := false
		next := remaining[:0]
		for _, name := range remaining {
			ready := true
			for dep := range deps[name] {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				ordered = append(ordered, byName[name])
				done[name] = true
				progressed = true
			} else {
				next = append(next, name)
			}
		}
		remaining = next

		if !progressed {
			// Reference cycle. Defer every FK between tables that sit on a
			// cycle (tables that can reach themselves through unmet
			// dependencies) and retry with those edges gone. Tables merely
			// blocked downstream of a cycle keep their FKs inline.
			cyclic := make(map[string]bool, len(remaining))
			for _, name := range remaining {
				if reaches(deps, done, name, name, make(map[string]bool)) {
					cyclic[name] = true
				}
			}
			for _, name := range remaining {
				if !cyclic[name] {
					continue
				}
				t := byName[name]
				for _, fk := range t.ForeignKeys {
					ref := foldName(fk.RefTable)
					if cyclic[ref] && !isDeferred(dropFK, name, fk.Name) {
						deferred = append(deferred, deferredFK{Table: t.Name, FK: fk})
						markDeferred(dropFK, name, fk.Name)
						delete(deps[name], ref)
					}
				}
			}
		}
	}

	slices.SortFunc(deferred, func(a, b deferredFK) int {
		if c := strings.Compare(foldName(a.Table), foldName(b.Table)); c != 0 {
			return c
		}
		return strings.Compare(foldName(a.FK.Name), foldName(b.FK.Name))
	})
	return ordered, deferred
}

// reaches reports whether target is reachable from the unmet dependencies
// of start.
func reaches(deps map[string]map[string]bool, done map[string]bool, start, target string, visited map[string]bool) bool {
	for dep := range deps[start] {
		if done[dep] || visited[dep] {
			continue
		}
		if dep == target {
			return true
		}
		visited[dep] = true
		if reaches(deps, done, dep, target, visited) {
			return true
		}
	}
	return false
}

// deferredFKNames returns the folded names of FKs deferred for one table.
func deferredFKNames(deferred []deferredFK, table string) map[string]bool {
	out := make(map[string]bool)
	for _, d := range deferred {
		if sameName(d.Table, table) {
			out[foldName(d.FK.Name)] = true
		}
	}
	return out
}

func markDeferred(m map[string]map[string]bool, table, fk string) {
	if m[table] == nil {
		m[table] = make(map[string]bool)
	}
	m[table][foldName(fk)] = true
}

func isDeferred(m map[string]map[string]bool, table, fk string) bool {
	return m[table] != nil && m[table][foldName(fk)]
}
