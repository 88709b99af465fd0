package main

// Classification groups table diffs by kind. Pure partition: diff order is
// preserved within each bucket and no diff content is altered.
type Classification struct {
	New       []TableDiff
	Removed   []TableDiff
	Modified  []TableDiff
	Identical []TableDiff
}

func classify(diffs []TableDiff) Classification {
	var c Classification
	for _, d := range diffs {
		switch d.Kind {
		case DiffNew:
			c.New = append(c.New, d)
		case DiffRemoved:
			c.Removed = append(c.Removed, d)
		case DiffModified:
			c.Modified = append(c.Modified, d)
		default:
			c.Identical = append(c.Identical, d)
		}
	}
	return c
}

// changeCount is the number of tables needing attention.
func (c Classification) changeCount() int {
	return len(c.New) + len(c.Removed) + len(c.Modified)
}

// selectable returns the tables that require a user decision: new and
// modified tables, in the diff engine's alphabetical order. Removed tables
// are report-only and identical tables need nothing.
func selectable(diffs []TableDiff) []TableDiff {
	var out []TableDiff
	for _, d := range diffs {
		if d.Kind == DiffNew || d.Kind == DiffModified {
			out = append(out, d)
		}
	}
	return out
}
