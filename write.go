package main

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// writeScriptFiles persists the generated statements and data guidance to
// <base>_structure.sql and <base>_data.sql. The generated-at header is added
// here, at write time, so the generator's output stays deterministic.
func writeScriptFiles(base string, s *Script, now time.Time) ([]string, error) {
	var written []string

	header := fmt.Sprintf("-- generated by adjustdb on %s\n", now.Format("2006-01-02 15:04:05"))

	structureFile := base + "_structure.sql"
	var b strings.Builder
	b.WriteString(header)
	for _, stmt := range s.Statements {
		b.WriteString(stmt)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(structureFile, []byte(b.String()), 0o644); err != nil {
		return written, fmt.Errorf("write %s: %w", structureFile, err)
	}
	written = append(written, structureFile)

	if len(s.Guidance) > 0 {
		dataFile := base + "_data.sql"
		b.Reset()
		b.WriteString(header)
		b.WriteString("-- data synchronization guidance; no row-level statements are generated\n")
		for _, g := range s.Guidance {
			b.WriteString(g)
			b.WriteByte('\n')
		}
		if err := os.WriteFile(dataFile, []byte(b.String()), 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", dataFile, err)
		}
		written = append(written, dataFile)
	}

	return written, nil
}
