package main

import "strings"

// mysqlIdent quotes an identifier with backticks, doubling any embedded
// backtick.
func mysqlIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// identList renders a comma-separated list of quoted identifiers.
func identList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = mysqlIdent(n)
	}
	return strings.Join(quoted, ", ")
}
