package ingest

import (
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// cleanCell folds compatibility characters (non-breaking spaces, full-width
// letters and digits) to their plain forms and trims surrounding whitespace.
func cleanCell(s string) string {
	if s == "" {
		return ""
	}
	out, _, err := transform.String(norm.NFKC, s)
	if err != nil {
		out = s
	}
	return strings.TrimSpace(out)
}

// cleanRow applies cleanCell to every cell of row.
func cleanRow(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = cleanCell(c)
	}
	return out
}

// isBlankRow reports whether every cell of an already cleaned row is empty.
func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
