package urllist

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// urlHeaders are header names recognised when no column is given.
var urlHeaders = []string{"url", "link", "href", "website", "address"}

// selectColumn resolves opts.Column against the first row of a table and
// reports whether that row is a header to skip.
func selectColumn(first []string, column string) (int, bool, error) {
	column = strings.TrimSpace(column)

	if column != "" {
		if idx, err := strconv.Atoi(column); err == nil {
			if idx < 0 {
				return 0, false, eris.Errorf("urllist: column index %d is negative", idx)
			}
			return idx, !looksLikeURL(cell(first, idx)), nil
		}
		for i, h := range first {
			if strings.EqualFold(strings.TrimSpace(h), column) {
				return i, true, nil
			}
		}
		return 0, false, eris.Errorf("urllist: column %q not found in header", column)
	}

	for _, name := range urlHeaders {
		for i, h := range first {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i, true, nil
			}
		}
	}
	return 0, !looksLikeURL(cell(first, 0)), nil
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

// looksLikeURL separates data rows from header rows. It accepts bare hosts
// such as "example.com" as well as full URLs.
func looksLikeURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t") {
		return false
	}
	return strings.Contains(s, "://") || strings.Contains(s, ".")
}
