package ingestion

import "strings"

// urlCandidateColumns are compared case-insensitively against trimmed
// column names. First match in original column order wins.
var urlCandidateColumns = []string{
	"url", "website", "link", "homepage", "web", "site", "page_url",
}

// urlSubstrings drive the fallback heuristic when no exact candidate
// matches.
var urlSubstrings = []string{"url", "site", "web", "link"}

// DetectURLColumn returns the name of the column most likely to hold URLs.
// It first looks for an exact case-insensitive match against the candidate
// list, then for any column name containing a URL-ish fragment. The second
// return is false when nothing matches.
func DetectURLColumn(columns []string) (string, bool) {
	for _, col := range columns {
		name := strings.ToLower(strings.TrimSpace(col))
		for _, candidate := range urlCandidateColumns {
			if name == candidate {
				return col, true
			}
		}
	}
	for _, col := range columns {
		name := strings.ToLower(strings.TrimSpace(col))
		for _, fragment := range urlSubstrings {
			if strings.Contains(name, fragment) {
				return col, true
			}
		}
	}
	return "", false
}
