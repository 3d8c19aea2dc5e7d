// Package skills extracts assessable skill tags from resume text. The heavy
// lifting of turning PDF/DOCX uploads into text happens outside this module;
// callers hand in plain text and get back the tags the platform can assess.
package skills

import "strings"

// Known is the fixed set of assessable skill tags, in display order.
var Known = []string{"python", "sql", "java", "javascript", "html", "css", "c++", "mongodb"}

// Extract returns the known skills present in the text, deduplicated, in the
// order of Known. Matching is on lowercased word tokens; "+" and "#" count as
// word characters so tags like c++ survive tokenization.
func Extract(text string) []string {
	seen := map[string]bool{}
	for _, tok := range tokenize(strings.ToLower(text)) {
		seen[tok] = true
	}
	out := []string{}
	for _, skill := range Known {
		if seen[skill] {
			out = append(out, skill)
		}
	}
	return out
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return false
		}
		return r != '+' && r != '#'
	})
}
