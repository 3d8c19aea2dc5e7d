package assessment

import "strings"

// answerMatches applies the platform's scoring policy: trimmed,
// case-insensitive string equality. Open-ended coding answers are scored the
// same way as multiple choice, no partial credit.
func answerMatches(selected, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(selected), strings.TrimSpace(correct))
}

// score counts matching response slots. Unvisited questions score zero.
func score(responses []*Response) int {
	n := 0
	for _, r := range responses {
		if r == nil {
			continue
		}
		if answerMatches(r.Selected, r.Correct) {
			n++
		}
	}
	return n
}
