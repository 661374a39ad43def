package game

import (
	"strings"

	"github.com/FiveEightyEight/scripturequest/models"
)

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CheckAnswer compares case-insensitively after trimming whitespace. When more
// than one value is submitted, every expected value must appear among them in
// any order. A single submitted value against several expected values is
// accepted if it matches any of them.
func CheckAnswer(expected, submitted models.AnswerValue) bool {
	if len(expected) == 0 || len(submitted) == 0 {
		return false
	}

	given := make(map[string]struct{}, len(submitted))
	for _, s := range submitted {
		given[normalize(s)] = struct{}{}
	}

	if len(submitted) == 1 && len(expected) > 1 {
		for _, e := range expected {
			if _, ok := given[normalize(e)]; ok {
				return true
			}
		}
		return false
	}

	for _, e := range expected {
		if _, ok := given[normalize(e)]; !ok {
			return false
		}
	}
	return true
}
