package categories

import "strings"

// nameBonus is added when the category's display name appears in the text
const nameBonus = 3

// Categorize scores text against every category and returns the best match.
// Each keyword found as a substring of the lowercased text scores one point
// and the lowercased category name scores nameBonus. Ties go to the earlier
// category and a zero score never matches, so ok is false for text that
// mentions nothing. Callers pick the fallback, usually CategoryOrDefault.
//
// Matching is plain substring search: "art" matches inside "start".
func (r *Registry) Categorize(text string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Category{}, false
	}

	best, bestScore := -1, 0
	for i, m := range r.matchers {
		score := Score(normalized, m.name, m.keywords)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return Category{}, false
	}
	return r.ordered[best], true
}

// Score computes the match score of already-normalized text against a
// lowercased name and keyword list.
func Score(normalized, name string, keywords []string) int {
	score := 0
	for _, kw := range keywords {
		if strings.Contains(normalized, kw) {
			score++
		}
	}
	if name != "" && strings.Contains(normalized, name) {
		score += nameBonus
	}
	return score
}
