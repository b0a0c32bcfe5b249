package model

import "strings"

// Question is a single market-research question in a battery. Identity is ID.
type Question struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

// Validate reports whether the question is usable as analysis input.
func (q Question) Validate() bool {
	return q.ID != "" && strings.TrimSpace(q.Text) != ""
}

// MentionsAnyBrand reports whether the question text names any of the given
// brands, using case-insensitive substring matching. Questions that name a
// brand are "specific"; the rest are "generic".
func (q Question) MentionsAnyBrand(brands []string) bool {
	lower := strings.ToLower(q.Text)
	for _, b := range brands {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(b)) {
			return true
		}
	}
	return false
}

// Categories returns the distinct categories of the given questions in
// first-encounter order.
func Categories(questions []Question) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, q := range questions {
		if q.Category == "" {
			continue
		}
		if _, ok := seen[q.Category]; ok {
			continue
		}
		seen[q.Category] = struct{}{}
		out = append(out, q.Category)
	}
	return out
}
