// Package advice maps free-text forecast recommendations to display categories.
package advice

import "strings"

type Category string

const (
	Positive Category = "positive"
	Warning  Category = "warning"
	Neutral  Category = "neutral"
)

// Keyword sets are matched case-sensitively by substring, positive first.
var (
	positiveKeywords = []string{"Laris", "Banyak", "🔥", "High demand", "Stock up"}
	warningKeywords  = []string{"Sepi", "Kurangi", "⚠️", "Low demand", "Reduce"}
)

// Classify is total and stateless: every string maps to exactly one category.
func Classify(text string) Category {
	if containsAny(text, positiveKeywords) {
		return Positive
	}
	if containsAny(text, warningKeywords) {
		return Warning
	}
	return Neutral
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
