package analyzer

import (
	"strings"

	"docuquest/internal/models"
)

// rule assigns a category when match reports true. Rules are evaluated in
// order and the first match wins.
type rule struct {
	category models.Category
	keywords []string
	match    func(sentence, lower string) bool
}

func keywordRule(category models.Category, keywords ...string) rule {
	return rule{
		category: category,
		keywords: keywords,
		match: func(_, lower string) bool {
			return containsAny(lower, keywords)
		},
	}
}

var rules = []rule{
	keywordRule(models.CategoryDefinition, " is ", " means ", " refers to ", " defined as ", " known as "),
	keywordRule(models.CategoryProcess, "process", "method", "technique", "approach", "procedure", "steps", "how to"),
	keywordRule(models.CategoryComparison, "compared to", "different from", "similar to", "versus", "than", "however"),
	keywordRule(models.CategoryApplication, "application", "used for", "purpose", "utilized", "applied"),
	keywordRule(models.CategoryExample, "example", "for instance", "such as", "including"),
	keywordRule(models.CategoryAdvantage, "advantage", "benefit", "strength", "positive"),
	keywordRule(models.CategoryDisadvantage, "disadvantage", "limitation", "drawback", "negative"),
	keywordRule(models.CategoryFeature, "feature", "characteristic", "property", "attribute"),
	{
		category: models.CategoryFact,
		match: func(sentence, _ string) bool {
			return len(strings.Fields(sentence)) >= models.MinFactWords
		},
	},
}

// Categorize returns the category of sentence, or false when no rule matches.
func Categorize(sentence string) (models.Category, bool) {
	lower := strings.ToLower(sentence)
	for _, r := range rules {
		if r.match(sentence, lower) {
			return r.category, true
		}
	}
	return "", false
}

// Keywords returns the markers of a keyword category; fact has none.
func Keywords(category models.Category) []string {
	for _, r := range rules {
		if r.category == category {
			return append([]string(nil), r.keywords...)
		}
	}
	return nil
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
