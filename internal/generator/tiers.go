package generator

import (
	"fmt"

	"docuquest/internal/models"
)

// TemplatesPerTier is the number of question templates of every tier.
const TemplatesPerTier = 10

type tier struct {
	templates []string
	prefix    string
	fallback  string
	// categories searched for an explanation before the whole document
	search []models.Category
}

var tiers = map[models.Difficulty]tier{
	models.DifficultyBasic: {
		templates: []string{
			"What is the main purpose of '%s' according to the document?",
			"What does the document specifically mention about '%s'?",
			"According to the text, what is '%s' primarily used for?",
			"What key information is provided about '%s' in the document?",
			"How is '%s' described in the content?",
			"What role does '%s' play based on the document's explanation?",
			"What is the significance of '%s' mentioned in the text?",
			"How does the document characterize '%s'?",
			"What aspect of '%s' is discussed in the document?",
			"What does the document say regarding '%s'?",
		},
		prefix:   "📖 According to the document: ",
		fallback: "The document discusses %s and its importance in the context.",
	},
	models.DifficultyMedium: {
		templates: []string{
			"Based on the document, what best describes '%s'?",
			"How is '%s' defined in the context of this document?",
			"What method or approach is associated with '%s' according to the text?",
			"What process involves '%s' as described in the document?",
			"How does the document explain the function of '%s'?",
			"What specific technique is mentioned in relation to '%s'?",
			"According to the document, what procedure utilizes '%s'?",
			"How is '%s' implemented based on the document's description?",
			"What approach does the document suggest for '%s'?",
			"What does the document specify about the usage of '%s'?",
		},
		prefix:   "📚 Document Insight: ",
		fallback: "The document provides detailed information about %s and its implementation.",
		search:   []models.Category{models.CategoryDefinition, models.CategoryProcess},
	},
	models.DifficultyAdvanced: {
		templates: []string{
			"What are the key advantages of '%s' mentioned in the document?",
			"How does '%s' compare to other approaches discussed in the text?",
			"What limitations or challenges does the document associate with '%s'?",
			"What real-world applications of '%s' are described in the document?",
			"How does '%s' differ from similar concepts in the document?",
			"What strategic importance does '%s' hold according to the analysis?",
			"What are the documented benefits of implementing '%s'?",
			"How does the document evaluate the effectiveness of '%s'?",
			"What critical analysis does the document provide about '%s'?",
			"What implications does the document suggest regarding '%s'?",
		},
		prefix:   "🔍 Analytical Finding: ",
		fallback: "The document analyzes %s from multiple perspectives including its applications and strategic value.",
		search:   []models.Category{models.CategoryAdvantage, models.CategoryComparison, models.CategoryApplication},
	},
}

func tierFor(d models.Difficulty) (tier, error) {
	t, ok := tiers[d]
	if !ok {
		return tier{}, fmt.Errorf("%w: %q", models.ErrInvalidDifficulty, d)
	}
	return t, nil
}

// Explain returns the tier's explanation for concept: the first sentence
// mentioning it in the tier's priority order, or a synthesized sentence.
func Explain(analysis *models.ContentAnalysis, d models.Difficulty, concept string) (string, error) {
	t, err := tierFor(d)
	if err != nil {
		return "", err
	}
	return t.prefix + t.explanation(analysis, concept), nil
}

func (t tier) explanation(analysis *models.ContentAnalysis, concept string) string {
	for _, c := range t.search {
		if s, ok := firstMention(analysis.InCategory(c), concept); ok {
			return s
		}
	}
	if s, ok := firstMention(analysis.Sentences, concept); ok {
		return s
	}
	return fmt.Sprintf(t.fallback, concept)
}
