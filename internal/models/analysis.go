package models

// Category is the semantic bucket a sentence is assigned to.
type Category string

const (
	CategoryDefinition   Category = "definition"
	CategoryProcess      Category = "process"
	CategoryComparison   Category = "comparison"
	CategoryApplication  Category = "application"
	CategoryExample      Category = "example"
	CategoryAdvantage    Category = "advantage"
	CategoryDisadvantage Category = "disadvantage"
	CategoryFeature      Category = "feature"
	CategoryFact         Category = "fact"
)

// Categories lists every category in priority order.
var Categories = []Category{
	CategoryDefinition,
	CategoryProcess,
	CategoryComparison,
	CategoryApplication,
	CategoryExample,
	CategoryAdvantage,
	CategoryDisadvantage,
	CategoryFeature,
	CategoryFact,
}

// ContentAnalysis is derived once per document and never mutated afterwards.
type ContentAnalysis struct {
	FullText             string                `json:"full_text"`
	Sentences            []string              `json:"sentences"`
	KeyConcepts          []string              `json:"key_concepts"`
	CategorizedSentences map[Category][]string `json:"categorized_sentences"`
}

// InCategory returns the sentences assigned to c, in document order.
func (a *ContentAnalysis) InCategory(c Category) []string {
	if a == nil || a.CategorizedSentences == nil {
		return nil
	}
	return a.CategorizedSentences[c]
}

type DocumentStats struct {
	WordCount     int    `json:"word_count"`
	SentenceCount int    `json:"sentence_count"`
	KeyConcepts   int    `json:"key_concepts"`
	FileType      string `json:"file_type"`
}
