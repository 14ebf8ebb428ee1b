package analyzer

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"docuquest/internal/models"
)

var (
	whitespaceRe  = regexp.MustCompile(models.WhitespaceRegex)
	boundaryRe    = regexp.MustCompile(models.SentenceBoundaryRegex)
	capitalizedRe = regexp.MustCompile(models.CapitalizedWordRegex)
	lowercaseRe   = regexp.MustCompile(models.LowercaseWordRegex)
)

// Analyze derives the content analysis of text. It never fails: empty or
// concept-free input produces a degenerate analysis with default concepts.
func Analyze(text string) *models.ContentAnalysis {
	fullText := Normalize(text)
	sentences := SplitSentences(fullText)

	analysis := &models.ContentAnalysis{
		FullText:             fullText,
		Sentences:            sentences,
		KeyConcepts:          ExtractConcepts(fullText),
		CategorizedSentences: make(map[models.Category][]string, len(models.Categories)),
	}

	for _, sentence := range sentences {
		if category, ok := Categorize(sentence); ok {
			analysis.CategorizedSentences[category] = append(analysis.CategorizedSentences[category], sentence)
		}
	}

	log.Info().
		Int("key_concepts", len(analysis.KeyConcepts)).
		Int("sentences", len(sentences)).
		Msg("Analysis complete")
	return analysis
}

// Normalize collapses every whitespace run into a single space.
func Normalize(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// SplitSentences splits on runs of terminal punctuation and drops fragments
// of MinSentenceLength characters or fewer.
func SplitSentences(text string) []string {
	var sentences []string
	for _, part := range boundaryRe.Split(text, -1) {
		s := strings.TrimSpace(part)
		if utf8.RuneCountInString(s) > models.MinSentenceLength {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// ExtractConcepts ranks capitalized tokens by frequency, then falls back to
// frequent lowercase words and finally to DefaultConcepts.
func ExtractConcepts(text string) []string {
	var concepts []string
	for _, c := range mostCommon(capitalizedRe.FindAllString(text, -1), models.MaxKeyConcepts) {
		if _, stop := models.ConceptStopwords[c.word]; stop {
			continue
		}
		if utf8.RuneCountInString(c.word) < models.MinConceptLength {
			continue
		}
		concepts = append(concepts, c.word)
	}
	if len(concepts) > 0 {
		return concepts
	}

	title := cases.Title(language.English)
	for _, c := range mostCommon(lowercaseRe.FindAllString(strings.ToLower(text), -1), models.MaxFallbackConcepts) {
		if c.count > 1 {
			concepts = append(concepts, title.String(c.word))
		}
	}
	if len(concepts) > 0 {
		log.Debug().Int("key_concepts", len(concepts)).Msg("Using lowercase concept fallback")
		return concepts
	}

	log.Debug().Msg("Using default concepts")
	return append([]string(nil), models.DefaultConcepts...)
}

type wordCount struct {
	word  string
	count int
}

// mostCommon returns up to n words by descending count, ties in first-seen order.
func mostCommon(words []string, n int) []wordCount {
	index := make(map[string]int)
	var counts []wordCount
	for _, w := range words {
		if i, ok := index[w]; ok {
			counts[i].count++
			continue
		}
		index[w] = len(counts)
		counts = append(counts, wordCount{word: w, count: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].count > counts[j].count
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// Stats summarises an analysis for display.
func Stats(analysis *models.ContentAnalysis, fileType string) models.DocumentStats {
	if fileType == "" {
		fileType = "DOCUMENT"
	}
	return models.DocumentStats{
		WordCount:     len(strings.Fields(analysis.FullText)),
		SentenceCount: len(analysis.Sentences),
		KeyConcepts:   len(analysis.KeyConcepts),
		FileType:      strings.ToUpper(strings.TrimPrefix(fileType, ".")),
	}
}
