package models

const (
	WhitespaceRegex       = `\s+`
	SentenceBoundaryRegex = `[.!?]+`
	CapitalizedWordRegex  = `\b[A-Z][a-z]{2,}\b`
	LowercaseWordRegex    = `\b[a-zA-Z]{4,}\b`
	WordRegex             = `\b\w+\b`

	MinSentenceLength   = 15
	MaxKeyConcepts      = 20
	MaxFallbackConcepts = 15
	MinConceptLength    = 4
	MinFactWords        = 7

	// MinReadableTextLength is the validation threshold for extracted text.
	MinReadableTextLength = 50
	DocumentIDLength      = 12

	InitialBatchSize = 10
	MoreBatchSize    = 5
	MaxOptions       = 4
)

var (
	// ConceptStopwords are capitalized tokens that never become key concepts.
	ConceptStopwords = map[string]struct{}{
		"The": {}, "This": {}, "That": {}, "These": {}, "Those": {}, "There": {},
		"What": {}, "When": {}, "Where": {}, "Which": {}, "Who": {}, "How": {},
		"Why": {}, "With": {}, "From": {}, "Have": {}, "Has": {},
	}

	DefaultConcepts = []string{
		"Document", "Content", "Information", "Analysis",
		"Data", "Process", "System", "Method",
	}

	QuestionPromptTemplate = `<context>
%s
</context>
Write one %s multiple-choice quiz question whose correct answer is exactly "%s".
The question must be answerable from the context and must not contain the answer itself.
Answer only with the question text on a single line and nothing else.
`
)
