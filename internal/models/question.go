package models

import (
	"fmt"
	"strings"
)

type Difficulty string

const (
	DifficultyBasic    Difficulty = "basic"
	DifficultyMedium   Difficulty = "medium"
	DifficultyAdvanced Difficulty = "advanced"
)

// Difficulties lists the tiers in the order batches are initialised.
var Difficulties = []Difficulty{DifficultyBasic, DifficultyMedium, DifficultyAdvanced}

type QuestionType string

const (
	QuestionTypeFactual       QuestionType = "factual"
	QuestionTypeComprehension QuestionType = "comprehension"
	QuestionTypeAnalysis      QuestionType = "analysis"
)

// ParseDifficulty accepts a tier name in any case.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DifficultyBasic, DifficultyMedium, DifficultyAdvanced:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
}

// QuestionType returns the question type paired with the tier.
func (d Difficulty) QuestionType() QuestionType {
	switch d {
	case DifficultyMedium:
		return QuestionTypeComprehension
	case DifficultyAdvanced:
		return QuestionTypeAnalysis
	default:
		return QuestionTypeFactual
	}
}

type GeneratedQuestion struct {
	ID            string       `json:"id"`
	Text          string       `json:"question"`
	CorrectAnswer string       `json:"answer"`
	Options       []string     `json:"options"`
	Explanation   string       `json:"explanation"`
	Difficulty    Difficulty   `json:"difficulty"`
	QuestionType  QuestionType `json:"type"`
}

// QuestionSet holds question texts already issued for one document tier.
type QuestionSet map[string]struct{}

func NewQuestionSet() QuestionSet {
	return make(QuestionSet)
}

func (s QuestionSet) Has(text string) bool {
	_, ok := s[text]
	return ok
}

func (s QuestionSet) Add(text string) {
	s[text] = struct{}{}
}

func (s QuestionSet) Len() int {
	return len(s)
}
