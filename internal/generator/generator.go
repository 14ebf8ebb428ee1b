package generator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"docuquest/internal/helper"
	"docuquest/internal/models"
)

// Source produces a batch of questions for one difficulty tier. Every
// returned question's text is added to used, and no returned text was in
// used beforehand.
type Source interface {
	GenerateBatch(ctx context.Context, analysis *models.ContentAnalysis, difficulty models.Difficulty, batchSize int, used models.QuestionSet) ([]models.GeneratedQuestion, error)
}

// Heuristic fills tier templates with key concepts in rank order.
type Heuristic struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewHeuristic() *Heuristic {
	return NewSeededHeuristic(rand.Uint64(), rand.Uint64())
}

// NewSeededHeuristic returns a generator whose template and distractor
// choices are reproducible.
func NewSeededHeuristic(seed1, seed2 uint64) *Heuristic {
	return &Heuristic{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// GenerateBatch tries every key concept at most once, with one random
// template each, and stops after batchSize questions. A concept whose
// filled template was already issued is skipped for this call.
func (h *Heuristic) GenerateBatch(_ context.Context, analysis *models.ContentAnalysis, difficulty models.Difficulty, batchSize int, used models.QuestionSet) ([]models.GeneratedQuestion, error) {
	t, err := tierFor(difficulty)
	if err != nil {
		return nil, err
	}
	if analysis == nil || len(analysis.KeyConcepts) == 0 || len(analysis.Sentences) == 0 || batchSize <= 0 {
		return nil, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var questions []models.GeneratedQuestion
	for _, concept := range analysis.KeyConcepts {
		if len(questions) >= batchSize {
			break
		}

		text := fmt.Sprintf(t.templates[h.rng.IntN(len(t.templates))], concept)
		if used.Has(text) {
			continue
		}

		questions = append(questions, models.GeneratedQuestion{
			ID:            helper.NewQuestionID(),
			Text:          text,
			CorrectAnswer: concept,
			Options:       SampleOptions(h.rng, analysis.KeyConcepts, concept),
			Explanation:   t.prefix + t.explanation(analysis, concept),
			Difficulty:    difficulty,
			QuestionType:  difficulty.QuestionType(),
		})
		used.Add(text)
	}

	log.Debug().
		Str("difficulty", string(difficulty)).
		Int("requested", batchSize).
		Int("generated", len(questions)).
		Msg("Generated batch")
	return questions, nil
}

// SampleOptions draws up to three distractors from concepts and shuffles
// them with the answer. Callers sharing rng must serialize access.
func SampleOptions(rng *rand.Rand, concepts []string, answer string) []string {
	others := make([]string, 0, len(concepts))
	for _, c := range concepts {
		if c != answer {
			others = append(others, c)
		}
	}

	n := min(models.MaxOptions-1, len(others))
	options := make([]string, 0, n+1)
	for _, i := range rng.Perm(len(others))[:n] {
		options = append(options, others[i])
	}
	options = append(options, answer)
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	return options
}

// Remaining is an upper bound on the questions a tier can still produce:
// every concept/template pairing not yet issued.
func Remaining(analysis *models.ContentAnalysis, issued int) int {
	if analysis == nil || len(analysis.Sentences) == 0 {
		return 0
	}
	return max(len(analysis.KeyConcepts)*TemplatesPerTier-issued, 0)
}

func firstMention(sentences []string, concept string) (string, bool) {
	needle := strings.ToLower(concept)
	for _, s := range sentences {
		if strings.Contains(strings.ToLower(s), needle) {
			return s, true
		}
	}
	return "", false
}
