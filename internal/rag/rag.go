package rag

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
	"github.com/tmc/langchaingo/llms"

	"docuquest/internal/chromemdb"
	"docuquest/internal/config"
	"docuquest/internal/generator"
	"docuquest/internal/helper"
	"docuquest/internal/llmservice"
	"docuquest/internal/models"
)

// contextSentences is how many retrieved sentences go into each prompt.
const contextSentences = 3

const warmupPrompt = "Reply with the single word: ready"

// Service writes question text with an LLM, grounded on the document
// sentences nearest to each key concept. Answers and distractors are the
// document's own concepts, so option invariants hold whatever the model says.
type Service struct {
	model   llms.Model
	index   *chromemdb.SentenceIndex
	breaker *gobreaker.CircuitBreaker[string]
	cfg     config.LLMConfig

	mu  sync.Mutex
	rng *rand.Rand

	ready     chan struct{}
	failed    chan struct{}
	startOnce sync.Once
}

func NewService(model llms.Model, index *chromemdb.SentenceIndex, cfg config.LLMConfig) *Service {
	settings := gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.Breaker.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.Breaker.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state change")
		},
	}

	return &Service{
		model:   model,
		index:   index,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
		cfg:     cfg,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		ready:   make(chan struct{}),
		failed:  make(chan struct{}),
	}
}

// Start loads the model in the background. The service reports ready once
// a warm-up completion succeeds; until then callers should fall back. A
// failed warm-up is final.
func (s *Service) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.load(ctx)
	})
}

func (s *Service) load(ctx context.Context) {
	start := time.Now()
	log.Info().Str("model", s.cfg.Model).Msg("Loading question model")

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ReadyTimeout)
	defer cancel()

	if _, err := llmservice.GenerateContent(callCtx, s.model, warmupPrompt); err != nil {
		log.Error().Err(err).Str("model", s.cfg.Model).Msg("Question model failed to load, heuristic generation only")
		close(s.failed)
		return
	}

	close(s.ready)
	log.Info().Str("model", s.cfg.Model).Dur("took", time.Since(start)).Msg("Question model ready")
}

func (s *Service) Ready() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// WaitReady polls readiness every poll interval for at most timeout and
// returns models.ErrSourceNotReady when time runs out or warm-up has failed.
func (s *Service) WaitReady(ctx context.Context, timeout time.Duration) error {
	if s.Ready() {
		return nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.failed:
			return fmt.Errorf("%w: model failed to load", models.ErrSourceNotReady)
		case <-deadline.C:
			return fmt.Errorf("%w: waited %s", models.ErrSourceNotReady, timeout)
		case <-ticker.C:
			if s.Ready() {
				return nil
			}
		}
	}
}

// GenerateBatch asks the model for one question per key concept, in rank
// order, until batchSize are written. Any model failure aborts the whole
// batch and leaves used untouched.
func (s *Service) GenerateBatch(ctx context.Context, analysis *models.ContentAnalysis, difficulty models.Difficulty, batchSize int, used models.QuestionSet) ([]models.GeneratedQuestion, error) {
	if !s.Ready() {
		return nil, models.ErrSourceNotReady
	}
	if _, err := models.ParseDifficulty(string(difficulty)); err != nil {
		return nil, err
	}
	if analysis == nil || len(analysis.KeyConcepts) == 0 || len(analysis.Sentences) == 0 || batchSize <= 0 {
		return nil, nil
	}

	documentID := models.DocumentID(analysis.FullText)
	if err := s.index.AddSentences(ctx, documentID, analysis.Sentences); err != nil {
		return nil, err
	}

	batch := models.NewQuestionSet()
	var questions []models.GeneratedQuestion
	for _, concept := range analysis.KeyConcepts {
		if len(questions) >= batchSize {
			break
		}

		text, err := s.writeQuestion(ctx, documentID, difficulty, concept)
		if err != nil {
			return nil, err
		}
		if text == "" || used.Has(text) || batch.Has(text) {
			continue
		}

		explanation, err := generator.Explain(analysis, difficulty, concept)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		options := generator.SampleOptions(s.rng, analysis.KeyConcepts, concept)
		s.mu.Unlock()

		questions = append(questions, models.GeneratedQuestion{
			ID:            helper.NewQuestionID(),
			Text:          text,
			CorrectAnswer: concept,
			Options:       options,
			Explanation:   explanation,
			Difficulty:    difficulty,
			QuestionType:  difficulty.QuestionType(),
		})
		batch.Add(text)
	}

	for _, q := range questions {
		used.Add(q.Text)
	}

	log.Debug().
		Str("difficulty", string(difficulty)).
		Int("requested", batchSize).
		Int("generated", len(questions)).
		Msg("Generated model batch")
	return questions, nil
}

// writeQuestion returns "" when the model's answer is unusable for concept.
func (s *Service) writeQuestion(ctx context.Context, documentID string, difficulty models.Difficulty, concept string) (string, error) {
	contexts, err := s.index.Nearest(ctx, documentID, concept, contextSentences)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf(models.QuestionPromptTemplate, strings.Join(contexts, "\n"), difficulty, concept)

	raw, err := s.breaker.Execute(func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()
		return llmservice.GenerateContent(callCtx, s.model, prompt)
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate question for %q: %w", concept, err)
	}
	return cleanQuestion(raw, concept), nil
}

// cleanQuestion keeps the first non-empty line, drops list markers and
// quotes, and rejects text that gives the answer away.
func cleanQuestion(raw, concept string) string {
	var line string
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	line = strings.TrimLeft(line, "-*0123456789. ")
	line = strings.Trim(line, "\"'` ")
	line = strings.TrimPrefix(line, "Question: ")
	if line == "" || strings.Contains(strings.ToLower(line), strings.ToLower(concept)) {
		return ""
	}
	if !strings.HasSuffix(line, "?") {
		line += "?"
	}
	return line
}
