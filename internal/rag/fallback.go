package rag

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"docuquest/internal/generator"
	"docuquest/internal/models"
)

// Fallback reasons reported to OnFallback.
const (
	ReasonNotReady = "not_ready"
	ReasonError    = "error"
	ReasonEmpty    = "empty"
)

// ReadySource is a question source that becomes usable some time after start.
type ReadySource interface {
	generator.Source
	Ready() bool
	WaitReady(ctx context.Context, timeout time.Duration) error
}

// FallbackSource prefers Primary and otherwise serves the batch from
// Fallback. Prepare waits at most Timeout for Primary; GenerateBatch never
// blocks on readiness, so callers holding a lock should Prepare first.
type FallbackSource struct {
	Primary    ReadySource
	Fallback   generator.Source
	Timeout    time.Duration
	OnFallback func(reason string)
}

// Prepare waits for Primary to become ready. An error only means the next
// batch will come from Fallback.
func (f *FallbackSource) Prepare(ctx context.Context) error {
	return f.Primary.WaitReady(ctx, f.Timeout)
}

func (f *FallbackSource) GenerateBatch(ctx context.Context, analysis *models.ContentAnalysis, difficulty models.Difficulty, batchSize int, used models.QuestionSet) ([]models.GeneratedQuestion, error) {
	if _, err := models.ParseDifficulty(string(difficulty)); err != nil {
		return nil, err
	}

	var reason string
	if !f.Primary.Ready() {
		reason = ReasonNotReady
		log.Warn().Str("difficulty", string(difficulty)).Msg("Question model not ready, using heuristic generator")
	} else {
		questions, err := f.Primary.GenerateBatch(ctx, analysis, difficulty, batchSize, used)
		switch {
		case err != nil && errors.Is(err, models.ErrSourceNotReady):
			reason = ReasonNotReady
		case err != nil:
			reason = ReasonError
			log.Warn().Err(err).Str("difficulty", string(difficulty)).Msg("Question model failed, using heuristic generator")
		case len(questions) == 0:
			reason = ReasonEmpty
			log.Warn().Str("difficulty", string(difficulty)).Msg("Question model produced nothing, using heuristic generator")
		default:
			return questions, nil
		}
	}

	if f.OnFallback != nil {
		f.OnFallback(reason)
	}
	return f.Fallback.GenerateBatch(ctx, analysis, difficulty, batchSize, used)
}
