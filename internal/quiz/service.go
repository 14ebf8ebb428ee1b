package quiz

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"docuquest/internal/analyzer"
	"docuquest/internal/config"
	"docuquest/internal/generator"
	"docuquest/internal/metrics"
	"docuquest/internal/models"
	"docuquest/internal/parser"
	"docuquest/internal/session"
)

// Document is the result of an upload: its session key, stats and every
// question issued so far per tier.
type Document struct {
	ID        string                                           `json:"document_id"`
	Created   bool                                             `json:"created"`
	Stats     models.DocumentStats                             `json:"stats"`
	Questions map[models.Difficulty][]models.GeneratedQuestion `json:"questions"`
}

// Batch is the outcome of a "more questions" request.
type Batch struct {
	Questions  []models.GeneratedQuestion `json:"questions"`
	TotalCount int                        `json:"total_count"`
	Remaining  int                        `json:"remaining"`
	HasMore    bool                       `json:"has_more"`
}

type Service struct {
	store   *session.Store
	source  generator.Source
	metrics *metrics.Metrics
	cfg     config.QuizConfig
}

func NewService(store *session.Store, source generator.Source, m *metrics.Metrics, cfg config.QuizConfig) *Service {
	return &Service{store: store, source: source, metrics: m, cfg: cfg}
}

// Ingest extracts, analyses and registers the document at filePath. The
// first upload of some content generates the initial batch for every tier;
// re-uploading identical content returns the existing session untouched.
func (s *Service) Ingest(ctx context.Context, filePath, declaredType string) (*Document, error) {
	text := parser.Extract(filePath, declaredType)
	chars := utf8.RuneCountInString(strings.TrimSpace(text))
	if chars <= s.cfg.MinTextLength {
		s.metrics.RecordDocument("rejected", chars)
		log.Warn().Str("file", filepath.Base(filePath)).Int("characters", chars).Msg("Rejected document with too little text")
		return nil, models.ErrInsufficientText
	}

	start := time.Now()
	analysis := analyzer.Analyze(text)
	s.metrics.RecordAnalysis(time.Since(start))

	if declaredType == "" {
		declaredType = filepath.Ext(filePath)
	}
	id := models.DocumentID(analysis.FullText)
	live, err := s.store.Get(id)
	created := false
	if err == nil {
		s.metrics.RecordDocument("reused", chars)
	} else {
		// The session is only published once every tier holds its initial
		// batch, so a failed upload leaves nothing behind.
		sess := session.New(id, analysis, analyzer.Stats(analysis, declaredType))
		g, gctx := errgroup.WithContext(ctx)
		for _, d := range models.Difficulties {
			g.Go(func() error {
				_, _, err := s.generate(gctx, sess, d, s.cfg.InitialBatchSize, "initial")
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("failed to generate initial questions: %w", err)
		}
		live, created = s.store.Add(sess)
		if created {
			s.metrics.RecordDocument("created", chars)
		} else {
			s.metrics.RecordDocument("reused", chars)
		}
	}
	s.metrics.SetSessions(s.store.Len())

	log.Info().
		Str("document_id", id).
		Bool("created", created).
		Int("sentences", len(analysis.Sentences)).
		Int("concepts", len(analysis.KeyConcepts)).
		Msg("Document ingested")

	return document(live, created)
}

// Document returns the stats and issued questions of an existing session.
func (s *Service) Document(id string) (*Document, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return document(sess, false)
}

func document(sess *session.Session, created bool) (*Document, error) {
	doc := &Document{
		ID:        sess.ID,
		Created:   created,
		Stats:     sess.Stats,
		Questions: make(map[models.Difficulty][]models.GeneratedQuestion, len(models.Difficulties)),
	}
	for _, d := range models.Difficulties {
		questions, err := sess.Questions(d)
		if err != nil {
			return nil, err
		}
		doc.Questions[d] = questions
	}
	return doc, nil
}

// Stats returns the display statistics recorded when the session was created.
func (s *Service) Stats(id string) (models.DocumentStats, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return models.DocumentStats{}, err
	}
	return sess.Stats, nil
}

// Questions returns every question issued for the tier so far.
func (s *Service) Questions(id, difficulty string) ([]models.GeneratedQuestion, error) {
	d, err := models.ParseDifficulty(difficulty)
	if err != nil {
		return nil, err
	}
	return s.store.Questions(id, d)
}

// More generates the next batch for the tier. The batch never repeats a
// question already issued for the same document and tier, and may be short
// or empty once concepts are exhausted.
func (s *Service) More(ctx context.Context, id, difficulty string) (*Batch, error) {
	d, err := models.ParseDifficulty(difficulty)
	if err != nil {
		return nil, err
	}

	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	questions, total, err := s.generate(ctx, sess, d, s.cfg.MoreBatchSize, "more")
	if err != nil {
		return nil, err
	}
	issued, err := sess.UsedCount(d)
	if err != nil {
		return nil, err
	}
	remaining := generator.Remaining(sess.Analysis, issued)

	if questions == nil {
		questions = []models.GeneratedQuestion{}
	}
	return &Batch{
		Questions:  questions,
		TotalCount: total,
		Remaining:  remaining,
		HasMore:    remaining > 0,
	}, nil
}

// preparer is implemented by sources that may block before they can serve a
// batch. Prepare runs outside the tier lock so readers are never held up.
type preparer interface {
	Prepare(ctx context.Context) error
}

func (s *Service) generate(ctx context.Context, sess *session.Session, d models.Difficulty, size int, kind string) ([]models.GeneratedQuestion, int, error) {
	if p, ok := s.source.(preparer); ok {
		if err := p.Prepare(ctx); err != nil {
			log.Debug().Err(err).Str("document_id", sess.ID).Str("difficulty", string(d)).Msg("Source not prepared")
		}
	}
	questions, total, err := sess.Update(d, func(analysis *models.ContentAnalysis, used models.QuestionSet) ([]models.GeneratedQuestion, error) {
		return s.source.GenerateBatch(ctx, analysis, d, size, used)
	})
	if err != nil {
		return nil, total, err
	}
	s.metrics.RecordBatch(string(d), kind, size, len(questions))
	return questions, total, nil
}
