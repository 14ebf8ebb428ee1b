package session

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"docuquest/internal/models"
)

// Session is the accumulated state of one uploaded document.
type Session struct {
	ID        string
	Analysis  *models.ContentAnalysis
	Stats     models.DocumentStats
	CreatedAt time.Time

	tiers map[models.Difficulty]*tierState
}

type tierState struct {
	mu        sync.Mutex
	used      models.QuestionSet
	questions []models.GeneratedQuestion
}

// New returns an unpublished session with an empty history for every tier.
func New(id string, analysis *models.ContentAnalysis, stats models.DocumentStats) *Session {
	s := &Session{
		ID:        id,
		Analysis:  analysis,
		Stats:     stats,
		CreatedAt: time.Now().UTC(),
		tiers:     make(map[models.Difficulty]*tierState, len(models.Difficulties)),
	}
	for _, d := range models.Difficulties {
		s.tiers[d] = &tierState{used: models.NewQuestionSet()}
	}
	return s
}

// Update runs fn with exclusive access to the tier's issued-question set and
// appends what it returns. Calls for the same tier are serialized; fn must
// record new texts in used.
func (s *Session) Update(d models.Difficulty, fn func(analysis *models.ContentAnalysis, used models.QuestionSet) ([]models.GeneratedQuestion, error)) ([]models.GeneratedQuestion, int, error) {
	t, err := s.tier(d)
	if err != nil {
		return nil, 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	questions, err := fn(s.Analysis, t.used)
	if err != nil {
		return nil, len(t.questions), err
	}
	t.append(questions)
	return questions, len(t.questions), nil
}

// Questions returns a copy of every question issued for the tier.
func (s *Session) Questions(d models.Difficulty) ([]models.GeneratedQuestion, error) {
	t, err := s.tier(d)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.GeneratedQuestion(nil), t.questions...), nil
}

// UsedCount returns how many question texts the tier has issued.
func (s *Session) UsedCount(d models.Difficulty) (int, error) {
	t, err := s.tier(d)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.used.Len(), nil
}

func (s *Session) tier(d models.Difficulty) (*tierState, error) {
	t, ok := s.tiers[d]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidDifficulty, d)
	}
	return t, nil
}

// Store maps document ids to sessions for the life of the process. With a
// positive capacity the least recently used session is evicted on overflow.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*list.Element
	lru      *list.List
	capacity int
	onEvict  func(id string)
}

func NewStore(capacity int) *Store {
	return &Store{
		sessions: make(map[string]*list.Element),
		lru:      list.New(),
		capacity: capacity,
	}
}

// OnEvict registers fn to run, under the store lock, for every evicted
// session id.
func (st *Store) OnEvict(fn func(id string)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.onEvict = fn
}

// Create registers an empty session for id. If one already exists it is
// returned unchanged with created == false, so identical uploads share history.
func (st *Store) Create(id string, analysis *models.ContentAnalysis, stats models.DocumentStats) (sess *Session, created bool) {
	return st.Add(New(id, analysis, stats))
}

// Add publishes sess under its id unless a session with that id is already
// live, in which case the live one is returned with created == false.
func (st *Store) Add(sess *Session) (live *Session, created bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if el, ok := st.sessions[sess.ID]; ok {
		st.lru.MoveToFront(el)
		return el.Value.(*Session), false
	}

	st.sessions[sess.ID] = st.lru.PushFront(sess)

	for st.capacity > 0 && st.lru.Len() > st.capacity {
		oldest := st.lru.Back()
		evicted := st.lru.Remove(oldest).(*Session)
		delete(st.sessions, evicted.ID)
		log.Warn().Str("document_id", evicted.ID).Int("capacity", st.capacity).Msg("Evicted least recently used session")
		if st.onEvict != nil {
			st.onEvict(evicted.ID)
		}
	}
	return sess, true
}

// Get returns the session for id or models.ErrDocumentNotFound.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	el, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrDocumentNotFound, id)
	}
	st.lru.MoveToFront(el)
	return el.Value.(*Session), nil
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Update looks up id and runs Session.Update on it.
func (st *Store) Update(id string, d models.Difficulty, fn func(analysis *models.ContentAnalysis, used models.QuestionSet) ([]models.GeneratedQuestion, error)) ([]models.GeneratedQuestion, int, error) {
	sess, err := st.Get(id)
	if err != nil {
		return nil, 0, err
	}
	return sess.Update(d, fn)
}

// AppendQuestions adds already generated questions to the tier history and
// returns the new total.
func (st *Store) AppendQuestions(id string, d models.Difficulty, questions []models.GeneratedQuestion) (int, error) {
	_, total, err := st.Update(id, d, func(*models.ContentAnalysis, models.QuestionSet) ([]models.GeneratedQuestion, error) {
		return questions, nil
	})
	return total, err
}

func (st *Store) Questions(id string, d models.Difficulty) ([]models.GeneratedQuestion, error) {
	sess, err := st.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.Questions(d)
}

func (st *Store) UsedCount(id string, d models.Difficulty) (int, error) {
	sess, err := st.Get(id)
	if err != nil {
		return 0, err
	}
	return sess.UsedCount(d)
}

func (t *tierState) append(questions []models.GeneratedQuestion) {
	for _, q := range questions {
		t.used.Add(q.Text)
	}
	t.questions = append(t.questions, questions...)
}
