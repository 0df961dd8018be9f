package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"quiz-bot/internal/quiz"
)

// IN-PROCESS QUIZ STORAGE

type record struct {
	mu      sync.Mutex
	quiz    quiz.Quiz
	deleted bool
}

// Storage keeps quizzes and responses in memory. The index lock only guards
// the map itself; mutations of a quiz are serialized by the record's own mutex.
type Storage struct {
	lastID atomic.Int64

	indexMu sync.RWMutex
	quizzes map[int64]*record

	responsesMu sync.Mutex
	responses   []quiz.Response

	now func() time.Time
}

var (
	_ quiz.Store         = (*Storage)(nil)
	_ quiz.ResponseStore = (*Storage)(nil)
)

func New() *Storage {
	return &Storage{
		quizzes: make(map[int64]*record),
		now:     time.Now,
	}
}

func (s *Storage) Create(ctx context.Context, draft quiz.Draft) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, quiz.Unavailable("memory.Create", err)
	}

	id := s.lastID.Add(1)
	rec := &record{
		quiz: quiz.Quiz{
			ID:          id,
			Title:       draft.Title,
			Description: draft.Description,
			CreatorID:   draft.CreatorID,
			Questions:   []quiz.Question{draft.First},
			CreatedAt:   s.now(),
		},
	}

	s.indexMu.Lock()
	s.quizzes[id] = rec
	s.indexMu.Unlock()

	return id, nil
}

func (s *Storage) lookup(quizID int64) (*record, bool) {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()
	rec, ok := s.quizzes[quizID]
	return rec, ok
}

func (s *Storage) AppendQuestion(ctx context.Context, quizID int64, q quiz.Question) error {
	rec, ok := s.lookup(quizID)
	if !ok {
		return fmt.Errorf("memory.AppendQuestion %d: %w", quizID, quiz.ErrNotFound)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	// A concurrent Delete may have won the race after lookup.
	if rec.deleted {
		return fmt.Errorf("memory.AppendQuestion %d: %w", quizID, quiz.ErrNotFound)
	}
	rec.quiz.Questions = append(rec.quiz.Questions, q)
	return nil
}

func (s *Storage) Get(ctx context.Context, quizID int64) (quiz.Quiz, error) {
	rec, ok := s.lookup(quizID)
	if !ok {
		return quiz.Quiz{}, fmt.Errorf("memory.Get %d: %w", quizID, quiz.ErrNotFound)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.deleted {
		return quiz.Quiz{}, fmt.Errorf("memory.Get %d: %w", quizID, quiz.ErrNotFound)
	}
	out := rec.quiz
	out.Questions = append([]quiz.Question(nil), rec.quiz.Questions...)
	return out, nil
}

func (s *Storage) Delete(ctx context.Context, quizID int64) error {
	rec, ok := s.lookup(quizID)
	if !ok {
		return fmt.Errorf("memory.Delete %d: %w", quizID, quiz.ErrNotFound)
	}

	rec.mu.Lock()
	if rec.deleted {
		rec.mu.Unlock()
		return fmt.Errorf("memory.Delete %d: %w", quizID, quiz.ErrNotFound)
	}
	rec.deleted = true
	rec.mu.Unlock()

	s.indexMu.Lock()
	if s.quizzes[quizID] == rec {
		delete(s.quizzes, quizID)
	}
	s.indexMu.Unlock()
	return nil
}

func (s *Storage) ListByCreator(ctx context.Context, creatorID int64) ([]quiz.Summary, error) {
	s.indexMu.RLock()
	recs := make([]*record, 0, len(s.quizzes))
	for _, rec := range s.quizzes {
		recs = append(recs, rec)
	}
	s.indexMu.RUnlock()

	var out []quiz.Summary
	for _, rec := range recs {
		rec.mu.Lock()
		if !rec.deleted && rec.quiz.CreatorID == creatorID {
			out = append(out, quiz.Summary{
				ID:            rec.quiz.ID,
				Title:         rec.quiz.Title,
				QuestionCount: len(rec.quiz.Questions),
			})
		}
		rec.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Storage) Record(ctx context.Context, r quiz.Response) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}

	s.responsesMu.Lock()
	s.responses = append(s.responses, r)
	s.responsesMu.Unlock()
	return nil
}

func (s *Storage) ListByQuiz(ctx context.Context, quizID int64) ([]quiz.Response, error) {
	s.responsesMu.Lock()
	defer s.responsesMu.Unlock()

	var out []quiz.Response
	for _, r := range s.responses {
		if r.QuizID == quizID {
			out = append(out, r)
		}
	}
	return out, nil
}
