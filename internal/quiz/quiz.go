package quiz

import (
	"context"
	"time"
)

// QUIZ DOMAIN

type Question struct {
	Prompt string `json:"prompt" db:"prompt"`
	Answer string `json:"answer,omitempty" db:"answer"`
}

// HasAnswer reports whether the author attached an expected answer.
func (q Question) HasAnswer() bool {
	return q.Answer != ""
}

type Quiz struct {
	ID          int64      `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description,omitempty" db:"description"`
	CreatorID   int64      `json:"creator_id" db:"creator_id"`
	Questions   []Question `json:"questions" db:"-"`
	CreatedAt   time.Time  `json:"created_at" db:"-"`
}

// Draft is everything needed to persist a quiz with its first question.
type Draft struct {
	Title       string
	Description string
	CreatorID   int64
	First       Question
}

type Summary struct {
	ID            int64  `db:"id"`
	Title         string `db:"title"`
	QuestionCount int    `db:"question_count"`
}

type Response struct {
	UserID        int64
	QuizID        int64
	QuestionIndex int
	Correct       bool
	CreatedAt     time.Time
}

type Store interface {
	Create(ctx context.Context, draft Draft) (int64, error)
	AppendQuestion(ctx context.Context, quizID int64, q Question) error
	Get(ctx context.Context, quizID int64) (Quiz, error)
	Delete(ctx context.Context, quizID int64) error
	ListByCreator(ctx context.Context, creatorID int64) ([]Summary, error)
}

type ResponseStore interface {
	Record(ctx context.Context, r Response) error
	ListByQuiz(ctx context.Context, quizID int64) ([]Response, error)
}
