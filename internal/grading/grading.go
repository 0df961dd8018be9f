// Package grading checks submitted answers and logs the outcome.
package grading

import (
	"context"
	"fmt"
	"strings"
	"time"

	"quiz-bot/internal/quiz"
)

type Verdict struct {
	Correct bool
	// Expected is the stored answer, for display when Correct is false.
	Expected string
}

type Grader struct {
	quizzes   quiz.Store
	responses quiz.ResponseStore
	now       func() time.Time
}

func New(quizzes quiz.Store, responses quiz.ResponseStore) *Grader {
	return &Grader{quizzes: quizzes, responses: responses, now: time.Now}
}

// Grade checks answer against the quiz's first question.
func (g *Grader) Grade(ctx context.Context, userID, quizID int64, answer string) (Verdict, error) {
	return g.GradeQuestion(ctx, userID, quizID, 0, answer)
}

func (g *Grader) GradeQuestion(ctx context.Context, userID, quizID int64, index int, answer string) (Verdict, error) {
	verdict, err := g.Check(ctx, quizID, index, answer)
	if err != nil {
		return Verdict{}, err
	}
	if err := g.Record(ctx, userID, quizID, index, verdict); err != nil {
		return Verdict{}, err
	}
	return verdict, nil
}

// Check grades answer against the question at index without recording it.
func (g *Grader) Check(ctx context.Context, quizID int64, index int, answer string) (Verdict, error) {
	q, err := g.quizzes.Get(ctx, quizID)
	if err != nil {
		return Verdict{}, err
	}
	if index < 0 || index >= len(q.Questions) {
		return Verdict{}, fmt.Errorf("question %d of quiz %d: %w", index, quizID, quiz.ErrNotFound)
	}

	expected := q.Questions[index].Answer
	return Verdict{
		Correct:  Match(answer, expected),
		Expected: expected,
	}, nil
}

// Record appends the outcome of a checked answer to the response log.
func (g *Grader) Record(ctx context.Context, userID, quizID int64, index int, v Verdict) error {
	return g.responses.Record(ctx, quiz.Response{
		UserID:        userID,
		QuizID:        quizID,
		QuestionIndex: index,
		Correct:       v.Correct,
		CreatedAt:     g.now(),
	})
}

// Match compares case-insensitively without touching whitespace. An unset
// expected answer never matches.
func Match(submitted, expected string) bool {
	if expected == "" {
		return false
	}
	return strings.ToLower(submitted) == strings.ToLower(expected)
}

type Stats struct {
	Attempts int
	Correct  int
	Users    int
}

// Accuracy is the share of correct attempts in percent.
func (s Stats) Accuracy() int {
	if s.Attempts == 0 {
		return 0
	}
	return s.Correct * 100 / s.Attempts
}

func Summarize(responses []quiz.Response) Stats {
	users := make(map[int64]struct{})
	var st Stats
	for _, r := range responses {
		st.Attempts++
		if r.Correct {
			st.Correct++
		}
		users[r.UserID] = struct{}{}
	}
	st.Users = len(users)
	return st
}
