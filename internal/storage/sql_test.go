package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"quiz-bot/internal/quiz"
)

func newSQLiteStorage(t *testing.T) *SQLStorage {
	t.Helper()

	s, err := NewSQLStorage(context.Background(), Config{
		Driver:         DriverSQLite,
		SQLitePath:     filepath.Join(t.TempDir(), "quiz.db"),
		ConnectTimeout: 5 * time.Second,
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewSQLStorage failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLStorage_Scenario(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStorage(t)

	id, err := s.Create(ctx, quiz.Draft{
		Title:       "Capitals",
		Description: "Geo quiz",
		CreatorID:   42,
		First:       quiz.Question{Prompt: "What is the capital of France?", Answer: "Paris"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id != 1 {
		t.Fatalf("first id = %d, want 1", id)
	}

	if err := s.AppendQuestion(ctx, id, quiz.Question{Prompt: "What is the capital of Japan?"}); err != nil {
		t.Fatalf("AppendQuestion failed: %v", err)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != "Capitals" || got.Description != "Geo quiz" || got.CreatorID != 42 {
		t.Errorf("unexpected quiz: %+v", got)
	}
	if len(got.Questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(got.Questions))
	}
	if got.Questions[0].Prompt != "What is the capital of France?" || got.Questions[0].Answer != "Paris" {
		t.Errorf("first question = %+v", got.Questions[0])
	}
	if got.Questions[1].Prompt != "What is the capital of Japan?" || got.Questions[1].HasAnswer() {
		t.Errorf("second question = %+v", got.Questions[1])
	}
}

func TestSQLStorage_Delete(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStorage(t)

	id, err := s.Create(ctx, quiz.Draft{Title: "t", First: quiz.Question{Prompt: "q"}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.Record(ctx, quiz.Response{UserID: 9, QuizID: id, Correct: true}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, id); !errors.Is(err, quiz.ErrNotFound) {
		t.Errorf("Get after delete: want ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, id); !errors.Is(err, quiz.ErrNotFound) {
		t.Errorf("second Delete: want ErrNotFound, got %v", err)
	}
	if err := s.AppendQuestion(ctx, id, quiz.Question{Prompt: "x"}); !errors.Is(err, quiz.ErrNotFound) {
		t.Errorf("AppendQuestion after delete: want ErrNotFound, got %v", err)
	}

	responses, err := s.ListByQuiz(ctx, id)
	if err != nil {
		t.Fatalf("ListByQuiz failed: %v", err)
	}
	if len(responses) != 1 || !responses[0].Correct || responses[0].UserID != 9 {
		t.Errorf("responses after delete = %+v", responses)
	}
}

func TestSQLStorage_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStorage(t)

	id, err := s.Create(ctx, quiz.Draft{Title: "t", First: quiz.Question{Prompt: "q0"}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	const writers = 10
	var wg sync.WaitGroup
	for i := 1; i <= writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.AppendQuestion(ctx, id, quiz.Question{Prompt: fmt.Sprintf("q%d", i)}); err != nil {
				t.Errorf("AppendQuestion %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Questions) != writers+1 {
		t.Fatalf("got %d questions, want %d", len(got.Questions), writers+1)
	}
	if got.Questions[0].Prompt != "q0" {
		t.Errorf("first question moved: %q", got.Questions[0].Prompt)
	}
}

func TestSQLStorage_ListByCreator(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStorage(t)

	a, _ := s.Create(ctx, quiz.Draft{Title: "a", CreatorID: 1, First: quiz.Question{Prompt: "q"}})
	_, _ = s.Create(ctx, quiz.Draft{Title: "b", CreatorID: 2, First: quiz.Question{Prompt: "q"}})
	c, _ := s.Create(ctx, quiz.Draft{Title: "c", CreatorID: 1, First: quiz.Question{Prompt: "q"}})
	if err := s.AppendQuestion(ctx, c, quiz.Question{Prompt: "q2"}); err != nil {
		t.Fatalf("AppendQuestion failed: %v", err)
	}

	got, err := s.ListByCreator(ctx, 1)
	if err != nil {
		t.Fatalf("ListByCreator failed: %v", err)
	}
	want := []quiz.Summary{
		{ID: a, Title: "a", QuestionCount: 1},
		{ID: c, Title: "c", QuestionCount: 2},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("summary %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestMigrationsVersion(t *testing.T) {
	s := newSQLiteStorage(t)

	ctx := context.Background()

	v, err := s.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if v != 1 {
		t.Errorf("schema version = %d, want 1", v)
	}

	if err := s.Rollback(ctx); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if v, _ := Version(ctx, s.db.DB, DriverSQLite); v != 0 {
		t.Errorf("schema version after rollback = %d, want 0", v)
	}
	if err := RunMigrations(ctx, s.db.DB, DriverSQLite, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	if _, err := s.Create(ctx, quiz.Draft{Title: "t", First: quiz.Question{Prompt: "q"}}); err != nil {
		t.Errorf("Create after re-migration failed: %v", err)
	}
}

func TestConfigDSN(t *testing.T) {
	if _, err := (Config{Driver: "mysql"}).dsn(); err == nil {
		t.Error("expected error for unsupported driver")
	}

	dsn, err := Config{Driver: DriverPostgres, Host: "db", Port: 5432, User: "u", Password: "p", DBName: "quiz"}.dsn()
	if err != nil {
		t.Fatalf("dsn failed: %v", err)
	}
	if want := "host=db port=5432 user=u password=p dbname=quiz sslmode=disable"; dsn != want {
		t.Errorf("dsn = %q, want %q", dsn, want)
	}
}
