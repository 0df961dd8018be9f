package menu

import (
	"context"
	"errors"
	"testing"

	"quiz-bot/internal/quiz"
	"quiz-bot/internal/storage/memory"
)

func TestRender(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	id, _ := s.Create(ctx, quiz.Draft{Title: "Capitals", First: quiz.Question{Prompt: "France?"}})
	_ = s.AppendQuestion(ctx, id, quiz.Question{Prompt: "Japan?"})

	m := New(s, "https://t.me/quiz_maker_bot/")
	view, err := m.Render(ctx, id)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if view.Title != "Capitals" || view.Description != "No description" || view.QuestionCount != 2 {
		t.Errorf("view = %+v", view)
	}

	wantActions := []Action{ActionStart, ActionShare, ActionDelete, ActionClose}
	if len(view.Buttons) != len(wantActions) {
		t.Fatalf("buttons = %+v", view.Buttons)
	}
	for i, a := range wantActions {
		b := view.Buttons[i]
		if b.Action != a || b.Data != CallbackData(a, id) || b.Label == "" {
			t.Errorf("button %d = %+v", i, b)
		}
	}

	if want := "📝 Capitals\n\nNo description\n\nQuestions: 2"; view.Text() != want {
		t.Errorf("text = %q, want %q", view.Text(), want)
	}
}

func TestStartAndDelete(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	id, _ := s.Create(ctx, quiz.Draft{Title: "t", Description: "d", First: quiz.Question{Prompt: "first?"}})
	m := New(s, "https://t.me/bot")

	q, err := m.Start(ctx, id)
	if err != nil || q.Prompt != "first?" {
		t.Fatalf("Start = %+v, %v", q, err)
	}
	if _, total, err := m.Question(ctx, id, 1); !errors.Is(err, quiz.ErrNotFound) || total != 1 {
		t.Errorf("Question past end = %d, %v", total, err)
	}

	if err := m.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := m.Delete(ctx, id); !errors.Is(err, quiz.ErrNotFound) {
		t.Errorf("second Delete: want ErrNotFound, got %v", err)
	}
	if _, err := m.Render(ctx, id); !errors.Is(err, quiz.ErrNotFound) {
		t.Errorf("Render after delete: want ErrNotFound, got %v", err)
	}
}

func TestShareLink(t *testing.T) {
	m := New(memory.New(), "https://t.me/quiz_maker_bot")
	if got, want := m.ShareLink(12), "https://t.me/quiz_maker_bot?start=quiz_12"; got != want {
		t.Errorf("ShareLink = %q, want %q", got, want)
	}
	if m.ShareLink(12) != m.ShareLink(12) {
		t.Error("share link must be deterministic")
	}

	id, ok := ParseStartPayload("quiz_12")
	if !ok || id != 12 {
		t.Errorf("ParseStartPayload = %d, %v", id, ok)
	}
	for _, bad := range []string{"", "quiz_", "quiz_x", "12", "quiz_-1"} {
		if _, ok := ParseStartPayload(bad); ok {
			t.Errorf("ParseStartPayload(%q) should fail", bad)
		}
	}
}

func TestParseCallback(t *testing.T) {
	a, id, err := ParseCallback(CallbackData(ActionDelete, 5))
	if err != nil || a != ActionDelete || id != 5 {
		t.Fatalf("ParseCallback = %s, %d, %v", a, id, err)
	}

	for _, bad := range []string{"", "quiz:start", "quiz:play:1", "poll:start:1", "quiz:start:abc", "quiz:start:0"} {
		if _, _, err := ParseCallback(bad); err == nil {
			t.Errorf("ParseCallback(%q) should fail", bad)
		}
	}
}
