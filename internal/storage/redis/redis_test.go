package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"quiz-bot/internal/conversation"
	rdb "quiz-bot/pkg/redis"
)

func newClient(t *testing.T) (*rdb.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := rdb.New(rdb.Options{Addr: mr.Addr(), TTL: time.Hour})
	t.Cleanup(client.Close)
	return client, mr
}

func TestDialogStorage(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)
	s := NewDialogStorage(client)

	st, err := s.Load(ctx, 10)
	if err != nil {
		t.Fatalf("Load of missing state failed: %v", err)
	}
	if st.Active() {
		t.Errorf("missing state should be idle, got %s", st.Step)
	}

	want := conversation.State{
		Step:   conversation.StepCollectingQuestions,
		Title:  "Capitals",
		QuizID: 4,
		Take:   &conversation.Take{QuizID: 2, Index: 1},
	}
	if err := s.Save(ctx, 10, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if ttl := mr.TTL("quizbot:state:10"); ttl != time.Hour {
		t.Errorf("ttl = %v, want 1h", ttl)
	}

	got, err := s.Load(ctx, 10)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Step != want.Step || got.Title != want.Title || got.QuizID != want.QuizID {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if got.Take == nil || *got.Take != *want.Take {
		t.Errorf("take = %+v, want %+v", got.Take, want.Take)
	}

	if err := s.Drop(ctx, 10); err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	if mr.Exists("quizbot:state:10") {
		t.Error("state key still present after Drop")
	}
}

func TestDialogStorage_CorruptState(t *testing.T) {
	client, mr := newClient(t)
	s := NewDialogStorage(client)

	if err := mr.Set("quizbot:state:3", `{"step":"bogus"}`); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := s.Load(context.Background(), 3); err == nil {
		t.Error("expected error for unknown step")
	}
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)
	rl := NewRateLimiter(client, 2, time.Minute)

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, 1, "create")
		if err != nil || !ok {
			t.Fatalf("call %d: ok=%v err=%v", i, ok, err)
		}
	}
	if ok, _ := rl.Allow(ctx, 1, "create"); ok {
		t.Error("third call within window should be limited")
	}
	if ok, _ := rl.Allow(ctx, 2, "create"); !ok {
		t.Error("other users must not share the counter")
	}

	mr.FastForward(time.Minute + time.Second)
	if ok, _ := rl.Allow(ctx, 1, "create"); !ok {
		t.Error("limit should reset after the window")
	}
}
