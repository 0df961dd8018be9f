package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestGenerateQuestions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("Authorization = %q", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gemini-2.0-flash" || len(req.Messages) != 1 ||
			req.Messages[0].Content != "Generate 5 multiple-choice questions on: space" {
			t.Errorf("request = %+v", req)
		}

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" 1. What is a comet?\n"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "key", "gemini-2.0-flash", time.Second, zaptest.NewLogger(t))
	got, err := c.GenerateQuestions(context.Background(), "space")
	if err != nil {
		t.Fatalf("GenerateQuestions failed: %v", err)
	}
	if got != "1. What is a comet?" {
		t.Errorf("text = %q", got)
	}
}

func TestGenerateQuestionsRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "m", time.Second, zaptest.NewLogger(t))
	got, err := c.GenerateQuestions(context.Background(), "x")
	if err != nil || got != "ok" {
		t.Fatalf("GenerateQuestions = %q, %v", got, err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestGenerateQuestionsPermanentFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, nil},
		{"no choices", http.StatusOK, `{"choices":[]}`, ErrEmptyCompletion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "key", "m", time.Second, zaptest.NewLogger(t))
			_, err := c.GenerateQuestions(context.Background(), "x")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if calls.Load() != 1 {
				t.Errorf("permanent failure retried %d times", calls.Load())
			}
		})
	}
}
