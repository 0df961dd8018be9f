package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap/zaptest"
)

type recorder struct {
	mu      sync.Mutex
	updates []tgbotapi.Update
	err     error
}

func (r *recorder) HandleUpdate(_ context.Context, u tgbotapi.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.updates = append(r.updates, u)
	return nil
}

func TestHome(t *testing.T) {
	srv := httptest.NewServer(New("tok", &recorder{}, zaptest.NewLogger(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "Quiz Maker Bot is running!" {
		t.Errorf("GET / = %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /healthz = %d", resp.StatusCode)
	}
}

func TestWebhook(t *testing.T) {
	rec := &recorder{}
	s := New("123:secret", rec, zaptest.NewLogger(t))

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"valid", WebhookPath("123:secret"), `{"update_id":5,"message":{"message_id":1,"text":"hi","chat":{"id":9}}}`, http.StatusOK},
		{"wrong token", WebhookPath("other"), `{"update_id":6}`, http.StatusNotFound},
		{"bad json", WebhookPath("123:secret"), `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			s.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}

	if len(rec.updates) != 1 || rec.updates[0].UpdateID != 5 || rec.updates[0].Message.Text != "hi" {
		t.Errorf("updates = %+v", rec.updates)
	}

	req := httptest.NewRequest(http.MethodGet, WebhookPath("123:secret"), nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET webhook = %d", w.Code)
	}
}

func TestWebhookQueueFailure(t *testing.T) {
	s := New("tok", &recorder{err: errors.New("shutting down")}, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodPost, WebhookPath("tok"), strings.NewReader(`{"update_id":1}`))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", w.Code)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- New("tok", &recorder{}, zaptest.NewLogger(t)).Run(ctx, "127.0.0.1:0") }()
	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Run returned %v", err)
	}
}
