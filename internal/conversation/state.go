package conversation

import (
	"context"
	"fmt"
	"sync"
)

// Take is a quiz the user is currently answering.
type Take struct {
	QuizID   int64 `json:"quiz_id"`
	Index    int   `json:"index"`
	Correct  int   `json:"correct"`
	Answered int   `json:"answered"`
}

// State is the per-user record driving the authoring wizard.
type State struct {
	Step        Step   `json:"step"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	QuizID      int64  `json:"quiz_id,omitempty"`
	Take        *Take  `json:"take,omitempty"`
}

// Active reports whether an authoring session is in progress.
func (s State) Active() bool {
	return s.Step != StepIdle
}

// Backend persists State between messages. Load returns a zero State when
// nothing is stored for the user.
type Backend interface {
	Load(ctx context.Context, userID int64) (State, error)
	Save(ctx context.Context, userID int64, state State) error
	Drop(ctx context.Context, userID int64) error
}

type MemoryBackend struct {
	mu     sync.Mutex
	states map[int64]State
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{states: make(map[int64]State)}
}

func (m *MemoryBackend) Load(_ context.Context, userID int64) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.states[userID]
	if st.Take != nil {
		take := *st.Take
		st.Take = &take
	}
	return st, nil
}

func (m *MemoryBackend) Save(_ context.Context, userID int64, state State) error {
	if !state.Step.Valid() {
		return fmt.Errorf("save state: invalid step %s", state.Step)
	}
	if state.Take != nil {
		take := *state.Take
		state.Take = &take
	}
	m.mu.Lock()
	m.states[userID] = state
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Drop(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.states, userID)
	m.mu.Unlock()
	return nil
}
