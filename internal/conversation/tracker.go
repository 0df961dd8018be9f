package conversation

import (
	"context"

	"quiz-bot/internal/quiz"
)

// Tracker owns per-user conversation state on top of a Backend.
type Tracker struct {
	backend Backend
}

func NewTracker(backend Backend) *Tracker {
	return &Tracker{backend: backend}
}

func (t *Tracker) Load(ctx context.Context, userID int64) (State, error) {
	st, err := t.backend.Load(ctx, userID)
	if err != nil {
		return State{}, quiz.Unavailable("conversation.Load", err)
	}
	return st, nil
}

func (t *Tracker) Save(ctx context.Context, userID int64, st State) error {
	if err := t.backend.Save(ctx, userID, st); err != nil {
		return quiz.Unavailable("conversation.Save", err)
	}
	return nil
}

// Begin starts a fresh authoring session, discarding any partial quiz and any
// quiz the user was answering.
func (t *Tracker) Begin(ctx context.Context, userID int64) error {
	return t.Save(ctx, userID, State{Step: StepAwaitingTitle})
}

// Clear forgets everything about the user.
func (t *Tracker) Clear(ctx context.Context, userID int64) error {
	if err := t.backend.Drop(ctx, userID); err != nil {
		return quiz.Unavailable("conversation.Clear", err)
	}
	return nil
}

// EndAuthoring closes the authoring session and keeps a take in progress.
func (t *Tracker) EndAuthoring(ctx context.Context, userID int64) error {
	st, err := t.Load(ctx, userID)
	if err != nil {
		return err
	}
	if st.Take == nil {
		return t.Clear(ctx, userID)
	}
	return t.Save(ctx, userID, State{Take: st.Take})
}

// SetTake points the user at a quiz to answer, keeping any authoring session.
func (t *Tracker) SetTake(ctx context.Context, userID int64, take Take) error {
	st, err := t.Load(ctx, userID)
	if err != nil {
		return err
	}
	st.Take = &take
	return t.Save(ctx, userID, st)
}

func (t *Tracker) ClearTake(ctx context.Context, userID int64) error {
	st, err := t.Load(ctx, userID)
	if err != nil {
		return err
	}
	if st.Take == nil {
		return nil
	}
	st.Take = nil
	if !st.Active() {
		return t.Clear(ctx, userID)
	}
	return t.Save(ctx, userID, st)
}
