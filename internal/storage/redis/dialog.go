package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"quiz-bot/internal/conversation"
	rdb "quiz-bot/pkg/redis"
)

// DialogStorage keeps conversation state as JSON with the client's TTL, so
// abandoned sessions expire on their own.
type DialogStorage struct {
	client *rdb.Client
}

var _ conversation.Backend = (*DialogStorage)(nil)

func NewDialogStorage(client *rdb.Client) *DialogStorage {
	return &DialogStorage{client: client}
}

func (s *DialogStorage) Save(ctx context.Context, userID int64, state conversation.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := s.client.SetDefault(ctx, buildStateKey(userID), data); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *DialogStorage) Load(ctx context.Context, userID int64) (conversation.State, error) {
	data, err := s.client.Get(ctx, buildStateKey(userID))
	if rdb.IsNil(err) {
		return conversation.State{}, nil
	}
	if err != nil {
		return conversation.State{}, fmt.Errorf("get state: %w", err)
	}

	var state conversation.State
	if err := json.Unmarshal(data, &state); err != nil {
		return conversation.State{}, fmt.Errorf("unmarshal failure: %w", err)
	}
	return state, nil
}

func (s *DialogStorage) Drop(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, buildStateKey(userID))
}

func buildStateKey(userID int64) string {
	return fmt.Sprintf("quizbot:state:%d", userID)
}
