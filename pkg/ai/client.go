package ai

// COMPLETION API CLIENT

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const promptTemplate = "Generate 5 multiple-choice questions on: %s"

var ErrEmptyCompletion = errors.New("completion returned no choices")

type Client struct {
	baseURL    string
	token      string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
	maxRetries uint64
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func NewClient(baseURL, token, model string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:     logger,
		maxRetries: 3,
	}
}

// GenerateQuestions asks the model for a multiple-choice quiz on topic and
// returns its text verbatim.
func (c *Client) GenerateQuestions(ctx context.Context, topic string) (string, error) {
	const operation = "ai.GenerateQuestions"

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: fmt.Sprintf(promptTemplate, topic)}},
	})
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", operation, err)
	}

	var result chatResponse
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("unexpected status: %d", resp.StatusCode))
		}

		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	err = backoff.RetryNotify(
		call,
		backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx),
		func(err error, d time.Duration) {
			c.logger.Warn("Completion request failed, retrying",
				zap.String("topic", topic),
				zap.Duration("delay", d),
				zap.Error(err))
		},
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", operation, err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", operation, ErrEmptyCompletion)
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
