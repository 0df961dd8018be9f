package pexels

// PHOTO SEARCH CLIENT

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.pexels.com/v1"

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
	maxRetries uint64
}

type Photo struct {
	ID  int64 `json:"id"`
	Src struct {
		Large string `json:"large"`
	} `json:"src"`
}

type searchResponse struct {
	Photos []Photo `json:"photos"`
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:     logger,
		maxRetries: 3,
	}
}

// FetchImage returns the large rendition of the first photo matching keyword.
// ok is false when the search has no results.
func (c *Client) FetchImage(ctx context.Context, keyword string) (string, bool, error) {
	const operation = "pexels.FetchImage"

	endpoint := fmt.Sprintf("%s/search?%s", c.baseURL, url.Values{
		"query":    {keyword},
		"per_page": {"1"},
	}.Encode())

	var result searchResponse
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Authorization", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
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

	err := backoff.RetryNotify(
		call,
		backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx),
		func(err error, d time.Duration) {
			c.logger.Warn("Photo search failed, retrying",
				zap.String("keyword", keyword),
				zap.Duration("delay", d),
				zap.Error(err))
		},
	)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", operation, err)
	}

	if len(result.Photos) == 0 || result.Photos[0].Src.Large == "" {
		return "", false, nil
	}
	return result.Photos[0].Src.Large, true, nil
}
