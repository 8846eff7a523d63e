package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rohitbr234/study-scheduler/config"
	"github.com/rohitbr234/study-scheduler/logger"
)

//go:generate mockgen -source=client.go -destination=../tests/mocks/completion.go -package=mocks
type Client interface {
	GenerateSchedule(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

type ClientImpl struct {
	cfg    *config.CompletionConfig
	logger logger.Logger
	client *http.Client
}

func NewClient(cfg *config.CompletionConfig, l logger.Logger) Client {
	return &ClientImpl{
		cfg:    cfg,
		logger: l,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

const (
	MessageRoleSystem = "system"
	MessageRoleUser   = "user"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

// GenerateSchedule sends a chat completion request and returns the raw model
// output. Transport failures and 5xx responses are retried with a fixed
// backoff up to MaxRetries additional attempts; 4xx responses are not, since
// retrying a rejected request only burns quota.
func (c *ClientImpl) GenerateSchedule(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: MessageRoleSystem, Content: systemPrompt},
			{Role: MessageRoleUser, Content: userPrompt},
		},
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.cfg.APIURL + "/v1/chat/completions"

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying completion request", "attempt", fmt.Sprintf("%d", attempt))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.cfg.RetryBackoff * time.Duration(attempt)):
			}
		}

		var content string
		var retryable bool
		content, retryable, lastErr = c.doRequest(ctx, url, payloadBytes)
		if lastErr == nil {
			return content, nil
		}
		if !retryable {
			return "", lastErr
		}
	}

	return "", fmt.Errorf("completion request failed after %d attempts: %w", c.cfg.MaxRetries+1, lastErr)
}

func (c *ClientImpl) doRequest(ctx context.Context, url string, payload []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("completion API returned status %d: %s", resp.StatusCode, string(body))
		return "", resp.StatusCode >= http.StatusInternalServerError, err
	}

	var response chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", false, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", false, fmt.Errorf("completion API returned no choices")
	}

	return response.Choices[0].Message.Content, false, nil
}
