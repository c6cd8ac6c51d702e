// Package groq implements ai.Generator against the Groq OpenAI-compatible chat completions API.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spigell/job-alert/internal/ai"
	"github.com/spigell/job-alert/internal/utils"
)

const (
	Provider = "groq"

	DefaultURL     = "https://api.groq.com/openai/v1/chat/completions"
	defaultModel   = "llama-3.1-8b-instant"
	defaultTimeout = 60 * time.Second
	temperature    = 0.1
	maxErrorBody   = 300
)

// Config holds the Groq settings.
type Config struct {
	APIKey  string
	URL     string
	Model   string
	Timeout time.Duration
}

// Client sends chat completion requests to Groq.
type Client struct {
	apiKey     string
	url        string
	model      string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("groq api key is required")
	}

	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = DefaultURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:     apiKey,
		url:        url,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error json.RawMessage `json:"error,omitempty"`
}

func (c *Client) Model() string { return c.model }

// GenerateContent posts one chat completion. HTTP 413 is reported as ai.ErrPayloadTooLarge.
func (c *Client) GenerateContent(ctx context.Context, system, prompt string) (string, error) {
	var messages []message
	if system = strings.TrimSpace(system); system != "" {
		messages = append(messages, message{Role: "system", Content: system})
	}
	messages = append(messages, message{Role: "user", Content: prompt})

	body, err := json.Marshal(request{Model: c.model, Messages: messages, Temperature: temperature})
	if err != nil {
		return "", fmt.Errorf("marshal groq request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create groq request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read groq response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return "", fmt.Errorf("groq status %d: %w", resp.StatusCode, ai.ErrPayloadTooLarge)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("groq status %d: %s", resp.StatusCode, utils.TruncateForLog(string(data), maxErrorBody))
	}

	var decoded response
	if err := json.Unmarshal(data, &decoded); err != nil {
		return "", fmt.Errorf("decode groq response: %w", err)
	}
	if len(decoded.Error) > 0 && string(decoded.Error) != "null" {
		return "", fmt.Errorf("groq api error: %s", decoded.Error)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("unexpected groq response: %s", utils.TruncateForLog(string(data), maxErrorBody))
	}
	return decoded.Choices[0].Message.Content, nil
}
