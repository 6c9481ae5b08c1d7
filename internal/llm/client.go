// Package llm talks to an OpenAI compatible chat completions endpoint and
// wraps it in the summarizer, judge and captioner collaborators.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"newsmill/internal/config"
)

// ErrNotConfigured is returned when no API key is set
var ErrNotConfigured = errors.New("OPENAI_API_KEY not set")

// ErrEmptyContent is returned when the model answers with nothing
var ErrEmptyContent = errors.New("model returned empty content")

// ChatRequest is a single system + user exchange
type ChatRequest struct {
	Model           string
	System          string
	User            string
	ImageURL        string
	Temperature     float64
	MaxTokens       int
	ReasoningEffort string
	JSON            bool
}

// Client is a minimal chat completions client with transport level retries
type Client struct {
	apiKey     string
	baseURL    string
	retries    int
	httpClient *http.Client
	sleep      func(time.Duration)
}

// NewClient creates a client from the OpenAI config section
func NewClient(cfg config.OpenAI, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		retries:    retries,
		httpClient: &http.Client{Timeout: timeout},
		sleep:      time.Sleep,
	}
}

// Configured reports whether an API key is present
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func isReasoningModel(model string) bool {
	return strings.HasPrefix(model, "gpt-5")
}

func (c *Client) payload(req ChatRequest) map[string]interface{} {
	var user interface{} = req.User
	if req.ImageURL != "" {
		user = []contentPart{
			{Type: "text", Text: req.User},
			{Type: "image_url", ImageURL: &imageURL{URL: req.ImageURL}},
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 800
	}

	body := map[string]interface{}{
		"model": req.Model,
		"messages": []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: user},
		},
	}
	if isReasoningModel(req.Model) {
		body["max_completion_tokens"] = maxTokens
		effort := req.ReasoningEffort
		if effort == "" {
			effort = "minimal"
		}
		body["reasoning_effort"] = effort
	} else {
		body["max_tokens"] = maxTokens
		body["temperature"] = req.Temperature
	}
	if req.JSON {
		body["response_format"] = map[string]string{"type": "json_object"}
	}
	return body
}

// post sends the request, retrying only transport failures with a linear
// backoff of 1s, 2s, ...
func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if attempt < c.retries {
			log.Printf("⚠️ LLM request failed (attempt %d/%d): %v", attempt+1, c.retries+1, err)
			c.sleep(time.Duration(1+attempt) * time.Second)
		}
	}
	return nil, fmt.Errorf("llm request failed: %w", lastErr)
}

// Chat sends the request and returns the first choice's content
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(c.payload(req))
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("llm error %d: %s", resp.StatusCode, truncate(string(data), 500))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", ErrEmptyContent
	}
	return parsed.Choices[0].Message.Content, nil
}

// ChatJSON asks for a JSON object and decodes it into out
func (c *Client) ChatJSON(ctx context.Context, req ChatRequest, out interface{}) error {
	req.JSON = true
	content, err := c.Chat(ctx, req)
	if err != nil {
		return err
	}
	return DecodeJSON(content, out)
}

// DecodeJSON decodes a model answer, tolerating prose around the object by
// retrying on the span between the first '{' and the last '}'.
func DecodeJSON(content string, out interface{}) error {
	err := json.Unmarshal([]byte(content), out)
	if err == nil {
		return nil
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return fmt.Errorf("failed to decode model json: %w", err)
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), out); err != nil {
		return fmt.Errorf("failed to decode model json: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
