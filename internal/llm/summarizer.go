package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Summary is what extraction stores on an article
type Summary struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Content string `json:"content"`
}

// Summarizer turns raw article text into a summary
type Summarizer interface {
	Summarize(ctx context.Context, raw string) (Summary, error)
}

const summarizerPrompt = "You extract news articles. Return JSON with keys: title, summary, content. " +
	"title is a short factual headline. summary is 2-4 sentences covering who, what and when. " +
	"content is the cleaned article body without navigation, ads or boilerplate. " +
	"If the text contains no article, return an empty summary."

// ChatSummarizer summarizes with a chat model
type ChatSummarizer struct {
	client   *Client
	model    string
	maxChars int
}

// NewChatSummarizer creates a model backed summarizer
func NewChatSummarizer(client *Client, model string, maxChars int) *ChatSummarizer {
	return &ChatSummarizer{client: client, model: model, maxChars: maxChars}
}

func (s *ChatSummarizer) Summarize(ctx context.Context, raw string) (Summary, error) {
	text := strings.TrimSpace(raw)
	if s.maxChars > 0 && len([]rune(text)) > s.maxChars {
		text = string([]rune(text)[:s.maxChars])
	}

	var out Summary
	err := s.client.ChatJSON(ctx, ChatRequest{
		Model:       s.model,
		System:      summarizerPrompt,
		User:        "Article text:\n" + text + "\n\nReturn JSON.",
		Temperature: 0.2,
		MaxTokens:   1200,
	}, &out)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize: %w", err)
	}
	out.Title = strings.TrimSpace(out.Title)
	out.Summary = strings.TrimSpace(out.Summary)
	out.Content = strings.TrimSpace(out.Content)
	return out, nil
}

var sentenceEnd = regexp.MustCompile(`[.!?]["')\]]?\s+`)

// HeuristicSummarizer builds a summary from the leading sentences of the
// text. It is used when model extraction is disabled.
type HeuristicSummarizer struct {
	MaxSentences int
	MaxChars     int
}

func (h HeuristicSummarizer) Summarize(_ context.Context, raw string) (Summary, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Summary{}, nil
	}
	maxSentences := h.MaxSentences
	if maxSentences <= 0 {
		maxSentences = 3
	}
	maxChars := h.MaxChars
	if maxChars <= 0 {
		maxChars = 600
	}

	title := ""
	if line, rest, found := strings.Cut(text, "\n"); found && len([]rune(line)) <= 160 && strings.TrimSpace(rest) != "" {
		title = strings.TrimSpace(line)
		text = strings.TrimSpace(rest)
	}

	flat := strings.Join(strings.Fields(text), " ")
	ends := sentenceEnd.FindAllStringIndex(flat, maxSentences)
	summary := flat
	if len(ends) == maxSentences {
		summary = strings.TrimSpace(flat[:ends[maxSentences-1][1]])
	}
	if runes := []rune(summary); len(runes) > maxChars {
		summary = strings.TrimSpace(string(runes[:maxChars]))
	}

	return Summary{Title: title, Summary: summary, Content: text}, nil
}
