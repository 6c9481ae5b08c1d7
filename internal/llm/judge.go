package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Verdict is the judge's opinion of one summary
type Verdict struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// Judge scores article summaries from 0 to 10
type Judge interface {
	Judge(ctx context.Context, summary string) (Verdict, error)
}

const judgePrompt = "You are an editor rating news for short-form video. " +
	"Score the article summary from 0 to 10 for how newsworthy, timely and visual it is. " +
	"Return JSON with keys: score (integer 0-10), reason (one sentence)."

// flexibleScore accepts numbers and numeric strings
type flexibleScore float64

func (f *flexibleScore) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid score %q", s)
	}
	*f = flexibleScore(v)
	return nil
}

// ChatJudge scores with a chat model
type ChatJudge struct {
	client *Client
	model  string
}

// NewChatJudge creates a model backed judge
func NewChatJudge(client *Client, model string) *ChatJudge {
	return &ChatJudge{client: client, model: model}
}

func (j *ChatJudge) Judge(ctx context.Context, summary string) (Verdict, error) {
	var out struct {
		Score  flexibleScore `json:"score"`
		Reason string        `json:"reason"`
	}
	err := j.client.ChatJSON(ctx, ChatRequest{
		Model:       j.model,
		System:      judgePrompt,
		User:        "Summary:\n" + summary + "\n\nReturn JSON.",
		Temperature: 0.2,
		MaxTokens:   200,
	}, &out)
	if err != nil {
		return Verdict{}, fmt.Errorf("judge: %w", err)
	}
	return Verdict{Score: ClampScore(int(out.Score + 0.5)), Reason: out.Reason}, nil
}

// ClampScore bounds a score to 0..10
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

var _ json.Unmarshaler = (*flexibleScore)(nil)
