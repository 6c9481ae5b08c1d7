package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSummarizer(t *testing.T) {
	server := chatServer(t, `{"title":" Pole for Norris ","summary":"Norris took pole.","content":"Full body."}`, func(body map[string]interface{}) {
		assert.Equal(t, "gpt-5-nano", body["model"])
	})
	defer server.Close()

	summary, err := NewChatSummarizer(newTestClient(server.URL), "gpt-5-nano", 100).Summarize(context.Background(), "raw text")
	require.NoError(t, err)
	assert.Equal(t, "Pole for Norris", summary.Title)
	assert.Equal(t, "Norris took pole.", summary.Summary)
	assert.Equal(t, "Full body.", summary.Content)
}

func TestChatJudgeAcceptsStringScores(t *testing.T) {
	tests := []struct {
		content  string
		expected int
	}{
		{`{"score": 7, "reason": "timely"}`, 7},
		{`{"score": "8"}`, 8},
		{`{"score": 12}`, 10},
		{`{"score": -3}`, 0},
		{`{"score": 6.6}`, 7},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			server := chatServer(t, tt.content, nil)
			defer server.Close()

			verdict, err := NewChatJudge(newTestClient(server.URL), "gpt-4.1-mini").Judge(context.Background(), "summary")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, verdict.Score)
		})
	}
}

func TestImageCaptioner(t *testing.T) {
	server := chatServer(t, " A car crossing the line. ", func(body map[string]interface{}) {
		messages := body["messages"].([]interface{})
		user := messages[1].(map[string]interface{})
		parts := user["content"].([]interface{})
		assert.Len(t, parts, 2)
	})
	defer server.Close()

	client := newTestClient(server.URL)
	assert.Equal(t, "A car crossing the line.", NewImageCaptioner(client, "gpt-4o-mini", true).Caption(context.Background(), "https://i.example/x.jpg"))
	assert.Empty(t, NewImageCaptioner(client, "gpt-4o-mini", false).Caption(context.Background(), "https://i.example/x.jpg"))
	assert.Empty(t, NewImageCaptioner(client, "gpt-4o-mini", true).Caption(context.Background(), ""))
}

func TestHeuristicSummarizer(t *testing.T) {
	text := "Verstappen wins in Monaco\nMax Verstappen won the Monaco Grand Prix on Sunday. " +
		"He led every lap. Leclerc finished second. Norris completed the podium."

	summary, err := HeuristicSummarizer{MaxSentences: 2}.Summarize(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, "Verstappen wins in Monaco", summary.Title)
	assert.Equal(t, "Max Verstappen won the Monaco Grand Prix on Sunday. He led every lap.", summary.Summary)
	assert.True(t, strings.HasPrefix(summary.Content, "Max Verstappen"))

	empty, err := HeuristicSummarizer{}.Summarize(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, empty.Summary)
}
