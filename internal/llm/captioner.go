package llm

import (
	"context"
	"log"
	"strings"
)

const captionPrompt = "You are an image captioning assistant for news. " +
	"Describe the image in 1-3 sentences, focusing on people, vehicles, venues, " +
	"results boards or notable incidents. If the image is unclear, say so. Avoid speculation."

// ImageCaptioner describes images with a vision capable chat model.
// Failures and a disabled captioner both yield "".
type ImageCaptioner struct {
	client  *Client
	model   string
	enabled bool
}

// NewImageCaptioner creates a captioner
func NewImageCaptioner(client *Client, model string, enabled bool) *ImageCaptioner {
	return &ImageCaptioner{client: client, model: model, enabled: enabled}
}

func (c *ImageCaptioner) Caption(ctx context.Context, imageURL string) string {
	if !c.enabled || imageURL == "" || !c.client.Configured() {
		return ""
	}
	text, err := c.client.Chat(ctx, ChatRequest{
		Model:           c.model,
		System:          captionPrompt,
		User:            "Caption this image for a news roundup.",
		ImageURL:        imageURL,
		Temperature:     0.2,
		MaxTokens:       200,
		ReasoningEffort: "minimal",
	})
	if err != nil {
		log.Printf("⚠️ Image caption failed for %s: %v", imageURL, err)
		return ""
	}
	return strings.TrimSpace(text)
}
