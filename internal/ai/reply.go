package ai

import (
	"context"
	"fmt"
	"strings"
)

const assistantSystemPrompt = `You are the in-app assistant for a short-video social shopping app.
Answer guest questions about creators, products, and live sessions.
Be friendly and concise: two or three sentences at most. Plain text only.`

// ReplyService generates assistant replies for guest chat messages.
type ReplyService struct {
	client *Client
	model  string
}

// NewReplyService creates a new reply service. An empty model uses the
// client default.
func NewReplyService(client *Client, model string) *ReplyService {
	return &ReplyService{client: client, model: model}
}

// Reply generates one assistant reply for a guest message.
func (s *ReplyService) Reply(ctx context.Context, message string) (string, error) {
	req := &ChatRequest{
		Model:       s.model,
		Temperature: 0.7,
		MaxTokens:   256,
		Messages: []ChatMessage{
			{Role: "system", Content: assistantSystemPrompt},
			{Role: "user", Content: message},
		},
	}

	resp, err := s.client.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}

	reply := strings.TrimSpace(resp.GetMessageContent())
	if reply == "" {
		return "", fmt.Errorf("ai backend returned an empty reply")
	}
	return reply, nil
}
