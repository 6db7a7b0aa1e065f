package summarization

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
)

const (
	maxPostsForSummary = 50
	maxPromptLength    = 15000 // Rough character limit for prompt
)

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Summarizer writes a short digest of a batch of analyzed posts.
type Summarizer struct {
	client chatCompleter
	model  string
}

func NewSummarizer(apiKey string) *Summarizer {
	return &Summarizer{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4oMini,
	}
}

// Summarize asks the model for a 2-3 sentence digest of texts.
func (s *Summarizer) Summarize(ctx context.Context, texts []string) (string, error) {
	combined := combine(texts)
	if combined == "" {
		return "", nil
	}

	prompt := fmt.Sprintf("Summarize the following collection of social media posts. Focus on the main topics, the overall tone and any places mentioned. Provide a concise summary (2-3 sentences maximum):\n\n---\n%s\n---\n\nSummary:", combined)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You are an assistant that summarizes batches of social media posts concisely.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   150,
			N:           1,
			Temperature: 0.5,
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai chat completion error: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai returned empty response or choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// combine joins at most maxPostsForSummary non-empty texts and caps the result length.
func combine(texts []string) string {
	var kept []string
	for _, t := range texts {
		if len(kept) >= maxPostsForSummary {
			break
		}
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}

	combined := strings.Join(kept, "\n---\n")
	if len(combined) > maxPromptLength {
		cut := maxPromptLength
		for cut > 0 && !utf8.RuneStart(combined[cut]) {
			cut--
		}
		combined = combined[:cut]
	}
	return combined
}
