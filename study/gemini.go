package study

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiGenerator builds a Generator backed by the Gemini API.
func GeminiGenerator(ctx context.Context, apiKey, model string) (Generator, error) {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](0.4),
			MaxOutputTokens: int32(maxTokens),
		})
		if err != nil {
			return "", fmt.Errorf("generation failed: %w", err)
		}
		text := resp.Text()
		if text == "" {
			return "", fmt.Errorf("empty generation response")
		}
		return text, nil
	}, nil
}
