package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"jarvis/internal/log"
)

// Gemini backs the Client interface with the Gemini API. The API key is read
// from the GEMINI_API_KEY environment variable by the underlying SDK.
type Gemini struct {
	client *genai.Client
	model  string
	logger *log.Logger
}

// NewGemini creates a Gemini client for the given model name.
func NewGemini(ctx context.Context, model string, logger *log.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  model,
		logger: logger.WithComponent(log.ComponentLLM),
	}, nil
}

// Generate sends the history and prompt to the model and returns the raw
// response text.
func (g *Gemini) Generate(ctx context.Context, system, prompt string, history []Message) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := m.Role
		if role != RoleModel {
			role = RoleUser
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  RoleUser,
		Parts: []*genai.Part{{Text: prompt}},
	})

	var config *genai.GenerateContentConfig
	if system != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: system}},
			},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model %s", g.model)
	}
	return text, nil
}
