// Package gemini adapts the official genai client to the conversion backend
// contract, as an alternative to the Azure OpenAI deployment.
package gemini

import (
	"context"
	"fmt"

	genai "google.golang.org/genai"
)

type Client struct {
	cli    *genai.Client
	model  string
	system string
}

// NewClient builds a Gemini-backed translation client. The instruction text
// is prepended to every prompt; the Gemini API has no separate system slot in
// this request shape.
func NewClient(ctx context.Context, apiKey, model, system string) (*Client, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{cli: cli, model: model, system: system}, nil
}

// Translate sends one prompt and returns the model's text. JSON output is
// requested at the API level; recovery from sloppy output happens downstream.
func (c *Client) Translate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	full := c.system + "\n\n" + prompt

	resp, err := c.cli.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			MaxOutputTokens:  int32(maxTokens),
		},
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response candidates")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
