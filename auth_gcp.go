package main

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const (
	defaultVertexRegion = "us-central1"
	defaultGeminiModel  = "gemini-2.5-flash"
)

// GeminiClient is the Vertex AI backend behind plant search and fit scoring.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClient connects to Vertex AI using Application Default
// Credentials. An empty region or model falls back to the defaults; the flash
// model is responsive enough for interactive plant lookups.
func NewGeminiClient(ctx context.Context, projectID, region, model string) (*GeminiClient, error) {
	if region == "" {
		region = defaultVertexRegion
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: region,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		modelName: model,
	}, nil
}

// Close releases resources held by the client.
func (g *GeminiClient) Close() error {
	return nil
}
