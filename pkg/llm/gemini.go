package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash-lite"

// Gemini generates replies with Google's Gemini API, or Vertex AI when no API key is set.
type Gemini struct {
	client *genai.Client
	logger *slog.Logger
	model  string
}

// GeminiConfig configures a Gemini backend.
type GeminiConfig struct {
	APIKey     string
	Model      string
	GCPProject string
	Location   string
}

// NewGemini creates a Gemini backend.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var config *genai.ClientConfig
	if cfg.APIKey != "" {
		config = &genai.ClientConfig{
			Backend: genai.BackendGeminiAPI,
			APIKey:  cfg.APIKey,
		}
		logger.Info("using Gemini API with API key")
	} else {
		projectID := cfg.GCPProject
		if projectID == "" {
			projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
		}
		if projectID == "" {
			return nil, fmt.Errorf("gemini: no API key and no GCP project configured")
		}
		location := cfg.Location
		if location == "" {
			location = "us-central1"
		}
		config = &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  projectID,
			Location: location,
		}
		logger.Info("using Vertex AI with Application Default Credentials", "project", projectID, "location", location)
	}

	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := strings.TrimPrefix(cfg.Model, "models/")
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{client: client, model: model, logger: logger}, nil
}

// Generate asks Gemini for a JSON reply.
func (g *Gemini) Generate(ctx context.Context, prompt, system string) (string, error) {
	temperature := float32(0.1)
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  1024,
		ResponseMIMEType: "application/json",
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyReply
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", ErrEmptyReply
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		return "", ErrEmptyReply
	}
	g.logger.Debug("gemini reply", "model", g.model, "length", text.Len())
	return text.String(), nil
}

// Model returns the model name.
func (g *Gemini) Model() string { return g.model }
