package ai

import (
	"context"
	"strings"

	"google.golang.org/genai"
)

// ModelPreset represents the model usage preset
type ModelPreset string

const (
	PresetPrecise  ModelPreset = "precise"
	PresetBalanced ModelPreset = "balanced"
)

// ModelConfig holds sampling configuration for a preset.
type ModelConfig struct {
	Temperature     float32
	TopP            float32
	TopK            int
	MaxOutputTokens int
}

// GetPresetConfig returns the configuration for a preset
func GetPresetConfig(preset ModelPreset) ModelConfig {
	switch preset {
	case PresetPrecise:
		return ModelConfig{
			Temperature:     0.1,
			TopP:            0.9,
			TopK:            20,
			MaxOutputTokens: 2048,
		}
	default:
		return ModelConfig{
			Temperature:     0.4,
			TopP:            0.95,
			TopK:            40,
			MaxOutputTokens: 3000,
		}
	}
}

// GenerateRequest is one chat turn. Images are data URIs and are only
// honoured by providers that report SupportsImages.
type GenerateRequest struct {
	System string
	Prompt string
	Images []string
	Preset ModelPreset
	Model  string
}

type ProviderResult struct {
	Text  string
	Model string
}

// GenerateMetadata contains metadata about the generation
type GenerateMetadata struct {
	Provider string
	Model    string
}

// Provider is an LLM backend.
type Provider interface {
	Name() string
	SupportsImages() bool
	Generate(ctx context.Context, req GenerateRequest) (ProviderResult, error)
	Ping(ctx context.Context) bool
}

func extractTextFromGeminiResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}

	return strings.Join(texts, "")
}
