package ai

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiProvider serves the text-only tier.
type GeminiProvider struct {
	client       *genai.Client
	defaultModel string
	logger       *zap.Logger
}

// NewGeminiProvider returns (nil, nil) when apiKey is empty. baseURL is
// optional and only used to point the client at a test server.
func NewGeminiProvider(ctx context.Context, apiKey, defaultModel, baseURL string, logger *zap.Logger) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, nil
	}
	if defaultModel == "" {
		defaultModel = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:       client,
		defaultModel: defaultModel,
		logger:       logger,
	}, nil
}

func (g *GeminiProvider) Name() string {
	return "Gemini"
}

func (g *GeminiProvider) SupportsImages() bool {
	return false
}

func (g *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (ProviderResult, error) {
	if g == nil || g.client == nil {
		return ProviderResult{}, fmt.Errorf("gemini client not initialized")
	}

	model := req.Model
	if model == "" {
		model = g.defaultModel
	}
	config := GetPresetConfig(req.Preset)
	topK := float32(config.TopK)

	genConfig := &genai.GenerateContentConfig{
		Temperature:     &config.Temperature,
		TopP:            &config.TopP,
		TopK:            &topK,
		MaxOutputTokens: int32(config.MaxOutputTokens),
	}
	if req.System != "" {
		genConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	g.logger.Debug("Generating with Gemini",
		zap.String("model", model),
		zap.String("preset", string(req.Preset)),
	)

	resp, err := g.client.Models.GenerateContent(ctx, model, []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: req.Prompt}},
		},
	}, genConfig)
	if err != nil {
		g.logger.Warn("Gemini generation failed", zap.Error(err))
		return ProviderResult{}, err
	}

	text := extractTextFromGeminiResponse(resp)
	if text == "" {
		return ProviderResult{}, fmt.Errorf("empty response from Gemini")
	}

	g.logger.Debug("Gemini response received", zap.Int("length", len(text)))
	return ProviderResult{Text: text, Model: model}, nil
}

func (g *GeminiProvider) Ping(ctx context.Context) bool {
	if g == nil || g.client == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	temp := float32(0)
	resp, err := g.client.Models.GenerateContent(ctx, g.defaultModel, []*genai.Content{
		{Parts: []*genai.Part{{Text: "ping"}}},
	}, &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: 10,
	})
	if err != nil {
		g.logger.Debug("Gemini ping failed", zap.Error(err))
		return false
	}

	return extractTextFromGeminiResponse(resp) != ""
}
