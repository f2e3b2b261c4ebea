package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

// OpenAIProvider sends chat completions, optionally with image parts.
type OpenAIProvider struct {
	client       *openai.Client
	defaultModel string
	imageDetail  string
	logger       *zap.Logger
}

// NewOpenAIProvider returns nil when apiKey is empty.
func NewOpenAIProvider(apiKey, defaultModel string, logger *zap.Logger, opts ...option.RequestOption) *OpenAIProvider {
	if apiKey == "" {
		return nil
	}
	if defaultModel == "" {
		defaultModel = "gpt-4o"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(reqOpts...)
	return &OpenAIProvider{
		client:       &client,
		defaultModel: defaultModel,
		imageDetail:  "low",
		logger:       logger,
	}
}

func (o *OpenAIProvider) Name() string {
	return "OpenAI"
}

func (o *OpenAIProvider) SupportsImages() bool {
	return true
}

func (o *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (ProviderResult, error) {
	if o == nil || o.client == nil {
		return ProviderResult{}, fmt.Errorf("OpenAI client not initialized")
	}

	model := req.Model
	if model == "" {
		model = o.defaultModel
	}
	config := GetPresetConfig(req.Preset)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}

	if len(req.Images) > 0 {
		parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(req.Images)+1)
		parts = append(parts, openai.TextContentPart(req.Prompt))
		for _, img := range req.Images {
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL:    img,
				Detail: o.imageDetail,
			}))
		}
		messages = append(messages, openai.UserMessage(parts))
	} else {
		messages = append(messages, openai.UserMessage(req.Prompt))
	}

	o.logger.Debug("Generating with OpenAI",
		zap.String("model", model),
		zap.String("preset", string(req.Preset)),
		zap.Int("images", len(req.Images)),
	)

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(config.MaxOutputTokens)),
		Temperature:         openai.Float(float64(config.Temperature)),
	})
	if err != nil {
		o.logger.Warn("OpenAI generation failed", zap.Error(err))
		return ProviderResult{}, err
	}

	if len(resp.Choices) == 0 {
		return ProviderResult{}, fmt.Errorf("no choices in OpenAI response")
	}

	text := resp.Choices[0].Message.Content
	o.logger.Info("OpenAI response received",
		zap.Int("length", len(text)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)

	return ProviderResult{Text: text, Model: model}, nil
}

func (o *OpenAIProvider) Ping(ctx context.Context) bool {
	if o == nil || o.client == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.defaultModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("ping"),
		},
		MaxCompletionTokens: openai.Int(10),
	})
	if err != nil {
		o.logger.Debug("OpenAI ping failed", zap.Error(err))
		return false
	}

	return len(resp.Choices) > 0
}
