package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"

	"scamlens/internal/config"
	"scamlens/pkg/logger"
)

var (
	// ErrOracleUnavailable is returned when no provider is configured
	ErrOracleUnavailable = errors.New("text-generation oracle unavailable")
	// ErrEmptyResponse is returned when the provider replied with no text
	ErrEmptyResponse = errors.New("empty response from oracle")
)

// Oracle is an opaque text-generation service
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
	Close() error
}

// NewOracle builds the provider selected in configuration
func NewOracle(ctx context.Context, cfg config.OracleConfig, log *logger.Logger) (Oracle, error) {
	switch cfg.Provider {
	case config.OracleProviderOpenAI:
		return NewOpenAIOracle(cfg, log)
	case config.OracleProviderGemini:
		return NewGeminiOracle(ctx, cfg, log)
	case config.OracleProviderNone, "":
		return NopOracle{}, nil
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %s", cfg.Provider)
	}
}

// OpenAIOracle talks to any OpenAI-compatible chat completion endpoint,
// including Cohere's compatibility API when BaseURL points at it.
type OpenAIOracle struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *logger.Logger
}

// NewOpenAIOracle creates an OpenAI-compatible oracle
func NewOpenAIOracle(cfg config.OracleConfig, log *logger.Logger) (*OpenAIOracle, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, errors.New("oracle.openai_api_key is not set")
	}
	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIOracle{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		logger:      log.WithComponent("oracle-openai"),
	}, nil
}

// Name identifies the provider
func (o *OpenAIOracle) Name() string { return config.OracleProviderOpenAI }

// Complete sends prompt as a single user message
func (o *OpenAIOracle) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: o.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	o.logger.Debug().
		Str("model", o.model).
		Int("tokens", resp.Usage.TotalTokens).
		Msg("oracle completion received")
	return text, nil
}

// Close is a no-op for the HTTP client
func (o *OpenAIOracle) Close() error { return nil }

// GeminiOracle talks to Google's Gemini models
type GeminiOracle struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
	logger *logger.Logger
}

// NewGeminiOracle creates a Gemini oracle
func NewGeminiOracle(ctx context.Context, cfg config.OracleConfig, log *logger.Logger) (*GeminiOracle, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("oracle.gemini_api_key is not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	name := cfg.Model
	if name == "" || strings.HasPrefix(name, "gpt") {
		name = "gemini-1.5-flash"
	}
	model := client.GenerativeModel(name)
	model.SetTemperature(float32(cfg.Temperature))

	return &GeminiOracle{
		client: client,
		model:  model,
		name:   name,
		logger: log.WithComponent("oracle-gemini"),
	}, nil
}

// Name identifies the provider
func (o *GeminiOracle) Name() string { return config.OracleProviderGemini }

// Complete generates content for prompt and joins the text parts
func (o *GeminiOracle) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	o.logger.Debug().Str("model", o.name).Msg("oracle completion received")
	return text, nil
}

// Close releases the gRPC connection held by the client
func (o *GeminiOracle) Close() error {
	return o.client.Close()
}

// NopOracle is used when no provider is configured; every call degrades
type NopOracle struct{}

// Name identifies the provider
func (NopOracle) Name() string { return config.OracleProviderNone }

// Complete always fails with ErrOracleUnavailable
func (NopOracle) Complete(context.Context, string) (string, error) {
	return "", ErrOracleUnavailable
}

// Close is a no-op
func (NopOracle) Close() error { return nil }
