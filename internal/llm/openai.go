package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider against any OpenAI-compatible API,
// including a local Ollama server.
type OpenAIProvider struct {
	api   *openai.Client
	model string
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible endpoint.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrNotConfigured)
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIProvider{
		api:   openai.NewClientWithConfig(config),
		model: model,
	}, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    buildOpenAIMessages(req),
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
	if req.Schema != nil {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ErrInvalidResponse{Err: errors.New("no choices in response")}
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return nil, &ErrBlocked{Reason: string(choice.FinishReason)}
	}
	slog.Debug("LLM response", "model", resp.Model, "finish", choice.FinishReason)

	return &Response{
		Text:       choice.Message.Content,
		Model:      resp.Model,
		StopReason: mapOpenAIStopReason(choice.FinishReason),
	}, nil
}

// Ping verifies the endpoint is reachable and serves the configured model.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	models, err := p.api.ListModels(ctx)
	if err != nil {
		return mapOpenAIError(err)
	}
	for _, m := range models.Models {
		if m.ID == p.model || strings.TrimSuffix(m.ID, ":latest") == p.model {
			return nil
		}
	}
	return &ErrProviderUnavailable{Err: fmt.Errorf("model %q not found at endpoint", p.model)}
}

func (p *OpenAIProvider) ModelID() string {
	return p.model
}

// buildOpenAIMessages turns the request into a system message plus one user
// message. Images become image_url parts; other binary parts are dropped
// since chat completions cannot carry them.
func buildOpenAIMessages(req Request) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	var parts []openai.ChatMessagePart
	hasImage := false
	for _, part := range req.Parts {
		switch {
		case !part.IsInline():
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: part.Text,
			})
		case strings.HasPrefix(part.MIMEType, "image/"):
			hasImage = true
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    "data:" + part.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(part.Data),
					Detail: openai.ImageURLDetailAuto,
				},
			})
		default:
			slog.Warn("attachment type not supported by OpenAI provider, skipping", "mime", part.MIMEType)
		}
	}

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if hasImage {
		user.MultiContent = parts
	} else {
		var sb strings.Builder
		for i, part := range parts {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(part.Text)
		}
		user.Content = sb.String()
	}
	return append(messages, user)
}

func mapOpenAIStopReason(reason openai.FinishReason) string {
	if reason == openai.FinishReasonLength {
		return "max_tokens"
	}
	return "end"
}

func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return &ErrRateLimit{Err: err}
	}
	return &ErrProviderUnavailable{Err: err}
}
