package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"github.com/studypal/studypal-backend/internal/config"
	"github.com/studypal/studypal-backend/internal/providers"
)

// Provider implements the generation collaborator on any OpenAI-compatible
// API. It has no search grounding; a request asking for web search runs as a
// plain generation and yields no citations.
type Provider struct {
	cfg    config.ProviderConfig
	client *openai.Client
}

// NewProvider creates an OpenAI-compatible provider from configuration.
func NewProvider(cfg config.ProviderConfig) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = openai.GPT4oMini
	}

	return &Provider{cfg: cfg, client: openai.NewClientWithConfig(clientCfg)}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "openai"
}

// StreamGenerate starts a streaming generation.
func (p *Provider) StreamGenerate(ctx context.Context, req providers.Request) (<-chan providers.Chunk, error) {
	chunks := make(chan providers.Chunk)

	go func() {
		defer close(chunks)

		stream, err := p.client.CreateChatCompletionStream(ctx, p.convertRequest(req, true))
		if err != nil {
			chunks <- providers.Chunk{Error: err.Error()}
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				chunks <- providers.Chunk{FinishReason: "stop"}
				return
			}
			if err != nil {
				chunks <- providers.Chunk{Error: err.Error()}
				return
			}

			if len(resp.Choices) == 0 {
				continue
			}
			choice := resp.Choices[0]
			chunk := providers.Chunk{Delta: choice.Delta.Content}
			if choice.FinishReason != "" {
				chunk.FinishReason = string(choice.FinishReason)
			}
			chunks <- chunk
			if chunk.FinishReason != "" {
				// Terminal chunk sent; the EOF that follows must not
				// produce a second one.
				return
			}
		}
	}()

	return chunks, nil
}

// Generate performs a one-shot generation.
func (p *Provider) Generate(ctx context.Context, req providers.Request) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.convertRequest(req, false))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *Provider) convertRequest(req providers.Request, stream bool) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, turn := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}

	userMsg := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	}
	if req.Image != nil {
		userMsg.Content = ""
		userMsg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: "data:" + req.Image.MIMEType + ";base64," + req.Image.Data,
				},
			},
		}
	}
	messages = append(messages, userMsg)

	model := req.Model
	if model == "" {
		model = p.cfg.DefaultModel
	}

	out := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Stream:   stream,
	}
	if req.StringArray {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return out
}
