package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/studypal/studypal-backend/internal/config"
	"github.com/studypal/studypal-backend/internal/providers"
	"github.com/studypal/studypal-backend/internal/session"
)

// Provider implements the generation collaborator on the Gemini API. It is
// the only provider with web-search grounding: when the request asks for it,
// the Google Search tool is attached and grounding chunks come back as
// source citations.
type Provider struct {
	cfg    config.ProviderConfig
	client *genai.Client
}

// NewProvider creates a Gemini provider from configuration.
func NewProvider(ctx context.Context, cfg config.ProviderConfig) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gemini-2.5-flash"
	}

	return &Provider{cfg: cfg, client: client}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "gemini"
}

// StreamGenerate starts a streaming generation.
func (p *Provider) StreamGenerate(ctx context.Context, req providers.Request) (<-chan providers.Chunk, error) {
	chunks := make(chan providers.Chunk)

	go func() {
		defer close(chunks)

		contents, cfg, err := p.convertRequest(req)
		if err != nil {
			chunks <- providers.Chunk{Error: err.Error()}
			return
		}

		for resp, err := range p.client.Models.GenerateContentStream(ctx, p.model(req), contents, cfg) {
			if err != nil {
				chunks <- providers.Chunk{Error: err.Error()}
				return
			}

			chunk := providers.Chunk{Delta: resp.Text()}
			if len(resp.Candidates) > 0 {
				cand := resp.Candidates[0]
				chunk.Sources = groundingSources(cand.GroundingMetadata)
				if cand.FinishReason != "" {
					chunk.FinishReason = string(cand.FinishReason)
				}
			}
			chunks <- chunk
			if chunk.FinishReason != "" {
				// Terminal chunk sent; ignore anything the iterator
				// yields past the finish.
				return
			}
		}

		chunks <- providers.Chunk{FinishReason: "stop"}
	}()

	return chunks, nil
}

// Generate performs a one-shot generation.
func (p *Provider) Generate(ctx context.Context, req providers.Request) (string, error) {
	contents, cfg, err := p.convertRequest(req)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model(req), contents, cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (p *Provider) model(req providers.Request) string {
	if req.Model != "" {
		return req.Model
	}
	return p.cfg.DefaultModel
}

func (p *Provider) convertRequest(req providers.Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	var contents []*genai.Content
	for _, turn := range req.History {
		role := genai.Role(genai.RoleUser)
		if turn.Role == session.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Image != nil {
		data, err := base64.StdEncoding.DecodeString(req.Image.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid inline image data: %w", err)
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: req.Image.MIMEType, Data: data},
		})
	}
	contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})

	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.WebSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if req.StringArray {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = &genai.Schema{
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		}
	}
	return contents, cfg, nil
}

func groundingSources(md *genai.GroundingMetadata) []session.Source {
	if md == nil {
		return nil
	}
	var sources []session.Source
	for _, chunk := range md.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		sources = append(sources, session.Source{
			URI:   chunk.Web.URI,
			Title: chunk.Web.Title,
		})
	}
	return sources
}
