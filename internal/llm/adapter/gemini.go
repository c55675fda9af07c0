package adapter

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	"nexusai/internal/apperr"
	"nexusai/internal/models"
)

const (
	geminiRoleUser  = "user"
	geminiRoleModel = "model"
)

// GeminiStreamer is the streaming half of genai's Models service.
type GeminiStreamer interface {
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

type GeminiFactory func(ctx context.Context) (GeminiStreamer, error)

// GeminiRequest carries role-mapped contents. The system prompt is the first
// part of Config.SystemInstruction unless it was empty; lifted system-role
// entries follow it.
type GeminiRequest struct {
	Model    string
	Contents []*genai.Content
	Config   *genai.GenerateContentConfig

	noPrompt bool
}

func (GeminiRequest) Format() string { return models.FormatGemini }

type GeminiAdapter struct {
	model     string
	newClient GeminiFactory
}

func NewGeminiAdapter(modelName string, newClient GeminiFactory) *GeminiAdapter {
	return &GeminiAdapter{model: modelName, newClient: newClient}
}

func (a *GeminiAdapter) Provider() models.Provider { return models.ProviderGemini }

func (a *GeminiAdapter) BuildRequest(msgs []models.ChatMessage, systemPrompt string) (Request, error) {
	conversation, system, err := splitSystem(msgs)
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, 0, len(conversation))
	for _, m := range conversation {
		role := geminiRoleUser
		if m.Role == models.RoleAssistant {
			role = geminiRoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	var parts []*genai.Part
	if systemPrompt != "" {
		parts = append(parts, &genai.Part{Text: systemPrompt})
	}
	for _, s := range system {
		parts = append(parts, &genai.Part{Text: s})
	}
	cfg := &genai.GenerateContentConfig{}
	if len(parts) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: parts}
	}
	return &GeminiRequest{
		Model:    a.model,
		Contents: contents,
		Config:   cfg,
		noPrompt: systemPrompt == "",
	}, nil
}

// DecodeRequest returns lifted system entries ahead of the conversation.
func (a *GeminiAdapter) DecodeRequest(req Request) ([]models.ChatMessage, string, error) {
	r, ok := req.(*GeminiRequest)
	if !ok {
		return nil, "", wrongRequest(models.FormatGemini, req)
	}

	var (
		prompt string
		out    []models.ChatMessage
	)
	var lifted []*genai.Part
	if r.Config != nil && r.Config.SystemInstruction != nil {
		lifted = r.Config.SystemInstruction.Parts
	}
	if !r.noPrompt && len(lifted) > 0 {
		prompt = lifted[0].Text
		lifted = lifted[1:]
	}
	for _, p := range lifted {
		out = append(out, models.ChatMessage{Role: models.RoleSystem, Content: p.Text})
	}

	for _, c := range r.Contents {
		var role models.Role
		switch c.Role {
		case geminiRoleUser:
			role = models.RoleUser
		case geminiRoleModel:
			role = models.RoleAssistant
		default:
			return nil, "", fmt.Errorf("unsupported gemini role %q", c.Role)
		}
		out = append(out, models.ChatMessage{Role: role, Content: partsText(c.Parts)})
	}
	return out, prompt, nil
}

func (a *GeminiAdapter) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	r, ok := req.(*GeminiRequest)
	if !ok {
		return failed(wrongRequest(models.FormatGemini, req))
	}
	return singleUse(func(yield func(string, error) bool) {
		if a.newClient == nil {
			yield("", apperr.Provider(fmt.Errorf("gemini client is not configured")))
			return
		}
		client, err := a.newClient(ctx)
		if err != nil {
			yield("", apperr.Provider(fmt.Errorf("create gemini client: %w", err)))
			return
		}
		for resp, err := range client.GenerateContentStream(ctx, r.Model, r.Contents, r.Config) {
			if err != nil {
				yield("", apperr.Provider(err))
				return
			}
			text := responseText(resp)
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	})
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}
	return partsText(resp.Candidates[0].Content.Parts)
}

func partsText(parts []*genai.Part) string {
	var sb strings.Builder
	for _, p := range parts {
		if p == nil || p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}
