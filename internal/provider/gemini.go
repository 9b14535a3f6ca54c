package provider

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider implements LLMProvider on the Gemini API.
type GeminiProvider struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiProvider creates a Gemini provider using a static API key.
func NewGeminiProvider(ctx context.Context, apiKey, defaultModel string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if defaultModel == "" {
		defaultModel = DefaultGeminiModel
	}
	return &GeminiProvider{client: client, defaultModel: defaultModel}, nil
}

func (p *GeminiProvider) DefaultModel() string {
	return p.defaultModel
}

func (p *GeminiProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, buildContents(req.Messages), buildConfig(req))
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	return parseResponse(resp), nil
}

// buildContents converts the conversation into Gemini contents. Consecutive
// tool results are folded into one user content, as Gemini expects all
// responses to a turn's function calls together.
func buildContents(messages []Message) []*genai.Content {
	var contents []*genai.Content
	var pending []*genai.Part

	flush := func() {
		if len(pending) > 0 {
			contents = append(contents, genai.NewContentFromParts(pending, genai.RoleUser))
			pending = nil
		}
	}

	for _, msg := range messages {
		switch msg.Role {
		case RoleTool:
			pending = append(pending, functionResponsePart(msg))
		case RoleModel:
			flush()
			if raw, ok := msg.Raw.(*genai.Content); ok && raw != nil {
				contents = append(contents, raw)
				continue
			}
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, genai.NewPartFromText(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Name,
					Args: tc.Arguments,
				}})
			}
			if len(parts) > 0 {
				contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
			}
		default:
			flush()
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	flush()
	return contents
}

func functionResponsePart(msg Message) *genai.Part {
	response := map[string]any{"result": msg.Content}
	if msg.IsError {
		response = map[string]any{"error": msg.Content}
	}
	part := genai.NewPartFromFunctionResponse(msg.ToolName, response)
	part.FunctionResponse.ID = msg.ToolCallID
	return part
}

func buildConfig(req *ChatRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}

	if req.ResponseSchema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseJsonSchema = req.ResponseSchema
		return cfg
	}

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, len(req.Tools))
		for i, t := range req.Tools {
			decls[i] = &genai.FunctionDeclaration{
				Name:                 t.Name,
				Description:          t.Description,
				ParametersJsonSchema: t.Parameters,
			}
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return cfg
}

func parseResponse(resp *genai.GenerateContentResponse) *ChatResponse {
	result := &ChatResponse{}
	if resp == nil {
		return result
	}

	if u := resp.UsageMetadata; u != nil {
		result.Usage = &Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			ThoughtsTokens:   int(u.ThoughtsTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	var text strings.Builder
	for i, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		msg := Message{Role: RoleModel, Raw: cand.Content}
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" && !part.Thought {
				msg.Content += part.Text
			}
			if fc := part.FunctionCall; fc != nil {
				call := ToolCall{ID: fc.ID, Name: fc.Name, Arguments: fc.Args}
				if call.ID == "" {
					call.ID = fmt.Sprintf("%s-%d-%d", fc.Name, i, len(result.ToolCalls))
				}
				msg.ToolCalls = append(msg.ToolCalls, call)
				result.ToolCalls = append(result.ToolCalls, call)
			}
		}
		if i == 0 {
			text.WriteString(msg.Content)
			result.FinishReason = string(cand.FinishReason)
		}
		result.Candidates = append(result.Candidates, msg)
	}
	result.Content = text.String()
	return result
}
