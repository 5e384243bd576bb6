// Package gemini implements llm.Model on the Gemini API with function calling.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/nathoo/keepercore/llm"
	"github.com/nathoo/keepercore/types"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

// Client is a Gemini chat model.
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
}

// New creates a client for the Gemini API.
func New(ctx context.Context, apiKey, model string, temperature float32) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{client: client, model: model, temperature: temperature}, nil
}

// GenAI exposes the underlying client so other components can share it.
func (c *Client) GenAI() *genai.Client { return c.client }

// Complete implements llm.Model.
func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: Declarations(req.Tools)}}
	}

	res, err := c.client.Models.GenerateContent(ctx, c.model, Contents(req.Messages), config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return FromResponse(res), nil
}

// Contents maps the conversation onto Gemini contents. Assistant tool calls
// become function-call parts; tool results become function-response parts
// sent with the user role. Consecutive tool results share one content.
func Contents(messages []types.Message) []*genai.Content {
	var out []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case types.RoleSystem:
			// Carried by the system instruction.
		case types.RoleUser:
			out = append(out, genai.NewContentFromText(m.Content, genai.RoleUser))
		case types.RoleAssistant:
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, call := range m.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   call.ID,
					Name: call.Name,
					Args: call.Args,
				}})
			}
			if len(parts) > 0 {
				out = append(out, genai.NewContentFromParts(parts, genai.RoleModel))
			}
		case types.RoleTool:
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       m.ToolCallID,
				Name:     m.ToolName,
				Response: map[string]any{"output": m.Content},
			}}
			if n := len(out); n > 0 && isFunctionResponses(out[n-1]) {
				out[n-1].Parts = append(out[n-1].Parts, part)
				continue
			}
			out = append(out, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		}
	}
	return out
}

func isFunctionResponses(c *genai.Content) bool {
	if len(c.Parts) == 0 {
		return false
	}
	for _, p := range c.Parts {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return true
}

// FromResponse extracts text and function calls from the first candidate.
// Calls without an id get a fresh one.
func FromResponse(res *genai.GenerateContentResponse) *llm.Response {
	out := &llm.Response{}
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return out
	}
	var text strings.Builder
	for _, p := range res.Candidates[0].Content.Parts {
		if p == nil {
			continue
		}
		if p.FunctionCall != nil {
			id := p.FunctionCall.ID
			if id == "" {
				id = uuid.NewString()
			}
			args := p.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			out.ToolCalls = append(out.ToolCalls, types.ToolCall{ID: id, Name: p.FunctionCall.Name, Args: args})
			continue
		}
		if p.Text != "" && !p.Thought {
			text.WriteString(p.Text)
		}
	}
	out.Content = text.String()
	return out
}

// Declarations maps tool specs onto function declarations.
func Declarations(specs []types.ToolSpec) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, len(specs))
	for i, s := range specs {
		out[i] = &genai.FunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  Schema(s.Parameters),
		}
	}
	return out
}

var schemaTypes = map[string]genai.Type{
	"object":  genai.TypeObject,
	"string":  genai.TypeString,
	"integer": genai.TypeInteger,
	"number":  genai.TypeNumber,
	"boolean": genai.TypeBoolean,
	"array":   genai.TypeArray,
}

// Schema converts a tool parameter schema.
func Schema(s *types.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        schemaTypes[s.Type],
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Items:       Schema(s.Items),
		Minimum:     s.Minimum,
		Maximum:     s.Maximum,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = Schema(p)
		}
	}
	return out
}
