// Package gemini implements embedding.Embedder on the Gemini API.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-embedding-001"

// Task types understood by EmbedContent.
const (
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// Engine generates embeddings using Google's Gemini API.
type Engine struct {
	client *genai.Client
	model  string
	dim    int
}

// New creates an embedding engine. dim pins the output dimensionality.
func New(ctx context.Context, apiKey, model string, dim int) (*Engine, error) {
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
	return NewFromClient(client, model, dim), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *genai.Client, model string, dim int) *Engine {
	if model == "" {
		model = DefaultModel
	}
	if dim <= 0 {
		dim = 768
	}
	return &Engine{client: client, model: model, dim: dim}
}

// Embed implements embedding.Embedder. Texts are embedded as documents.
func (e *Engine) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embed(ctx, texts, taskRetrievalDocument)
}

// EmbedQuery implements embedding.QueryEmbedder.
func (e *Engine) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text}, taskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *Engine) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             task,
		OutputDimensionality: genai.Ptr(int32(e.dim)),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed: got %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

// Dimensions implements embedding.Embedder.
func (e *Engine) Dimensions() int { return e.dim }

// Name implements embedding.Embedder.
func (e *Engine) Name() string { return "gemini:" + e.model }
