// Package llm defines the chat model the keeper talks to.
package llm

import (
	"context"

	"github.com/nathoo/keepercore/types"
)

// Request is one model call: system instruction, conversation and the tools
// the model may call.
type Request struct {
	System   string
	Messages []types.Message
	Tools    []types.ToolSpec
}

// Response is either final text or a batch of tool calls (or both).
type Response struct {
	Content   string
	ToolCalls []types.ToolCall
}

// Model completes a conversation.
type Model interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, req Request) (*Response, error)

// Complete implements Model.
func (f ModelFunc) Complete(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
